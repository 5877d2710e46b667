package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeBadBody(w http.ResponseWriter, err error) {
	response.WriteError(w, http.StatusBadRequest, response.StatusValidationError, "Invalid request body", err.Error())
}

// writeError logs failures the caller cannot fix before mapping them.
func writeError(log *logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, body := response.MapDomainError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
		)
	}
	response.WriteJSON(w, status, body)
}
