package middleware

import (
	"context"
	"net/http"
	"strings"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
)

const (
	UserIDHeader      = "X-User-ID"
	CartSessionHeader = "X-Cart-Session"
)

type identityKey struct{}

type identity struct {
	userID      string
	cartSession string
}

// Identity reads the caller's user id and guest cart session from the request
// headers. Authentication happens upstream; this service trusts X-User-ID.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity{
			userID:      strings.TrimSpace(r.Header.Get(UserIDHeader)),
			cartSession: strings.TrimSpace(r.Header.Get(CartSessionHeader)),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func fromContext(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id := fromContext(ctx)
	return id.userID, id.userID != ""
}

// OwnerKey names the cart of the caller: a signed-in user owns user:<id>,
// a guest owns guest:<cart session>.
func OwnerKey(ctx context.Context) (string, error) {
	id := fromContext(ctx)
	switch {
	case id.userID != "":
		return "user:" + id.userID, nil
	case id.cartSession != "":
		return "guest:" + id.cartSession, nil
	default:
		return "", domainErrors.ErrCartOwnerRequired
	}
}

// ContextIdentity resolves the signed-in user for the checkout machine.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUserID(ctx context.Context) (string, bool) {
	return UserIDFromContext(ctx)
}
