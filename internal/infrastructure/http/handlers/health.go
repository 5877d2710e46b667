package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

const (
	statusUp       = "UP"
	statusDown     = "DOWN"
	statusDisabled = "DISABLED"

	pingTimeout = 2 * time.Second
)

type sessionCounter interface {
	Len() int
}

// HealthHandler reports on the backing stores. A nil db or redis client means
// the service runs without that store and it is reported as DISABLED.
type HealthHandler struct {
	db        *sql.DB
	redis     *redis.Client
	sessions  sessionCounter
	log       *logger.Logger
	startTime time.Time
}

func NewHealthHandler(db *sql.DB, redis *redis.Client, sessions sessionCounter, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		sessions:  sessions,
		log:       log,
		startTime: time.Now().UTC(),
	}
}

type MemoryMetrics struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

type ServicesStatus struct {
	App      string `json:"app"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type HealthData struct {
	ServicesStatus ServicesStatus `json:"services_status"`
	Uptime         string         `json:"uptime"`
	Memory         MemoryMetrics  `json:"memory"`
	Goroutines     int            `json:"goroutines"`
	Sessions       int            `json:"active_sessions"`
}

func (h *HealthHandler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		dbStatus := statusDisabled
		if h.db != nil {
			dbStatus = statusUp
			if err := h.db.PingContext(ctx); err != nil {
				h.log.Warn("Database health check failed", "error", err)
				dbStatus = statusDown
			}
		}

		redisStatus := statusDisabled
		if h.redis != nil {
			redisStatus = statusUp
			if err := h.redis.Ping(ctx).Err(); err != nil {
				h.log.Warn("Redis health check failed", "error", err)
				redisStatus = statusDown
			}
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		data := HealthData{
			ServicesStatus: ServicesStatus{
				App:      statusUp,
				Database: dbStatus,
				Redis:    redisStatus,
			},
			Uptime: time.Since(h.startTime).String(),
			Memory: MemoryMetrics{
				Alloc:      mem.Alloc,
				TotalAlloc: mem.TotalAlloc,
				Sys:        mem.Sys,
				NumGC:      mem.NumGC,
			},
			Goroutines: runtime.NumGoroutine(),
		}
		if h.sessions != nil {
			data.Sessions = h.sessions.Len()
		}

		if dbStatus == statusDown || redisStatus == statusDown {
			response.WriteJSON(w, http.StatusServiceUnavailable, response.DataResponse[HealthData]{
				BaseResponse: response.BaseResponse{Status: response.StatusServiceUnavailable},
				Data:         data,
			})
			return
		}
		response.WriteSuccess(w, data)
	}
}
