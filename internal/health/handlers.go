package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
)

// Handler answers liveness and readiness probes.
type Handler struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger zerolog.Logger
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready reports whether the backing services answer. Redis failures degrade
// the response but do not fail readiness: the API limps along without rate
// limiting when Redis is gone.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	status := http.StatusOK

	if h.DB == nil {
		checks["postgres"] = "not configured"
		status = http.StatusServiceUnavailable
	} else if err := h.DB.Ping(ctx); err != nil {
		h.Logger.Error().Err(err).Msg("readiness: postgres ping failed")
		checks["postgres"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.Redis == nil {
		checks["redis"] = "not configured"
	} else if err := h.Redis.Ping(ctx).Err(); err != nil {
		h.Logger.Warn().Err(err).Msg("readiness: redis ping failed")
		checks["redis"] = "unreachable"
	}

	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	common.JSON(w, status, body)
}
