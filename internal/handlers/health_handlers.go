package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
	healthStatusUp        = "up"
	healthStatusDown      = "down"
)

// DatabaseHealthChecker reports whether the event history database is reachable
type DatabaseHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports the reachability of the session store and, when configured, the database
type HealthHandler struct {
	store HealthChecker
	db    DatabaseHealthChecker
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(store HealthChecker, db DatabaseHealthChecker) *HealthHandler {
	return &HealthHandler{store: store, db: db}
}

// Health checks every backend and answers 503 if any of them is down
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.StoreHealthTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status: healthStatusHealthy,
		Store:  healthStatusUp,
	}

	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Session store health check failed")
		status.Status = healthStatusUnhealthy
		status.Store = healthStatusDown
	}

	if h.db != nil {
		status.Database = healthStatusUp
		if err := h.db.HealthCheck(ctx); err != nil {
			log.Error().Err(err).Msg("Database health check failed")
			status.Status = healthStatusUnhealthy
			status.Database = healthStatusDown
		}
	}

	if status.Status != healthStatusHealthy {
		details := map[string]string{"store": status.Store}
		if status.Database != "" {
			details["database"] = status.Database
		}
		utils.Error(w, http.StatusServiceUnavailable, "service_unavailable", "Service is not healthy", details)
		return
	}
	utils.JSON(w, constants.StatusOK, status)
}
