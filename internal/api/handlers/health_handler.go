package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	serviceName    = "Amity Bot API"
	serviceVersion = "1.0.0"
	deepCheckLimit = 30 * time.Second
)

// Check is one dependency probe of the deep health route.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
	logger *slog.Logger
}

func NewHealthHandler(checks map[string]Check, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": serviceName + " is running", "status": "healthy"})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

type deepHealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DeepHealth runs every probe and answers 503 if any fails.
func (h *HealthHandler) DeepHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), deepCheckLimit)
	defer cancel()

	resp := deepHealthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
