package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	SessionCount(ctx context.Context) (int, error)
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	sessions SessionCounter
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler; sessions may be nil
func NewHealthHandler(sessions SessionCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Sessions  int       `json:"sessions"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
	}

	if h.sessions != nil {
		n, err := h.sessions.SessionCount(r.Context())
		if err != nil {
			h.logger.Error("failed to count sessions", "error", err)
			response.Status = "degraded"
		}
		response.Sessions = n
	}

	WriteJSON(w, http.StatusOK, response, h.logger)
}
