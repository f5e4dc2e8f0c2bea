package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const serviceName = "whatsapp-bot"

type pinger interface {
	PingContext(ctx context.Context) error
}

type counter interface {
	Len() int
}

type activeCounter interface {
	Active() int
}

type HealthHandler struct {
	db       pinger
	sessions counter
	jobs     activeCounter
}

// NewHealthHandler builds the probe handlers. db may be nil when the
// reconciliation audit is disabled.
func NewHealthHandler(db pinger, sessions counter, jobs activeCounter) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions, jobs: jobs}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"service": "Kharon Pay WhatsApp Bot",
		"status":  "running",
	})
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"status":                 "ok",
		"service":                serviceName,
		"version":                "1.0.0",
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"sessions":               h.sessions.Len(),
		"active_reconciliations": h.jobs.Active(),
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	httpStatus := http.StatusOK

	if h.db != nil {
		dbStatus = "ok"
		if err := h.db.PingContext(r.Context()); err != nil {
			slog.Warn("readiness check failed: database unreachable", "error", err)
			dbStatus = "down"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"database": dbStatus,
		},
	})
}
