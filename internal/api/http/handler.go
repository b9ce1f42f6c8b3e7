package http

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
)

// Trigger requests an out-of-band check cycle. It reports false when
// the request was dropped because a cycle is already running or a
// previous trigger is still settling.
type Trigger interface {
	TriggerNow(ctx context.Context) bool
}

// StatusReporter exposes the state of the most recent cycle.
type StatusReporter interface {
	Status() domain.CycleSummary
}

// UpdaterHandler handles HTTP requests on the updater's control surface.
type UpdaterHandler struct {
	trigger Trigger
	status  StatusReporter
	logger  *slog.Logger
}

// NewUpdaterHandler creates an UpdaterHandler.
func NewUpdaterHandler(trigger Trigger, status StatusReporter, logger *slog.Logger) *UpdaterHandler {
	return &UpdaterHandler{
		trigger: trigger,
		status:  status,
		logger:  logger,
	}
}

// Check handles POST /check: it schedules a manual cycle, answering
// 202 when accepted and 409 when one is already running or settling.
func (h *UpdaterHandler) Check(w http.ResponseWriter, r *http.Request) {
	// Deliberately not the request context: the cycle outlives the
	// HTTP exchange.
	if !h.trigger.TriggerNow(context.WithoutCancel(r.Context())) {
		writeError(w, http.StatusConflict, "a check is already running")
		return
	}

	h.logger.Info("manual check scheduled via API")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// Status handles GET /status: it reports the most recent cycle summary.
func (h *UpdaterHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
