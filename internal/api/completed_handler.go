package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/service"
)

// CompletedTaskHandler handles requests against the completed-task view.
type CompletedTaskHandler struct {
	completedService service.CompletedTaskService
	thresholdDays    int
	logger           *slog.Logger
}

// NewCompletedTaskHandler creates a new CompletedTaskHandler. thresholdDays
// is the archive age gate applied when none is given in the request.
func NewCompletedTaskHandler(
	completedService service.CompletedTaskService,
	thresholdDays int,
	logger *slog.Logger,
) *CompletedTaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CompletedTaskHandler")
	}
	if thresholdDays <= 0 {
		thresholdDays = service.DefaultArchiveThresholdDays
	}
	return &CompletedTaskHandler{
		completedService: completedService,
		thresholdDays:    thresholdDays,
		logger:           logger.With(slog.String("component", "completed_task_handler")),
	}
}

// Recent handles GET /completed-tasks requests, listing tasks completed in
// the lookback window given by the days query parameter (default 7).
func (h *CompletedTaskHandler) Recent(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)

	completed, err := h.completedService.Recent(r.Context(), days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	now := time.Now().UTC()
	resp := make([]CompletedTaskResponse, 0, len(completed))
	for _, ct := range completed {
		resp = append(resp, completedToResponse(ct, now, h.thresholdDays))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /completed-tasks/{id} requests.
func (h *CompletedTaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	ct, err := h.completedService.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, completedToResponse(ct, time.Now().UTC(), h.thresholdDays))
}

// Archive handles POST /completed-tasks/{id}/archive requests.
func (h *CompletedTaskHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.completedService.Archive(r.Context(), id, h.thresholdDays); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /completed-tasks/report requests, building a completion
// report for the user given by user_id over the last days days.
func (h *CompletedTaskHandler) Report(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user_id")
		return
	}
	days := queryInt(r, "days", 7)

	report, err := h.completedService.Report(r.Context(), userID, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
