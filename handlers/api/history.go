package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/ledger"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/repository"
	"github.com/nijaru/yt-digest/view"
)

const defaultRunsLimit = 20

// HistoryHandler serves the ledgers and the run log.
type HistoryHandler struct {
	history    *ledger.History
	costs      *ledger.Costs
	runs       repository.RunRepository
	serverName string
	now        func() time.Time
}

func NewHistoryHandler(history *ledger.History, costs *ledger.Costs, runs repository.RunRepository, serverName string) *HistoryHandler {
	return &HistoryHandler{
		history:    history,
		costs:      costs,
		runs:       runs,
		serverName: serverName,
		now:        time.Now,
	}
}

// HandleList handles GET /history
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	history := h.history.All()
	if history == nil {
		history = []models.HistoryEntry{}
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"history": history,
	})
}

// HandleView handles GET /history/{videoId}/view
func (h *HistoryHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "HistoryHandler.HandleView"

	entry, ok := h.history.Find(r.PathValue("videoId"))
	if !ok {
		respondError(w, r, errors.NotFound(op, nil, "Video not found in history"))
		return
	}
	respondJSON(w, r, http.StatusOK, view.FromEntry(entry))
}

// HandleDelete handles DELETE /history/{videoId}
func (h *HistoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "HistoryHandler.HandleDelete"

	if !h.history.Remove(r.PathValue("videoId")) {
		respondError(w, r, errors.NotFound(op, nil, "Video not found in history"))
		return
	}
	respondJSON(w, r, http.StatusOK, success("Removed from history"))
}

// HandleCosts handles GET /costs
func (h *HistoryHandler) HandleCosts(w http.ResponseWriter, r *http.Request) {
	costs := h.costs.All()
	if costs == nil {
		costs = []models.CostEntry{}
	}
	respondJSON(w, r, http.StatusOK, costs)
}

// HandleSessionCosts handles GET /session-costs
func (h *HistoryHandler) HandleSessionCosts(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sess.Costs(h.serverName, h.now()))
}

// HandleRuns handles GET /runs?limit=n
func (h *HistoryHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	const op = "HistoryHandler.HandleRuns"

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, r, errors.InvalidInput(op, err, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs := []*models.Run{}
	if h.runs != nil {
		recent, err := h.runs.Recent(r.Context(), limit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if recent != nil {
			runs = recent
		}
	}
	respondJSON(w, r, http.StatusOK, runs)
}
