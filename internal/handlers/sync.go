package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillslovesnov/tender-sync/internal/store"
	syncdriver "github.com/kirillslovesnov/tender-sync/internal/sync"
)

// Trigger starts a batch run without waiting for it.
type Trigger interface {
	RunAsync(ctx context.Context) error
}

type SyncHandler struct {
	trigger Trigger
	runs    store.SyncRun
}

func NewSyncHandler(trigger Trigger, runs store.SyncRun) *SyncHandler {
	return &SyncHandler{trigger: trigger, runs: runs}
}

// Trigger starts a batch run in the background. Only one run may be active at
// a time; a trigger during a run is rejected.
// (POST /api/v1/sync)
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	// The batch must outlive the HTTP request.
	if err := h.trigger.RunAsync(context.WithoutCancel(r.Context())); err != nil {
		if errors.Is(err, syncdriver.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

const runHistoryLimit = 20

// Runs returns the most recent batch runs with their per-item failures.
// (GET /api/v1/runs)
func (h *SyncHandler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List(r.Context(), runHistoryLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
