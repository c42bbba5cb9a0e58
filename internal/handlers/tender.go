package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillslovesnov/tender-sync/internal/sbis"
	"go.uber.org/zap"
)

// Fetcher is the slice of the vendor client the on-demand path needs.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (*sbis.Record, error)
}

type TenderHandler struct {
	fetcher Fetcher
}

func NewTenderHandler(fetcher Fetcher) *TenderHandler {
	return &TenderHandler{fetcher: fetcher}
}

type fetchRequest struct {
	// TenderID accepts both identifier styles: a numeric tender ID or a
	// tender number string.
	TenderID any `json:"tenderId"`
}

// Fetch is the synchronous single-record path: fetch and return the raw
// vendor payload, no persistence, no retry.
// (POST /api/v1/tenders/fetch)
func (h *TenderHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req fetchRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var identifier string
	switch v := req.TenderID.(type) {
	case string:
		identifier = strings.TrimSpace(v)
	case json.Number:
		identifier = v.String()
	}
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "tenderId is required")
		return
	}

	record, err := h.fetcher.Fetch(r.Context(), identifier)
	if err != nil {
		zap.S().Named("handlers").Errorw("on-demand fetch failed", "identifier", identifier, "error", err)
		writeError(w, fetchErrorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(record.Raw)
}

func fetchErrorStatus(err error) int {
	var (
		notFound  *sbis.ErrNotFound
		auth      *sbis.ErrAuth
		transport *sbis.ErrTransport
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &auth):
		return http.StatusInternalServerError
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
