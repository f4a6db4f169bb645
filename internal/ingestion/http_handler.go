package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rpattn/salesingest/internal/domain"
)

// Handler exposes the ingestion driver over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the run and ledger endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

type runPayload struct {
	SkipFetch bool `json:"skip_fetch"`
}

type runResponse struct {
	domain.IngestionLog
	Lines []string `json:"lines"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/run"):
		h.handleRun(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/ledger"):
		h.handleLedger(w, r)
	case strings.HasSuffix(r.URL.Path, "/run") || strings.HasSuffix(r.URL.Path, "/ledger"):
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload runPayload
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read body: %v", err), http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
	}

	runLog, err := h.service.Run(r.Context(), RunOptions{SkipFetch: payload.SkipFetch})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrRunInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{IngestionLog: runLog, Lines: runLog.Lines()})
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ledger(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeJSON encodes payload before committing the status so an encoding failure can
// still be reported as a 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
