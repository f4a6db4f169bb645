package query

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Handler exposes the query box over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the query and download endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

type queryPayload struct {
	Statement string `json:"statement"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/download"):
		h.handleDownload(w, r)
	case strings.HasSuffix(r.URL.Path, "/query"):
		h.handleQuery(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	statement, err := readStatement(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.service.Execute(r.Context(), statement)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	statement, err := readStatement(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		http.Error(w, fmt.Sprintf("unsupported download format %q", format), http.StatusBadRequest)
		return
	}

	result, err := h.service.Execute(r.Context(), statement)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = result.WriteXLSX(&buf)
	} else {
		err = result.WriteCSV(&buf)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"query_results.%s\"", format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// readStatement accepts a JSON body or a form field named statement.
func readStatement(r *http.Request) (string, error) {
	defer r.Body.Close()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var payload queryPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("invalid payload: %w", err)
		}
		return payload.Statement, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("invalid form data: %w", err)
	}
	return r.PostFormValue("statement"), nil
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
