package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/store"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// maxPageSize caps the limit query parameter
const maxPageSize = 500

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for first cycle"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) bucketPrefixes(w http.ResponseWriter, r *http.Request) {
	view, err := h.health.GetBucketPrefixes(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) prefixHealth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "prefix is required")
		return
	}

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	since, err := utils.ParseSince(q.Get("since"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	view, err := h.health.GetPrefixHealth(r.Context(), chi.URLParam(r, "bucket"), prefix, store.EvaluationQuery{
		Limit:     limit,
		Since:     since,
		PageToken: q.Get("page_token"),
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := alertFilterFromQuery(r, h.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	page, err := h.alerts.ListAlerts(r.Context(), filter)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if page.Items == nil {
		page.Items = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "alert_id")
	if err := h.alerts.MarkResolved(r.Context(), id); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alertId": id, "resolved": true})
}

func alertFilterFromQuery(r *http.Request, now func() time.Time) (models.AlertFilter, error) {
	q := r.URL.Query()
	filter := models.AlertFilter{
		BucketName: q.Get("bucket"),
		Prefix:     q.Get("prefix"),
		Severity:   models.Severity(strings.ToUpper(q.Get("severity"))),
		Type:       models.AlertType(strings.ToUpper(q.Get("type"))),
		PageToken:  q.Get("page_token"),
	}

	var err error
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		return filter, err
	}
	if filter.Since, err = utils.ParseSince(q.Get("since"), now()); err != nil {
		return filter, fmt.Errorf("since: %w", err)
	}
	if filter.Until, err = utils.ParseSince(q.Get("until"), now()); err != nil {
		return filter, fmt.Errorf("until: %w", err)
	}
	return filter, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxPageSize {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
	}
	return n, nil
}

// writeStoreError maps store errors onto status codes
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrInvalidPageToken):
		writeError(w, http.StatusBadRequest, "INVALID_PAGE_TOKEN", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
