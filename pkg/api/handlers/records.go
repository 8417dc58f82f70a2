package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
)

// RecordsHandler serves the read-only reviewer listing.
type RecordsHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewRecordsHandler creates the records handler.
func NewRecordsHandler(st store.Store, logger *slog.Logger) *RecordsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordsHandler{store: st, logger: logger.With("component", "handlers.records")}
}

// List serves GET /v1/moderation/records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, types.CodeInvalidValue, err.Error())
		return
	}

	records, err := h.store.QueryModerationRecords(r.Context(), q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to query moderation records", "error", err)
		writeError(w, http.StatusInternalServerError, types.CodeInternal, "failed to query moderation records")
		return
	}
	writeJSON(w, http.StatusOK, types.NewRecordList(records, q.EffectiveLimit(), q.Offset))
}

// Get serves GET /v1/moderation/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := h.store.GetModerationRecord(r.Context(), id)
	switch {
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, types.CodeNotFound, fmt.Sprintf("moderation record %q not found", id))
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to get moderation record", "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, types.CodeInternal, "failed to get moderation record")
		return
	}
	writeJSON(w, http.StatusOK, types.NewModerationRecord(record))
}

// ParseQuery builds a store query from URL parameters: author, severity,
// kind, reviewed, limit and offset.
func ParseQuery(values url.Values) (*store.Query, error) {
	q := &store.Query{AuthorID: values.Get("author")}

	if s := values.Get("severity"); s != "" {
		sev, err := moderation.ParseSeverity(s)
		if err != nil {
			return nil, err
		}
		q.Severity = sev
	}
	if s := values.Get("kind"); s != "" {
		kind, err := moderation.ParseViolationKind(s)
		if err != nil {
			return nil, err
		}
		q.Kind = kind
	}
	if s := values.Get("reviewed"); s != "" {
		reviewed, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid reviewed %q: must be true or false", s)
		}
		q.Reviewed = &reviewed
	}

	var err error
	if q.Limit, err = nonNegative(values, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = nonNegative(values, "offset"); err != nil {
		return nil, err
	}
	return q, nil
}

func nonNegative(values url.Values, key string) (int, error) {
	s := values.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, s)
	}
	return n, nil
}
