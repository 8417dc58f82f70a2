package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/pipeline"
	"kinship-hq/sentinel/pkg/ratelimit"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
	"kinship-hq/sentinel/pkg/telemetry/logging"
)

// Classifier produces a verdict for a request. *pipeline.Service implements
// it; any error other than pipeline.ErrMissingAuthor is answered with 500.
type Classifier interface {
	Classify(ctx context.Context, req moderation.Request) (*pipeline.Result, error)
}

// ClassifyHandler serves POST /v1/moderation/classify.
type ClassifyHandler struct {
	service      Classifier
	maxBodyBytes int64
	limiter      *ratelimit.Limiter
	metrics      *metrics.Collector
	logger       *slog.Logger
}

// ClassifyOption configures a ClassifyHandler.
type ClassifyOption func(*ClassifyHandler)

// WithRateLimiter limits requests per author. Rejections are counted on m,
// which may be nil.
func WithRateLimiter(l *ratelimit.Limiter, m *metrics.Collector) ClassifyOption {
	return func(h *ClassifyHandler) {
		h.limiter = l
		h.metrics = m
	}
}

// NewClassifyHandler creates the classify handler. maxBodyBytes <= 0
// disables the body limit.
func NewClassifyHandler(svc Classifier, maxBodyBytes int64, logger *slog.Logger, opts ...ClassifyOption) *ClassifyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ClassifyHandler{
		service:      svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "handlers.classify"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ClassifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var body types.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, types.CodeBodyTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, types.CodeInvalidJSON, "invalid JSON body: "+err.Error())
		return
	}

	contentType, err := moderation.ParseContentType(body.ContentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, types.CodeInvalidValue, err.Error())
		return
	}

	// A null or missing content is classified as empty and rejected by the
	// structural validator.
	var content string
	if body.Content != nil {
		content = *body.Content
	}

	ctx := logging.WithUser(r.Context(), body.UserID)
	ctx = logging.WithContentType(ctx, string(contentType))

	if body.UserID != "" && h.limiter.Enabled() {
		res := h.limiter.Allow(body.UserID)
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			h.metrics.RecordRateLimited(contentType)
			h.logger.WarnContext(ctx, "classification rate limited", "retry_after", res.RetryAfter.String())
			w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(res.RetryAfter)))
			writeError(w, http.StatusTooManyRequests, types.CodeRateLimited, "too many classification requests")
			return
		}
	}

	result, err := h.service.Classify(ctx, moderation.Request{
		Content:     content,
		AuthorID:    body.UserID,
		ContentType: contentType,
	})
	switch {
	case errors.Is(err, pipeline.ErrMissingAuthor):
		writeError(w, http.StatusBadRequest, types.CodeMissingField, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "classification failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, types.NewFailureResponse("Internal server error"))
		return
	}

	status := http.StatusOK
	if !result.Verdict.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, types.NewClassifyResponse(result.Verdict))
}
