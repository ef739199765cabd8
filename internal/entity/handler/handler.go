// Package handler exposes the entity resolution and erasure endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	entityModel "privacore/internal/entity/models"
	"privacore/internal/entity/service"
	"privacore/internal/linker"
	"privacore/internal/platform/metrics"
	"privacore/internal/platform/middleware"
	"privacore/internal/transport/http/shared"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

const defaultThreshold = 0.85

// Service defines the entity operations the handler depends on.
type Service interface {
	IngestBatch(ctx context.Context, user string, fragments []linker.Fragment, threshold float64) (*service.IngestResult, error)
	GetEntity(ctx context.Context, user, rawID, purpose string) (*entityModel.EntityDetail, error)
	SearchEntities(ctx context.Context, query string) ([]entityModel.Entity, error)
	ListEntities(ctx context.Context, limit int) ([]entityModel.Entity, error)
	EraseEntity(ctx context.Context, user, rawID, requestedBy, reason string) (*service.EraseResult, error)
	GetStatistics(ctx context.Context) (*entityModel.Statistics, error)
	ExportGoldenRecords(ctx context.Context) ([]entityModel.GoldenRecord, error)
}

// Handler handles entity-related endpoints.
type Handler struct {
	logger       *slog.Logger
	entities     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	erasureLimit func(http.Handler) http.Handler
}

// New creates a new entity Handler. erasureLimit may be nil to disable
// throttling of erasure requests.
func New(
	entities Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	erasureLimit func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:       logger,
		entities:     entities,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		erasureLimit: erasureLimit,
	}
}

// Register registers the entity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	entityRouter := chi.NewRouter()
	entityRouter.Use(middleware.Recovery(h.logger))
	entityRouter.Use(middleware.RequestID)
	entityRouter.Use(middleware.Logger(h.logger))
	entityRouter.Use(middleware.Timeout(30 * time.Second))
	entityRouter.Use(middleware.ContentTypeJSON)
	entityRouter.Use(middleware.Latency(h.metrics))
	entityRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	entityRouter.Post("/scans", h.handleScan)
	entityRouter.Get("/entities", h.handleListEntities)
	entityRouter.Get("/entities/search", h.handleSearchEntities)
	entityRouter.Get("/entities/export", h.handleExport)
	entityRouter.Get("/entities/{entityID}", h.handleGetEntity)
	entityRouter.Get("/stats", h.handleStatistics)

	erase := entityRouter.With()
	if h.erasureLimit != nil {
		erase = entityRouter.With(h.erasureLimit)
	}
	erase.Delete("/entities/{entityID}", h.handleEraseEntity)

	r.Mount("/", entityRouter)
}

// handleScan ingests a batch of fragments and returns the clustering
// outcome.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	user, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var scanReq entityModel.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&scanReq); err != nil {
		h.logger.WarnContext(ctx, "invalid scan request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(scanReq.Fragments) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "fragments must not be empty"))
		return
	}

	threshold := defaultThreshold
	if scanReq.Threshold != nil {
		threshold = *scanReq.Threshold
	}

	fragments := make([]linker.Fragment, 0, len(scanReq.Fragments))
	for i, f := range scanReq.Fragments {
		kind, err := domain.ParseFragmentKind(f.Kind)
		if err != nil {
			h.logger.WarnContext(ctx, "invalid fragment kind",
				"request_id", requestID,
				"index", i,
				"kind", f.Kind,
			)
			shared.WriteError(w, dErrors.Wrap(dErrors.CodeBadRequest, "invalid fragment", err))
			return
		}
		fragments = append(fragments, linker.Fragment{
			Value:  f.Value,
			Kind:   kind,
			Source: f.Source,
		})
	}

	result, err := h.entities.IngestBatch(ctx, user, fragments, threshold)
	if err != nil {
		h.writeServiceError(ctx, w, "scan failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entities, err := h.entities.ListEntities(ctx, limit)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list entities", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (h *Handler) handleSearchEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	entities, err := h.entities.SearchEntities(ctx, query)
	if err != nil {
		h.writeServiceError(ctx, w, "search failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	entityID := chi.URLParam(r, "entityID")
	purpose := r.URL.Query().Get("purpose")

	detail, err := h.entities.GetEntity(ctx, user, entityID, purpose)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get entity", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleEraseEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	user, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var eraseReq entityModel.EraseRequest
	if err := json.NewDecoder(r.Body).Decode(&eraseReq); err != nil {
		h.logger.WarnContext(ctx, "invalid erase request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.entities.EraseEntity(ctx, user, chi.URLParam(r, "entityID"), eraseReq.RequestedBy, eraseReq.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "erasure failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.entities.GetStatistics(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to compute statistics", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.entities.ExportGoldenRecords(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "export failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"golden_records": records})
}

// requireUser pulls the authenticated subject out of the context. A missing
// subject means the auth middleware is miswired, not a client mistake.
func (h *Handler) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	user := middleware.GetUser(ctx)
	if user == "" {
		h.logger.ErrorContext(ctx, "user missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return user, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)

	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeNotFound:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
	}
}
