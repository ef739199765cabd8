// Package handler exposes read-only audit trail endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"privacore/internal/audit"
	"privacore/internal/platform/metrics"
	"privacore/internal/platform/middleware"
	"privacore/internal/transport/http/shared"
	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// Service defines the audit queries the handler depends on.
type Service interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
	ByUser(ctx context.Context, user string) ([]audit.Entry, error)
	ByEntity(ctx context.Context, entityID domain.EntityID) ([]audit.Entry, error)
}

// Handler handles audit trail endpoints.
type Handler struct {
	logger       *slog.Logger
	trail        Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new audit Handler.
func New(
	trail Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		trail:        trail,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	auditRouter := chi.NewRouter()
	auditRouter.Use(middleware.Recovery(h.logger))
	auditRouter.Use(middleware.RequestID)
	auditRouter.Use(middleware.Logger(h.logger))
	auditRouter.Use(middleware.Timeout(30 * time.Second))
	auditRouter.Use(middleware.Latency(h.metrics))
	auditRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	auditRouter.Get("/recent", h.handleRecent)
	auditRouter.Get("/user/{user}", h.handleByUser)
	auditRouter.Get("/entity/{entityID}", h.handleByEntity)

	r.Mount("/audit", auditRouter)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.trail.Recent(ctx, limit)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read audit trail", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.trail.ByUser(ctx, chi.URLParam(r, "user"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read audit trail", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleByEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := domain.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(dErrors.CodeBadRequest, "invalid entity id", err))
		return
	}

	entries, err := h.trail.ByEntity(ctx, entityID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to read audit trail", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)

	if dErrors.Is(err, dErrors.CodeBadRequest) {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
}
