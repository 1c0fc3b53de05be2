package admin

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weddingringring/wrr-sub001/internal/repository"
	"github.com/weddingringring/wrr-sub001/internal/service/provisioning"
	"github.com/weddingringring/wrr-sub001/internal/service/release"
	apperrors "github.com/weddingringring/wrr-sub001/pkg/errors"
	"github.com/weddingringring/wrr-sub001/pkg/httputil"
)

// Handler exposes the manual provision/release triggers used by the
// operations panel.
type Handler struct {
	events         repository.EventRepository
	provisioningSv *provisioning.Service
	releaseSvc     *release.Service
}

func NewHandler(events repository.EventRepository, provisioningSvc *provisioning.Service, releaseSvc *release.Service) *Handler {
	return &Handler{
		events:         events,
		provisioningSv: provisioningSvc,
		releaseSvc:     releaseSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/admin/events")
	{
		events.POST("/:id/provision", h.ProvisionNumber)
		events.POST("/:id/release", h.ReleaseNumber)
	}
}

type provisionRequest struct {
	AreaCodeHint string `json:"area_code_hint" binding:"omitempty,area_code"`
}

func (h *Handler) ProvisionNumber(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	var req provisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
	}

	result, err := h.provisioningSv.ProvisionNumber(c.Request.Context(), id, req.AreaCodeHint)
	if err != nil {
		httputil.RespondWithError(c, provisionError(err))
		return
	}

	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ReleaseNumber(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid event ID", err))
		return
	}

	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			httputil.RespondWithError(c, apperrors.NotFound("event", err))
			return
		}
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	if err := h.releaseSvc.ReleaseEvent(c.Request.Context(), event, time.Now()); err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"released": true})
}

func provisionError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return apperrors.NotFound("event", err)
	case errors.Is(err, provisioning.ErrEventCancelled):
		return apperrors.Conflict("event is cancelled", err)
	case errors.Is(err, provisioning.ErrProvisionInFlight):
		return apperrors.Conflict("provisioning already in progress", err)
	default:
		return apperrors.Internal(err)
	}
}
