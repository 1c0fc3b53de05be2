package cron

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weddingringring/wrr-sub001/internal/service/provisioning"
	"github.com/weddingringring/wrr-sub001/internal/service/release"
	apperrors "github.com/weddingringring/wrr-sub001/pkg/errors"
	"github.com/weddingringring/wrr-sub001/pkg/httputil"
)

// Handler exposes the daily scans to the external scheduler. Both scans
// are idempotent, so an overlapping or repeated invocation is safe.
type Handler struct {
	provisioningSvc *provisioning.Service
	releaseSvc      *release.Service
}

func NewHandler(provisioningSvc *provisioning.Service, releaseSvc *release.Service) *Handler {
	return &Handler{
		provisioningSvc: provisioningSvc,
		releaseSvc:      releaseSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/cron")
	{
		jobs.POST("/provision-numbers", h.ProvisionNumbers)
		jobs.POST("/release-numbers", h.ReleaseNumbers)
	}
}

func (h *Handler) ProvisionNumbers(c *gin.Context) {
	summary, err := h.provisioningSvc.RunDailyScan(c.Request.Context(), time.Now())
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) ReleaseNumbers(c *gin.Context) {
	summary, err := h.releaseSvc.RunDailyScan(c.Request.Context(), time.Now())
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, summary)
}
