package webhook

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weddingringring/wrr-sub001/internal/service/recording"
	"github.com/weddingringring/wrr-sub001/internal/service/voice"
	"github.com/weddingringring/wrr-sub001/internal/twiml"
	"github.com/weddingringring/wrr-sub001/pkg/logger"
	"github.com/weddingringring/wrr-sub001/pkg/throttle"
)

const (
	contentTypeXML = "text/xml; charset=utf-8"

	// callerWindow bounds how often a single caller can hit the voice
	// webhook before being asked to try later.
	callerLimit  = 20
	callerWindow = time.Minute
)

// Handler serves the carrier webhooks. These endpoints are unusual in
// one way: the voice webhook must answer with a valid call-treatment
// document on every path, because the carrier plays a raw failure tone
// when the response is missing or malformed.
type Handler struct {
	voiceSvc     *voice.Service
	recordingSvc *recording.Service
	callerLimits *throttle.Counter
	logger       *logger.Logger
}

func NewHandler(voiceSvc *voice.Service, recordingSvc *recording.Service, callerLimits *throttle.Counter, log *logger.Logger) *Handler {
	return &Handler{
		voiceSvc:     voiceSvc,
		recordingSvc: recordingSvc,
		callerLimits: callerLimits,
		logger:       log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/voice", h.HandleVoice)
		webhooks.POST("/recording", h.HandleRecording)
		webhooks.POST("/call-status", h.HandleCallStatus)
	}
}

// HandleVoice is the synchronous inbound-call webhook: the carrier
// blocks on this response to decide call treatment.
func (h *Handler) HandleVoice(c *gin.Context) {
	call := voice.InboundCall{
		To:      c.PostForm("To"),
		From:    c.PostForm("From"),
		CallSID: c.PostForm("CallSid"),
	}

	if h.callerLimits != nil && call.From != "" {
		allowed, err := h.callerLimits.Allow(c.Request.Context(), call.From, callerLimit, callerWindow)
		if err != nil {
			// Throttle store trouble must not drop the call.
			h.logger.Error(err, "caller throttle check failed", "call_sid", call.CallSID)
		} else if !allowed {
			h.logger.Warn("caller throttled", "call_sid", call.CallSID)
			h.renderTwiML(c, (&twiml.Response{}).Add(
				twiml.Say{Text: "You have called too many times. Please try again later."},
				twiml.Hangup{},
			))
			return
		}
	}

	h.renderTwiML(c, h.voiceSvc.HandleInboundCall(c.Request.Context(), call))
}

// HandleRecording is the asynchronous recording-complete webhook. The
// carrier ignores the response body, so it gets a small JSON ack.
func (h *Handler) HandleRecording(c *gin.Context) {
	duration, _ := strconv.Atoi(c.PostForm("RecordingDuration"))
	cb := recording.Callback{
		RecordingSID:    c.PostForm("RecordingSid"),
		RecordingURL:    c.PostForm("RecordingUrl"),
		DurationSeconds: duration,
		CallSID:         c.PostForm("CallSid"),
		CalledNumber:    c.PostForm("To"),
		CallerNumber:    c.PostForm("From"),
	}

	_, err := h.recordingSvc.Ingest(c.Request.Context(), cb)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, recording.ErrInvalidCallback):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, recording.ErrEventNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "ingestion failed"})
	}
}

// HandleCallStatus receives call lifecycle callbacks registered at
// purchase time. Logged for observability; no state changes.
func (h *Handler) HandleCallStatus(c *gin.Context) {
	h.logger.Info("call status update",
		"call_sid", c.PostForm("CallSid"),
		"status", c.PostForm("CallStatus"),
		"called_number", c.PostForm("To"),
	)
	c.Status(http.StatusNoContent)
}

func (h *Handler) renderTwiML(c *gin.Context, resp *twiml.Response) {
	body, err := resp.Render()
	if err != nil {
		// Last resort: a hand-built minimal document, still text/xml.
		h.logger.Error(err, "failed to render call treatment")
		c.Data(http.StatusOK, contentTypeXML,
			[]byte(`<?xml version="1.0" encoding="UTF-8"?><Response><Say>Sorry, an error occurred. Please try again later.</Say><Hangup/></Response>`))
		return
	}
	c.Data(http.StatusOK, contentTypeXML, body)
}
