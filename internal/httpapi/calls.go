package httpapi

import (
	"context"
	"net/http"
	"strings"

	"callsummary/internal/calls"
	"callsummary/internal/summary"
	"callsummary/internal/telephony"
	"callsummary/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GetCallInfo reports a call's duration, status and latest recording.
func (h Handlers) GetCallInfo(c *gin.Context) {
	callSID := strings.TrimSpace(c.Query(calls.ParamCallSID))
	if callSID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callSid required"})
		return
	}
	if h.Provider == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "telephony provider not configured"})
		return
	}
	ctx := c.Request.Context()

	call, err := h.Provider.FetchCall(ctx, callSID)
	if err != nil {
		logger.FromGin(c).Error("fetch call failed", "call_sid", callSID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rec, ok, err := h.Provider.LatestRecording(ctx, callSID)
	if err != nil {
		logger.FromGin(c).Error("list recordings failed", "call_sid", callSID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var recordingURL *string
	if ok && rec.MediaURL != "" {
		recordingURL = &rec.MediaURL
	}
	c.JSON(http.StatusOK, gin.H{
		"duration":     call.DurationSeconds,
		"status":       call.Status,
		"recordingUrl": recordingURL,
	})
}

// CallStatus acknowledges a final-status callback at once and hands it to
// the summary pipeline in the background. It always answers 200.
func (h Handlers) CallStatus(c *gin.Context) {
	log := logger.FromGin(c)

	cb, err := telephony.ParseStatusCallback(c.Request)
	if err != nil {
		log.Warn("status callback parse failed", "err", err)
		c.Status(http.StatusOK)
		return
	}
	log.Info("call status", "call_sid", cb.CallSID, "status", cb.CallStatus)

	if h.Pipeline != nil {
		ev := summary.StatusEvent{CallSID: cb.CallSID, Status: cb.CallStatus, Context: cb.Context}
		h.detach(c, "call-summary", func(ctx context.Context) {
			h.Pipeline.HandleStatus(ctx, ev)
		})
	}
	c.Status(http.StatusOK)
}

// GetSummary returns the stored summary for a call.
func (h Handlers) GetSummary(c *gin.Context) {
	if h.Summaries == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summaries not configured"})
		return
	}
	callSID := c.Param("callSid")
	rec, ok, err := h.Summaries.Get(c.Request.Context(), callSID)
	if err != nil {
		logger.FromGin(c).Error("summary lookup failed", "call_sid", callSID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "summary not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
