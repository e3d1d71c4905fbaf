package httpapi

import (
	"context"
	"net/http"

	"callsummary/internal/auth"
	"callsummary/internal/calls"
	"callsummary/internal/telephony"
	"callsummary/internal/tracking"
	"callsummary/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	msgNoNumber      = "No number provided."
	msgTryAgain      = "Sorry, we'll try again later."
	errVoicemailArgs = "toNumber and voicemailUrl required"
)

// CallProvider is the slice of telephony.Provider the HTTP surface uses.
type CallProvider interface {
	FetchCall(ctx context.Context, callSID string) (calls.Call, error)
	LatestRecording(ctx context.Context, callSID string) (calls.Recording, bool, error)
	CreateCall(ctx context.Context, req telephony.OutboundCallRequest) (string, error)
}

// Token issues a voice access token for an anonymous browser client.
func (h Handlers) Token(c *gin.Context) {
	if h.Tokens == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "voice tokens not configured"})
		return
	}
	now := h.now()
	identity := auth.GuestIdentity(now)
	tok, err := h.Tokens.IssueVoiceToken(now, identity)
	if err != nil {
		logger.FromGin(c).Error("voice token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	logger.FromGin(c).Info("voice token issued", "identity", identity)
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// Voice answers the browser client's outbound leg with a recorded <Dial>
// whose final status is posted to /call-status with the call context.
func (h Handlers) Voice(c *gin.Context) {
	log := logger.FromGin(c)

	v, err := telephony.ParseVoiceRequest(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	resp := telephony.NewResponse()
	if v.To == "" {
		log.Info("voice request without destination")
		resp.Say(msgNoNumber)
	} else {
		callerID := v.From
		if !calls.IsE164(callerID) {
			callerID = h.TwilioNumber
		}
		cc := calls.CallContext{
			LeadID:     v.LeadID,
			CampaignID: v.CampaignID,
			From:       callerID,
			To:         v.To,
		}.Sanitized()

		log.Info("dialing", "from", callerID, "to", v.To)
		resp.Dial(telephony.Dial{
			Number:   v.To,
			CallerID: callerID,
			Record:   telephony.RecordFromAnswerDual,
			Action:   cc.CallbackURL(h.BaseURL, "/call-status"),
			Method:   http.MethodPost,
		})
	}

	xml, err := resp.Render()
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	writeTwiML(c, xml)
}

type leaveVoicemailRequest struct {
	FromNumber   string `json:"fromNumber"`
	ToNumber     string `json:"toNumber"`
	VoicemailURL string `json:"voicemailUrl" binding:"omitempty,url"`
	LeadID       string `json:"leadID" binding:"omitempty,max=128"`
	CampaignID   string `json:"campaignID" binding:"omitempty,max=128"`
}

// LeaveVoicemail places an outbound call that plays voicemailUrl once the
// answering machine greeting ends.
func (h Handlers) LeaveVoicemail(c *gin.Context) {
	log := logger.FromGin(c)

	var req leaveVoicemailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	to := calls.NormalizePhone(req.ToNumber)
	if to == "" || req.VoicemailURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errVoicemailArgs})
		return
	}
	if h.Provider == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "telephony provider not configured"})
		return
	}
	from := calls.NormalizePhone(req.FromNumber)
	if from == "" {
		from = h.TwilioNumber
	}

	cc := calls.CallContext{LeadID: req.LeadID, CampaignID: req.CampaignID}
	q := cc.Query()
	q.Set(calls.ParamVoicemailURL, req.VoicemailURL)

	callSID, err := h.Provider.CreateCall(c.Request.Context(), telephony.OutboundCallRequest{
		From:             from,
		To:               to,
		AnswerURL:        callbackURL(h.BaseURL, "/answer", q),
		MachineDetection: telephony.MachineDetectMessageEnd,
	})
	if err != nil {
		log.Error("voicemail call failed", "to", to, "lead_id", req.LeadID, "err", err)
		h.track(c, tracking.Event{LeadID: req.LeadID, CampaignID: req.CampaignID, Status: tracking.StatusFailed})
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	log.Info("voicemail call created", "call_sid", callSID, "to", to, "lead_id", req.LeadID)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"callSid":    callSID,
		"leadID":     req.LeadID,
		"campaignID": req.CampaignID,
	})
}

// Answer branches on answering-machine detection for a voicemail call.
func (h Handlers) Answer(c *gin.Context) {
	log := logger.FromGin(c)

	a, err := telephony.ParseAnswer(c.Request)
	if err != nil {
		log.Warn("answer webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	class := a.Class
	if a.VoicemailURL == "" {
		class = calls.AnswerFailed
	}

	resp := telephony.NewResponse()
	switch class {
	case calls.AnswerHuman, calls.AnswerMachineEndBeep:
		resp.Play(a.VoicemailURL)
	default:
		resp.Say(msgTryAgain)
	}
	log.Info("voicemail answered", "answered_by", a.AnsweredBy, "outcome", class, "lead_id", a.Context.LeadID)

	h.track(c, tracking.Event{
		LeadID:     a.Context.LeadID,
		CampaignID: a.Context.CampaignID,
		Status:     tracking.Status(class),
	})

	xml, err := resp.Render()
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	writeTwiML(c, xml)
}
