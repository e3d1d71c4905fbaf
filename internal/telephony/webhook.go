package telephony

import (
	"net/http"
	"strconv"
	"strings"

	"callsummary/internal/calls"
)

// Twilio posts voice webhooks as application/x-www-form-urlencoded.
// The parsers below only translate the boundary; no decisions are made here.

// VoiceRequest is the browser client's outbound leg asking for TwiML.
type VoiceRequest struct {
	CallSID    string
	From       string
	To         string
	LeadID     string
	CampaignID string
}

func ParseVoiceRequest(r *http.Request) (VoiceRequest, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceRequest{}, err
	}
	return VoiceRequest{
		CallSID:    strings.TrimSpace(r.FormValue("CallSid")),
		From:       calls.NormalizePhone(r.FormValue("From")),
		To:         calls.NormalizePhone(r.FormValue("To")),
		LeadID:     firstNonEmpty(r.FormValue("LeadID"), r.FormValue(calls.ParamLeadID)),
		CampaignID: firstNonEmpty(r.FormValue("CampaignID"), r.FormValue(calls.ParamCampaignID)),
	}, nil
}

// StatusCallback is the final-status callback of a dialed leg. The
// correlation context rides in the callback URL's query string.
type StatusCallback struct {
	CallSID    string
	CallStatus calls.CallStatus

	// Dial* fields are only present on <Dial action> callbacks.
	DialCallSID      string
	DialCallStatus   calls.CallStatus
	DialCallDuration int

	Context calls.CallContext
}

func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallback{}, err
	}
	cb := StatusCallback{
		CallSID:        strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus:     calls.ParseCallStatus(r.PostFormValue("CallStatus")),
		DialCallSID:    strings.TrimSpace(r.PostFormValue("DialCallSid")),
		DialCallStatus: calls.ParseCallStatus(r.PostFormValue("DialCallStatus")),
		Context:        calls.CallContextFromQuery(r.URL.Query()),
	}
	if d, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("DialCallDuration"))); err == nil && d > 0 {
		cb.DialCallDuration = d
	}
	if cb.CallSID == "" {
		cb.CallSID = cb.Context.CallSID
	}
	return cb, nil
}

// AnswerRequest is the answer webhook of an outbound voicemail call placed
// with machine detection.
type AnswerRequest struct {
	CallSID      string
	AnsweredBy   string
	Class        calls.AnswerClass
	VoicemailURL string
	Context      calls.CallContext
}

func ParseAnswer(r *http.Request) (AnswerRequest, error) {
	if err := r.ParseForm(); err != nil {
		return AnswerRequest{}, err
	}
	answeredBy := strings.TrimSpace(r.PostFormValue("AnsweredBy"))
	if answeredBy == "" {
		answeredBy = "unknown"
	}
	q := r.URL.Query()
	return AnswerRequest{
		CallSID:      strings.TrimSpace(r.PostFormValue("CallSid")),
		AnsweredBy:   answeredBy,
		Class:        calls.ClassifyAnswer(answeredBy),
		VoicemailURL: strings.TrimSpace(q.Get(calls.ParamVoicemailURL)),
		Context:      calls.CallContextFromQuery(q),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
