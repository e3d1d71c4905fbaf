package calls

import "strings"

// Call is a read-only snapshot of a provider-owned call leg.
// The provider is authoritative; this service never mutates calls.
type Call struct {
	SID  string `json:"sid"`
	From string `json:"from"`
	To   string `json:"to"`

	Status CallStatus `json:"status"`

	// DurationSeconds is whole seconds as reported by the provider; 0 while ringing.
	DurationSeconds int `json:"duration"`
}

// CallStatus uses the provider's wire values.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"
)

// ParseCallStatus normalizes a status string. Unknown values are kept as-is
// so they are logged faithfully and simply never match CallStatusCompleted.
func ParseCallStatus(s string) CallStatus {
	return CallStatus(strings.ToLower(strings.TrimSpace(s)))
}

// Recording is an audio capture of a call, materialized asynchronously by the provider.
type Recording struct {
	SID      string          `json:"sid"`
	CallSID  string          `json:"call_sid"`
	Status   RecordingStatus `json:"status"`
	MediaURL string          `json:"media_url,omitempty"`
}

type RecordingStatus string

const (
	RecordingStatusInProgress RecordingStatus = "in-progress"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusCompleted  RecordingStatus = "completed"
	RecordingStatusFailed     RecordingStatus = "failed"
	RecordingStatusAbsent     RecordingStatus = "absent"
)

func (r Recording) Ready() bool {
	return r.SID != "" && r.Status == RecordingStatusCompleted
}

// AnswerClass is the outcome of answering-machine detection on a voicemail call.
// The values double as tracking statuses sent to the backend.
type AnswerClass string

const (
	AnswerHuman          AnswerClass = "human"
	AnswerMachineEndBeep AnswerClass = "machine_end_beep"
	AnswerFailed         AnswerClass = "failed"
)

// ClassifyAnswer maps the provider's AnsweredBy value. Anything that is not a
// human or a finished voicemail greeting is inconclusive.
func ClassifyAnswer(answeredBy string) AnswerClass {
	switch strings.TrimSpace(answeredBy) {
	case string(AnswerHuman):
		return AnswerHuman
	case string(AnswerMachineEndBeep):
		return AnswerMachineEndBeep
	default:
		return AnswerFailed
	}
}

// NormalizePhone strips formatting so lookups match regardless of how a
// number was typed: "+1 (555) 010-2000" becomes "+15550102000".
// A leading "+" is preserved; non-numeric identities such as
// "client:guest-1" are returned trimmed but otherwise unchanged.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, ":@") {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsE164 reports whether s looks like a dialable E.164 number.
func IsE164(s string) bool {
	if len(s) < 3 || len(s) > 16 || s[0] != '+' || s[1] == '0' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
