package telephony

import (
	"context"

	"callsummary/internal/calls"
)

// Provider is the provider-agnostic boundary used by handlers and the
// summary pipeline.
//
// Rules:
// - No provider SDK types leak past this package.
// - Absence (no recording yet) is reported with ok=false, not an error.
type Provider interface {
	Name() string

	FetchCall(ctx context.Context, callSID string) (calls.Call, error)

	// LatestRecording returns the most recent recording for the call.
	LatestRecording(ctx context.Context, callSID string) (calls.Recording, bool, error)

	CreateCall(ctx context.Context, req OutboundCallRequest) (string, error)

	CreateTranscript(ctx context.Context, req TranscriptRequest) (calls.Transcript, error)
	FetchTranscript(ctx context.Context, transcriptSID string) (calls.Transcript, error)
	ListAnalysisResults(ctx context.Context, transcriptSID string) ([]calls.AnalysisResult, error)
}

// OutboundCallRequest starts a call whose answer is handled by AnswerURL.
type OutboundCallRequest struct {
	From string `json:"from"`
	To   string `json:"to"`

	AnswerURL string `json:"answer_url"`

	// MachineDetection is passed through, e.g. "DetectMessageEnd".
	MachineDetection string `json:"machine_detection,omitempty"`
}

// TranscriptRequest asks the provider to transcribe and analyze a recording.
type TranscriptRequest struct {
	RecordingSID string `json:"recording_sid"`
	ServiceSID   string `json:"service_sid"`

	// CustomerKey is stored with the transcript; the call SID goes here
	// so a transcript can be traced back to its call.
	CustomerKey string `json:"customer_key,omitempty"`
}

// MachineDetectMessageEnd waits for the voicemail greeting to finish before answering.
const MachineDetectMessageEnd = "DetectMessageEnd"

var (
	_ Provider = (*TwilioProvider)(nil)
	_ Provider = (*MemoryProvider)(nil)
)
