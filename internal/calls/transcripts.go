package calls

// Transcript is a transcription job created for a recording. Its results are
// filled in asynchronously by the provider; this service only polls.
type Transcript struct {
	SID          string           `json:"sid"`
	RecordingSID string           `json:"recording_sid,omitempty"`
	ServiceSID   string           `json:"service_sid,omitempty"`
	Language     string           `json:"language,omitempty"`
	Status       TranscriptStatus `json:"status,omitempty"`
}

type TranscriptStatus string

const (
	TranscriptStatusQueued     TranscriptStatus = "queued"
	TranscriptStatusInProgress TranscriptStatus = "in-progress"
	TranscriptStatusCompleted  TranscriptStatus = "completed"
	TranscriptStatusFailed     TranscriptStatus = "failed"
	TranscriptStatusCanceled   TranscriptStatus = "canceled"
)

// Failed reports a terminal state that will never produce results.
func (s TranscriptStatus) Failed() bool {
	return s == TranscriptStatusFailed || s == TranscriptStatusCanceled
}

// AnalysisResult is one named output of a transcript, e.g. a generated summary.
type AnalysisResult struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// Known analysis result types.
const AnalysisTypeTextGeneration = "text-generation"
