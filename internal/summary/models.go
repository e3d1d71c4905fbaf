package summary

import (
	"context"
	"errors"
	"time"

	"callsummary/internal/calls"
	"callsummary/internal/telephony"
)

var ErrInvalidRecord = errors.New("summary: call_sid required")

// Record is one persisted call summary. CallSID is unique; repeated
// completions of the same call overwrite the row.
type Record struct {
	ID      string  `json:"id"`
	UserID  *string `json:"user_id"`
	CallSID string  `json:"call_sid"`

	TranscriptSID   string `json:"transcript_sid"`
	From            string `json:"from_number"`
	To              string `json:"to_number"`
	DurationSeconds int    `json:"duration"`
	Summary         string `json:"summary"`
	LanguageCode    string `json:"language_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists summaries and resolves phone numbers to owning users.
type Store interface {
	// LookupUserID finds the user configured for phone. A miss is ok=false.
	LookupUserID(ctx context.Context, phone string) (string, bool, error)
	Upsert(ctx context.Context, r Record) (Record, error)
	Get(ctx context.Context, callSID string) (Record, bool, error)
}

// Provider capabilities used by the pipeline. telephony.Provider satisfies all of them.

type CallSource interface {
	FetchCall(ctx context.Context, callSID string) (calls.Call, error)
}

type RecordingSource interface {
	LatestRecording(ctx context.Context, callSID string) (calls.Recording, bool, error)
}

type TranscriptService interface {
	CreateTranscript(ctx context.Context, req telephony.TranscriptRequest) (calls.Transcript, error)
	FetchTranscript(ctx context.Context, transcriptSID string) (calls.Transcript, error)
	ListAnalysisResults(ctx context.Context, transcriptSID string) ([]calls.AnalysisResult, error)
}
