package tracking

import "time"

// Event reports the outcome of a voicemail drop to the integrating backend.
type Event struct {
	// ID is sent as the Idempotency-Key header so backend retries are safe.
	ID string `json:"-"`

	LeadID     string `json:"leadID"`
	CampaignID string `json:"campaignID"`
	Status     Status `json:"status"`

	OccurredAt time.Time `json:"-"`
}

// Status values are shared with answering-machine classification.
type Status string

const (
	StatusHuman          Status = "human"
	StatusMachineEndBeep Status = "machine_end_beep"
	StatusFailed         Status = "failed"
)
