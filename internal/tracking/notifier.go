package tracking

import (
	"context"
	"errors"
	"time"

	"callsummary/pkg/logger"

	"github.com/google/uuid"
)

// Sender delivers one event. Implementations may retry internally.
type Sender interface {
	Send(ctx context.Context, e Event) error
}

// Notifier is the best-effort front of a Sender: failures are logged and
// never returned, so callers can fire and forget.
type Notifier struct {
	sender Sender
	clock  func() time.Time
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender, clock: time.Now}
}

var ErrInvalidEvent = errors.New("tracking: status required")

// Track sends e. A nil sender (no backend configured) drops the event.
func (n *Notifier) Track(ctx context.Context, e Event) {
	log := logger.From(ctx).With("lead_id", e.LeadID, "campaign_id", e.CampaignID, "status", e.Status)
	if n == nil || n.sender == nil {
		log.Debug("tracking disabled, event dropped")
		return
	}
	if e.Status == "" {
		log.Warn("tracking event rejected", "err", ErrInvalidEvent)
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = n.clock().UTC()
	}

	if err := n.sender.Send(ctx, e); err != nil {
		log.Error("tracking notification failed", "event_id", e.ID, "err", err)
		return
	}
	log.Info("tracking notification sent", "event_id", e.ID)
}
