package summary

import (
	"context"
	"errors"
	"time"

	"callsummary/internal/calls"
	"callsummary/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRecordingAttempts = 10
	DefaultRecordingDelay    = 3 * time.Second
)

var errRecordingNotReady = errors.New("summary: recording not ready")

// Waiter polls for a call's recording to finish processing.
type Waiter struct {
	src         RecordingSource
	maxAttempts int
	delay       time.Duration

	// timer is swapped in tests; nil uses real time.
	timer backoff.Timer
}

func NewWaiter(src RecordingSource, maxAttempts int, delay time.Duration) *Waiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRecordingAttempts
	}
	if delay < 0 {
		delay = DefaultRecordingDelay
	}
	return &Waiter{src: src, maxAttempts: maxAttempts, delay: delay}
}

// WaitForRecording polls up to maxAttempts times, sleeping delay between
// attempts but not after the last one. A provider error or a cancelled ctx
// ends the wait early. Both outcomes are reported as not found.
func (w *Waiter) WaitForRecording(ctx context.Context, callSID string) (calls.Recording, bool) {
	log := logger.From(ctx).With("call_sid", callSID)

	var (
		found   calls.Recording
		attempt int
	)
	op := func() error {
		attempt++
		rec, ok, err := w.src.LatestRecording(ctx, callSID)
		if err != nil {
			log.Warn("recording poll failed", "attempt", attempt, "err", err)
			return backoff.Permanent(err)
		}
		if ok && rec.Ready() {
			found = rec
			return nil
		}
		log.Debug("waiting for recording", "attempt", attempt, "max_attempts", w.maxAttempts, "status", rec.Status)
		return errRecordingNotReady
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.delay), uint64(w.maxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotifyWithTimer(op, policy, nil, w.timer); err != nil {
		if errors.Is(err, errRecordingNotReady) {
			log.Info("no completed recording", "attempts", attempt)
		}
		return calls.Recording{}, false
	}

	log.Info("recording ready", "recording_sid", found.SID, "attempts", attempt)
	return found, true
}
