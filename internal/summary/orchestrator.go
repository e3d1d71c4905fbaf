package summary

import (
	"context"
	"time"

	"callsummary/internal/calls"
	"callsummary/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultMinDurationSeconds = 50
	DefaultSummaryDelay       = 30 * time.Second
)

// State is a pipeline stage. Each transition is logged; HandleStatus returns
// the stage the pipeline stopped at.
type State string

const (
	StateReceived         State = "received"
	StateIgnored          State = "ignored"
	StateDurationChecked  State = "duration-checked"
	StateIneligible       State = "ineligible"
	StateEligible         State = "eligible"
	StateDuplicate        State = "duplicate"
	StateRecordingAwaited State = "recording-awaited"
	StateNoRecording      State = "no-recording"
	StateRecordingFound   State = "recording-found"
	StateJobSubmitted     State = "job-submitted"
	StateNoJob            State = "no-job"
	StateJobPending       State = "job-pending"
	StateSummaryFetched   State = "summary-fetched"
	StateNoSummary        State = "no-summary"
	StatePersistFailed    State = "persist-failed"
	StateSummaryPersisted State = "summary-persisted"
	StateCancelled        State = "cancelled"
)

// StatusEvent is a final call status notification.
type StatusEvent struct {
	CallSID string
	Status  calls.CallStatus

	// Context is the correlation state recovered from the callback URL.
	Context calls.CallContext
}

type Options struct {
	// MinDurationSeconds: calls must last strictly longer to be summarized.
	MinDurationSeconds int
	// SummaryDelay is measured from job submission. Zero skips the wait.
	SummaryDelay time.Duration
}

// Orchestrator runs the post-call pipeline: gate on duration, transcribe the
// recording, wait, extract the summary and persist it.
type Orchestrator struct {
	calls     CallSource
	jobs      *JobManager
	extractor *Extractor
	store     Store
	guard     Guard

	minDuration  int
	summaryDelay time.Duration

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(src CallSource, jobs *JobManager, extractor *Extractor, store Store, guard Guard, opts Options) *Orchestrator {
	if opts.MinDurationSeconds <= 0 {
		opts.MinDurationSeconds = DefaultMinDurationSeconds
	}
	if opts.SummaryDelay < 0 {
		opts.SummaryDelay = DefaultSummaryDelay
	}
	return &Orchestrator{
		calls:        src,
		jobs:         jobs,
		extractor:    extractor,
		store:        store,
		guard:        guard,
		minDuration:  opts.MinDurationSeconds,
		summaryDelay: opts.SummaryDelay,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// HandleStatus runs the pipeline for ev to completion. It never returns an
// error: every failure is logged and ends the pipeline at the matching state.
func (o *Orchestrator) HandleStatus(ctx context.Context, ev StatusEvent) State {
	log := logger.From(ctx).With("call_sid", ev.CallSID)
	ctx = logger.With(ctx, log)
	step := func(s State, args ...any) State {
		log.Info("call pipeline", append([]any{"state", s}, args...)...)
		return s
	}

	step(StateReceived, "status", ev.Status)
	if ev.CallSID == "" || ev.Status != calls.CallStatusCompleted {
		return step(StateIgnored)
	}

	if o.guard != nil {
		release, ok, err := o.guard.Acquire(ctx, ev.CallSID)
		switch {
		case err != nil:
			log.Warn("pipeline guard unavailable, continuing", "err", err)
		case !ok:
			return step(StateDuplicate)
		default:
			defer release()
		}
	}

	call, err := o.calls.FetchCall(ctx, ev.CallSID)
	if err != nil {
		log.Error("fetch call failed", "err", err)
		return step(StateIneligible, "reason", "call fetch failed")
	}
	step(StateDurationChecked, "duration", call.DurationSeconds)
	if call.DurationSeconds <= o.minDuration {
		return step(StateIneligible, "duration", call.DurationSeconds, "min_duration", o.minDuration)
	}
	step(StateEligible)

	cc := ev.Context.Sanitized()
	from := firstNonEmpty(cc.From, calls.NormalizePhone(call.From))
	to := firstNonEmpty(cc.To, calls.NormalizePhone(call.To))

	var userID *string
	if from != "" && o.store != nil {
		id, ok, err := o.store.LookupUserID(ctx, from)
		switch {
		case err != nil:
			log.Warn("owner lookup failed", "from", from, "err", err)
		case ok:
			userID = &id
		}
	}

	step(StateRecordingAwaited)
	job, ok := o.jobs.CreateJob(ctx, ev.CallSID, to)
	if !ok {
		return step(StateNoJob)
	}
	step(StateJobPending, "transcript_sid", job.SID, "delay", o.summaryDelay.String())

	if o.summaryDelay > 0 {
		t := time.NewTimer(o.summaryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return step(StateCancelled, "err", ctx.Err())
		case <-t.C:
		}
	}

	text, ok := o.extractor.AwaitSummary(ctx, job.SID)
	step(StateSummaryFetched, "found", ok)
	if !ok {
		return step(StateNoSummary)
	}

	rec, err := o.store.Upsert(ctx, Record{
		ID:              o.newID(),
		UserID:          userID,
		CallSID:         ev.CallSID,
		TranscriptSID:   job.SID,
		From:            from,
		To:              to,
		DurationSeconds: call.DurationSeconds,
		Summary:         text,
		LanguageCode:    job.Language,
		CreatedAt:       o.now().UTC(),
	})
	if err != nil {
		log.Error("persist summary failed", "err", err)
		return step(StatePersistFailed)
	}
	return step(StateSummaryPersisted, "summary_id", rec.ID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
