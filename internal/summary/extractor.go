package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	"callsummary/internal/calls"
	"callsummary/internal/config"
	"callsummary/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// Result names emitted by the intelligence operators this service relies on.
const (
	DefaultResultName = "Call Summary"
	LegacyResultName  = "Conversation Summary"
)

const DefaultSummaryPollDelay = 15 * time.Second

var errSummaryPending = errors.New("summary: transcript still processing")

// Matcher selects the analysis result that carries the call summary.
type Matcher func(calls.AnalysisResult) bool

// NameMatcher accepts results named exactly name.
func NameMatcher(name string) Matcher {
	return func(r calls.AnalysisResult) bool { return r.Name == name }
}

// NameOrTypeMatcher accepts results named name or produced by an operator of type typ.
func NameOrTypeMatcher(name, typ string) Matcher {
	return func(r calls.AnalysisResult) bool { return r.Name == name || r.Type == typ }
}

// MatcherFor maps a configured policy to a Matcher. resultName overrides the
// policy's default result name when set.
func MatcherFor(policy, resultName string) Matcher {
	if policy == config.MatchPolicyNameOrType {
		if resultName == "" {
			resultName = LegacyResultName
		}
		return NameOrTypeMatcher(resultName, calls.AnalysisTypeTextGeneration)
	}
	if resultName == "" {
		resultName = DefaultResultName
	}
	return NameMatcher(resultName)
}

// Extractor reads the generated summary out of a transcript's analysis results.
type Extractor struct {
	svc   TranscriptService
	match Matcher

	attempts int
	delay    time.Duration
	timer    backoff.Timer
}

// NewExtractor builds an Extractor. attempts bounds AwaitSummary; 1 means a
// single read with no status polling.
func NewExtractor(svc TranscriptService, match Matcher, attempts int, delay time.Duration) *Extractor {
	if match == nil {
		match = NameMatcher(DefaultResultName)
	}
	if attempts <= 0 {
		attempts = 1
	}
	if delay < 0 {
		delay = DefaultSummaryPollDelay
	}
	return &Extractor{svc: svc, match: match, attempts: attempts, delay: delay}
}

// Extract returns the payload of the first matching result with non-empty text.
func (e *Extractor) Extract(ctx context.Context, jobSID string) (string, bool) {
	if jobSID == "" {
		return "", false
	}
	log := logger.From(ctx).With("transcript_sid", jobSID)

	results, err := e.svc.ListAnalysisResults(ctx, jobSID)
	if err != nil {
		log.Warn("list analysis results failed", "err", err)
		return "", false
	}
	for _, r := range results {
		if !e.match(r) {
			continue
		}
		if text := strings.TrimSpace(r.Payload); text != "" {
			return text, true
		}
	}
	log.Info("no matching summary result", "results", len(results))
	return "", false
}

// AwaitSummary extracts the summary, retrying while the transcript is still
// processing. A failed transcript, or a completed one without a summary,
// stops immediately.
func (e *Extractor) AwaitSummary(ctx context.Context, jobSID string) (string, bool) {
	if jobSID == "" {
		return "", false
	}
	if e.attempts == 1 {
		return e.Extract(ctx, jobSID)
	}
	log := logger.From(ctx).With("transcript_sid", jobSID)

	var text string
	op := func() error {
		tr, err := e.svc.FetchTranscript(ctx, jobSID)
		if err != nil {
			// Status is advisory; the results may still be there.
			log.Warn("fetch transcript failed", "err", err)
		} else if tr.Status.Failed() {
			log.Warn("transcript did not complete", "status", tr.Status)
			return backoff.Permanent(errSummaryPending)
		}

		if s, ok := e.Extract(ctx, jobSID); ok {
			text = s
			return nil
		}
		if err == nil && tr.Status == calls.TranscriptStatusCompleted {
			return backoff.Permanent(errSummaryPending)
		}
		return errSummaryPending
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.delay), uint64(e.attempts-1)),
		ctx,
	)
	if err := backoff.RetryNotifyWithTimer(op, policy, nil, e.timer); err != nil {
		return "", false
	}
	return text, true
}
