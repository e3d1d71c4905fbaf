package summary

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"callsummary/internal/calls"
	"callsummary/internal/routing"
	"callsummary/internal/telephony"
	"callsummary/pkg/logger"
)

// fakeTimer fires immediately and remembers how long it was asked to wait.
type fakeTimer struct {
	mu     sync.Mutex
	waited time.Duration
	starts int
	c      chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waited += d
	t.starts++
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}

func (t *fakeTimer) total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waited
}

func quietCtx() context.Context {
	return logger.With(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completed(sid string) calls.Recording {
	return calls.Recording{SID: sid, Status: calls.RecordingStatusCompleted}
}

func processing(sid string) calls.Recording {
	return calls.Recording{SID: sid, Status: calls.RecordingStatusProcessing}
}

type harness struct {
	provider *telephony.MemoryProvider
	store    *MemoryStore
	orch     *Orchestrator
}

// newHarness wires the pipeline on in-memory parts with no real waiting.
func newHarness() *harness {
	p := telephony.NewMemoryProvider()
	store := NewMemoryStore()
	router := routing.NewRouter("GA-default", map[string]string{"+34": "GA-es"}, routing.DefaultLanguages)

	waiter := NewWaiter(p, 10, time.Second)
	waiter.timer = &fakeTimer{}
	jobs := NewJobManager(waiter, router, p)
	extractor := NewExtractor(p, NameMatcher(DefaultResultName), 1, 0)

	orch := NewOrchestrator(p, jobs, extractor, store, NewLocalGuard(), Options{
		MinDurationSeconds: 50,
		SummaryDelay:       0,
	})
	return &harness{provider: p, store: store, orch: orch}
}
