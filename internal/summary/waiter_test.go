package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"callsummary/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForRecording_GivesUpAfterExactlyMaxAttempts(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", processing("RE1"))

	timer := &fakeTimer{}
	w := NewWaiter(p, 4, 3*time.Second)
	w.timer = timer

	_, ok := w.WaitForRecording(quietCtx(), "CA1")

	assert.False(t, ok)
	assert.Equal(t, 4, p.RecordingPolls("CA1"))
	assert.Equal(t, 9*time.Second, timer.total(), "no sleep after the final attempt")
	assert.Less(t, timer.total(), 4*3*time.Second)
}

func TestWaitForRecording_ReturnsOnceCompleted(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", processing("RE1"), processing("RE1"), completed("RE1"))

	timer := &fakeTimer{}
	w := NewWaiter(p, 10, time.Second)
	w.timer = timer

	rec, ok := w.WaitForRecording(quietCtx(), "CA1")

	require.True(t, ok)
	assert.Equal(t, "RE1", rec.SID)
	assert.Equal(t, 3, p.RecordingPolls("CA1"))
	assert.Equal(t, 2*time.Second, timer.total())
}

func TestWaitForRecording_NoRecordingCountsAsNotReady(t *testing.T) {
	p := telephony.NewMemoryProvider()

	w := NewWaiter(p, 2, 0)
	w.timer = &fakeTimer{}

	_, ok := w.WaitForRecording(quietCtx(), "CA-none")
	assert.False(t, ok)
	assert.Equal(t, 2, p.RecordingPolls("CA-none"))
}

func TestWaitForRecording_ProviderErrorEndsWait(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.FailOn("LatestRecording", errors.New("503"))

	w := NewWaiter(p, 10, time.Second)
	w.timer = &fakeTimer{}

	_, ok := w.WaitForRecording(quietCtx(), "CA1")
	assert.False(t, ok)
	assert.Equal(t, 1, p.RecordingPolls("CA1"))
}

func TestWaitForRecording_StopsOnCancelledContext(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", processing("RE1"))

	ctx, cancel := context.WithCancel(quietCtx())
	cancel()

	w := NewWaiter(p, 10, time.Hour)
	_, ok := w.WaitForRecording(ctx, "CA1")
	assert.False(t, ok)
	assert.Equal(t, 1, p.RecordingPolls("CA1"))
}

func TestWaitForRecording_RealTimerStaysWithinBound(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", processing("RE1"))

	const attempts, delay = 3, 10 * time.Millisecond
	w := NewWaiter(p, attempts, delay)

	start := time.Now()
	_, ok := w.WaitForRecording(quietCtx(), "CA1")
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Equal(t, attempts, p.RecordingPolls("CA1"))
	assert.GreaterOrEqual(t, elapsed, (attempts-1)*delay)
}
