package summary

import (
	"errors"
	"testing"
	"time"

	"callsummary/internal/routing"
	"callsummary/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobManager(p *telephony.MemoryProvider) *JobManager {
	router := routing.NewRouter("GA-default",
		map[string]string{"+34": "GA-es", "+351": "GA-pt"},
		routing.DefaultLanguages,
	)
	w := NewWaiter(p, 10, time.Second)
	w.timer = &fakeTimer{}
	return NewJobManager(w, router, p)
}

func TestCreateJob_RecordingReadyOnThirdPoll(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", processing("RE1"), processing("RE1"), completed("RE1"))

	job, ok := newJobManager(p).CreateJob(quietCtx(), "CA1", "+34911222333")

	require.True(t, ok)
	assert.Equal(t, 3, p.RecordingPolls("CA1"))
	assert.Equal(t, "GT-RE1", job.SID)
	assert.Equal(t, "es-ES", job.Language)

	reqs := p.TranscriptRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, telephony.TranscriptRequest{
		RecordingSID: "RE1",
		ServiceSID:   "GA-es",
		CustomerKey:  "CA1",
	}, reqs[0])
}

func TestCreateJob_LongestPrefixService(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", completed("RE9"))

	job, ok := newJobManager(p).CreateJob(quietCtx(), "CA1", "+351912345678")
	require.True(t, ok)
	assert.Equal(t, "GA-pt", job.ServiceSID)
	assert.Equal(t, "pt-PT", job.Language)
}

func TestCreateJob_UnknownDestinationUsesDefaults(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", completed("RE1"))

	job, ok := newJobManager(p).CreateJob(quietCtx(), "CA1", "")
	require.True(t, ok)
	assert.Equal(t, "GA-default", job.ServiceSID)
	assert.Equal(t, routing.DefaultLanguage, job.Language)
}

func TestCreateJob_NoRecording(t *testing.T) {
	p := telephony.NewMemoryProvider()

	_, ok := newJobManager(p).CreateJob(quietCtx(), "CA1", "+34911222333")
	assert.False(t, ok)
	assert.Empty(t, p.TranscriptRequests())
	assert.Equal(t, 10, p.RecordingPolls("CA1"))
}

func TestCreateJob_SubmissionFailureIsNone(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", completed("RE1"))
	p.FailOn("CreateTranscript", errors.New("quota"))

	_, ok := newJobManager(p).CreateJob(quietCtx(), "CA1", "+34911222333")
	assert.False(t, ok)
}

func TestCreateJob_NoServiceConfigured(t *testing.T) {
	p := telephony.NewMemoryProvider()
	p.SetRecordings("CA1", completed("RE1"))
	w := NewWaiter(p, 1, 0)
	m := NewJobManager(w, routing.NewRouter("", nil, nil), p)

	_, ok := m.CreateJob(quietCtx(), "CA1", "+12125550100")
	assert.False(t, ok)
	assert.Empty(t, p.TranscriptRequests())
}
