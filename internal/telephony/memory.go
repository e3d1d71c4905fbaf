package telephony

import (
	"context"
	"fmt"
	"sync"

	"callsummary/internal/calls"
)

// MemoryProvider is a scriptable in-memory Provider for tests and local runs
// without provider credentials. Transcripts created for recording RE1 get
// the SID "GT-RE1".
type MemoryProvider struct {
	mu sync.Mutex

	calls       map[string]calls.Call
	recordings  map[string][]calls.Recording
	transcripts map[string]calls.Transcript
	results     map[string][]calls.AnalysisResult
	failures    map[string]error

	polls       map[string]int
	outbound    []OutboundCallRequest
	transcribed []TranscriptRequest
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		calls:       map[string]calls.Call{},
		recordings:  map[string][]calls.Recording{},
		transcripts: map[string]calls.Transcript{},
		results:     map[string][]calls.AnalysisResult{},
		failures:    map[string]error{},
		polls:       map[string]int{},
	}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) AddCall(c calls.Call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[c.SID] = c
}

// SetRecordings scripts what successive LatestRecording polls return for a
// call. Once the script runs out the last entry repeats.
func (p *MemoryProvider) SetRecordings(callSID string, seq ...calls.Recording) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordings[callSID] = seq
}

func (p *MemoryProvider) SetTranscriptStatus(transcriptSID string, st calls.TranscriptStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tr := p.transcripts[transcriptSID]
	tr.SID = transcriptSID
	tr.Status = st
	p.transcripts[transcriptSID] = tr
}

func (p *MemoryProvider) SetResults(transcriptSID string, results ...calls.AnalysisResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[transcriptSID] = results
}

// FailOn makes every later call of method (e.g. "FetchCall") return err.
func (p *MemoryProvider) FailOn(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[method] = err
}

func (p *MemoryProvider) RecordingPolls(callSID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls[callSID]
}

func (p *MemoryProvider) OutboundCalls() []OutboundCallRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OutboundCallRequest(nil), p.outbound...)
}

func (p *MemoryProvider) TranscriptRequests() []TranscriptRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TranscriptRequest(nil), p.transcribed...)
}

func (p *MemoryProvider) FetchCall(ctx context.Context, callSID string) (calls.Call, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures["FetchCall"]; err != nil {
		return calls.Call{}, err
	}
	c, ok := p.calls[callSID]
	if !ok {
		return calls.Call{}, fmt.Errorf("telephony: call %s not found", callSID)
	}
	return c, nil
}

func (p *MemoryProvider) LatestRecording(ctx context.Context, callSID string) (calls.Recording, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls[callSID]++
	if err := p.failures["LatestRecording"]; err != nil {
		return calls.Recording{}, false, err
	}
	seq := p.recordings[callSID]
	if len(seq) == 0 {
		return calls.Recording{}, false, nil
	}
	i := p.polls[callSID] - 1
	if i >= len(seq) {
		i = len(seq) - 1
	}
	rec := seq[i]
	if rec.SID == "" {
		return calls.Recording{}, false, nil
	}
	return rec, true, nil
}

func (p *MemoryProvider) CreateCall(ctx context.Context, req OutboundCallRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures["CreateCall"]; err != nil {
		return "", err
	}
	p.outbound = append(p.outbound, req)
	return fmt.Sprintf("CA-out-%d", len(p.outbound)), nil
}

func (p *MemoryProvider) CreateTranscript(ctx context.Context, req TranscriptRequest) (calls.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures["CreateTranscript"]; err != nil {
		return calls.Transcript{}, err
	}
	p.transcribed = append(p.transcribed, req)
	tr := calls.Transcript{
		SID:          "GT-" + req.RecordingSID,
		RecordingSID: req.RecordingSID,
		ServiceSID:   req.ServiceSID,
		Status:       calls.TranscriptStatusQueued,
	}
	if prev, ok := p.transcripts[tr.SID]; ok && prev.Status != "" {
		tr.Status = prev.Status
	}
	p.transcripts[tr.SID] = tr
	return tr, nil
}

func (p *MemoryProvider) FetchTranscript(ctx context.Context, transcriptSID string) (calls.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures["FetchTranscript"]; err != nil {
		return calls.Transcript{}, err
	}
	tr, ok := p.transcripts[transcriptSID]
	if !ok {
		return calls.Transcript{}, fmt.Errorf("telephony: transcript %s not found", transcriptSID)
	}
	return tr, nil
}

func (p *MemoryProvider) ListAnalysisResults(ctx context.Context, transcriptSID string) ([]calls.AnalysisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures["ListAnalysisResults"]; err != nil {
		return nil, err
	}
	return append([]calls.AnalysisResult(nil), p.results[transcriptSID]...), nil
}
