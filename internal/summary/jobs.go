package summary

import (
	"context"

	"callsummary/internal/calls"
	"callsummary/internal/routing"
	"callsummary/internal/telephony"
	"callsummary/pkg/logger"
)

// JobManager turns a finished call into a transcription job on the
// locale-appropriate intelligence service.
type JobManager struct {
	waiter *Waiter
	router *routing.Router
	svc    TranscriptService
}

func NewJobManager(waiter *Waiter, router *routing.Router, svc TranscriptService) *JobManager {
	return &JobManager{waiter: waiter, router: router, svc: svc}
}

// CreateJob waits for the call's recording and submits it for transcription.
// The service and language are chosen from the destination number.
// Every failure is logged and reported as ok=false.
func (m *JobManager) CreateJob(ctx context.Context, callSID, toNumber string) (calls.Transcript, bool) {
	log := logger.From(ctx).With("call_sid", callSID)

	rec, ok := m.waiter.WaitForRecording(ctx, callSID)
	if !ok {
		log.Info("call pipeline", "state", StateNoRecording)
		return calls.Transcript{}, false
	}
	log.Info("call pipeline", "state", StateRecordingFound, "recording_sid", rec.SID)

	serviceSID, language := m.router.Resolve(toNumber)
	if serviceSID == "" {
		log.Error("no intelligence service configured", "to", toNumber)
		return calls.Transcript{}, false
	}

	tr, err := m.svc.CreateTranscript(ctx, telephony.TranscriptRequest{
		RecordingSID: rec.SID,
		ServiceSID:   serviceSID,
		CustomerKey:  callSID,
	})
	if err != nil {
		log.Error("create transcript failed", "recording_sid", rec.SID, "service_sid", serviceSID, "err", err)
		return calls.Transcript{}, false
	}
	if tr.SID == "" {
		log.Error("create transcript returned no sid", "recording_sid", rec.SID)
		return calls.Transcript{}, false
	}

	tr.RecordingSID = rec.SID
	tr.ServiceSID = serviceSID
	tr.Language = language
	log.Info("call pipeline", "state", StateJobSubmitted, "transcript_sid", tr.SID, "service_sid", serviceSID, "language", language)
	return tr, true
}
