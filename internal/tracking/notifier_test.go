package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"callsummary/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietCtx() context.Context {
	return logger.With(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifier_FillsIDAndTime(t *testing.T) {
	sink := NewMemorySender()
	n := NewNotifier(sink)
	n.clock = func() time.Time { return time.Unix(1700000000, 0) }

	n.Track(quietCtx(), Event{LeadID: "L1", CampaignID: "C1", Status: StatusHuman})

	events := sink.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), events[0].OccurredAt)
	assert.Equal(t, StatusHuman, events[0].Status)
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	sink := NewMemorySender()
	sink.Fail(errors.New("backend down"))
	n := NewNotifier(sink)

	assert.NotPanics(t, func() {
		n.Track(quietCtx(), Event{LeadID: "L1", Status: StatusFailed})
	})
	assert.Len(t, sink.Events(), 1)
}

func TestNotifier_RejectsEventWithoutStatus(t *testing.T) {
	sink := NewMemorySender()
	NewNotifier(sink).Track(quietCtx(), Event{LeadID: "L1"})
	assert.Empty(t, sink.Events())
}

func TestNotifier_DisabledWithoutBackend(t *testing.T) {
	n := NewBackendNotifier("  ", HTTPOptions{})
	assert.NotPanics(t, func() {
		n.Track(quietCtx(), Event{Status: StatusFailed})
	})

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.Track(quietCtx(), Event{Status: StatusFailed})
	})
}

func TestHTTPSender_PostsTrackPayload(t *testing.T) {
	var got map[string]string
	var idemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/voicemail/track", r.URL.Path)
		idemKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewBackendNotifier(srv.URL+"/", HTTPOptions{Retries: 0})
	n.Track(quietCtx(), Event{ID: "evt-1", LeadID: "L1", CampaignID: "C1", Status: StatusMachineEndBeep})

	assert.Equal(t, map[string]string{"leadID": "L1", "campaignID": "C1", "status": "machine_end_beep"}, got)
	assert.Equal(t, "evt-1", idemKey)
}

func TestHTTPSender_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, HTTPOptions{Retries: 2, RetryWait: time.Millisecond, MaxBackoff: 5 * time.Millisecond})
	require.NoError(t, s.Send(context.Background(), Event{ID: "evt", Status: StatusFailed}))
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPSender_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, HTTPOptions{Retries: 3, RetryWait: time.Millisecond})
	err := s.Send(context.Background(), Event{ID: "evt", Status: StatusFailed})
	assert.ErrorContains(t, err, "422")
	assert.Equal(t, int32(1), hits.Load())
}
