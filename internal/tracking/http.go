package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const trackPath = "/api/voicemail/track"

// HTTPSender posts events to {baseURL}/api/voicemail/track.
type HTTPSender struct {
	client *resty.Client
}

type HTTPOptions struct {
	Timeout    time.Duration
	Retries    int
	RetryWait  time.Duration
	MaxBackoff time.Duration
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryWait <= 0 {
		o.RetryWait = 200 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 2 * time.Second
	}
	return o
}

// NewHTTPSender returns nil when baseURL is empty.
func NewHTTPSender(baseURL string, opts HTTPOptions) *HTTPSender {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	opts = opts.withDefaults()

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.MaxBackoff).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &HTTPSender{client: c}
}

func (s *HTTPSender) Send(ctx context.Context, e Event) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", e.ID).
		SetBody(e).
		Post(trackPath)
	if err != nil {
		return fmt.Errorf("tracking: post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("tracking: backend responded %d", resp.StatusCode())
	}
	return nil
}

// NewBackendNotifier tracks to baseURL, or drops every event when baseURL is empty.
func NewBackendNotifier(baseURL string, opts HTTPOptions) *Notifier {
	if s := NewHTTPSender(baseURL, opts); s != nil {
		return NewNotifier(s)
	}
	return NewNotifier(nil)
}
