package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callsummary/internal/summary"
	"callsummary/internal/tracking"
	"callsummary/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON or TwiML.
type Handlers struct {
	Tokens    VoiceTokenIssuer
	Provider  CallProvider
	Pipeline  StatusPipeline
	Tasks     TaskRunner
	Summaries SummaryReader
	Tracker   Tracker

	// Ready reports whether dependencies (database) are reachable.
	Ready func(ctx context.Context) error

	// BaseURL is the public origin used in provider callback URLs.
	BaseURL string
	// TwilioNumber is the default caller id.
	TwilioNumber string

	Now func() time.Time
}

type VoiceTokenIssuer interface {
	IssueVoiceToken(now time.Time, identity string) (string, error)
}

type StatusPipeline interface {
	HandleStatus(ctx context.Context, ev summary.StatusEvent) summary.State
}

type TaskRunner interface {
	Go(name string, fn func(ctx context.Context)) bool
}

type SummaryReader interface {
	Get(ctx context.Context, callSID string) (summary.Record, bool, error)
}

type Tracker interface {
	Track(ctx context.Context, e tracking.Event)
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h Handlers) Readiness(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// detach runs fn on the task runner with the request's logger. Without a
// runner fn runs inline.
func (h Handlers) detach(c *gin.Context, name string, fn func(ctx context.Context)) {
	reqCtx := c.Request.Context()
	if h.Tasks == nil {
		fn(logger.Detach(context.Background(), reqCtx))
		return
	}
	if !h.Tasks.Go(name, func(ctx context.Context) { fn(logger.Detach(ctx, reqCtx)) }) {
		logger.FromGin(c).Warn("background task dropped", "task", name)
	}
}

func (h Handlers) track(c *gin.Context, e tracking.Event) {
	if h.Tracker == nil {
		return
	}
	h.detach(c, "tracking", func(ctx context.Context) { h.Tracker.Track(ctx, e) })
}

func callbackURL(base, path string, q url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func writeTwiML(c *gin.Context, xml string) {
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(xml))
}
