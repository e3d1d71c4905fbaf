package main

import (
	"context"

	"callsummary/internal/config"
	"callsummary/internal/httpapi"
	"callsummary/internal/telephony"

	"github.com/gin-gonic/gin"
)

type deps struct {
	tokens   httpapi.VoiceTokenIssuer
	provider httpapi.CallProvider
	pipeline httpapi.StatusPipeline
	tasks    httpapi.TaskRunner
	store    httpapi.SummaryReader
	tracker  httpapi.Tracker
	ready    func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, d deps) {
	h := httpapi.Handlers{
		Tokens:       d.tokens,
		Provider:     d.provider,
		Pipeline:     d.pipeline,
		Tasks:        d.tasks,
		Summaries:    d.store,
		Tracker:      d.tracker,
		Ready:        d.ready,
		BaseURL:      cfg.App.BaseURL,
		TwilioNumber: cfg.Twilio.PhoneNumber,
	}

	// public
	r.GET("/healthz", h.Health)
	r.GET("/readyz", h.Readiness)

	// browser client
	r.GET("/token", h.Token)
	r.GET("/get-call-info", h.GetCallInfo)
	r.POST("/leave-voicemail", h.LeaveVoicemail)
	r.GET("/summaries/:callSid", h.GetSummary)

	// Provider webhooks.
	hooks := r.Group("/")
	if cfg.Twilio.ValidateWebhooks {
		hooks.Use(telephony.RequireSignature(cfg.Twilio.AuthToken, cfg.App.BaseURL))
	}
	{
		hooks.POST("/voice", h.Voice)
		hooks.POST("/answer", h.Answer)
		hooks.POST("/call-status", h.CallStatus)
	}
}
