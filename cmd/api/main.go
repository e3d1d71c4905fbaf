package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callsummary/internal/auth"
	"callsummary/internal/config"
	"callsummary/internal/routing"
	"callsummary/internal/summary"
	"callsummary/internal/telephony"
	"callsummary/internal/tracking"
	"callsummary/pkg/logger"
	"callsummary/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv load failed", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewTokenManager(cfg.Twilio)
	if err != nil {
		log.Error("voice token init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := summary.Migrate(db); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	provider := telephony.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	router := routing.NewRouter(cfg.Intelligence.DefaultServiceSID, cfg.Intelligence.Services, routing.DefaultLanguages)
	for _, rt := range router.Routes() {
		log.Info("intelligence route", "prefix", rt.Prefix, "service_sid", rt.ServiceSID, "language", rt.Language)
	}

	store := summary.NewPostgresStore(db)
	p := cfg.Pipeline
	waiter := summary.NewWaiter(provider, p.RecordingMaxAttempts, p.RecordingPollDelay)
	jobs := summary.NewJobManager(waiter, router, provider)
	extractor := summary.NewExtractor(provider, summary.MatcherFor(p.MatchPolicy, p.ResultName), p.SummaryPollAttempts, p.SummaryPollDelay)
	orchestrator := summary.NewOrchestrator(provider, jobs, extractor,
		store,
		summary.NewRedisGuard(rdb, 0),
		summary.Options{MinDurationSeconds: p.MinDurationSeconds, SummaryDelay: p.SummaryDelay},
	)
	dispatcher := summary.NewDispatcher(log)

	notifier := tracking.NewBackendNotifier(cfg.Backend.URL, tracking.HTTPOptions{})
	if cfg.Backend.URL == "" {
		log.Warn("BACKEND_URL not set; voicemail tracking disabled")
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(cors.New(corsConfig(cfg.App.CORSAllowedOrigins)))

	registerRoutes(r, cfg, deps{
		tokens:   tokens,
		provider: provider,
		pipeline: orchestrator,
		tasks:    dispatcher,
		store:    store,
		tracker:  notifier,
		ready: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated", "pipelines_in_flight", dispatcher.InFlight())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	// Stop accepting callbacks first, then let running pipelines finish.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error("pipeline drain incomplete", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
