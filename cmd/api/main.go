package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mailbridge.org/internal/auth"
	"mailbridge.org/internal/config"
	"mailbridge.org/internal/dispatch"
	"mailbridge.org/internal/httpapi"
	"mailbridge.org/internal/inbound"
	"mailbridge.org/internal/mailbox"
	"mailbridge.org/internal/obs"
	"mailbridge.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("MAILBRIDGE_CONFIG"), "optional YAML config path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Postgres backs both the auth store and the mailbox when a DSN is
	// configured; otherwise everything runs in memory (dev mode).
	var db *sql.DB
	var userStore auth.UserStore
	var msgStore mailbox.Store
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		userStore = auth.NewPGUserStore(db)
		msgStore = mailbox.NewPGStore(db)
	} else {
		log.Println("MAILBRIDGE_PG_DSN not set, using in-memory stores")
		msgStore = mailbox.NewInMemory()
	}
	if userStore == nil {
		log.Fatal("auth requires Postgres: set MAILBRIDGE_PG_DSN")
	}

	tokens, err := auth.NewTokenService(cfg.Auth.Secret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc := auth.NewService(userStore, tokens)

	var sender *dispatch.Sender
	if cfg.Relay.BaseURL != "" {
		relay := dispatch.NewRelayClient(cfg.Relay.BaseURL, cfg.Relay.APIKey)
		sender = dispatch.NewSender(relay,
			dispatch.WithRetryConfig(dispatch.RetryConfig{
				MaxRetries: cfg.Retry.MaxRetries,
				BaseDelay:  cfg.Retry.BaseDelay,
				MaxDelay:   cfg.Retry.MaxDelay,
				Multiplier: cfg.Retry.Multiplier,
			}),
			dispatch.WithBreaker(dispatch.NewCircuitBreaker(dispatch.BreakerConfig{
				FailureThreshold: cfg.Breaker.FailureThreshold,
				RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
			})),
		)
	} else {
		log.Println("MAILBRIDGE_RELAY_BASE_URL not set, outbound mail disabled")
	}

	events := stream.New()
	ingestor := inbound.NewIngestor(cfg.Domain, msgStore, events)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, msgStore, sender, ingestor, events,
		httpapi.WithDomain(cfg.Domain),
		httpapi.WithWebhookSecret(cfg.Inbound.WebhookSecret),
		httpapi.WithRateLimit(int(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting mailbridge-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
