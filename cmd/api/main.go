package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brightstay/stayflow/internal/backend"
	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/gateway"
	"github.com/brightstay/stayflow/internal/http/handlers"
	"github.com/brightstay/stayflow/internal/mailer"
	"github.com/brightstay/stayflow/internal/review"
	"github.com/brightstay/stayflow/internal/session"
	"github.com/brightstay/stayflow/pkg/config"
	"github.com/brightstay/stayflow/pkg/database"
	"github.com/brightstay/stayflow/pkg/events"
	"github.com/brightstay/stayflow/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()
	clk := clock.NewSystem()

	// Session store backend
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		client, err := database.ConnectRedis(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = session.NewRedisStore(client, cfg.Session.Namespace, cfg.Session.TTL)
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = session.NewPostgresStore(pool, cfg.Session.Namespace, cfg.Session.TTL)
	default:
		logger.Warn("Using in-memory session store; sessions will not survive restarts")
		store = session.NewMemoryStore(clk, cfg.Session.Namespace, cfg.Session.TTL)
	}

	// Event bus
	var bus events.EventBus
	if cfg.NATS.Enabled {
		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsBus.Close()
		bus = natsBus
	} else {
		bus = events.NewNoopEventBus()
	}

	// Payment gateway
	var gw gateway.Gateway
	if cfg.Stripe.SecretKey != "" {
		gw = gateway.NewStripe(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("No Stripe key configured; using dev payment gateway")
		gw = gateway.NewDev()
	}

	// Mailer
	var ml mailer.Service
	if cfg.Email.DevMode || cfg.Email.MailerSendKey == "" {
		ml = mailer.NewDevMailer()
	} else {
		ml = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	bc := backend.New(cfg.Backend.BaseURL, cfg.Backend.HTTPTimeout)
	sessions := session.NewManager(store)
	gate := review.NewGate(bc)

	h := handlers.New(cfg, bc, sessions, gate, gw, ml, bus, clk)

	sweepCtx, stopSweepers := context.WithCancel(ctx)
	defer stopSweepers()
	h.StartSweepers(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		stopSweepers()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting stayflow workflow controller", "port", cfg.Server.Port, "backend", cfg.Backend.BaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
