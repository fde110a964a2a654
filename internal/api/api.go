// Package api boots YonkeBot: it opens the store, connects the chat
// transport, starts the message loop and serves the HTTP endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/YonkeBot/internal/messaging"
	"github.com/BTreeMap/YonkeBot/internal/scheduler"
	"github.com/BTreeMap/YonkeBot/internal/store"
	"github.com/BTreeMap/YonkeBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/YonkeBot/internal/whatsapp"
)

const (
	// DefaultServerAddress is the listen address when none is configured.
	DefaultServerAddress = ":8080"
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// IdleSweepSchedule is how often idle sessions are swept.
	IdleSweepSchedule = "@every 1m"
)

// Transport names accepted by WithTransport.
const (
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string        // HTTP listen address
	Transport   string        // TransportWhatsApp or TransportTwilio
	WebhookURL  string        // public Twilio webhook URL; enables signature checks
	IdleTimeout time.Duration // drop sessions idle this long; zero disables
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTransport selects the chat transport.
func WithTransport(name string) Option {
	return func(o *Opts) { o.Transport = name }
}

// WithWebhookURL sets the public URL Twilio posts to, used to verify
// X-Twilio-Signature.
func WithWebhookURL(url string) Option {
	return func(o *Opts) { o.WebhookURL = url }
}

// WithIdleTimeout enables the idle-session sweep.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Opts) { o.IdleTimeout = d }
}

// Run blocks serving the bot until SIGINT or SIGTERM, or until ctx is done.
func Run(ctx context.Context, waOpts []whatsapp.Option, twOpts []twiliowhatsapp.Option, storeOpts []store.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultServerAddress, Transport: TransportWhatsApp}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	var sopts store.Opts
	for _, opt := range storeOpts {
		opt(&sopts)
	}
	slog.Debug("API Run config", "addr", cfg.Addr, "transport", cfg.Transport, "idleTimeout", cfg.IdleTimeout, "dsn_set", sopts.DSN != "")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(sopts.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("API Run failed to close store", "error", err)
		}
	}()

	msgService, err := newService(ctx, cfg, waOpts, twOpts)
	if err != nil {
		return err
	}

	srv := NewServer(st, msgService)
	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	// Storage writes already underway finish even after a shutdown signal.
	srv.respHandler.Start(context.WithoutCancel(ctx))

	if cfg.IdleTimeout > 0 {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := sched.AddJob(IdleSweepSchedule, func() {
			if n := srv.sessions.ExpireIdle(cfg.IdleTimeout); n > 0 {
				slog.Info("API idle sweep expired sessions", "count", n)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule idle sweep: %w", err)
		}
		slog.Info("Idle session sweep enabled", "idleTimeout", cfg.IdleTimeout)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("YonkeBot API listening", "addr", cfg.Addr, "transport", cfg.Transport)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down gracefully")
	case err, ok := <-errCh:
		if ok {
			slog.Error("HTTP server failed", "error", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced to shutdown", "error", err)
	}
	if err := msgService.Stop(); err != nil {
		slog.Error("Failed to stop messaging service", "error", err)
	}
	srv.respHandler.Wait()
	slog.Info("YonkeBot stopped")
	return runErr
}

// newService builds the configured transport.
func newService(ctx context.Context, cfg Opts, waOpts []whatsapp.Option, twOpts []twiliowhatsapp.Option) (messaging.Service, error) {
	switch cfg.Transport {
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient(twOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var tcfg twiliowhatsapp.Opts
		for _, opt := range twOpts {
			opt(&tcfg)
		}
		var svcOpts []messaging.TwilioOption
		if cfg.WebhookURL != "" {
			svcOpts = append(svcOpts, messaging.WithSignatureValidation(tcfg.AuthToken, cfg.WebhookURL))
		} else {
			slog.Warn("No Twilio webhook URL configured, webhook signatures will not be verified")
		}
		return messaging.NewTwilioService(client, svcOpts...), nil
	case TransportWhatsApp, "":
		client, err := whatsapp.NewClient(ctx, waOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %q or %q)", cfg.Transport, TransportWhatsApp, TransportTwilio)
	}
}
