package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mutige-mungos/mungo-shift/internal/api"
	"github.com/mutige-mungos/mungo-shift/internal/config"
	"github.com/mutige-mungos/mungo-shift/internal/metrics"
	"github.com/mutige-mungos/mungo-shift/internal/notifier"
	"github.com/mutige-mungos/mungo-shift/internal/processor"
	"github.com/mutige-mungos/mungo-shift/internal/storage"
	"github.com/mutige-mungos/mungo-shift/internal/upstream"
)

func main() {
	slog.Info("Starting Borderlands 4 SHiFT code server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.OpenWithRetry(ctx, storage.Options{
		Location:        cfg.DatabaseURL,
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.FirestoreCredentialsFile,
	}, 5, time.Second)
	if err != nil {
		slog.Error("Critical error opening seen-code store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	fetcher := upstream.New(upstream.Options{
		URL:        cfg.UpstreamURL,
		TTL:        cfg.CacheTTL,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		Metrics:    m,
	})
	pipeline := processor.NewPipeline(fetcher, m, cfg.Location)
	n := notifier.New(cfg.DiscordWebhookURL)
	trigger := processor.NewTrigger(pipeline, store, n, m)

	router := api.NewRouter(api.Deps{
		Loader:     pipeline,
		Cron:       trigger,
		CronSecret: cfg.CronSecret,
		SiteURL:    cfg.SiteURL,
		Gatherer:   reg,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port, "ttl", cfg.CacheTTL, "timezone", cfg.Location.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}
