package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	h "github.com/a-busman/DigitalFoundryUpdater/internal/api/http"
	cfgpkg "github.com/a-busman/DigitalFoundryUpdater/internal/config"
	"github.com/a-busman/DigitalFoundryUpdater/internal/notify"
	repo "github.com/a-busman/DigitalFoundryUpdater/internal/repository"
	"github.com/a-busman/DigitalFoundryUpdater/internal/scrape"
	svc "github.com/a-busman/DigitalFoundryUpdater/internal/service"
	"github.com/a-busman/DigitalFoundryUpdater/internal/session"
	"github.com/a-busman/DigitalFoundryUpdater/internal/storage"
	"github.com/a-busman/DigitalFoundryUpdater/internal/worker"
)

func main() {
	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully", "output_dir", cfg.OutputDir)

	baseURL, err := url.Parse(cfg.SourceURL)
	if err != nil {
		slog.Error("invalid source URL", "error", err)
		os.Exit(1)
	}

	cookies := session.NewFileStore(cfg.CookieFile)
	jar, err := cookies.Jar(baseURL)
	if err != nil {
		slog.Error("failed to load cookies", "cookie_file", cfg.CookieFile, "error", err)
		os.Exit(1)
	}

	client, err := scrape.NewClient(cfg.SourceURL, cfg.Collection, jar, cfg.PageTimeout, slog.Default())
	if err != nil {
		slog.Error("failed to create scrape client", "error", err)
		os.Exit(1)
	}

	validator := session.NewValidator(cookies, cfg.Domain)
	ledger := repo.NewLedger(cfg.LedgerFile)
	files := storage.NewFileStorage(cfg.OutputDir)
	notifier := notify.FromConfig(cfg.WebhookURL, slog.Default())
	retriever := worker.NewRetriever(client, files, jar, cfg, slog.Default())

	cycle := svc.NewCycle(validator, client, ledger, retriever, notifier, slog.Default())
	scheduler := svc.NewScheduler(cycle, cfg.CheckInterval, cfg.TriggerSettle, slog.Default())

	router := h.NewRouter(scheduler, cycle, slog.Default())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	g.Go(func() error {
		slog.Info("control server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("control server shutdown failed", "error", err)
		}
		return nil
	})

	// SIGUSR1 requests an immediate check without restarting the timer.
	g.Go(func() error {
		usr1 := make(chan os.Signal, 1)
		signal.Notify(usr1, syscall.SIGUSR1)
		defer signal.Stop(usr1)

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-usr1:
				scheduler.TriggerNow(gctx)
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("updater exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("updater stopped gracefully")
}
