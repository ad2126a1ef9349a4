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

	"github.com/robfig/cron/v3"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	datadogadapter "github.com/ericfisherdev/setoolkit/internal/adapter/driven/datadog"
	"github.com/ericfisherdev/setoolkit/internal/adapter/driven/manifest"
	sqliteadapter "github.com/ericfisherdev/setoolkit/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/setoolkit/internal/adapter/driving/cdp"
	httphandler "github.com/ericfisherdev/setoolkit/internal/adapter/driving/http"
	"github.com/ericfisherdev/setoolkit/internal/application"
	"github.com/ericfisherdev/setoolkit/internal/config"
	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"alert_interval", cfg.AlertInterval,
		"manifest_dir", cfg.ManifestDir,
		"cdp", cfg.CDPURL != "",
	)
	if !cfg.HasSecretKey() {
		slog.Warn("SETOOLKIT_SECRET_KEY not set, stored credentials will be reported invalid")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "version", version)

	// 5. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	settingsStore := sqliteadapter.NewSettingsRepo(db)
	traceStore := sqliteadapter.NewTraceRepo(db)
	pluginStore := sqliteadapter.NewPluginRepo(db)
	linkStore := sqliteadapter.NewLinkRepo(db)

	// 6. Load plugin manifests: built-ins first so a file cannot shadow them.
	registry := application.NewRegistry()
	registry.Load(application.BuiltinManifests())
	if _, err := registry.LoadFrom(ctx, manifest.NewDirLoader(cfg.ManifestDir)); err != nil {
		return err
	}

	pluginSvc := application.NewPluginService(registry, pluginStore)
	if err := pluginSvc.Sync(ctx); err != nil {
		return err
	}

	// 7. Restore the vendor client from previously validated credentials.
	provider := application.NewVendorClientProvider(nil)
	credentialSvc := application.NewCredentialService(
		credentialStore,
		settingsStore,
		datadogadapter.NewFactory(),
		provider,
		model.DefaultRegions(),
	)
	if _, err := credentialSvc.Restore(ctx); err != nil {
		slog.Warn("could not restore vendor client", "error", err)
	}

	// 8. Trace correlator, gated on the apm-tracer plugin.
	traceSvc := application.NewTraceService(traceStore, settingsStore,
		application.WithTraceGate(pluginSvc.Gate(application.PluginAPMTracer)),
	)
	if err := traceSvc.Load(ctx); err != nil {
		return err
	}

	// 8b. Hourly retention prune. The schedule already enforces the interval.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		removed, err := traceSvc.Prune(ctx, true)
		if err != nil {
			slog.Error("scheduled trace prune failed", "error", err)
			return
		}
		slog.Info("scheduled trace prune complete", "removed", removed)
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 9. Event alert polling.
	notificationSvc := application.NewNotificationService(application.DefaultNotificationCapacity)
	alertSvc := application.NewAlertService(provider, pluginSvc, notificationSvc, cfg.AlertInterval)
	go alertSvc.Start(ctx)

	// 9b. Optional CDP network capture.
	if cfg.CDPURL != "" {
		monitor := cdp.NewMonitor(cfg.CDPURL, traceSvc)
		go func() {
			if err := monitor.Run(ctx); err != nil {
				slog.Error("cdp monitor stopped", "error", err)
			}
		}()
	}

	// 10. Create HTTP handler.
	linkSvc := application.NewLinkService(linkStore)
	settingsSvc := application.NewSettingsService(settingsStore)
	router := application.NewMessageRouter(credentialSvc, pluginSvc, traceSvc, alertSvc, notificationSvc, linkSvc, settingsSvc)

	apiHandler := httphandler.NewHandler(httphandler.Services{
		Credentials:   credentialSvc,
		Plugins:       pluginSvc,
		Traces:        traceSvc,
		Alerts:        alertSvc,
		Notifications: notificationSvc,
		Links:         linkSvc,
		Settings:      settingsSvc,
		Router:        router,
		Provider:      provider,
	}, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Validation probes up to six regions sequentially.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("setoolkit started",
		"listen_addr", cfg.ListenAddr,
		"plugins", len(registry.All()),
	)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
