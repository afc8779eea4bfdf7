package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grammirror/gram-mirror/app/api"
	"github.com/grammirror/gram-mirror/app/cfg"
	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/reconciler"
	"github.com/grammirror/gram-mirror/app/sink"
	"github.com/grammirror/gram-mirror/app/source"
	"github.com/grammirror/gram-mirror/app/tasks"
	"github.com/grammirror/gram-mirror/app/watch"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Gram Mirror server", "version", appCfg.Version)

	db, err := history.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := history.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	historyRepo := history.NewHistoryRepo(db)
	settingsRepo := history.NewSettingsRepo(db)

	configCache := watch.NewConfigCache(appCfg.CreatorsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load creator configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Creator configurations loaded", "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: 30 * time.Second}

	clients := make([]source.Client, 0, len(appCfg.SourceTokens))
	for i, token := range appCfg.SourceTokens {
		identity := fmt.Sprintf("identity-%d", i+1)
		clients = append(clients, source.NewHTTPClient(appCfg.SourceBaseURL, token, identity, appCfg.UserAgent, httpClient))
	}
	pool, err := source.NewPool(clients)
	if err != nil {
		slog.Error("Failed to build source client pool", "error", err)
		os.Exit(1)
	}
	guard := source.NewGuard(pool, appCfg.SinkFileLimit)

	chatSink := sink.NewChatClient(appCfg.SinkBaseURL, appCfg.SinkToken, appCfg.UserAgent, appCfg.SinkFileLimit, httpClient)

	dispatcher := reconciler.NewDispatcher(chatSink)
	checker := reconciler.New(historyRepo, guard, dispatcher)
	profileCache := reconciler.NewProfileCache(reconciler.DefaultProfileTTL)
	profiler := reconciler.NewProfiler(guard, historyRepo, settingsRepo, profileCache)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.CheckInterval)
	scheduler := tasks.NewScheduler(configCache, settingsRepo, checker)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(configCache, settingsRepo, checker, profiler, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Gram Mirror server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Gram Mirror server shutdown complete")
}
