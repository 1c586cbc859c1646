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

	"github.com/redis/go-redis/v9"

	"github.com/openpromo/pubflow/app/ai"
	"github.com/openpromo/pubflow/app/api"
	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/automation"
	"github.com/openpromo/pubflow/app/cfg"
	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/dispatch"
	"github.com/openpromo/pubflow/app/lock"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/publish"
	"github.com/openpromo/pubflow/app/secrets"
	"github.com/openpromo/pubflow/app/social"
	"github.com/openpromo/pubflow/app/tasks"
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Pubflow server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	contentRepo := database.NewContentRepo(db)
	connectionRepo := database.NewConnectionRepo(db)
	automationRepo := database.NewAutomationRepo(db)
	jobRepo := database.NewCommentJobRepo(db)

	box, err := secrets.NewBox(appCfg.TokenKey)
	if err != nil {
		slog.Error("Invalid token encryption key", "error", err)
		os.Exit(1)
	}

	catalog, err := platform.LoadCatalog(appCfg.PlatformsDir)
	if err != nil {
		slog.Error("Failed to load platform catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Platform catalog loaded", "platforms", catalog.Count())

	httpClient := &http.Client{}

	refresher := social.NewHTTPRefresher(httpClient, appCfg.UserAgent)
	credentials := social.NewService(connectionRepo, box, refresher)

	registry := publish.NewRegistry(catalog, httpClient, appCfg.UserAgent)

	var relay *publish.Relay
	if appCfg.RelayURL != "" {
		relay = publish.NewRelay(appCfg.RelayURL, httpClient, appCfg.UserAgent)
		slog.Info("Publish relay enabled", "url", appCfg.RelayURL)
	}

	var locker lock.Locker
	if appCfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
		})
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient)
		slog.Info("Using Redis publish locks", "addr", appCfg.RedisAddr)
	} else {
		locker = lock.NewKeyedMutex()
	}

	generator := ai.NewGenerator(appCfg.OpenAIKey, appCfg.OpenAIModel, appCfg.OpenAIBaseURL)

	runner := autocomment.NewRunner(contentRepo, jobRepo, catalog, registry, credentials, generator)
	statusService := autocomment.NewStatusService(contentRepo, jobRepo)

	graphBase := "https://graph.facebook.com/v19.0"
	if p := catalog.Get("instagram"); p != nil {
		graphBase = p.APIBase
	}
	commentClient := automation.NewGraphCommentClient(graphBase, httpClient, appCfg.UserAgent)
	poller := automation.NewPoller(automationRepo, catalog, credentials, commentClient)

	scheduler := tasks.NewScheduler(poller)

	dispatcher := dispatch.NewDispatcher(catalog, contentRepo, credentials, registry, relay, locker,
		func(contentID, platformKey string) {
			task := tasks.NewAfterCommentsTask(contentID, platformKey, runner)
			if err := scheduler.EnqueueTask(task); err != nil {
				slog.Error("Failed to enqueue AfterCommentsTask",
					"content_id", contentID, "platform", platformKey, "error", err)
			}
		})

	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(dispatcher, statusService, runner, poller, catalog,
		contentRepo, connectionRepo, automationRepo, scheduler)
	server := api.NewServer(apiHandler)

	// WriteTimeout covers publishes that wait out a pending before batch.
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: autocomment.BeforeWait + 60*time.Second,
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

	slog.Info("Pubflow server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
