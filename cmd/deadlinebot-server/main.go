package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazz187/deadlinebot/internal/auth"
	"github.com/kazz187/deadlinebot/internal/bot"
	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/config"
	convrefrepo "github.com/kazz187/deadlinebot/internal/convref/repositoryimpl"
	"github.com/kazz187/deadlinebot/internal/delivery"
	"github.com/kazz187/deadlinebot/internal/notification"
	"github.com/kazz187/deadlinebot/internal/orchestrator"
	"github.com/kazz187/deadlinebot/internal/response"
	"github.com/kazz187/deadlinebot/internal/scheduler"
	"github.com/kazz187/deadlinebot/internal/tasksource"
	"github.com/kazz187/deadlinebot/pkg/clog"
	"github.com/kazz187/deadlinebot/pkg/storage"

	server "github.com/kazz187/deadlinebot/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	refRepo := convrefrepo.NewYAMLRepository(store)

	// Setup auth. Missing credentials are not fatal: the bot keeps running
	// on sample data so card rendering and scheduling stay testable.
	var tokens, botTokens auth.TokenProvider
	tokens, err = auth.NewClientCredentialsProvider(config.AuthEnvFromEnv(env))
	if err != nil {
		slog.Warn("auth not configured, live source and delivery disabled", "error", err)
		tokens = auth.StaticTokenProvider("")
		botTokens = auth.StaticTokenProvider("")
	} else {
		// The connector rejects Graph-scoped tokens; it gets its own provider.
		botAuthEnv := *config.AuthEnvFromEnv(env)
		botAuthEnv.TokenScope = botAuthEnv.BotTokenScope
		botTokens, err = auth.NewClientCredentialsProvider(&botAuthEnv)
		if err != nil {
			slog.Warn("bot framework auth not configured, primary delivery disabled", "error", err)
			botTokens = auth.StaticTokenProvider("")
		}
	}

	// Setup task source with sample-data degradation
	var live tasksource.Source
	switch env.SourceEnv.Type {
	case "simple":
		live = tasksource.NewSimpleClient(config.SourceEnvFromEnv(env), tokens)
	default:
		live = tasksource.NewProgressMakerClient(config.SourceEnvFromEnv(env), tokens)
	}
	source := tasksource.NewFallback(live, tasksource.NewSampleProvider())

	// Setup card templates
	templates, err := card.NewTemplates(config.CardEnvFromEnv(env))
	if err != nil {
		slog.Error("failed to load card templates", "error", err)
		os.Exit(1)
	}
	builder := card.NewBuilder(templates)

	// Setup delivery
	graphTransport := delivery.NewGraphChatTransport(config.DeliveryEnvFromEnv(env), tokens)
	botTransport := delivery.NewBotFrameworkTransport(config.DeliveryEnvFromEnv(env), botTokens)
	dispatcher := delivery.NewDispatcher(refRepo, botTransport, graphTransport)

	// Setup orchestrator and scheduler
	orch := orchestrator.New(source, builder, dispatcher, env.SourceEnv.LookaheadDays)
	sched, err := scheduler.New(config.ScheduleEnvFromEnv(env), func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	})
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	// Setup servers
	responseHandler := response.NewHandler(source, orch, builder, dispatcher)
	botServer := bot.NewServer(refRepo, graphTransport, responseHandler)
	notificationServer := notification.NewServer(orch, sched)

	srv := server.NewServer(env, botServer, notificationServer)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if env.CardEnv.Watch {
		go func() {
			if err := templates.Watch(ctx); err != nil {
				slog.Warn("card template watcher exited", "error", err)
			}
		}()
	}

	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
