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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/forumhq/forumhq/internal/admins"
	"github.com/forumhq/forumhq/internal/app"
	"github.com/forumhq/forumhq/internal/auth"
	"github.com/forumhq/forumhq/internal/categories"
	"github.com/forumhq/forumhq/internal/messaging"
	"github.com/forumhq/forumhq/internal/notify"
	"github.com/forumhq/forumhq/internal/observability"
	"github.com/forumhq/forumhq/internal/platform/cache"
	"github.com/forumhq/forumhq/internal/platform/db"
	"github.com/forumhq/forumhq/internal/replies"
	"github.com/forumhq/forumhq/internal/topics"
	"github.com/forumhq/forumhq/internal/users"
	"github.com/forumhq/forumhq/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	adminRegistry := admins.NewRepository(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(usersRepo, adminRegistry, issuer)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	categoriesRepo := categories.NewRepository(pool)
	resolver := categories.NewResolver(categoriesRepo, adminRegistry)
	categoriesService := categories.NewService(categoriesRepo, usersService)
	categoriesHandler := categories.NewHandler(logger, categoriesService)

	repliesRepo := replies.NewRepository(pool)
	topicsRepo := topics.NewRepository(pool)
	topicsService := topics.NewService(topicsRepo, resolver, repliesRepo)
	topicsHandler := topics.NewHandler(logger, topicsService)

	repliesService := replies.NewService(repliesRepo, topicsService, resolver)
	repliesHandler := replies.NewHandler(logger, repliesService)

	notifyClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := notifyClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	messagingRepo := messaging.NewRepository(pool)
	messagingService := messaging.NewService(logger, messagingRepo, usersService, notifyClient)
	messagingHandler := messaging.NewHandler(logger, messagingService)

	hub := notify.NewHub(logger)
	notifyHandler := notify.NewHandler(logger, hub, authService, metrics)
	subscriber := notify.NewSubscriber(redisClient, hub, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		UsersHandler:      usersHandler,
		CategoriesHandler: categoriesHandler,
		TopicsHandler:     topicsHandler,
		RepliesHandler:    repliesHandler,
		MessagingHandler:  messagingHandler,
		NotifyHandler:     notifyHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := subscriber.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.CloseAll()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run", slog.Any("error", err))
		os.Exit(1)
	}
}
