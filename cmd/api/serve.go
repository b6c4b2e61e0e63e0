package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, cfg.Postgres.DSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	userRepo, ticketRepo, historyRepo := repositories(pg, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	deps, outbox := notificationDeps(cfg, logger, dispatcher, userRepo, redis)
	notifications := service.NewNotificationService(deps)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	workerDone := worker.StartNotificationWorker(workerCtx, notifications, outbox, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: userRepo})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	userService := service.NewUserService(service.UserDependencies{UserRepo: userRepo, TicketRepo: ticketRepo})

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App, logger, metrics)
	httptransport.RegisterMiddlewares(app, cfg, logger, metrics)

	var limiterStorage fiber.Storage
	if redis.Enabled() {
		limiterStorage = fiberredis.NewFromConnection(redis.Client)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Metrics:        metrics,
		RateLimit:      cfg.RateLimit,
		LimiterStorage: limiterStorage,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	stopWorker()
	<-workerDone
	return nil
}

func repositories(pg *persistence.Postgres, logger *zap.Logger) (repository.UserRepository, repository.TicketRepository, repository.TicketHistoryRepository) {
	if !pg.Enabled() {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore().Repositories()
	}
	pool := pg.PoolHandle()
	return repository.NewUserRepository(pool), repository.NewTicketRepository(pool), repository.NewTicketHistoryRepository(pool)
}

// notificationDeps wires the Redis publisher and, when SMTP is configured, a
// mail queue that the notification worker drains.
func notificationDeps(cfg *config.Config, logger *zap.Logger, dispatcher events.Dispatcher, users repository.UserRepository, redis *persistence.Redis) (service.NotificationDependencies, *mailer.Queue) {
	deps := service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
		UserRepo:   users,
	}
	if redis.Enabled() {
		deps.Publisher = redis
	}
	var outbox *mailer.Queue
	if m := mailer.NewSMTPMailer(cfg.Notification); m != nil {
		outbox = mailer.NewQueue(m, cfg.Notification.EmailQueueSize, logger)
		deps.Mailer = outbox
	}
	return deps, outbox
}
