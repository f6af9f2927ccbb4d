package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	pool := pg.PoolHandle()
	ticketReader := repository.NewTicketReader(pool)
	contractRepo := repository.NewContractRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	calculationRepo := repository.NewSlaCalculationRepository(pool)

	calendarRepo := repository.NewCalendarRepository(pool)
	var locker persistence.TicketLocker
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-process locks and uncached calendars", zap.Error(err))
		locker = persistence.NewMemoryTicketLocker()
	} else {
		calendarRepo = repository.NewCachedCalendarRepository(calendarRepo, redis.Client, cfg.Redis.CacheTTL(), logger)
		locker = persistence.NewRedisTicketLocker(redis.Client, cfg.Sweep.LockTTL())
	}

	slaService := service.NewSlaService(service.SlaDependencies{
		TicketReader:    ticketReader,
		ContractRepo:    contractRepo,
		TemplateRepo:    templateRepo,
		CalendarRepo:    calendarRepo,
		CalculationRepo: calculationRepo,
		Locker:          locker,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
	})

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		CalculationRepo: calculationRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		Workers:         cfg.Sweep.Workers,
	})

	sweeper := worker.NewSweeper(escalationService, cfg.Sweep.Interval(), logger)
	go sweeper.Run(ctx)

	metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener", zap.Error(err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Calendars:      handlers.NewCalendarsHandler(calendarRepo),
		Templates:      handlers.NewTemplatesHandler(templateRepo),
		Sla:            handlers.NewSlaHandler(slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
