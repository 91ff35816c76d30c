package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/codefinder/internal/api/http"
	"github.com/spec-kit/codefinder/internal/api/http/handlers"
	"github.com/spec-kit/codefinder/internal/auth"
	"github.com/spec-kit/codefinder/internal/config"
	"github.com/spec-kit/codefinder/internal/discovery"
	"github.com/spec-kit/codefinder/internal/events"
	"github.com/spec-kit/codefinder/internal/notify"
	"github.com/spec-kit/codefinder/internal/observability"
	"github.com/spec-kit/codefinder/internal/persistence"
	"github.com/spec-kit/codefinder/internal/repository"
	"github.com/spec-kit/codefinder/internal/service"
	"github.com/spec-kit/codefinder/internal/verification"
	"github.com/spec-kit/codefinder/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	codeRepo := repository.NewDiscountCodeRepository(pool)
	logRepo := repository.NewVerificationLogRepository(pool)
	inboxRepo := repository.NewInboxRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	llm, err := discovery.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		logger.Fatal("failed to init language model client", zap.Error(err))
	}
	discoverer := discovery.NewService(llm, logger, cfg.LLM.Timeout())

	rules, err := verification.LoadRules(cfg.Browser.RulesPath)
	if err != nil {
		logger.Fatal("failed to load verification rules", zap.Error(err))
	}
	browser := verification.NewManager(cfg.Browser, logger)
	defer browser.Shutdown()
	verifier := verification.NewEngine(browser, rules, verification.OptionsFromConfig(cfg.Browser), logger)

	queue := newQueue(cfg.Worker, redis, logger)

	notificationService := service.NewNotificationService(dispatcher, newNotifier(cfg.Notification, logger), logger)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	quotaService := service.NewQuotaService(userRepo, cfg.Quota)
	searchService := service.NewSearchService(service.SearchDependencies{
		UserRepo:            userRepo,
		SearchRepo:          searchRepo,
		DiscountCodeRepo:    codeRepo,
		VerificationLogRepo: logRepo,
		InboxRepo:           inboxRepo,
		Quota:               quotaService,
		Discoverer:          discoverer,
		Verifier:            verifier,
		Queue:               queue,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              logger,
		WarningThreshold:    cfg.Quota.WarningThreshold,
	})
	inboxService := service.NewInboxService(inboxRepo)
	trialService := service.NewTrialService(userRepo, notificationService, dispatcher, logger)

	runner := worker.NewSearchRunner(queue, searchService, cfg.Worker.Concurrency, logger)
	runner.Start(ctx)
	trialScheduler := worker.NewTrialScheduler(trialService, cfg.Worker.TrialCheckInterval(), logger)
	trialScheduler.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Searches:       handlers.NewSearchesHandler(searchService),
		Inbox:          handlers.NewInboxHandler(inboxService),
		AuthMiddleware: authMiddleware.Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	trialScheduler.Stop()
	runner.Stop()
	notificationService.Wait()
	logger.Info("shutdown complete", zap.Any("metrics", metrics.Snapshot()))
}

func newQueue(cfg config.WorkerConfig, redis *persistence.Redis, logger *zap.Logger) worker.Queue {
	if cfg.QueueBackend == "redis" {
		logger.Info("using redis search queue", zap.String("key", cfg.RedisQueueKey))
		return worker.NewRedisQueue(redis.Client, cfg.RedisQueueKey)
	}
	return worker.NewMemoryQueue(cfg.QueueSize)
}

func newNotifier(cfg config.NotificationConfig, logger *zap.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.SMTPEnabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL))
	}
	return notifiers
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
