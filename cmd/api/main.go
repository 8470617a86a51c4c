package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/moderation-api/internal/config"
	"github.com/noah-isme/moderation-api/internal/database"
	"github.com/noah-isme/moderation-api/internal/events"
	"github.com/noah-isme/moderation-api/internal/handler"
	"github.com/noah-isme/moderation-api/internal/middleware"
	"github.com/noah-isme/moderation-api/internal/repository"
	"github.com/noah-isme/moderation-api/internal/router"
	"github.com/noah-isme/moderation-api/internal/service"
	"github.com/noah-isme/moderation-api/internal/statistics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var (
		publisher events.Publisher = events.Nop{}
		bus       *events.NATSBus
	)
	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, statistics cache invalidation stays local")
		} else {
			defer conn.Drain()
			bus = events.NewNATSBus(conn, cfg.NATSSubject, logger)
			publisher = bus
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	markingRepo := repository.NewMarkingScoreRepository(db)
	moderationRepo := repository.NewModerationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	engineOpts := []statistics.Option{
		statistics.WithFormula(cfg.StatisticsFormula),
		statistics.WithLogger(logger),
	}
	if cfg.StatisticsStrictCount {
		engineOpts = append(engineOpts, statistics.WithStrictCount())
	}
	engine := statistics.NewEngine(markingRepo, engineOpts...)

	activityService := service.NewActivityService(activityRepo, logger)
	userService := service.NewUserService(userRepo, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, validate, activityService, logger)
	rubricService := service.NewRubricService(rubricRepo, assignmentRepo, validate, activityService, publisher, logger)
	statisticsService := service.NewStatisticsService(engine, redisClient, cfg.StatisticsCacheTTL, logger)
	markingService := service.NewMarkingService(markingRepo, rubricRepo, assignmentRepo, validate, statisticsService, publisher, logger)
	moderationService := service.NewModerationService(moderationRepo, assignmentRepo, rubricRepo, markingRepo, validate, activityService, cfg.ModerationTolerance, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bus != nil {
		if err := statisticsService.Start(ctx, bus); err != nil {
			logger.Warn().Err(err).Msg("failed to subscribe to marking events")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:       handler.NewUserHandler(userService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		RubricHandler:     handler.NewRubricHandler(rubricService, logger),
		MarkingHandler: handler.NewMarkingHandler(
			markingService,
			logger,
			middleware.RateLimit("marking-submit", cfg.SubmitRateLimit, cfg.SubmitRateLimitInterval),
		),
		StatisticsHandler: handler.NewStatisticsHandler(statisticsService, logger),
		ModerationHandler: handler.NewModerationHandler(moderationService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
