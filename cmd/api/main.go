package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ecolearn/ecolearn-api/internal/config"
	"github.com/ecolearn/ecolearn-api/internal/database"
	"github.com/ecolearn/ecolearn-api/internal/handler"
	"github.com/ecolearn/ecolearn-api/internal/middleware"
	"github.com/ecolearn/ecolearn-api/internal/repository"
	"github.com/ecolearn/ecolearn-api/internal/router"
	"github.com/ecolearn/ecolearn-api/internal/service"
	"github.com/ecolearn/ecolearn-api/pkg/ai"
	cloud "github.com/ecolearn/ecolearn-api/pkg/cloudinary"
	"github.com/ecolearn/ecolearn-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, dashboard cache and notification fan-out disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	uploader, err := cloud.NewUploader(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	mail := newMailer(cfg, logger)
	assistant := newAssistant(cfg, logger)

	joinCodes, err := service.NewJoinCodeGenerator(cfg.JoinCodeSalt)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create join code generator")
	}
	usernames, err := service.NewUsernameGenerator(cfg.JoinCodeSalt)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create username generator")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	maxUpload := int64(cfg.UploadMaxSizeMB) << 20

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, redisClient, cfg.NotificationChannel, natsConn, logger)
	dashboardService := service.NewDashboardService(assignmentRepo, submissionRepo, studentRepo, classRepo, redisClient, cfg.DashboardCacheTTL, logger)
	progressService := service.NewProgressService(studentRepo, badgeRepo, notificationService, logger)
	authService := service.NewAuthService(userRepo, studentRepo, service.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, validate, activityService, logger)
	credentialService := service.NewCredentialService(studentRepo, userRepo, classRepo, usernames, mail, notificationService, activityService, logger)
	classService := service.NewClassService(classRepo, studentRepo, joinCodes, validate, activityService, logger)
	studentService := service.NewStudentService(studentRepo, classRepo, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDeps{
		Assignments:    assignmentRepo,
		Classes:        classRepo,
		Students:       studentRepo,
		Validator:      validate,
		Uploader:       uploader,
		Notifier:       notificationService,
		Activity:       activityService,
		MaxUploadBytes: maxUpload,
	}, logger)
	submissionService := service.NewSubmissionService(service.SubmissionDeps{
		Submissions:    submissionRepo,
		Assignments:    assignmentRepo,
		Students:       studentRepo,
		Validator:      validate,
		Uploader:       uploader,
		Progress:       progressService,
		Dashboards:     dashboardService,
		MaxUploadBytes: maxUpload,
	}, logger)
	gradingService := service.NewGradingService(service.GradingDeps{
		Submissions: submissionRepo,
		Validator:   validate,
		Activity:    activityService,
		Progress:    progressService,
		Notifier:    notificationService,
		Dashboards:  dashboardService,
	}, logger)
	aiService := service.NewAIGradingService(assistant, assignmentRepo, submissionRepo, classRepo, activityService, logger)
	badgeService := service.NewBadgeService(badgeRepo, validate, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) << 20,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		ClassHandler:        handler.NewClassHandler(classService, logger),
		StudentHandler:      handler.NewStudentHandler(studentService, credentialService, progressService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, aiService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, gradingService, aiService, logger),
		BadgeHandler:        handler.NewBadgeHandler(badgeService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive),
		ActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		Health:              handler.HealthDependencies{DB: db, Redis: redisClient},
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.AppName).
		Str("env", cfg.AppEnv).
		Logger()
}

func newMailer(cfg config.Config, logger zerolog.Logger) mailer.Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Warn().Msg("sendgrid not configured, credential emails disabled")
		return mailer.Disabled{Logger: logger}
	}
	sendGrid, err := mailer.NewSendGrid(mailer.SendGridConfig{
		APIKey:      cfg.SendGridAPIKey,
		FromName:    cfg.MailFromName,
		FromAddress: cfg.MailFromAddress,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create mailer")
	}
	return sendGrid
}

func newAssistant(cfg config.Config, logger zerolog.Logger) ai.Assistant {
	if !cfg.AIEnabled() {
		logger.Warn().Msg("ai provider not configured, assistance disabled")
		return ai.Disabled{}
	}
	assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.AIModel,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create ai assistant")
	}
	return assistant
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
