package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/config"
	"github.com/noah-isme/campus-grievance-api/internal/database"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/handler"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
	"github.com/noah-isme/campus-grievance-api/internal/router"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	cloud "github.com/noah-isme/campus-grievance-api/pkg/cloudinary"
)

const sessionSweepInterval = time.Hour

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "campus-grievance-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			AttachStacktrace: true,
			TracesSampleRate: 0.1,
		}); err != nil {
			logger.Error().Err(err).Msg("sentry init failed")
		} else {
			sentryEnabled = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dashboard cache and feed fan-out disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, feed fan-out limited to redis")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	var storage service.FileStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials missing, attachment uploads disabled")
	}

	observability.RegisterMetrics()
	validate := dto.NewValidator()

	accountRepo := repository.NewAccountRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	authService := service.NewAuthService(accountRepo, sessionRepo, validate, service.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	feed := service.NewComplaintFeed(complaintRepo, authService, validate, redisClient, natsConn, service.FeedConfig{
		RefreshInterval: cfg.FeedRefreshInterval,
		ChannelBase:     cfg.BrokerChannel,
	}, logger)
	dashboardService := service.NewDashboardService(complaintRepo, redisClient, cfg.DashboardCacheTTL, logger)
	complaintService := service.NewComplaintService(complaintRepo, activityService, validate, logger, feed, dashboardService)
	adminUserService := service.NewAdminUserService(accountRepo, activityService, validate, logger, feed)
	attachmentService := service.NewAttachmentService(storage, attachmentRepo, cfg.AttachmentMaxSizeMB, logger)

	if cfg.BootstrapAdmin.Enabled() {
		admin, err := authService.Provision(ctx, dto.RegisterRequest{
			Email:    cfg.BootstrapAdmin.Email,
			Password: cfg.BootstrapAdmin.Password,
			Name:     cfg.BootstrapAdmin.Name,
			Branch:   cfg.BootstrapAdmin.Branch,
		}, models.RoleAdmin)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to provision bootstrap administrator")
		}
		logger.Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("bootstrap administrator ready")
	}

	feed.Start(ctx)
	go sweepSessions(ctx, sessionRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:      &logger,
		CORSOrigins: cfg.CORSOrigins,
		Sentry:      sentryEnabled,
	})

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}

	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, logger),
		ComplaintHandler:     handler.NewComplaintHandler(complaintService, feed, logger, cfg.StreamKeepAlive),
		DashboardHandler:     handler.NewDashboardHandler(dashboardService, logger),
		AttachmentHandler:    handler.NewAttachmentHandler(attachmentService, logger),
		AdminUserHandler:     handler.NewAdminUserHandler(adminUserService, logger),
		AdminActivityHandler: handler.NewAdminActivityHandler(activityService, logger),
		HealthProbes:         probes,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
		IdentityMiddleware:   middleware.WithIdentity(authService, logger),
		LoginRateLimit:       middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
		Metrics:              observability.MetricsHandler(prometheus.DefaultGatherer, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func sweepSessions(ctx context.Context, sessions repository.SessionRepository, logger zerolog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := sessions.DeleteExpired(ctx, now)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to delete expired sessions")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("expired sessions deleted")
			}
		}
	}
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
