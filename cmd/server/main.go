package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventreminders/config"
	_ "eventreminders/docs"
	"eventreminders/internal/adapters/auth"
	"eventreminders/internal/adapters/email"
	"eventreminders/internal/adapters/messaging"
	httpdelivery "eventreminders/internal/delivery/http"
	"eventreminders/internal/delivery/http/controllers"
	"eventreminders/internal/delivery/http/middleware"
	"eventreminders/internal/domain"
	"eventreminders/internal/repository/postgres"
	"eventreminders/internal/services"
	"eventreminders/internal/timezone"
	"eventreminders/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// @title Event Reminders API
// @version 1.0
// @description Admin API for events, registrations and scheduled notifications.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the organizer JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	messenger, err := messaging.New(messaging.Config{
		Provider: cfg.MessengerProvider,
		Telegram: messaging.TelegramConfig{Token: cfg.TelegramBotToken, APIURL: cfg.TelegramAPIURL},
		Email: email.MailerConfig{
			Provider:    cfg.MessengerProvider,
			FromAddress: cfg.SESFromAddress,
			FromName:    cfg.SESFromName,
			SES: email.SESConfig{
				Region:             cfg.SESRegion,
				AccessKeyID:        cfg.SESAccessKeyID,
				SecretAccessKey:    cfg.SESSecretAccessKey,
				InsecureSkipVerify: cfg.SESInsecureSkipVerify,
			},
		},
		HTTPTimeout: cfg.SendTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create messenger: %w", err)
	}

	clock := domain.SystemClock()
	tz := timezone.Load(cfg.Timezone, logger)
	renderer := services.NewRenderer(tz)

	eventRepo := postgres.NewEventRepository(db)
	teamRepo := postgres.NewEventTeamMemberRepository(db)
	regRepo := postgres.NewRegistrationRepository(db)
	templateRepo := postgres.NewNotificationTemplateRepository(db)
	ruleRepo := postgres.NewNotificationRuleRepository(db)
	scheduledRepo := postgres.NewScheduledNotificationRepository(db)

	scheduler := services.NewNotificationScheduler(logger, tz, eventRepo, regRepo, ruleRepo, templateRepo, scheduledRepo)
	eventService := services.NewEventService(logger, clock, eventRepo, scheduledRepo, scheduler, cfg.ContextTimeout)
	attendeeService := services.NewAttendeeService(logger, clock, renderer, messenger, eventRepo, regRepo, ruleRepo, teamRepo, scheduler, cfg.ContextTimeout)
	ruleService := services.NewNotificationRuleService(logger, clock, eventRepo, templateRepo, ruleRepo, scheduledRepo, scheduler, cfg.ContextTimeout)
	broadcastService := services.NewBroadcastService(logger, renderer, messenger, eventRepo, regRepo, ruleRepo, cfg.DispatchConcurrency, cfg.SendTimeout)
	deliveryService := services.NewDeliveryService(logger, clock, renderer, messenger, eventRepo, regRepo, ruleRepo, templateRepo, scheduledRepo, cfg.SendTimeout)

	dispatcher := worker.NewDispatcher(logger, clock, scheduledRepo, deliveryService, cfg.DispatchInterval, cfg.DispatchConcurrency)
	dispatcherDone := make(chan error, 1)
	go func() { dispatcherDone <- dispatcher.Run(ctx) }()

	router := httpdelivery.NewRouter(httpdelivery.Controllers{
		Events:        controllers.NewEventController(logger, eventService, tz),
		Registrations: controllers.NewRegistrationController(logger, attendeeService),
		Notifications: controllers.NewNotificationController(logger, ruleService, tz),
		Broadcast:     controllers.NewBroadcastController(logger, broadcastService),
		Health:        controllers.NewHealthController(logger, db, dispatcher, cfg.ContextTimeout),
	}, auth.NewJWTVerifier(cfg.JWTSecret), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, router)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "timezone", tz.Location().String(), "messenger", cfg.MessengerProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-dispatcherDone
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	stop()
	if err := <-dispatcherDone; err != nil {
		logger.Error("dispatcher", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
