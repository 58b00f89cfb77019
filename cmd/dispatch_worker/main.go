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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/app"
	"github.com/sosexpat/notification-service/internal/dispatch_service/localize"
	"github.com/sosexpat/notification-service/internal/dispatch_service/provider"
	"github.com/sosexpat/notification-service/internal/dispatch_service/repository/postgres"
	"github.com/sosexpat/notification-service/internal/dispatch_service/template"
	"github.com/sosexpat/notification-service/internal/platform/config"
	"github.com/sosexpat/notification-service/internal/platform/database"
	"github.com/sosexpat/notification-service/internal/platform/logger"
	"github.com/sosexpat/notification-service/internal/platform/messagebroker"
)

const (
	natsEventSubject    = "notification.events"
	natsEventQueueGroup = "dispatch_workers"
)

var supportedLocales = []string{"en", "fr", "de", "es"}

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Dispatch worker starting...", "log_level", cfg.LogLevel)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, "dispatch-worker", appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Successfully connected to NATS")

	deliveryRepo := postgres.NewPgDeliveryRepository(dbPool)
	templateRepo := postgres.NewPgTemplateRepository(dbPool)
	routingRepo := postgres.NewPgRoutingRepository(dbPool)
	settingsRepo := postgres.NewPgSettingsRepository(dbPool, cfg.MessagingEnabledDefault)
	inboxRepo := postgres.NewPgInboxRepository(dbPool)

	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: providerTimeout}

	providers := map[domain.Channel]provider.Adapter{
		domain.ChannelInApp: provider.NewInAppProvider(inboxRepo, appLogger),
	}
	if cfg.UseMockProviders {
		appLogger.Warn("Using mock providers for all outbound channels")
		providers[domain.ChannelEmail] = provider.NewMockProvider(appLogger, "mock-email", 0, 0, 0)
		providers[domain.ChannelSMS] = provider.NewMockProvider(appLogger, "mock-sms", 0, 0, 0)
		providers[domain.ChannelWhatsApp] = provider.NewMockProvider(appLogger, "mock-whatsapp", 0, 0, 0)
		providers[domain.ChannelPush] = provider.NewMockProvider(appLogger, "mock-push", 0, 0, 0)
	} else {
		providers[domain.ChannelEmail] = provider.NewZeptoEmailProvider(
			appLogger, cfg.EmailProviderURL, cfg.EmailProviderAPIKey, cfg.EmailFromAddress, httpClient)
		providers[domain.ChannelSMS] = provider.NewTwilioSMSProvider(
			appLogger, cfg.SMSProviderURL, cfg.SMSProviderSID, cfg.SMSProviderToken, cfg.SMSFromNumber, httpClient)
		providers[domain.ChannelWhatsApp] = provider.NewTwilioWhatsAppProvider(
			appLogger, cfg.SMSProviderURL, cfg.SMSProviderSID, cfg.SMSProviderToken, cfg.WhatsAppFromNumber, httpClient)
		providers[domain.ChannelPush] = provider.NewFCMPushProvider(
			appLogger, cfg.PushProviderURL, cfg.PushProviderServerKey, httpClient)
	}

	localeResolver := localize.NewResolver(supportedLocales, cfg.DefaultLocale)
	templateStore := template.NewStore(templateRepo, cfg.DefaultLocale, appLogger)
	router := app.NewRouter(routingRepo, appLogger)
	rateLimiter := app.NewRateLimiter(deliveryRepo, appLogger)
	ledger := app.NewLedger(deliveryRepo, appLogger)

	dispatcher := app.NewDispatcher(
		settingsRepo, localeResolver, templateStore, router, rateLimiter, ledger,
		providers, providerTimeout, appLogger)

	consumer := app.NewEventConsumer(natsClient, dispatcher, appLogger)

	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	if err := consumer.Start(appCtx, natsEventSubject, natsEventQueueGroup); err != nil {
		appLogger.Error("Failed to start NATS event consumer", "error", err)
		os.Exit(1)
	}
	appLogger.Info("NATS consumer started", "subject", natsEventSubject, "queue_group", natsEventQueueGroup)

	// Metrics endpoint for Prometheus scraping.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		appLogger.Info("Metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Metrics server failed", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quitChan
	appLogger.Info("Shutdown signal received", "signal", receivedSignal.String())

	cancelAppCtx()
	consumer.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Metrics server shutdown failed", "error", err)
	}

	appLogger.Info("Dispatch worker shut down successfully.")
}
