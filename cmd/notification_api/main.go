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

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sosexpat/notification-service/internal/dispatch_service/repository/postgres"
	apihttp "github.com/sosexpat/notification-service/internal/notification_api_service/transport/http"
	"github.com/sosexpat/notification-service/internal/platform/config"
	"github.com/sosexpat/notification-service/internal/platform/database"
	"github.com/sosexpat/notification-service/internal/platform/logger"
	"github.com/sosexpat/notification-service/internal/platform/messagebroker"
)

const natsEventSubject = "notification.events"

func main() {
	cfg, err := config.Load("./configs", "config.defaults")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Notification API service starting...", "log_level", cfg.LogLevel)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, "notification-api", appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Successfully connected to NATS")

	deliveryRepo := postgres.NewPgDeliveryRepository(dbPool)
	inboxRepo := postgres.NewPgInboxRepository(dbPool)

	eventHandler := apihttp.NewEventHandler(natsClient, natsEventSubject, appLogger)
	deliveryHandler := apihttp.NewDeliveryHandler(deliveryRepo, inboxRepo, appLogger)

	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(apihttp.PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		eventHandler.RegisterRoutes(api)
		deliveryHandler.RegisterRoutes(api)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIServicePort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", "port", cfg.APIServicePort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quitChan
	appLogger.Info("Shutdown signal received", "signal", receivedSignal.String())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	}

	appLogger.Info("Notification API service shut down successfully.")
}
