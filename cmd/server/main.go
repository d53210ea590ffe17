package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gateway-payment-bridge/internal/api"
	"github.com/gateway-payment-bridge/internal/checkout"
	"github.com/gateway-payment-bridge/internal/config"
	"github.com/gateway-payment-bridge/internal/data/mongo"
	"github.com/gateway-payment-bridge/internal/data/postgres"
	"github.com/gateway-payment-bridge/internal/gateway"
	"github.com/gateway-payment-bridge/internal/logger"
	"github.com/gateway-payment-bridge/internal/notification"
	"github.com/gateway-payment-bridge/internal/orderactions"
	"github.com/gateway-payment-bridge/internal/platform/messaging/producers"
	"github.com/gateway-payment-bridge/internal/platform/metrics"
	"github.com/gateway-payment-bridge/internal/platform/persistence"
	"github.com/gateway-payment-bridge/internal/reconciler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Initialize Kafka producer for payment status events
	eventProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka, appMetrics)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	translogRepo := mongo.NewTranslogRepository(log, mongoDB.Database())

	// Initialize notification dispatcher with its worker pool
	smtpSender := notification.NewSMTPSender(cfg.Notifications.SMTPAddr, cfg.Notifications.From)
	dispatcher, err := notification.NewDispatcher(cfg.Notifications, smtpSender, cfg.WorkerPool.Size, appMetrics, log)
	if err != nil {
		log.Error("Failed to initialize notification dispatcher", "error", err)
		os.Exit(1)
	}

	// Initialize gateway client and services
	gatewayClient := gateway.NewClient(cfg.Gateway, log, appMetrics)
	payloadBuilder := gateway.NewPayloadBuilder(cfg.Gateway)

	statusApplier := reconciler.New(
		postgresDB.Pool(),
		orderRepo,
		translogRepo,
		dispatcher,
		eventProducer,
		appMetrics,
		log,
		cfg.Application.EnableTransactionLogs,
	)

	actionService := orderactions.NewService(orderRepo, gatewayClient, payloadBuilder, statusApplier, log)
	checkoutService := checkout.NewService(orderRepo, walletRepo, gatewayClient, payloadBuilder, statusApplier, cfg.Webhook, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, registry, appMetrics, orderRepo, checkoutService, actionService, statusApplier)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new work arrives
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain the notification worker pool
	dispatcher.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
