package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/config"
	"github.com/altusmarket/order-saga/internal/gateway"
	"github.com/altusmarket/order-saga/internal/logger"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/internal/services"
	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/dynamo"
	"github.com/altusmarket/order-saga/pkg/events"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[FulfillmentService] Failed to load config: ", err)
	}
	if cfg.FulfillmentQueueURL == "" {
		log.Fatal("[FulfillmentService] FULFILLMENT_QUEUE_URL is required")
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	awsCfg, err := awsx.LoadConfig(context.Background())
	if err != nil {
		logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
	}

	store := dynamo.NewStore(dynamo.NewClientFromConfig(awsCfg))
	repo := repository.NewDynamoRepository(store, repository.Tables{
		Orders:       cfg.OrdersTable,
		Payments:     cfg.PaymentsTable,
		Fulfillments: cfg.FulfillmentsTable,
	})

	publisher := events.NewBridgePublisher(awsCfg, cfg.EventBusName)
	metrics := awsx.NewMetricsClient(awsCfg)

	fulfillmentService := services.NewFulfillmentService(
		repo,
		gateway.NewKeyIssuer(),
		publisher,
		cfg.ActivationBaseURL,
		metrics,
		logger.Log,
	)
	consumer := services.NewFulfillmentConsumer(fulfillmentService, logger.Log)

	sqsConsumer := awsx.NewSQSConsumer(awsCfg, cfg.FulfillmentQueueURL, logger.Log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := sqsConsumer.StartPolling(ctx, consumer.HandleMessage); err != nil && err != context.Canceled {
		logger.Log.Error("polling stopped", zap.Error(err))
	}

	logger.Log.Info("Fulfillment service stopped gracefully")
}
