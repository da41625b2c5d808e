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
	"github.com/altusmarket/order-saga/internal/logger"
	"github.com/altusmarket/order-saga/internal/notification"
	"github.com/altusmarket/order-saga/pkg/awsx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[NotificationService] Failed to load config: ", err)
	}
	if cfg.NotificationQueueURL == "" {
		log.Fatal("[NotificationService] NOTIFICATION_QUEUE_URL is required")
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	awsCfg, err := awsx.LoadConfig(context.Background())
	if err != nil {
		logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
	}

	emailSender, err := notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	if err != nil {
		logger.Log.Fatal("Failed to init SMTP sender", zap.Error(err))
	}

	metrics := awsx.NewMetricsClient(awsCfg)

	service, err := notification.NewService(emailSender, metrics, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize notification service", zap.Error(err))
	}

	sqsConsumer := awsx.NewSQSConsumer(awsCfg, cfg.NotificationQueueURL, logger.Log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := sqsConsumer.StartPolling(ctx, service.HandleMessage); err != nil && err != context.Canceled {
		logger.Log.Error("polling stopped", zap.Error(err))
	}

	logger.Log.Info("Notification service stopped gracefully")
}
