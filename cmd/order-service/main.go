package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/config"
	"github.com/altusmarket/order-saga/internal/controllers"
	"github.com/altusmarket/order-saga/internal/gateway"
	"github.com/altusmarket/order-saga/internal/logger"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/internal/routes"
	"github.com/altusmarket/order-saga/internal/services"
	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/dynamo"
	"github.com/altusmarket/order-saga/pkg/events"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[OrderService] Failed to load config: ", err)
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

	orderService := services.NewOrderService(repo, gateway.NewHostedCheckout(), publisher, metrics, logger.Log)
	settlementService := services.NewSettlementService(repo, publisher, metrics, logger.Log)
	orderController := controllers.NewOrderController(orderService, settlementService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	// Request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, orderController)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Log.Info("Order service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown error", zap.Error(err))
	}

	logger.Log.Info("Order service stopped gracefully")
}
