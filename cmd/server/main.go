package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/config"
	"order-lifecycle-service/internal/controller"
	"order-lifecycle-service/internal/logging"
	"order-lifecycle-service/internal/rabbit"
	"order-lifecycle-service/internal/repository"
	"order-lifecycle-service/internal/repository/memory"
	"order-lifecycle-service/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositorios
	deps := service.OrderServiceDeps{Logger: logger}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := memory.NewStore()
		deps.Orders, deps.Products, deps.Warranties, deps.Users = store.Orders(), store.Products(), store.Warranties(), store.Users()
		logger.Warn("using in-memory store; data is lost on exit")
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err == nil {
			err = client.Ping(connectCtx, nil)
		}
		cancel()
		if err != nil {
			logger.Fatal("mongo connect failed", zap.Error(err))
		}
		defer client.Disconnect(context.Background())

		db := client.Database(cfg.MongoDBName)
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			logger.Fatal("mongo indexes failed", zap.Error(err))
		}
		deps.Orders = repository.NewMongoOrderRepository(db)
		deps.Products = repository.NewMongoProductRepository(db)
		deps.Warranties = repository.NewMongoWarrantyRepository(db)
		deps.Users = repository.NewMongoUserRepository(db)
	}

	// Conexión a RabbitMQ (opcional)
	var conn *amqp091.Connection
	if cfg.RabbitURL != "" {
		conn, err = amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("rabbitmq connect failed", zap.Error(err))
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			logger.Fatal("rabbitmq channel failed", zap.Error(err))
		}
		if err := rabbit.DeclareStatusExchange(pubCh, cfg.StatusExchange); err != nil {
			logger.Fatal("rabbitmq exchange failed", zap.Error(err))
		}
		deps.Events = rabbit.NewStatusPublisher(pubCh, cfg.StatusExchange, cfg.RequestTimeout)
	} else {
		logger.Warn("RABBIT_URL not set; order events are not published and order_placed is not consumed")
	}

	orderService, err := service.NewOrderService(deps)
	if err != nil {
		logger.Fatal("order service", zap.Error(err))
	}

	if conn != nil {
		subCh, err := conn.Channel()
		if err != nil {
			logger.Fatal("rabbitmq channel failed", zap.Error(err))
		}
		consumer := rabbit.NewPlaceOrderConsumer(orderService, logger)
		if err := rabbit.SetupConsumers(ctx, subCh, cfg.OrderPlacedExchange, cfg.OrderPlacedQueue, consumer, logger); err != nil {
			logger.Fatal("rabbitmq consumer failed", zap.Error(err))
		}
	}

	// Router y servidor HTTP
	gin.SetMode(gin.ReleaseMode)
	authService := service.NewAuthService(cfg.AuthURL, cfg.RequestTimeout)
	ctrl := controller.NewOrderController(orderService, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           controller.NewRouter(ctrl, authService, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("order lifecycle service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Apagado ordenado
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
