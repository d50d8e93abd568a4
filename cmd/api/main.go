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

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/storely/storefront-api/internal/config"
	"github.com/storely/storefront-api/internal/handler"
	"github.com/storely/storefront-api/internal/middleware"
	"github.com/storely/storefront-api/internal/pricing"
	"github.com/storely/storefront-api/internal/repository"
	"github.com/storely/storefront-api/internal/service"
	"github.com/storely/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	taxFactor, err := cfg.Tax.FactorDecimal()
	if err != nil {
		log.Error("load tax factor", "error", err)
		os.Exit(1)
	}
	calc := pricing.NewCalculator(taxFactor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	collectionRepo := repository.NewCollectionRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	customerRepo := repository.NewCustomerRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(collectionRepo, productRepo, redisClient, calc)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	customerSvc := service.NewCustomerService(customerRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, customerRepo, amqpCh)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	collectionH := handler.NewCollectionHandler(catalogSvc)
	productH := handler.NewProductHandler(catalogSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	cartH := handler.NewCartHandler(cartSvc)
	customerH := handler.NewCustomerHandler(customerSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	orderWorker := worker.NewOrderWorker(amqpCh, orderRepo, productRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	adminOrRead := middleware.AdminOrReadOnly(cfg.JWT.Secret)
	authRequired := middleware.AuthMiddleware(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		collections := v1.Group("/collections", adminOrRead)
		collections.GET("", collectionH.List)
		collections.GET("/:id", collectionH.GetByID)
		collections.POST("", collectionH.Create)
		collections.PUT("/:id", collectionH.Update)
		collections.DELETE("/:id", collectionH.Delete)

		products := v1.Group("/products", adminOrRead)
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)
		products.POST("", productH.Create)
		products.PUT("/:id", productH.Update)
		products.DELETE("/:id", productH.Delete)

		// Reviews are open to anyone, unlike catalog mutation.
		reviews := v1.Group("/products/:id/reviews")
		reviews.GET("", reviewH.List)
		reviews.GET("/:reviewID", reviewH.GetByID)
		reviews.POST("", reviewH.Create)
		reviews.PUT("/:reviewID", reviewH.Update)
		reviews.DELETE("/:reviewID", reviewH.Delete)

		// Carts are anonymous: the opaque id is the only credential.
		carts := v1.Group("/carts")
		carts.POST("", cartH.CreateCart)
		carts.GET("/:id", cartH.GetCart)
		carts.DELETE("/:id", cartH.DeleteCart)
		carts.POST("/:id/items", cartH.AddItem)
		carts.PATCH("/:id/items/:itemID", cartH.UpdateItem)
		carts.DELETE("/:id/items/:itemID", cartH.DeleteItem)

		customers := v1.Group("/customers", authRequired)
		customers.GET("/me", customerH.Me)
		customers.PUT("/me", customerH.UpdateMe)

		customersAdmin := customers.Group("", middleware.AdminOnly())
		customersAdmin.GET("", customerH.List)
		customersAdmin.GET("/:id", customerH.GetByID)
		customersAdmin.PUT("/:id", customerH.Update)

		orders := v1.Group("/orders", authRequired)
		orders.POST("", orderH.Create)
		orders.GET("", orderH.List)
		orders.GET("/:id", orderH.GetByID)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
