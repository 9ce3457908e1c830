// File: builderhub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"builderhub/config"
	"builderhub/cron"
	"builderhub/database"
	bookingRepo "builderhub/database/repository/booking"
	sessionTypeRepo "builderhub/database/repository/sessiontype"
	"builderhub/handlers"
	"builderhub/middleware"
	"builderhub/routes"
	"builderhub/services/booking"
	"builderhub/services/payment"
	"builderhub/services/tasks"
	"builderhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitEventCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	sessionTypes := sessionTypeRepo.NewMongoSessionTypeRepo()

	// services.
	taskQueue := tasks.NewQueue()
	executor := &booking.TransitionExecutor{
		Repo:       bookings,
		DeadLetter: taskQueue,
		Logger:     logger,
		MaxRetries: config.AppConfig.ConflictRetryLimit,
	}
	gateway := payment.NewStripeGateway(logger)
	lifecycleService := &booking.DefaultLifecycleService{
		Bookings:      bookings,
		SessionTypes:  sessionTypes,
		Gateway:       gateway,
		Executor:      executor,
		EventCache:    utils.GetEventCacheClient(),
		Logger:        logger,
		ClaimTokenTTL: time.Duration(config.AppConfig.ClaimTokenTTLMin) * time.Minute,
	}

	bookingHandler := handlers.NewBookingHandler(lifecycleService, logger)

	// Background worker: conflict inspection + stale-pending sweep.
	cron.InitBookingWorker(lifecycleService, taskQueue)

	// Periodic health snapshot for /api/health. The task-queue DB gets its
	// own probe client since asynq manages its connections internally.
	taskQueueProbe := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})
	utils.StartHealthMonitor(map[string]*redis.Client{
		"cache":  utils.GetCacheClient(),
		"events": utils.GetEventCacheClient(),
		"tasks":  taskQueueProbe,
	}, database.MongoClient)

	// Register routes.
	routes.RegisterRoutes(router, bookingHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
