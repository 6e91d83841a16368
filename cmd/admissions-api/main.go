package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ihu-online/admissions-api/api/swagger"
	"github.com/ihu-online/admissions-api/internal/gateway"
	"github.com/ihu-online/admissions-api/internal/handler"
	"github.com/ihu-online/admissions-api/internal/middleware"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/internal/repository"
	"github.com/ihu-online/admissions-api/internal/service"
	"github.com/ihu-online/admissions-api/pkg/cache"
	"github.com/ihu-online/admissions-api/pkg/config"
	"github.com/ihu-online/admissions-api/pkg/database"
	"github.com/ihu-online/admissions-api/pkg/export"
	"github.com/ihu-online/admissions-api/pkg/jobs"
	"github.com/ihu-online/admissions-api/pkg/logger"
	corsmiddleware "github.com/ihu-online/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ihu-online/admissions-api/pkg/middleware/requestid"
	"github.com/ihu-online/admissions-api/pkg/storage"
)

// @title IHU Admissions API
// @version 1.0.0
// @description Online admission application service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// The Redis layer is advisory: without it the service still runs, it just
	// skips the taken-value cache and attempt bookkeeping.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	registrationRepo := repository.NewRegistrationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	userRepo := repository.NewUserRepository(db)

	store, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare receipt storage", "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	registrationSvc := service.NewRegistrationService(registrationRepo, cacheRepo, validate, logr, cfg.Uniqueness.TakenCacheTTL)
	statusSvc := service.NewStatusService(registrationRepo, userRepo, logr)
	receiptSvc := service.NewReceiptService(registrationRepo, export.NewReceiptRenderer("IHU Office of Admissions"), store,
		storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL), metrics, cfg.Payment, logr,
		jobs.QueueConfig{Workers: cfg.Receipts.WorkerConcurrency, MaxRetries: cfg.Receipts.WorkerRetries})
	paymentSvc := service.NewPaymentService(registrationRepo, gateway.NewClient(cfg.Payment), cacheRepo, receiptSvc, metrics, cfg.Payment, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receiptSvc.Start(ctx)
	defer receiptSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	authHandler := handler.NewAuthHandler(authSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	statusHandler := handler.NewStatusHandler(statusSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/check-uniqueness", registrationHandler.CheckUniqueness)
		api.POST("/registrations", registrationHandler.Submit)
		api.POST("/registrations/:id/payment/attempt", paymentHandler.OpenAttempt)
		api.GET("/registrations/:id/payment/attempt", paymentHandler.GetAttempt)
		api.POST("/payments/confirm", paymentHandler.Confirm)
		api.POST("/payments/webhook", paymentHandler.Webhook)
		api.GET("/receipts/download", receiptHandler.Download)

		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

		admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RBAC(models.RoleAdmin, models.RoleReviewer))
		{
			admin.GET("/registrations", registrationHandler.List)
			admin.GET("/registrations/:id", registrationHandler.Get)
			admin.GET("/registrations/:id/receipt", receiptHandler.Link)
			admin.PATCH("/registrations/:id/status", middleware.RBAC(models.RoleAdmin), statusHandler.UpdateStatus)
			admin.PATCH("/registrations/:id/payment-status", middleware.RBAC(models.RoleAdmin), statusHandler.UpdatePaymentStatus)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
