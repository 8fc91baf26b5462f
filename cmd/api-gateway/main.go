package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/broadcast-labs/license-portal-api/api/swagger"
	"github.com/broadcast-labs/license-portal-api/internal/handler"
	"github.com/broadcast-labs/license-portal-api/internal/middleware"
	"github.com/broadcast-labs/license-portal-api/internal/models"
	"github.com/broadcast-labs/license-portal-api/internal/repository"
	"github.com/broadcast-labs/license-portal-api/internal/service"
	"github.com/broadcast-labs/license-portal-api/pkg/cache"
	"github.com/broadcast-labs/license-portal-api/pkg/config"
	"github.com/broadcast-labs/license-portal-api/pkg/database"
	"github.com/broadcast-labs/license-portal-api/pkg/export"
	"github.com/broadcast-labs/license-portal-api/pkg/jobs"
	"github.com/broadcast-labs/license-portal-api/pkg/logger"
	corsmiddleware "github.com/broadcast-labs/license-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/broadcast-labs/license-portal-api/pkg/middleware/requestid"
)

// @title License Portal API
// @version 1.0.0
// @description Broadcasting license application portal and review workflow engine
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	// Repositories.
	stageRepo := repository.NewStageRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	stageSvc := service.NewStageService(stageRepo, cacheSvc, userRepo, logr, service.StagePolicy{
		StrictStageOrder:  cfg.Workflow.StrictStageOrder,
		ForbidDeleteInUse: cfg.Workflow.ForbidStageDeleteInUse,
	})
	templateSvc := service.NewTemplateService(stageRepo, cacheSvc, userRepo, logr)
	workflowSvc := service.NewWorkflowService(workflowRepo, applicationRepo, stageRepo, notificationSvc, userRepo, metricsSvc, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, workflowSvc, notificationSvc, userRepo, logr)
	commentSvc := service.NewCommentService(commentRepo, workflowRepo, applicationRepo, userRepo, logr)
	certificateSvc := service.NewCertificateService(applicationRepo, userRepo, export.NewCertificateExporter(),
		cfg.Certificates.Authority, cfg.Certificates.Enabled, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	stageHandler := handler.NewStageHandler(stageSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc, workflowSvc, certificateSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	stages := authed.Group("/workflow-stages")
	{
		stages.GET("", stageHandler.List)
		stages.GET("/:id", stageHandler.Get)

		adminStages := stages.Group("")
		adminStages.Use(middleware.RequireRoles(models.RoleAdmin))
		adminStages.POST("", stageHandler.Create)
		adminStages.PUT("/:id", stageHandler.Update)
		adminStages.DELETE("/:id", stageHandler.Delete)
	}

	templates := authed.Group("/workflow-templates")
	{
		templates.GET("", templateHandler.List)
		templates.POST("/apply",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionTemplateApply, "workflow_stage"),
			templateHandler.Apply)
	}

	applications := authed.Group("/applications")
	{
		applications.POST("", applicationHandler.Submit)
		applications.GET("/:id", applicationHandler.Get)
		applications.GET("/:id/workflow", applicationHandler.Workflow)
		applications.PATCH("/:id/workflow/:workflowId", middleware.RequireStaff(), applicationHandler.Transition)
		applications.POST("/:id/payment", middleware.RequireStaff(), applicationHandler.ConfirmPayment)
		applications.GET("/:id/certificate", applicationHandler.Certificate)
	}

	comments := authed.Group("/workflow-comments")
	{
		comments.GET("", commentHandler.List)
		comments.POST("", commentHandler.Create)
		comments.PUT("/:id", commentHandler.Update)
		comments.DELETE("/:id", commentHandler.Delete)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
