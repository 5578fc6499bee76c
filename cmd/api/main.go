package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/roadready/roadready-api/api/swagger"
	"github.com/roadready/roadready-api/internal/handler"
	"github.com/roadready/roadready-api/internal/middleware"
	"github.com/roadready/roadready-api/internal/models"
	"github.com/roadready/roadready-api/internal/realtime"
	"github.com/roadready/roadready-api/internal/repository"
	"github.com/roadready/roadready-api/internal/service"
	"github.com/roadready/roadready-api/pkg/cache"
	"github.com/roadready/roadready-api/pkg/config"
	"github.com/roadready/roadready-api/pkg/database"
	"github.com/roadready/roadready-api/pkg/logger"
	corsmiddleware "github.com/roadready/roadready-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roadready/roadready-api/pkg/middleware/requestid"
	"github.com/roadready/roadready-api/pkg/storage"
)

// @title RoadReady API
// @version 1.0.0
// @description Driving school booking and training registry
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	blobs, err := storage.NewBlobStore(cfg.Blobs.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Blobs.SignedURLSecret, cfg.Blobs.SignedURLTTL)

	hub := realtime.NewHub(logr)
	bridge := realtime.NewBridge(rdb, hub, cfg.Realtime.ChannelPrefix, logr)
	go hub.Run(ctx)
	go bridge.Run(ctx)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)
	scoreSheetRepo := repository.NewScoreSheetRepository(db)

	metricsSvc := service.NewMetricsService()
	realtimeSvc := service.NewRealtimeService(bridge, cfg.Realtime, logr)
	authSvc := service.NewAuthService(userRepo, instructorRepo, blobs, signer, validate, logr, cfg.JWT)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, validate, logr)
	trainingSvc := service.NewTrainingService(trainingRepo, scoreSheetRepo, realtimeSvc, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, userRepo, availabilityRepo, validate, logr)
	exportSvc := service.NewExportService(trainingSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc, cfg.Blobs)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	trainingHandler := handler.NewTrainingHandler(trainingSvc, bookingSvc, exportSvc, metricsSvc)
	realtimeHandler := handler.NewRealtimeHandler(realtimeSvc, trainingSvc, hub)
	blobHandler := handler.NewBlobHandler(blobs, signer)
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
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/blobs", blobHandler.Download)

		// The websocket upgrade authenticates with the channel token, not a
		// bearer header.
		api.GET("/trainings/:id/channel/ws", realtimeHandler.Subscribe)

		secured := api.Group("", middleware.JWT(authSvc))

		secured.GET("/users/me/license-url", authHandler.LicenseURL)

		secured.GET("/trainings", trainingHandler.List)
		secured.GET("/trainings/:id", trainingHandler.Get)
		secured.GET("/trainings/:id/export", trainingHandler.Export)
		secured.GET("/trainings/:id/channel/token", realtimeHandler.Token)

		learners := secured.Group("", middleware.RequireRoles(models.RoleLearner))
		learners.GET("/instructors", instructorHandler.List)
		learners.GET("/instructors/:id", instructorHandler.Get)
		learners.POST("/instructors/:id/trainings", trainingHandler.Request)

		instructors := secured.Group("", middleware.RequireRoles(models.RoleInstructor))
		instructors.PUT("/instructors/me/profile", instructorHandler.UpdateProfile)
		instructors.GET("/availabilities", availabilityHandler.List)
		instructors.POST("/availabilities", availabilityHandler.Create)
		instructors.DELETE("/availabilities/:id", availabilityHandler.Delete)
		instructors.POST("/trainings/:id/scoresheets", trainingHandler.AddScoreSheet)
		instructors.PUT("/trainings/:id/scoresheets/:sheetId", trainingHandler.UpdateScoreSheet)
		instructors.DELETE("/trainings/:id/scoresheets/:sheetId", trainingHandler.DeleteScoreSheet)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
