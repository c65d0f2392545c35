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

	_ "github.com/campuskit/timetable-api/api/swagger"
	"github.com/campuskit/timetable-api/internal/handler"
	"github.com/campuskit/timetable-api/internal/middleware"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/repository"
	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/cache"
	"github.com/campuskit/timetable-api/pkg/config"
	"github.com/campuskit/timetable-api/pkg/database"
	"github.com/campuskit/timetable-api/pkg/logger"
	corsmiddleware "github.com/campuskit/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/timetable-api/pkg/middleware/requestid"
)

// @title CampusKit Timetable API
// @version 1.0.0
// @description Automated university timetable generation and conflict resolution
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The cache layer degrades to misses without Redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewStaffAssignmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	auditService := service.NewAuditService(auditRepo, logr)

	notificationService := service.NewNotificationService(notificationRepo, service.NotificationConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timetable-api",
	})

	batchService := service.NewBatchService(batchRepo, subjectRepo, db, auditService, validate, logr)
	staffService := service.NewStaffService(assignmentRepo, availabilityRepo, userRepo, subjectRepo, batchRepo, timetableRepo, db, auditService, validate, logr)
	roomService := service.NewRoomService(roomRepo, auditService, validate, logr)

	schedulingService := service.NewSchedulingService(
		batchRepo, subjectRepo, assignmentRepo, availabilityRepo, roomRepo,
		timetableRepo, db, notificationService, auditService,
		cfg.Scheduler, validate, logr,
	)
	conflictService := service.NewConflictService(timetableRepo, batchRepo, roomRepo, auditService, cfg.Scheduler, logr)
	timetableService := service.NewTimetableService(timetableRepo, batchRepo, userRepo, cacheRepo, cfg.Cache.DefaultTTL, logr)
	exportService := service.NewExportService(timetableRepo, batchRepo, nil, nil, nil, service.ExportServiceConfig{
		InstitutionName: cfg.Exports.InstitutionName,
		ICSCalendarName: cfg.Exports.ICSCalendarName,
	}, logr)
	analyticsService := service.NewAnalyticsService(analyticsRepo, conflictService, auditService, cacheRepo, cfg.Cache.DefaultTTL, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	batchHandler := handler.NewBatchHandler(batchService)
	staffHandler := handler.NewStaffHandler(staffService)
	roomHandler := handler.NewRoomHandler(roomService)
	timetableHandler := handler.NewTimetableHandler(schedulingService, conflictService, timetableService, exportService, metricsService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, auditService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(shutdownCtx)
	defer notificationService.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	protected := api.Group("", middleware.JWT(authService))

	protected.GET("/batches", batchHandler.List)
	protected.GET("/batches/:id", batchHandler.Get)
	protected.GET("/subjects", batchHandler.Subjects)
	protected.GET("/rooms", roomHandler.List)
	protected.GET("/rooms/:id", roomHandler.Get)
	protected.GET("/timetable", timetableHandler.List)
	protected.GET("/timetable/batch/:id", timetableHandler.BatchWeekly)
	protected.GET("/timetable/conflicts/:batchId", timetableHandler.Conflicts)
	protected.GET("/timetable/export/:batchId",
		middleware.Audit(userRepo, "EXPORT", "timetable_slots"), timetableHandler.Export)

	protected.GET("/timetable/staff/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), timetableHandler.StaffWeekly)
	protected.GET("/staff/:id/schedule", middleware.RBAC(string(models.RoleAdmin), "SELF"), staffHandler.Schedule)
	protected.POST("/staff/availability",
		middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), staffHandler.SetAvailability)

	admin := protected.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/batches", batchHandler.Create)
	admin.PATCH("/batches/:id/active", batchHandler.SetActive)
	admin.DELETE("/batches/:id", batchHandler.Delete)
	admin.POST("/staff/assign", staffHandler.Assign)
	admin.POST("/rooms", roomHandler.Create)
	admin.PATCH("/rooms/:id/active", roomHandler.SetActive)
	admin.POST("/timetable/generate", timetableHandler.Generate)
	admin.POST("/timetable/generate-all", timetableHandler.GenerateAll)
	admin.POST("/timetable/conflicts/resolve", timetableHandler.Resolve)
	admin.GET("/analytics/dashboard", analyticsHandler.Dashboard)
	admin.GET("/analytics/audit", analyticsHandler.AuditTrail)
	admin.GET("/notifications", notificationHandler.List)
	admin.PATCH("/notifications/:id/read", notificationHandler.MarkRead)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logr.Sugar().Errorw("http shutdown error", "error", err)
		}
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
