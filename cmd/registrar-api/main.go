package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/univreg/registrar-api/api/swagger"
	"github.com/univreg/registrar-api/internal/handler"
	"github.com/univreg/registrar-api/internal/middleware"
	"github.com/univreg/registrar-api/internal/repository"
	"github.com/univreg/registrar-api/internal/service"
	"github.com/univreg/registrar-api/pkg/cache"
	"github.com/univreg/registrar-api/pkg/config"
	"github.com/univreg/registrar-api/pkg/database"
	"github.com/univreg/registrar-api/pkg/logger"
	corsmiddleware "github.com/univreg/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/univreg/registrar-api/pkg/middleware/requestid"
)

// @title Registrar API
// @version 1.0.0
// @description Course registration and timetable service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis is optional; timetable caching degrades to direct reads.
		logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr,
		cfg.Timetable.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, sectionRepo, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, sectionRepo, nil, logr)
	sectionSvc := service.NewSectionService(sectionRepo, courseRepo, classroomRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, sectionRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(db, enrollmentRepo, sectionRepo, studentRepo, scheduleRepo, cacheSvc, metricsSvc, nil, logr)
	timetableSvc := service.NewTimetableService(enrollmentRepo, studentRepo, cacheSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc, scheduleSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc, scheduleSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/courses", courseHandler.List)
		protected.POST("/courses", courseHandler.Create)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.PUT("/courses/:id", courseHandler.Update)
		protected.DELETE("/courses/:id", courseHandler.Delete)

		protected.GET("/classrooms", classroomHandler.List)
		protected.POST("/classrooms", classroomHandler.Create)
		protected.GET("/classrooms/:id", classroomHandler.Get)
		protected.PUT("/classrooms/:id", classroomHandler.Update)
		protected.DELETE("/classrooms/:id", classroomHandler.Delete)
		protected.GET("/classrooms/:id/availability", classroomHandler.Availability)

		protected.GET("/sections", sectionHandler.List)
		protected.POST("/sections", sectionHandler.Create)
		protected.GET("/sections/:id", sectionHandler.Get)
		protected.PUT("/sections/:id", sectionHandler.Update)
		protected.DELETE("/sections/:id", sectionHandler.Delete)
		protected.GET("/sections/:id/schedules", sectionHandler.ListSchedules)
		protected.POST("/sections/:id/schedules", sectionHandler.CreateSchedule)

		protected.PUT("/schedules/:id", scheduleHandler.Update)
		protected.DELETE("/schedules/:id", scheduleHandler.Delete)

		protected.GET("/students", studentHandler.List)
		protected.POST("/students", studentHandler.Create)
		protected.GET("/students/:id", studentHandler.Get)
		protected.PUT("/students/:id", studentHandler.Update)
		protected.DELETE("/students/:id", studentHandler.Delete)
		protected.GET("/students/:id/enrollments", studentHandler.Enrollments)
		protected.GET("/students/:id/timetable", timetableHandler.Weekly)
		protected.GET("/students/:id/timetable/:day", timetableHandler.Day)
		protected.GET("/students/:id/timetable-export", timetableHandler.Export)

		protected.GET("/enrollments", enrollmentHandler.List)
		protected.POST("/enrollments", enrollmentHandler.Enroll)
		protected.GET("/enrollments/:id", enrollmentHandler.Get)
		protected.POST("/enrollments/:id/drop", enrollmentHandler.Drop)

		protected.GET("/system/metrics", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
