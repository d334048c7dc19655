package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicreport/internal/config"
	"civicreport/internal/database"
	"civicreport/internal/handlers"
	"civicreport/internal/middleware"
	"civicreport/internal/services"
	"civicreport/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("error disconnecting from MongoDB")
		}
	}()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateIndexes(indexCtx); err != nil {
		logrus.WithError(err).Fatal("failed to create database indexes")
	}
	cancelIndexes()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiration)*time.Hour)

	userCollection := db.Database.Collection("users")
	notificationCollection := db.Database.Collection("notifications")
	departmentCollection := db.Database.Collection("departments")

	notificationService := services.NewNotificationService(userCollection, notificationCollection)
	geocodeService := services.NewGeocodeService(cfg.GeocodeURL)
	reportService := services.NewReportService(db.Database, notificationService, geocodeService)
	statsService := services.NewStatsService(db.Database)

	uploadHandler, err := handlers.NewUploadHandler(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare upload directory")
	}

	authHandler := handlers.NewAuthHandler(userCollection, jwtManager, cfg.AdminRegistrationCode)
	reportHandler := handlers.NewReportHandler(reportService)
	notificationHandler := handlers.NewNotificationHandler(notificationCollection, userCollection)
	departmentHandler := handlers.NewDepartmentHandler(departmentCollection, userCollection)
	adminHandler := handlers.NewAdminHandler(userCollection, statsService, notificationService)

	submissionLimiter := middleware.NewSubmissionLimiter(cfg.RedisAddress, cfg.RedisPassword, cfg.ReportDailyLimit)
	if submissionLimiter != nil {
		defer submissionLimiter.Close()
		logrus.WithField("daily_limit", cfg.ReportDailyLimit).Info("report submission cap enabled")
	}

	router := setupRouter(cfg, jwtManager, submissionLimiter,
		authHandler, reportHandler, notificationHandler, departmentHandler, adminHandler, uploadHandler)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"host": cfg.Host,
			"port": cfg.Port,
			"env":  cfg.Env,
		}).Info("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("server forced to shutdown")
	} else {
		logrus.Info("server stopped gracefully")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func setupRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	submissionLimiter *middleware.SubmissionLimiter,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	notificationHandler *handlers.NotificationHandler,
	departmentHandler *handlers.DepartmentHandler,
	adminHandler *handlers.AdminHandler,
	uploadHandler *handlers.UploadHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second)
		router.Use(limiter.RateLimit())
	}

	router.Static("/uploads", cfg.UploadDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.GET("/users/me", authHandler.GetProfile)
			protected.PUT("/users/me", authHandler.UpdateProfile)
			protected.PUT("/users/me/password", authHandler.ChangePassword)

			createReport := protected.Group("")
			if submissionLimiter != nil {
				createReport.Use(submissionLimiter.Limit())
			}
			createReport.POST("/reports", reportHandler.CreateReport)

			protected.GET("/reports", reportHandler.GetReports)
			protected.GET("/reports/mine", reportHandler.GetMyReports)
			protected.GET("/reports/nearby", reportHandler.GetNearbyReports)
			protected.GET("/reports/:id", reportHandler.GetReport)
			protected.GET("/reports/:id/history", reportHandler.GetReportHistory)
			protected.PATCH("/reports/:id", reportHandler.UpdateReport)
			protected.PATCH("/reports/:id/status", reportHandler.UpdateReportStatus)
			protected.DELETE("/reports/:id", reportHandler.DeleteReport)

			protected.GET("/departments", departmentHandler.GetDepartments)
			protected.GET("/departments/:id", departmentHandler.GetDepartment)

			protected.GET("/notifications", notificationHandler.GetNotifications)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
			protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
			protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)

			protected.POST("/uploads/images", uploadHandler.UploadImage)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager))
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
			admin.POST("/notifications/send", adminHandler.SendNotification)

			admin.POST("/departments", departmentHandler.CreateDepartment)
			admin.PUT("/departments/:id", departmentHandler.UpdateDepartment)
			admin.DELETE("/departments/:id", departmentHandler.DeleteDepartment)

			admin.POST("/reports/:id/assign", reportHandler.AssignReport)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}
