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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldserve/payout-api/api/swagger"
	"github.com/fieldserve/payout-api/internal/handler"
	"github.com/fieldserve/payout-api/internal/middleware"
	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/internal/repository"
	"github.com/fieldserve/payout-api/internal/service"
	"github.com/fieldserve/payout-api/pkg/cache"
	"github.com/fieldserve/payout-api/pkg/config"
	"github.com/fieldserve/payout-api/pkg/database"
	"github.com/fieldserve/payout-api/pkg/logger"
	corsmiddleware "github.com/fieldserve/payout-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldserve/payout-api/pkg/middleware/requestid"
	"github.com/fieldserve/payout-api/pkg/storage"
)

// @title FieldServe Payout API
// @version 1.0.0
// @description Metrics, client rollups and technician payout statements for job records
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
		hint := database.FriendlyHint(err)
		logr.Sugar().Fatalw("database connection failed", "error", err, "hint", hint)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Degraded mode: every request recomputes, nothing breaks.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	jobRepo := repository.NewJobRepository(db)
	technicianRepo := repository.NewTechnicianRepository(db)
	partCostRepo := repository.NewPartCostRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(technicianRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fieldserve-payout-api",
	})
	technicianSvc := service.NewTechnicianService(technicianRepo, logr)
	jobSvc := service.NewJobService(jobRepo, logr, cfg.Dashboard.PageSize)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Jobs:        jobRepo,
		Technicians: technicianRepo,
		Cache:       cacheSvc,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	clientSvc := service.NewClientService(service.ClientServiceParams{
		Jobs:   jobRepo,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.ClientServiceConfig{
			CacheTTL:     cfg.Clients.CacheTTL,
			DefaultLimit: cfg.Clients.DefaultLimit,
		},
	})
	payoutSvc := service.NewPayoutService(service.PayoutServiceParams{
		Jobs:        jobRepo,
		PartCosts:   partCostRepo,
		Technicians: technicianRepo,
		Logger:      logr,
	})
	partCostSvc := service.NewPartCostService(service.PartCostServiceParams{
		Repo:   partCostRepo,
		Audit:  technicianRepo,
		Cache:  cacheSvc,
		Logger: logr,
	})
	backfillSvc := service.NewBackfillService(service.BackfillServiceParams{
		Jobs:    jobRepo,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Audit:   technicianRepo,
		Logger:  logr,
	})
	importSvc := service.NewImportService(service.ImportServiceParams{
		Jobs:    jobRepo,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Logger:  logr,
		Config: service.ImportServiceConfig{
			BatchSize:  cfg.Import.BatchSize,
			BatchDelay: cfg.Import.BatchDelay,
			Workers:    cfg.Import.Workers,
		},
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("export storage init failed", "error", err)
		}
		exportSvc = service.NewExportService(service.ExportServiceParams{
			Payouts: payoutSvc,
			Store:   store,
			Signer:  storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			Logger:  logr,
			TTL:     cfg.Exports.SignedURLTTL,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if exportSvc != nil {
		go func() {
			ticker := time.NewTicker(cfg.Exports.SignedURLTTL)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportSvc.Cleanup()
				}
			}
		}()
	}

	importSvc.Start(ctx)
	defer importSvc.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	payoutHandler := handler.NewPayoutHandler(payoutSvc, jobSvc)
	partCostHandler := handler.NewPartCostHandler(partCostSvc)
	importHandler := handler.NewImportHandler(importSvc)
	backfillHandler := handler.NewBackfillHandler(backfillSvc)
	technicianHandler := handler.NewTechnicianHandler(technicianSvc)
	jobHandler := handler.NewJobHandler(jobSvc)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)

		protected := api.Group("", middleware.JWT(authSvc))

		if cfg.Dashboard.Enabled {
			protected.GET("/dashboard", middleware.RequireRoles(models.RoleAdmin), dashboardHandler.Overview)
		}
		protected.GET("/clients/top", middleware.RequireRoles(models.RoleAdmin), clientHandler.TopClients)

		protected.GET("/jobs", middleware.RequireRoles(models.RoleAdmin), jobHandler.List)
		protected.GET("/jobs/technician-codes", middleware.RequireRoles(models.RoleAdmin), jobHandler.TechnicianCodes)

		protected.GET("/payouts", middleware.RequireRoles(models.RoleAdmin), payoutHandler.Statements)
		protected.GET("/payouts/:code", middleware.RBAC(string(models.RoleAdmin), "SELF"), payoutHandler.Statement)
		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			protected.GET("/payouts/:code/export", middleware.RBAC(string(models.RoleAdmin), "SELF"), exportHandler.Statement)
			// Download is authorised by the signed token itself; claims are
			// attached when present so logs can name the caller.
			api.GET("/exports/download", middleware.OptionalJWT(authSvc), exportHandler.Download)
		}

		protected.POST("/part-costs", partCostHandler.Submit)
		protected.GET("/part-costs", partCostHandler.List)
		protected.GET("/part-costs/:id", partCostHandler.Get)
		protected.POST("/part-costs/:id/review", middleware.RequireRoles(models.RoleAdmin), partCostHandler.Review)

		if cfg.Import.Enabled {
			protected.POST("/imports", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(technicianRepo, models.AuditActionImport, "imports"), importHandler.Upload)
			protected.GET("/imports/:id", middleware.RequireRoles(models.RoleAdmin), importHandler.Status)
		}
		if cfg.Backfill.Enabled {
			protected.POST("/backfill", middleware.RequireRoles(models.RoleAdmin), backfillHandler.Run)
		}

		admin := protected.Group("/technicians", middleware.RequireRoles(models.RoleAdmin))
		admin.GET("", technicianHandler.List)
		admin.POST("", technicianHandler.Create)
		admin.PUT("/:id", technicianHandler.Update)
		admin.DELETE("/:id", technicianHandler.Deactivate)
		protected.GET("/technicians/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), technicianHandler.Get)

		protected.GET("/metrics/system", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
