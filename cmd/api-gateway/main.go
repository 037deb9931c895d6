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

	_ "github.com/societyhq/procurement-api/api/swagger"
	"github.com/societyhq/procurement-api/internal/handler"
	"github.com/societyhq/procurement-api/internal/middleware"
	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/internal/repository"
	"github.com/societyhq/procurement-api/internal/service"
	"github.com/societyhq/procurement-api/pkg/cache"
	"github.com/societyhq/procurement-api/pkg/config"
	"github.com/societyhq/procurement-api/pkg/database"
	"github.com/societyhq/procurement-api/pkg/logger"
	corsmiddleware "github.com/societyhq/procurement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/societyhq/procurement-api/pkg/middleware/requestid"
)

// @title Society Procurement API
// @version 1.0.0
// @description Procurement authorization core for residents' societies
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
		redisClient = nil
	}

	vendorRepo := repository.NewVendorRepository(db)
	requestRepo := repository.NewPurchaseRequestRepository(db)
	rfqRepo := repository.NewRFQRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	nfaRepo := repository.NewNFARepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	dispatcher := service.NewEventDispatcher(nil, cfg.Notifications, logr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	rankingSvc := service.NewRankingService(quotationRepo, db, logr)
	requestSvc := service.NewRequestService(requestRepo, rfqRepo, vendorRepo, db, dispatcher, metricsSvc, logr, cfg.Procurement.DefaultRFQDeadline)
	portalSvc := service.NewVendorPortalService(rfqRepo, quotationRepo, requestRepo, rankingSvc, cacheRepo, db, dispatcher, metricsSvc, logr, cfg.VendorPortal.SnapshotCacheTTL)
	rfqSvc := service.NewRFQService(rfqRepo, quotationRepo, vendorRepo, logr)
	poSvc := service.NewPOService(poRepo, rfqRepo, quotationRepo, requestRepo, vendorRepo, db, dispatcher, metricsSvc, logr)
	nfaSvc := service.NewNFAService(nfaRepo, db, dispatcher, metricsSvc, validator.New(), logr, cfg.Procurement.MaxQuotesPerItem)

	requestHandler := handler.NewPurchaseRequestHandler(requestSvc)
	rfqHandler := handler.NewRFQHandler(rfqSvc)
	portalHandler := handler.NewVendorPortalHandler(portalSvc)
	poHandler := handler.NewPurchaseOrderHandler(poSvc)
	nfaHandler := handler.NewNFAHandler(nfaSvc)

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public vendor portal: the invite token is the only credential.
	portal := api.Group("/vendor-portal")
	{
		portal.GET("/:token", portalHandler.Snapshot)
		portal.POST("/quotations", portalHandler.SubmitQuotation)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(verifier))
	{
		committeeAndUp := middleware.RequireRoles(
			models.RoleCommitteeMember, models.RoleTreasurer,
			models.RoleJointTreasurer, models.RoleSocietyAdmin,
		)

		requests := authed.Group("/purchase-requests")
		{
			requests.POST("", requestHandler.Create)
			requests.GET("", requestHandler.List)
			requests.GET("/:id", requestHandler.Get)
			requests.POST("/:id/open", requestHandler.Open)
			requests.POST("/:id/send-rfq", committeeAndUp, requestHandler.SendRFQ)
			requests.DELETE("/:id", committeeAndUp, requestHandler.Cancel)
		}

		rfqs := authed.Group("/rfqs")
		{
			rfqs.GET("/:id", rfqHandler.Get)
			rfqs.GET("/:id/quotations", rfqHandler.Quotations)
			rfqs.GET("/:id/comparative-statement", committeeAndUp, rfqHandler.ComparativeStatement)
		}

		orders := authed.Group("/purchase-orders")
		{
			orders.POST("", committeeAndUp, poHandler.Create)
			orders.GET("/:id", poHandler.Get)
			orders.GET("/:id/document", poHandler.Document)
			orders.POST("/:id/approve", middleware.RequireRoles(
				models.RoleCommitteeMember, models.RoleTreasurer, models.RoleSocietyAdmin,
			), poHandler.Approve)
			orders.POST("/:id/issue", middleware.RequireRoles(models.RoleSocietyAdmin), poHandler.Issue)
			orders.POST("/:id/deliver", poHandler.MarkDelivered)
			orders.POST("/:id/cancel", committeeAndUp, poHandler.Cancel)
		}

		nfas := authed.Group("/nfas")
		{
			nfas.POST("", nfaHandler.Create)
			nfas.GET("/:id", nfaHandler.Get)
			nfas.GET("/:id/approvals", nfaHandler.Approvals)
			nfas.POST("/:id/submit", nfaHandler.Submit)
			nfas.POST("/:id/vote", middleware.RequireRoles(models.RoleCommitteeMember), nfaHandler.Vote)
			nfas.POST("/:id/treasurer-decision", middleware.RequireRoles(
				models.RoleTreasurer, models.RoleJointTreasurer,
			), nfaHandler.Decide)
			nfas.POST("/:id/po-created", committeeAndUp, nfaHandler.MarkPOCreated)
			nfas.POST("/:id/complete", committeeAndUp, nfaHandler.MarkCompleted)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
