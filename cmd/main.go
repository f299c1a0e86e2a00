package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"tax-engine/internal/config"
	"tax-engine/internal/database"
	"tax-engine/internal/events"
	"tax-engine/internal/handlers"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Tax Engine API
// @version 1.0
// @description Indian GST calculation, TDS/TCS withholding and GST return aggregation

// @host localhost:8091
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✓ Connected to database")

	// Configure connection pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	// Run automated database migrations (schema + seed data)
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis client (optional - graceful degradation if Redis unavailable)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to parse Redis URL: %v", err)
			log.Println("Continuing without Redis caching...")
		} else {
			redisClient = redis.NewClient(opt)

			// Test Redis connection
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Failed to connect to Redis: %v", err)
				log.Println("Continuing without Redis caching...")
				redisClient = nil
			} else {
				log.Println("✓ Connected to Redis for caching")
			}
		}
	} else {
		log.Println("REDIS_URL not configured, caching disabled")
	}

	// Initialize NATS events publisher (non-blocking)
	eventLogger := logrus.New()
	eventLogger.SetFormatter(&logrus.JSONFormatter{})
	eventLogger.SetLevel(logrus.InfoLevel)
	go func() {
		if err := events.InitPublisher(eventLogger); err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		} else {
			log.Println("✓ NATS events publisher initialized")
		}
	}()

	// Initialize repositories
	taxRepo := repository.NewTaxRepository(db, redisClient)
	withholdingRepo := repository.NewWithholdingRepository(db)
	itcRepo := repository.NewITCRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	filingRepo := repository.NewFilingRepository(db)

	// Initialize services
	cacheTTL := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	taxCalculator := services.NewTaxCalculator(taxRepo, cacheTTL)
	tdsService := services.NewTDSService(withholdingRepo)
	tcsService := services.NewTCSService(withholdingRepo)
	itcService := services.NewITCService(itcRepo)
	gstrService := services.NewGSTRService(taxRepo, invoiceRepo, itcRepo, filingRepo)

	// Initialize handlers
	taxHandler := handlers.NewTaxHandler(taxCalculator, taxRepo)
	withholdingHandler := handlers.NewWithholdingHandler(tdsService, tcsService, withholdingRepo)
	itcHandler := handlers.NewITCHandler(itcService, itcRepo)
	gstrHandler := handlers.NewGSTRHandler(gstrService, filingRepo)

	// Start tenant event subscriber (provisions GST registrations for new tenants)
	subscriber, err := events.NewSubscriber(taxRepo, eventLogger)
	if err != nil {
		log.Printf("WARNING: Failed to initialize tenant subscriber: %v (continuing without tenant provisioning)", err)
	} else {
		go func() {
			if err := subscriber.Start(); err != nil {
				log.Printf("WARNING: Tenant subscriber failed to start: %v", err)
			}
		}()
		log.Println("✓ Tenant event subscriber started")
	}

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("tax-engine"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("tax-engine"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("tesseract", "tax_engine")
	log.Println("✓ Prometheus metrics initialized")

	// Initialize RBAC middleware
	staffServiceURL := os.Getenv("STAFF_SERVICE_URL")
	if staffServiceURL == "" {
		staffServiceURL = "http://staff-service:8080"
	}
	rbacMiddleware := rbac.NewMiddlewareWithURL(staffServiceURL, nil)
	log.Println("✓ RBAC middleware initialized")

	// Setup router
	router := setupRouter(taxHandler, withholdingHandler, itcHandler, gstrHandler, db, metrics, rbacMiddleware)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down Tax Engine...")

		if subscriber != nil {
			subscriber.Close()
			log.Println("✓ Tenant subscriber stopped")
		}

		if publisher := events.GetPublisher(); publisher != nil {
			publisher.Close()
			log.Println("✓ Events publisher closed")
		}

		if tracerProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer provider: %v", err)
			} else {
				log.Println("✓ Tracer provider shut down")
			}
		}

		log.Println("Tax engine stopped")
		os.Exit(0)
	}()

	// Start server
	log.Printf("Tax Engine starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(taxHandler *handlers.TaxHandler, withholdingHandler *handlers.WithholdingHandler, itcHandler *handlers.ITCHandler, gstrHandler *handlers.GSTRHandler, db *gorm.DB, metrics *gosharedmw.Metrics, rbacMiddleware *rbac.Middleware) *gin.Engine {
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("tax-engine"))

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "tax-engine",
		})
	})

	// Liveness probe - simple check that the service is running
	router.GET("/livez", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness probe - check that DB is accessible
	router.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database not available"})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database ping failed"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gosharedmw.Handler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes with RBAC
	v1 := router.Group("/api/v1")
	{
		// GST calculation endpoints
		tax := v1.Group("/tax")
		{
			tax.POST("/calculate", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.CalculateTax)
			tax.POST("/validate-address", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.ValidateAddress)
		}

		// Jurisdiction CRUD
		jurisdictions := v1.Group("/jurisdictions")
		{
			jurisdictions.GET("", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.ListJurisdictions)
			jurisdictions.GET("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.GetJurisdiction)
			jurisdictions.POST("", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), taxHandler.CreateJurisdiction)
			jurisdictions.PUT("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), taxHandler.UpdateJurisdiction)
			jurisdictions.DELETE("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxManage), taxHandler.DeleteJurisdiction)
		}

		// Product tax category CRUD
		categories := v1.Group("/categories")
		{
			categories.GET("", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.ListProductCategories)
			categories.GET("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.GetProductCategory)
			categories.POST("", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), taxHandler.CreateProductCategory)
			categories.PUT("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), taxHandler.UpdateProductCategory)
			categories.DELETE("/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxManage), taxHandler.DeleteProductCategory)
		}

		// GST registrations
		registrations := v1.Group("/registrations")
		{
			registrations.GET("", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), taxHandler.ListRegistrations)
			registrations.POST("", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), taxHandler.CreateRegistration)
		}

		// TDS endpoints
		tds := v1.Group("/tds")
		{
			tds.POST("/calculate", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.CalculateTDS)
			tds.POST("/deductions", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), withholdingHandler.RecordTDSDeduction)
			tds.GET("/deductions", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.ListTDSDeductions)
			tds.GET("/rates", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.ListTDSRates)
			tds.POST("/rates", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), withholdingHandler.CreateTDSRate)
			tds.PUT("/rates/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), withholdingHandler.UpdateTDSRate)
		}

		// TCS endpoints
		tcs := v1.Group("/tcs")
		{
			tcs.POST("/calculate", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.CalculateTCS)
			tcs.POST("/collections", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), withholdingHandler.RecordTCSCollection)
			tcs.GET("/collections", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.ListTCSCollections)
			tcs.GET("/rates", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), withholdingHandler.ListTCSRates)
			tcs.POST("/rates", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), withholdingHandler.CreateTCSRate)
			tcs.PUT("/rates/:id", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), withholdingHandler.UpdateTCSRate)
		}

		// Input tax credit endpoints
		itc := v1.Group("/itc")
		{
			itc.POST("", rbacMiddleware.RequirePermission(rbac.PermissionTaxCreate), itcHandler.RecordITC)
			itc.GET("", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), itcHandler.ListITC)
			itc.GET("/summary", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), itcHandler.GetITCSummary)
			itc.POST("/:id/claim", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), itcHandler.ClaimITC)
			itc.POST("/:id/reverse", rbacMiddleware.RequirePermission(rbac.PermissionTaxUpdate), itcHandler.ReverseITC)
		}

		// GST return endpoints
		gstr := v1.Group("/gstr")
		{
			gstr.GET("/filings", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), gstrHandler.ListFilings)
			gstr.GET("/filings/:type/:period", rbacMiddleware.RequirePermission(rbac.PermissionTaxRead), gstrHandler.GetReturn)
			gstr.POST("/filings/:type/:period/file", rbacMiddleware.RequirePermission(rbac.PermissionTaxManage), gstrHandler.FileReturn)
		}
	}

	return router
}
