package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/invoicing/backend/internal/application/billing"
	catalogapp "github.com/invoicing/backend/internal/application/catalog"
	"github.com/invoicing/backend/internal/application/document"
	partnerapp "github.com/invoicing/backend/internal/application/partner"
	reportapp "github.com/invoicing/backend/internal/application/report"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/infrastructure/cache"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/messaging"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/invoicing/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OpenTelemetry providers. Disabled providers fall back to no-ops.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	// Application logger, exporting through OTLP when enabled
	var extraCores []zapcore.Core
	if loggerProvider.IsEnabled() {
		extraCores = append(extraCores, telemetry.NewZapCore(loggerProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, extraCores...)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	defer shutdownTelemetry(log, tracerProvider, meterProvider, loggerProvider)

	log.Info("Starting invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// SQLite is for local development; PostgreSQL schemas come from cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	dbMetrics, err := telemetry.InstrumentDB(db.DB, meter, telemetry.DBConfig{
		Tracing:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:             cfg.Database.DBName,
		SlowQueryThreshold: cfg.Database.SlowThreshold,
	}, log)
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	defer func() {
		_ = dbMetrics.Stop()
	}()

	// Report cache and idempotency store: Redis when reachable, memory otherwise
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	if err := cacheFactory.Connect(ctx); err != nil {
		log.Fatal("Failed to connect cache", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	reconciler, err := billing.NewReconciler(cfg.Billing.TaxRate)
	if err != nil {
		log.Fatal("Invalid billing configuration", zap.Error(err))
	}
	productService := catalogapp.NewProductService(productRepo, log)
	customerService := partnerapp.NewCustomerService(customerRepo, log)
	invoiceService := billingapp.NewInvoiceService(
		txScope,
		invoiceRepo,
		reconciler,
		billing.NewULIDNumberGenerator(cfg.Billing.NumberPrefix),
		billingapp.InvoiceServiceConfig{
			NumberRetries:  cfg.Billing.NumberRetries,
			DefaultDueDays: cfg.Billing.DefaultDueDays,
		},
		log,
	)
	ledgerService := billingapp.NewLedgerService(txScope, invoiceRepo, paymentRepo, log)
	reportService := reportapp.NewReportService(reportRepo, cacheFactory.ReportCache(), reportapp.ReportServiceConfig{
		CacheTTL:        cfg.Report.CacheTTL,
		RevenueYears:    cfg.Report.RevenueYears,
		TopCustomersMax: cfg.Report.TopCustomers,
	}, log)

	// Documents: render, archive and deliver
	renderer, closeRenderer, err := newRenderer(cfg.Printing, log)
	if err != nil {
		log.Fatal("Failed to initialize document renderer", zap.Error(err))
	}
	defer closeRenderer()
	deliverer, err := newDeliverer(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mail delivery", zap.Error(err))
	}
	documentService := document.NewService(invoiceRepo, customerRepo, paymentRepo, renderer, deliverer,
		document.ServiceConfig{CompanyName: cfg.Printing.CompanyName}, log)
	archive, err := newArchive(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize document archive", zap.Error(err))
	}
	if archive != nil {
		documentService.SetArchive(archive)
	}

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	lowStockHandler := catalogapp.NewLowStockHandler(cfg.Billing.LowStockThreshold, log)
	eventBus.Subscribe(lowStockHandler)

	invoiceSentHandler := event.NewIdempotentHandler("invoice_sent_delivery",
		document.NewInvoiceSentHandler(documentService, log), cacheFactory.IdempotencyStore(), log)
	eventBus.Subscribe(invoiceSentHandler)

	cacheInvalidation := reportapp.NewCacheInvalidationHandler(reportService)
	eventBus.Subscribe(cacheInvalidation)

	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	eventBus.Subscribe(businessMetrics)

	if cfg.Kafka.Enabled {
		forwarder, err := messaging.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.Topic, serializer, log)
		if err != nil {
			log.Fatal("Failed to initialize Kafka forwarder", zap.Error(err))
		}
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka forwarder", zap.Error(err))
			}
		}()
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding integration events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
		zap.Strings("invoice_sent_events", invoiceSentHandler.EventTypes()),
		zap.Strings("cache_invalidation_events", cacheInvalidation.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	productService.SetEventPublisher(eventBus)
	customerService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	ledgerService.SetEventPublisher(eventBus)

	// HTTP engine
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine, router.WithMiddleware(middleware.BodyLimit(cfg.HTTP.MaxBodySize))).
		Register(
			systemHandler,
			handler.NewCustomerHandler(customerService),
			handler.NewProductHandler(productService),
			handler.NewInvoiceHandler(invoiceService),
			handler.NewPaymentHandler(ledgerService),
			handler.NewDocumentHandler(documentService),
			handler.NewReportHandler(reportService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
