package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/FreshKeepCo/inventory-service/internal/core/ai"
	"github.com/FreshKeepCo/inventory-service/internal/core/barcode"
	"github.com/FreshKeepCo/inventory-service/internal/core/classifier"
	"github.com/FreshKeepCo/inventory-service/internal/core/cloud"
	"github.com/FreshKeepCo/inventory-service/internal/core/expiry"
	"github.com/FreshKeepCo/inventory-service/internal/core/ocr"
	"github.com/FreshKeepCo/inventory-service/internal/core/receipts"
	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
	"github.com/FreshKeepCo/inventory-service/internal/infra/cache"
	"github.com/FreshKeepCo/inventory-service/internal/infra/postgres"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"google.golang.org/grpc"
)

type Server struct {
	cfg            *config.Config
	app            *fiber.App
	db             postgres.DB
	traceProvider  *sdktrace.TracerProvider
	metricProvider *metric.MeterProvider
	loggerProvider interface{ Shutdown(context.Context) error } // log.LoggerProvider interface

	resolver       *barcode.Resolver
	receiptService *receipts.Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, cfg *config.Config, dbConn *pgxpool.Pool) *Server {
	traceExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		slog.Error("failed to initialize jaeger exporter", slog.String("error", err.Error()))
		return nil
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OtlpEndpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithDialOption(grpc.WithUserAgent("inventory-service")),
	)
	if err != nil {
		slog.Error("failed to initialize otlp exporter", slog.String("error", err.Error()))
		return nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String("inventory-service"),
			)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	provider := metric.NewMeterProvider(metric.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("inventory-service"),
	)), metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))))

	otel.SetMeterProvider(provider)

	if err := telemetry.InitBusinessMetrics(provider); err != nil {
		slog.Error("failed to initialize business metrics", slog.String("error", err.Error()))
		return nil
	}

	meter := provider.Meter("http")
	httpRequestsCounter, _ = meter.Int64Counter("http_requests_total",
		api.WithDescription("Total number of HTTP requests."))
	httpRequestHistogram, _ = meter.Float64Histogram("http_request_duration_ms",
		api.WithDescription("Duration of HTTP requests in milliseconds."))

	instrumentedConn, err := telemetry.NewInstrumentedPool(provider, dbConn)
	if err != nil {
		slog.Error("failed to create instrumented pool", slog.String("error", err.Error()))
		return nil
	}

	app := fiber.New(cfg.Fiber())

	serverCtx, cancel := context.WithCancel(ctx)

	logger := slog.Default()

	snapshot := taxonomy.Load(serverCtx, instrumentedConn, logger)

	resolver, err := buildResolver(cfg, instrumentedConn, snapshot, logger)
	if err != nil {
		slog.Error("failed to initialize barcode resolver", slog.String("error", err.Error()))
		cancel()
		return nil
	}

	receiptService, err := buildReceiptService(cfg, instrumentedConn, snapshot, logger)
	if err != nil {
		slog.Error("failed to initialize receipt service", slog.String("error", err.Error()))
		cancel()
		return nil
	}

	return &Server{
		cfg:            cfg,
		app:            app,
		db:             instrumentedConn,
		traceProvider:  tp,
		metricProvider: provider,
		resolver:       resolver,
		receiptService: receiptService,
		ctx:            serverCtx,
		cancel:         cancel,
	}
}

func buildResolver(cfg *config.Config, db postgres.DB, snapshot *taxonomy.Snapshot, logger *slog.Logger) (*barcode.Resolver, error) {
	providersCfg := cfg.GetProvidersConfig()

	// Cascade order: the free provider first, the quota-limited one last.
	providers := []barcode.Provider{
		barcode.NewOpenFoodFactsProvider(providersCfg),
		barcode.NewFoodQRProvider(providersCfg),
		barcode.NewFoodSafetyProvider(providersCfg),
	}

	store := barcode.NewStore(db, logger)
	return barcode.NewResolver(store, providers, snapshot, logger), nil
}

func buildReceiptService(cfg *config.Config, db postgres.DB, snapshot *taxonomy.Snapshot, logger *slog.Logger) (*receipts.Service, error) {
	volatile, err := cache.New(*cfg)
	if err != nil {
		return nil, err
	}
	extractionCache := receipts.NewExtractionCache(volatile, db, logger)

	var model *classifier.Model
	if cfg.ExtractionStrategy == receipts.StrategyRules {
		model, err = classifier.Load(cfg.ClassifierModelPath)
		if err != nil {
			logger.Warn("Classifier artifact unavailable, keyword categorization will be used",
				"path", cfg.ClassifierModelPath,
				"error", err)
			model = nil
		}
	}

	var aiClient ai.Extractor
	if cfg.ExtractionStrategy == receipts.StrategyAI {
		aiClient = ai.NewOpenAIClient(cfg.GetOpenAIConfig(), snapshot, logger)
	}

	extractor := receipts.NewExtractor(cfg.ExtractionStrategy, model, aiClient, snapshot, logger)

	ocrCfg := cfg.GetOCRConfig()
	recognizer := ocr.NewClient(ocrCfg, logger)

	archiveService, err := cloud.NewService(cfg.GetCloudConfig(), logger)
	if err != nil {
		return nil, err
	}

	// A nil *cloud.Service must stay a nil Archiver interface.
	var archiver receipts.Archiver
	if archiveService != nil {
		archiver = archiveService
	}

	estimator := expiry.NewEstimator(snapshot)

	return receipts.NewService(recognizer, extractionCache, extractor, estimator, archiver, ocrCfg.LineGapPx, logger), nil
}

func (s *Server) Start() {
	initGlobalMiddlewares(s.app, s.cfg)
	registerHttpRoutes(s.app, s.resolver, s.receiptService)

	slog.Info("Starting HTTP server", slog.String("address", s.cfg.ServerAddress))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.app.Listen(s.cfg.ServerAddress); err != nil {
			slog.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
}

func (s *Server) SetLoggerProvider(lp interface{ Shutdown(context.Context) error }) {
	s.loggerProvider = lp
}

func (s *Server) Shutdown() {
	slog.Info("Shutting down server")

	s.cancel()

	if err := s.app.Shutdown(); err != nil {
		slog.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
	}

	s.wg.Wait()

	if err := s.traceProvider.Shutdown(context.Background()); err != nil {
		slog.Error("Error shutting down trace provider", slog.String("error", err.Error()))
	}

	if err := s.metricProvider.Shutdown(context.Background()); err != nil {
		slog.Error("Error shutting down metric provider", slog.String("error", err.Error()))
	}

	if s.loggerProvider != nil {
		if err := s.loggerProvider.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down log provider", slog.String("error", err.Error()))
		}
	}

	s.db.Close()

	slog.Info("Server shut down successfully")
}
