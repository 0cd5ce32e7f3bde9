package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/FreshKeepCo/inventory-service/internal/core/barcode"
	"github.com/FreshKeepCo/inventory-service/internal/core/receipts"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogfiber "github.com/samber/slog-fiber"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

var (
	httpRequestsCounter  api.Int64Counter
	httpRequestHistogram api.Float64Histogram
)

func initGlobalMiddlewares(app *fiber.App, cfg *config.Config) {
	app.Use(
		compress.New(compress.Config{
			Level: compress.LevelDefault,
		}),

		slogfiber.NewWithFilters(slog.Default(), slogfiber.IgnorePath("/health")),

		cors.New(cors.Config{
			AllowOrigins: "*", // TODO - add allowed origins
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}),

		favicon.New(),
		limiter.New(limiter.Config{
			Max:               cfg.RateLimitMax,
			Expiration:        time.Duration(cfg.RateLimitWindow) * time.Second,
			LimiterMiddleware: limiter.SlidingWindow{},
		}),
	)

	app.Use(otelfiber.Middleware())
}

type barcodeLookupRequest struct {
	Barcode string `json:"barcode"`
}

func registerHttpRoutes(app *fiber.App, resolver *barcode.Resolver, receiptService *receipts.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().Unix()})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiRoutes := app.Group("/v1")

	apiRoutes.Post("/barcode/lookup", withMetrics(func(c *fiber.Ctx) error {
		var req barcodeLookupRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		req.Barcode = strings.TrimSpace(req.Barcode)
		if req.Barcode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "barcode is required"})
		}

		resolution, err := resolver.Resolve(c.UserContext(), req.Barcode)
		if err != nil {
			var notFound *barcode.NotFoundError
			if errors.As(err, &notFound) {
				// Not-found is an answer, not a failure.
				return c.JSON(fiber.Map{
					"status":  "not_found",
					"barcode": notFound.Barcode,
				})
			}
			slog.Error("Barcode resolution failed",
				"component", "http_handler",
				"endpoint", "/v1/barcode/lookup",
				"barcode", req.Barcode,
				"error", err.Error())
			recordApplicationError(c, "barcode_lookup")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"product": resolution,
		})
	}))

	apiRoutes.Post("/receipts", withMetrics(func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
		}

		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to open uploaded file"})
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read uploaded file"})
		}

		contentType := fileHeader.Header.Get("Content-Type")
		result, err := receiptService.ProcessImage(c.UserContext(), data, contentType)
		if err != nil {
			if strings.Contains(err.Error(), "unsupported content type") || strings.Contains(err.Error(), "empty image") {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			slog.Error("Receipt processing failed",
				"component", "http_handler",
				"endpoint", "/v1/receipts",
				"error", err.Error())
			recordApplicationError(c, "receipt_processing")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "receipt processing failed"})
		}

		return c.JSON(result)
	}))
}

func recordApplicationError(c *fiber.Ctx, component string) {
	if telemetry.ApplicationErrorsTotal != nil {
		telemetry.ApplicationErrorsTotal.Add(c.UserContext(), 1,
			api.WithAttributes(attribute.String("component", component)))
	}
}

func withMetrics(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := handler(c)

		durationMs := float64(time.Since(start).Milliseconds())

		if httpRequestsCounter != nil {
			httpRequestsCounter.Add(c.UserContext(), 1,
				api.WithAttributes(
					attribute.String("method", c.Method()),
					attribute.String("path", c.Route().Path),
					attribute.Int("status_code", c.Response().StatusCode()),
				),
			)
		}

		if httpRequestHistogram != nil {
			httpRequestHistogram.Record(c.UserContext(), durationMs,
				api.WithAttributes(
					attribute.String("method", c.Method()),
					attribute.String("path", c.Route().Path),
					attribute.Int("status_code", c.Response().StatusCode()),
				),
			)
		}

		return err
	}
}
