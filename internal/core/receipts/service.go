package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/core/expiry"
	"github.com/FreshKeepCo/inventory-service/internal/core/ocr"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

const archiveTimeout = 30 * time.Second

// Recognizer is the OCR provider dependency.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, format string) ([]ocr.Token, error)
}

// Archiver stores the original receipt image for audit. Archiving is
// optional and happens off the request path.
type Archiver interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Service orchestrates the receipt pipeline: recognize, reconstruct,
// consult the extraction cache, extract on miss, and write the result
// through both cache tiers.
type Service struct {
	recognizer Recognizer
	cache      *ExtractionCache
	extractor  *Extractor
	estimator  *expiry.Estimator
	archiver   Archiver // nil when archiving is disabled
	lineGapPx  int
	logger     *slog.Logger
}

func NewService(recognizer Recognizer, extractionCache *ExtractionCache, extractor *Extractor, estimator *expiry.Estimator, archiver Archiver, lineGapPx int, logger *slog.Logger) *Service {
	return &Service{
		recognizer: recognizer,
		cache:      extractionCache,
		extractor:  extractor,
		estimator:  estimator,
		archiver:   archiver,
		lineGapPx:  lineGapPx,
		logger:     logger,
	}
}

var imageFormats = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ProcessImage runs the full pipeline for one receipt image.
func (s *Service) ProcessImage(ctx context.Context, image []byte, contentType string) (*ProcessedReceipt, error) {
	ctx, span := tracer.Start(ctx, "receipts.Service.ProcessImage")
	defer span.End()

	format, ok := imageFormats[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	capturedAt := time.Now()

	tokens, err := s.recognizer.Recognize(ctx, image, format)
	if err != nil {
		if telemetry.OCRErrorsTotal != nil {
			telemetry.OCRErrorsTotal.Add(ctx, 1)
		}
		return nil, fmt.Errorf("ocr recognition failed: %w", err)
	}

	text := ocr.ReconstructLines(tokens, s.lineGapPx)
	result, err := s.ProcessText(ctx, text, capturedAt)
	if err != nil {
		return nil, err
	}

	s.archive(image, contentType, result)
	return result, nil
}

// ProcessText runs the pipeline from reconstructed text. Exposed for
// callers that already hold OCR output.
func (s *Service) ProcessText(ctx context.Context, text string, capturedAt time.Time) (*ProcessedReceipt, error) {
	ctx, span := tracer.Start(ctx, "receipts.Service.ProcessText")
	defer span.End()

	textHash := TextHash(text)

	cached, tier, err := s.cache.Get(ctx, textHash)
	if err != nil {
		s.logger.Error("Extraction cache read failed, re-extracting", "text_hash", textHash, "error", err)
	}
	if cached != nil || tier != "" {
		s.logger.Info("Receipt served from extraction cache",
			"text_hash", textHash,
			"tier", tier,
			"items_count", len(cached))
		s.recordProcessed(ctx, "cached")
		return &ProcessedReceipt{
			TextHash:   textHash,
			Items:      s.stampExpiry(cached, capturedAt),
			FromCache:  true,
			CacheTier:  tier,
			CapturedAt: capturedAt,
		}, nil
	}

	items := s.extractor.Extract(ctx, text)
	s.cache.Put(ctx, textHash, items)
	items = s.stampExpiry(items, capturedAt)

	s.logger.Info("Receipt processed",
		"text_hash", textHash,
		"items_count", len(items))
	s.recordProcessed(ctx, "extracted")

	return &ProcessedReceipt{
		TextHash:   textHash,
		Items:      items,
		FromCache:  false,
		CapturedAt: capturedAt,
	}, nil
}

func (s *Service) recordProcessed(ctx context.Context, outcome string) {
	if telemetry.ReceiptsProcessedTotal != nil {
		telemetry.ReceiptsProcessedTotal.Add(ctx, 1,
			api.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// stampExpiry fills ExpiresAt for every item relative to when the
// receipt was captured. Cached items get a fresh stamp too, since their
// stored ExpiresAt belongs to an earlier capture.
func (s *Service) stampExpiry(items []ParsedItem, capturedAt time.Time) []ParsedItem {
	for i := range items {
		items[i].ExpiryDays = s.estimator.Days(items[i].CategoryID)
		items[i].ExpiresAt = s.estimator.ExpiryDate(capturedAt, items[i].CategoryID)
	}
	return items
}

// archive uploads the original image without blocking the response. The
// upload gets its own deadline so a finished request cannot cancel it.
func (s *Service) archive(image []byte, contentType string, result *ProcessedReceipt) {
	if s.archiver == nil {
		return
	}

	name := fmt.Sprintf("receipts/%s-%s", result.TextHash[:16], uuid.New().String())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		url, err := s.archiver.Upload(ctx, name, image, contentType)
		if err != nil {
			s.logger.Error("Receipt archive upload failed", "name", name, "error", err)
			return
		}
		s.logger.Debug("Receipt image archived", "name", name, "url", url)
	}()
}
