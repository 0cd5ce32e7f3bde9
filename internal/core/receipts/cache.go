package receipts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FreshKeepCo/inventory-service/internal/infra/cache"
	"github.com/FreshKeepCo/inventory-service/internal/infra/postgres"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

// Cache tier names as reported in ProcessedReceipt.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
)

var hashStripper = strings.NewReplacer(
	"(", "", ")", "",
	"[", "", "]", "",
	"{", "", "}", "",
	"*", "", "#", "",
	":", "", ";", "",
	`"`, "", "'", "",
)

// NormalizeText canonicalizes receipt text before hashing so incidental
// OCR differences (whitespace runs, stray punctuation, letter case) do not
// defeat the cache.
func NormalizeText(text string) string {
	text = hashStripper.Replace(text)
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Join(strings.Fields(text), " ")
}

// TextHash is the cache key for a receipt's reconstructed text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// ExtractionCache stores extraction results keyed by text hash in two
// tiers: a TTL-bounded volatile store in front of a durable table. Reads
// fall through tier by tier; a durable hit back-fills the volatile tier.
type ExtractionCache struct {
	volatile cache.Store
	db       postgres.DB
	logger   *slog.Logger
}

func NewExtractionCache(volatile cache.Store, db postgres.DB, logger *slog.Logger) *ExtractionCache {
	return &ExtractionCache{
		volatile: volatile,
		db:       db,
		logger:   logger,
	}
}

// Get returns the cached items for a text hash and the tier that answered.
// A miss returns (nil, "", nil); an empty cached item list is a valid hit.
func (c *ExtractionCache) Get(ctx context.Context, textHash string) ([]ParsedItem, string, error) {
	ctx, span := tracer.Start(ctx, "receipts.ExtractionCache.Get")
	defer span.End()

	if data, err := c.volatile.Get(ctx, textHash); err == nil {
		var items []ParsedItem
		if err := json.Unmarshal(data, &items); err == nil {
			if telemetry.ReceiptCacheHitsTotal != nil {
				telemetry.ReceiptCacheHitsTotal.Add(ctx, 1,
					api.WithAttributes(attribute.String("tier", TierMemory)))
			}
			return items, TierMemory, nil
		}
		c.logger.Warn("Dropping undecodable volatile cache entry", "text_hash", textHash)
		_ = c.volatile.Delete(ctx, textHash)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Error("Volatile cache read failed", "text_hash", textHash, "error", err)
	}

	var raw []byte
	err := c.db.QueryRow(ctx, `SELECT items FROM receipt_cache WHERE text_hash = $1`, textHash).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		if telemetry.DatabaseErrorsTotal != nil {
			telemetry.DatabaseErrorsTotal.Add(ctx, 1,
				api.WithAttributes(attribute.String("operation", "receipt_cache_select")))
		}
		return nil, "", fmt.Errorf("failed to query receipt cache: %w", err)
	}

	var items []ParsedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal cached items: %w", err)
	}
	if items == nil {
		items = []ParsedItem{}
	}

	c.backfillVolatile(ctx, textHash, raw)
	if telemetry.ReceiptCacheHitsTotal != nil {
		telemetry.ReceiptCacheHitsTotal.Add(ctx, 1,
			api.WithAttributes(attribute.String("tier", TierDurable)))
	}
	return items, TierDurable, nil
}

// Put writes extraction results through both tiers. Tier failures are
// logged, not returned: the pipeline result is already in hand.
func (c *ExtractionCache) Put(ctx context.Context, textHash string, items []ParsedItem) {
	ctx, span := tracer.Start(ctx, "receipts.ExtractionCache.Put")
	defer span.End()

	if items == nil {
		items = []ParsedItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.logger.Error("Failed to marshal items for caching", "text_hash", textHash, "error", err)
		return
	}

	if err := c.volatile.Set(ctx, textHash, data); err != nil {
		c.logger.Error("Volatile cache write failed", "text_hash", textHash, "error", err)
	}

	query := `
		INSERT INTO receipt_cache (text_hash, items, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (text_hash)
		DO UPDATE SET items = EXCLUDED.items, updated_at = NOW()
	`
	if _, err := c.db.Exec(ctx, query, textHash, data); err != nil {
		c.logger.Error("Durable cache write failed", "text_hash", textHash, "error", err)
		if telemetry.DatabaseErrorsTotal != nil {
			telemetry.DatabaseErrorsTotal.Add(ctx, 1,
				api.WithAttributes(attribute.String("operation", "receipt_cache_upsert")))
		}
	}
}

func (c *ExtractionCache) backfillVolatile(ctx context.Context, textHash string, data []byte) {
	if err := c.volatile.Set(ctx, textHash, data); err != nil {
		c.logger.Warn("Volatile cache backfill failed", "text_hash", textHash, "error", err)
	}
}
