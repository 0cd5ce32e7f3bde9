package barcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/infra/postgres"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

// placeholderNames are legacy sentinel values that older writers stored in
// place of a real product name. Rows carrying one are treated as absent so
// the cascade re-resolves them.
var placeholderNames = map[string]struct{}{
	"":          {},
	"no info":   {},
	"NOT FOUND": {},
	"n/a":       {},
	"상품 정보 없음":  {},
	"해당 없음":     {},
}

// Store is the durable barcode cache backed by the products table.
type Store struct {
	db     postgres.DB
	logger *slog.Logger
}

func NewStore(db postgres.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// CachedProduct is a resolved barcode as persisted in the products table.
type CachedProduct struct {
	Barcode      string    `json:"barcode" db:"barcode"`
	Name         string    `json:"name" db:"product_name"`
	CategoryID   int       `json:"category_id" db:"category_id"`
	Manufacturer string    `json:"manufacturer" db:"manufacturer"`
	Source       string    `json:"source" db:"source"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Get returns the cached product for a barcode, or (nil, nil) when the
// barcode is absent or the stored row carries a placeholder name.
func (s *Store) Get(ctx context.Context, barcode string) (*CachedProduct, error) {
	ctx, span := tracer.Start(ctx, "barcode.Store.Get")
	defer span.End()

	query := `
		SELECT barcode, product_name, category_id, manufacturer, source, created_at
		FROM products
		WHERE barcode = $1
	`

	var product CachedProduct
	err := s.db.QueryRow(ctx, query, barcode).Scan(
		&product.Barcode,
		&product.Name,
		&product.CategoryID,
		&product.Manufacturer,
		&product.Source,
		&product.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if telemetry.DatabaseErrorsTotal != nil {
			telemetry.DatabaseErrorsTotal.Add(ctx, 1,
				api.WithAttributes(attribute.String("operation", "product_select")))
		}
		return nil, fmt.Errorf("failed to query product by barcode: %w", err)
	}

	if _, placeholder := placeholderNames[strings.TrimSpace(product.Name)]; placeholder {
		s.logger.Debug("Ignoring placeholder product row", "barcode", barcode)
		return nil, nil
	}

	return &product, nil
}

// Save upserts a resolved barcode so later lookups skip the providers.
func (s *Store) Save(ctx context.Context, product CachedProduct) error {
	ctx, span := tracer.Start(ctx, "barcode.Store.Save")
	defer span.End()

	query := `
		INSERT INTO products (barcode, product_name, category_id, manufacturer, source, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (barcode)
		DO UPDATE SET
			product_name = EXCLUDED.product_name,
			category_id = EXCLUDED.category_id,
			manufacturer = EXCLUDED.manufacturer,
			source = EXCLUDED.source
	`

	_, err := s.db.Exec(ctx, query,
		product.Barcode,
		product.Name,
		product.CategoryID,
		product.Manufacturer,
		product.Source,
	)
	if err != nil {
		if telemetry.DatabaseErrorsTotal != nil {
			telemetry.DatabaseErrorsTotal.Add(ctx, 1,
				api.WithAttributes(attribute.String("operation", "product_upsert")))
		}
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}
