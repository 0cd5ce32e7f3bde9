package barcode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

const persistTimeout = 5 * time.Second

// NotFoundError is returned when every provider in the cascade answered
// not-found or failed. It carries the barcode so handlers can echo it.
type NotFoundError struct {
	Barcode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("barcode %s not found by any provider", e.Barcode)
}

// DurableStore is the persistent cache tier the resolver consults before
// the provider cascade.
type DurableStore interface {
	Get(ctx context.Context, barcode string) (*CachedProduct, error)
	Save(ctx context.Context, product CachedProduct) error
}

// Resolution is a fully resolved barcode: provider data mapped onto the
// internal category taxonomy.
type Resolution struct {
	Barcode      string `json:"barcode"`
	Name         string `json:"name"`
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	ExpiryDays   int    `json:"expiry_days"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Source       string `json:"source"`
}

// Resolver cascades barcode lookups: durable store first, then each
// provider in registration order. Provider failures advance the cascade
// instead of aborting it.
type Resolver struct {
	store     DurableStore
	providers []Provider
	snapshot  *taxonomy.Snapshot
	logger    *slog.Logger
}

func NewResolver(store DurableStore, providers []Provider, snapshot *taxonomy.Snapshot, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:     store,
		providers: providers,
		snapshot:  snapshot,
		logger:    logger,
	}
}

// Resolve answers a barcode lookup. A store read error is logged and
// treated as a miss so a degraded database never blocks resolution.
func (r *Resolver) Resolve(ctx context.Context, barcode string) (*Resolution, error) {
	ctx, span := tracer.Start(ctx, "barcode.Resolver.Resolve")
	defer span.End()

	cached, err := r.store.Get(ctx, barcode)
	if err != nil {
		r.logger.Error("Durable barcode cache read failed, falling through to providers",
			"barcode", barcode,
			"error", err)
	}
	if cached != nil {
		entry := r.snapshot.EntryOrOther(cached.CategoryID, r.logger)
		r.logger.Debug("Barcode resolved from durable cache", "barcode", barcode)
		if telemetry.BarcodeCacheHitsTotal != nil {
			telemetry.BarcodeCacheHitsTotal.Add(ctx, 1)
		}
		if telemetry.BarcodeLookupsTotal != nil {
			telemetry.BarcodeLookupsTotal.Add(ctx, 1,
				api.WithAttributes(attribute.String("source", "cache")))
		}
		return &Resolution{
			Barcode:      cached.Barcode,
			Name:         cached.Name,
			CategoryID:   entry.ID,
			CategoryName: entry.Name,
			ExpiryDays:   entry.DefaultShelfLifeDays,
			Manufacturer: cached.Manufacturer,
			Source:       "cache",
		}, nil
	}

	for _, provider := range r.providers {
		outcome := provider.Lookup(ctx, barcode)
		switch outcome.Status {
		case StatusFound:
			return r.resolved(ctx, barcode, provider.Name(), outcome.Product), nil
		case StatusNotFound:
			r.logger.Debug("Provider has no record for barcode",
				"provider", provider.Name(),
				"barcode", barcode)
		case StatusTransportError:
			r.logger.Warn("Provider lookup failed, advancing cascade",
				"provider", provider.Name(),
				"barcode", barcode,
				"error", outcome.Err)
			if telemetry.BarcodeProviderErrors != nil {
				telemetry.BarcodeProviderErrors.Add(ctx, 1,
					api.WithAttributes(attribute.String("provider", provider.Name())))
			}
		}
	}

	if telemetry.BarcodeNotFoundTotal != nil {
		telemetry.BarcodeNotFoundTotal.Add(ctx, 1)
	}
	return nil, &NotFoundError{Barcode: barcode}
}

func (r *Resolver) resolved(ctx context.Context, barcode, source string, product *ProductInfo) *Resolution {
	entry := r.snapshot.MapExternal(product.CategoryLabel)

	resolution := &Resolution{
		Barcode:      barcode,
		Name:         product.Name,
		CategoryID:   entry.ID,
		CategoryName: entry.Name,
		ExpiryDays:   entry.DefaultShelfLifeDays,
		Manufacturer: product.Manufacturer,
		Source:       source,
	}

	r.logger.Info("Barcode resolved by provider",
		"barcode", barcode,
		"provider", source,
		"product_name", product.Name,
		"category_id", entry.ID)

	if telemetry.BarcodeLookupsTotal != nil {
		telemetry.BarcodeLookupsTotal.Add(ctx, 1,
			api.WithAttributes(attribute.String("source", source)))
	}

	// Persist off the request path. The write gets its own deadline so a
	// cancelled request cannot abort it.
	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		err := r.store.Save(persistCtx, CachedProduct{
			Barcode:      barcode,
			Name:         product.Name,
			CategoryID:   entry.ID,
			Manufacturer: product.Manufacturer,
			Source:       source,
		})
		if err != nil {
			r.logger.Error("Failed to persist resolved barcode",
				"barcode", barcode,
				"error", err)
		}
	}()

	return resolution
}
