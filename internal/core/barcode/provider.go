// Package barcode resolves product barcodes to product information by
// consulting a durable local store first and then cascading through
// external lookup providers in a fixed order.
package barcode

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("barcode-service")

// OutcomeStatus distinguishes a provider answering "no such product" from a
// provider that could not answer at all. Only the latter is an error
// condition; both advance the cascade.
type OutcomeStatus int

const (
	// StatusFound means the provider returned product information.
	StatusFound OutcomeStatus = iota
	// StatusNotFound means the provider answered definitively that it has
	// no record for the barcode.
	StatusNotFound
	// StatusTransportError means the provider could not be consulted
	// (network failure, non-2xx response, malformed payload).
	StatusTransportError
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// ProductInfo is the provider-agnostic shape a lookup resolves to.
type ProductInfo struct {
	Name          string `json:"name"`
	CategoryLabel string `json:"category_label,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
}

// Outcome is the result of a single provider lookup. Product is non-nil
// only when Status is StatusFound; Err is non-nil only for
// StatusTransportError.
type Outcome struct {
	Status  OutcomeStatus
	Product *ProductInfo
	Err     error
}

func Found(product *ProductInfo) Outcome {
	return Outcome{Status: StatusFound, Product: product}
}

func NotFound() Outcome {
	return Outcome{Status: StatusNotFound}
}

func TransportError(err error) Outcome {
	return Outcome{Status: StatusTransportError, Err: err}
}

// Provider is a single external barcode lookup source.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, barcode string) Outcome
}
