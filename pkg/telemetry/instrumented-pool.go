package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InstrumentedPool wraps pgxpool.Pool and records per-query duration and
// error counts. It satisfies the postgres.DB interface the services use.
type InstrumentedPool struct {
	*pgxpool.Pool
	queryDuration api.Float64Histogram
	queryErrors   api.Int64Counter
}

func NewInstrumentedPool(provider *metric.MeterProvider, pool *pgxpool.Pool) (*InstrumentedPool, error) {
	meter := provider.Meter("db_queries")

	queryDuration, err := meter.Float64Histogram(
		"db.query_duration",
		api.WithDescription("Duration of database queries in milliseconds."),
	)
	if err != nil {
		slog.Error("Error creating query_duration histogram", slog.String("error", err.Error()))
		return nil, err
	}

	queryErrors, err := meter.Int64Counter(
		"db.query_errors",
		api.WithDescription("Total failed database queries."),
	)
	if err != nil {
		slog.Error("Error creating query_errors counter", slog.String("error", err.Error()))
		return nil, err
	}

	return &InstrumentedPool{
		Pool:          pool,
		queryDuration: queryDuration,
		queryErrors:   queryErrors,
	}, nil
}

func (ip *InstrumentedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := ip.Pool.Exec(ctx, sql, args...)
	ip.record(ctx, start, err)
	return tag, err
}

func (ip *InstrumentedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := ip.Pool.Query(ctx, sql, args...)
	ip.record(ctx, start, err)
	return rows, err
}

func (ip *InstrumentedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := ip.Pool.QueryRow(ctx, sql, args...)
	ip.record(ctx, start, nil)
	return row
}

func (ip *InstrumentedPool) record(ctx context.Context, start time.Time, err error) {
	ip.queryDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		ip.queryErrors.Add(ctx, 1)
	}
}
