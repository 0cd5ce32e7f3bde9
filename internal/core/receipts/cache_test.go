package receipts

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/infra/cache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB backs the durable cache tier with a map. Only the queries the
// extraction cache issues are understood.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string][]byte)}
}

func (d *fakeDB) Exec(_ context.Context, _ string, args ...interface{}) (pgconn.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hash := args[0].(string)
	data := args[1].([]byte)
	d.rows[hash] = data
	return pgconn.CommandTag{}, nil
}

func (d *fakeDB) Query(_ context.Context, _ string, _ ...interface{}) (pgx.Rows, error) {
	panic("not used")
}

func (d *fakeDB) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.rows[args[0].(string)]
	return &fakeRow{data: data, ok: ok}
}

func (d *fakeDB) Begin(_ context.Context) (pgx.Tx, error) { panic("not used") }

func (d *fakeDB) Close() {}

type fakeRow struct {
	data []byte
	ok   bool
}

func (r *fakeRow) Scan(dest ...any) error {
	if !r.ok {
		return pgx.ErrNoRows
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

func testCache(t *testing.T) (*ExtractionCache, *cache.MemoryStore, *fakeDB) {
	t.Helper()
	volatile := cache.NewMemoryStore(15*time.Minute, 64)
	db := newFakeDB()
	return NewExtractionCache(volatile, db, slog.New(slog.DiscardHandler)), volatile, db
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "milk 1l eggs 10pk", NormalizeText("  Milk   1L\n\n(Eggs)  *10pk* "))
	assert.Equal(t, NormalizeText("Milk 1L"), NormalizeText("milk   1l"))
}

func TestTextHashDeterministic(t *testing.T) {
	first := TextHash("Milk 1L\nEggs 10pk")
	second := TextHash("  milk 1L\n eggs   10PK ")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.NotEqual(t, first, TextHash("Milk 2L"))
}

func TestExtractionCacheMissThenHit(t *testing.T) {
	c, _, _ := testCache(t)
	ctx := context.Background()
	hash := TextHash("Milk 1L")

	items, tier, err := c.Get(ctx, hash)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Empty(t, tier)

	c.Put(ctx, hash, []ParsedItem{{Name: "Milk 1L", CategoryID: 1}})

	items, tier, err = c.Get(ctx, hash)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, TierMemory, tier)
	assert.Equal(t, "Milk 1L", items[0].Name)
}

func TestExtractionCacheDurableHitBackfillsVolatile(t *testing.T) {
	c, volatile, db := testCache(t)
	ctx := context.Background()
	hash := TextHash("Eggs 10pk")

	// Seed only the durable tier, as if written by another replica.
	data, err := json.Marshal([]ParsedItem{{Name: "Eggs 10pk", CategoryID: 2}})
	require.NoError(t, err)
	db.rows[hash] = data

	items, tier, err := c.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, TierDurable, tier)
	require.Len(t, items, 1)

	// The volatile tier now answers directly.
	cached, err := volatile.Get(ctx, hash)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(cached))

	_, tier, err = c.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, TierMemory, tier)
}

func TestExtractionCacheEmptyResultIsAHit(t *testing.T) {
	c, _, _ := testCache(t)
	ctx := context.Background()
	hash := TextHash("no items here")

	c.Put(ctx, hash, []ParsedItem{})

	items, tier, err := c.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, TierMemory, tier)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
