package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/FreshKeepCo/inventory-service/internal/infra/postgres"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("taxonomy-service")

// Fallback category constants. Every pipeline that cannot resolve a real
// category lands on this entry, so it must exist even when the backing
// table is unreachable.
const (
	OtherCategoryID       = 37
	OtherCategoryName     = "Other"
	OtherCategoryCode     = "ETC"
	OtherDefaultShelfLife = 7
)

// CategoryEntry is one row of the category taxonomy. Entries are immutable
// after load.
type CategoryEntry struct {
	ID                   int    `json:"id" db:"id"`
	Name                 string `json:"name" db:"category_name"`
	ExternalCode         string `json:"external_code" db:"category_code"`
	DefaultShelfLifeDays int    `json:"default_shelf_life_days" db:"default_expiry_days"`
}

// Snapshot is an immutable view of the loaded taxonomy. Components receive
// a snapshot at construction time; a reload produces a fresh snapshot that
// the owner swaps in atomically instead of mutating this one.
type Snapshot struct {
	entries []CategoryEntry
	byID    map[int]CategoryEntry
	byName  map[string]CategoryEntry // lowercased name -> entry
	byCode  map[string]CategoryEntry
	other   CategoryEntry
}

// Load reads the whole categories table and builds a snapshot. It fails
// soft: if the table is unreachable or empty it returns a single synthetic
// "Other" snapshot so downstream components never branch on a missing
// taxonomy.
func Load(ctx context.Context, db postgres.DB, logger *slog.Logger) *Snapshot {
	ctx, span := tracer.Start(ctx, "taxonomy.Load")
	defer span.End()

	rows, err := db.Query(ctx, `
		SELECT id, category_name, category_code, default_expiry_days
		FROM categories
		ORDER BY id
	`)
	if err != nil {
		logger.Error("Failed to load category taxonomy, using fallback",
			"error", err.Error())
		return Fallback()
	}
	defer rows.Close()

	var entries []CategoryEntry
	seq := 0
	for rows.Next() {
		var id *int
		var entry CategoryEntry
		if err := rows.Scan(&id, &entry.Name, &entry.ExternalCode, &entry.DefaultShelfLifeDays); err != nil {
			logger.Error("Failed to scan category row", "error", err.Error())
			continue
		}
		seq++
		// An explicit id column is authoritative; row order assigns
		// sequential 1-based ids otherwise.
		if id != nil {
			entry.ID = *id
		} else {
			entry.ID = seq
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Failed reading category taxonomy, using fallback",
			"error", err.Error())
		return Fallback()
	}

	if len(entries) == 0 {
		logger.Warn("Category taxonomy table is empty, using fallback")
		return Fallback()
	}

	snapshot := NewSnapshot(entries)
	logger.Info("Loaded category taxonomy",
		"categories", len(entries),
		"fallback_id", snapshot.Other().ID)
	return snapshot
}

// NewSnapshot builds a snapshot from a fixed entry list. If no entry is
// named "Other" a synthetic one is appended so the fallback invariant holds.
func NewSnapshot(entries []CategoryEntry) *Snapshot {
	s := &Snapshot{
		entries: make([]CategoryEntry, len(entries)),
		byID:    make(map[int]CategoryEntry, len(entries)),
		byName:  make(map[string]CategoryEntry, len(entries)),
		byCode:  make(map[string]CategoryEntry, len(entries)),
	}
	copy(s.entries, entries)
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })

	haveOther := false
	for _, e := range s.entries {
		s.byID[e.ID] = e
		s.byName[foldName(e.Name)] = e
		s.byCode[e.ExternalCode] = e
		if foldName(e.Name) == foldName(OtherCategoryName) {
			s.other = e
			haveOther = true
		}
	}

	if !haveOther {
		other := syntheticOther()
		s.entries = append(s.entries, other)
		s.byID[other.ID] = other
		s.byName[foldName(other.Name)] = other
		s.byCode[other.ExternalCode] = other
		s.other = other
	}

	return s
}

// Fallback returns the degraded single-entry snapshot used when the
// category table cannot be loaded.
func Fallback() *Snapshot {
	return NewSnapshot([]CategoryEntry{syntheticOther()})
}

func syntheticOther() CategoryEntry {
	return CategoryEntry{
		ID:                   OtherCategoryID,
		Name:                 OtherCategoryName,
		ExternalCode:         OtherCategoryCode,
		DefaultShelfLifeDays: OtherDefaultShelfLife,
	}
}

// All returns the entries in ascending id order.
func (s *Snapshot) All() []CategoryEntry {
	out := make([]CategoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of loaded categories.
func (s *Snapshot) Len() int { return len(s.entries) }

// Other returns the fallback category entry. It is always resolvable.
func (s *Snapshot) Other() CategoryEntry { return s.other }

// ByID looks up a category by id. The miss is explicit so callers decide
// whether substituting the fallback is appropriate; use EntryOrOther when
// the substitution must be audit-visible.
func (s *Snapshot) ByID(id int) (CategoryEntry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// ByName looks up a category by exact name, ignoring case.
func (s *Snapshot) ByName(name string) (CategoryEntry, bool) {
	e, ok := s.byName[foldName(name)]
	return e, ok
}

// ByCode looks up a category by its external classifier code.
func (s *Snapshot) ByCode(code string) (CategoryEntry, bool) {
	e, ok := s.byCode[code]
	return e, ok
}

// EntryOrOther resolves an id that ought to be valid. An unknown id means
// an upstream component violated its contract (for example a generative
// classifier emitting an out-of-range id), so the substitution is logged
// before the fallback entry is returned.
func (s *Snapshot) EntryOrOther(id int, logger *slog.Logger) CategoryEntry {
	if e, ok := s.byID[id]; ok {
		return e
	}
	logger.Warn("Unknown category id, substituting fallback category",
		"category_id", id,
		"fallback_id", s.other.ID,
		"violation", "invalid_category_id")
	return s.other
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("taxonomy.Snapshot(%d categories)", len(s.entries))
}
