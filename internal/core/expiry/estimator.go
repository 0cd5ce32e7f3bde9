// Package expiry estimates shelf life from the category taxonomy.
package expiry

import (
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
)

// Estimator resolves a category id to its default shelf life. It is a pure
// lookup over the injected taxonomy snapshot.
type Estimator struct {
	snapshot *taxonomy.Snapshot
}

func NewEstimator(snapshot *taxonomy.Snapshot) *Estimator {
	return &Estimator{snapshot: snapshot}
}

// Days returns the default shelf life for the category. An unknown id falls
// back to the "Other" entry's value.
func (e *Estimator) Days(categoryID int) int {
	if entry, ok := e.snapshot.ByID(categoryID); ok {
		return entry.DefaultShelfLifeDays
	}
	return e.snapshot.Other().DefaultShelfLifeDays
}

// ExpiryDate computes the expiry date from the pipeline capture time, not
// any date printed on the receipt.
func (e *Estimator) ExpiryDate(capturedAt time.Time, categoryID int) time.Time {
	return capturedAt.AddDate(0, 0, e.Days(categoryID))
}
