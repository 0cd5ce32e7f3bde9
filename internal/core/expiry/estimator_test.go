package expiry

import (
	"testing"
	"time"

	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
	"github.com/stretchr/testify/assert"
)

func TestEstimatorDays(t *testing.T) {
	snapshot := taxonomy.NewSnapshot([]taxonomy.CategoryEntry{
		{ID: 1, Name: "Dairy (fresh)", ExternalCode: "DAIRY_FRESH", DefaultShelfLifeDays: 10},
	})
	estimator := NewEstimator(snapshot)

	assert.Equal(t, 10, estimator.Days(1))
	assert.Equal(t, taxonomy.OtherDefaultShelfLife, estimator.Days(999))
}

func TestEstimatorExpiryDate(t *testing.T) {
	snapshot := taxonomy.NewSnapshot([]taxonomy.CategoryEntry{
		{ID: 1, Name: "Dairy (fresh)", ExternalCode: "DAIRY_FRESH", DefaultShelfLifeDays: 10},
	})
	estimator := NewEstimator(snapshot)

	capturedAt := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC), estimator.ExpiryDate(capturedAt, 1))

	// Month rollover follows the calendar.
	capturedAt = time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), estimator.ExpiryDate(capturedAt, 1))
}
