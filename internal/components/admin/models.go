package admin

import (
	"math"

	"github.com/sweetshop/console/internal/backend"
)

// lowStockThreshold marks items that need restocking soon.
const lowStockThreshold = 10

type (
	// Overview holds read-only aggregates derived from the latest fetched
	// lists. They are never authoritative; the backend owns the numbers and
	// the aggregates are recomputed from every fresh fetch.
	Overview struct {
		TotalStock     int
		Products       int
		LowStockCount  int
		InventoryValue float64
		TotalUsers     int
	}

	// DashboardData is the result of the joined dashboard load. The two
	// fetches run concurrently and fail independently; a nil slice with a
	// non-nil error means that half of the dashboard is unavailable.
	DashboardData struct {
		Sweets    []backend.Sweet
		SweetsErr error
		Users     []backend.UserProfile
		UsersErr  error
	}

	// UpdateResult reports the outcome of the two-step sweet edit. ImageErr
	// is set when the field update succeeded but the follow-up image upload
	// did not; the sweet then carries updated fields and a stale image.
	UpdateResult struct {
		Sweet    *backend.Sweet
		ImageErr error
	}
)

// BuildOverview computes the dashboard aggregates from fetched lists.
func BuildOverview(sweets []backend.Sweet, users []backend.UserProfile) Overview {
	overview := Overview{
		Products:   len(sweets),
		TotalUsers: len(users),
	}

	var value float64
	for _, sweet := range sweets {
		overview.TotalStock += sweet.QuantityInStock
		if sweet.QuantityInStock < lowStockThreshold {
			overview.LowStockCount++
		}
		value += sweet.Price * float64(sweet.QuantityInStock)
	}
	overview.InventoryValue = math.Round(value*100) / 100

	return overview
}

// LowStock returns the items under the restock threshold.
func LowStock(sweets []backend.Sweet) []backend.Sweet {
	var low []backend.Sweet
	for _, sweet := range sweets {
		if sweet.QuantityInStock < lowStockThreshold {
			low = append(low, sweet)
		}
	}
	return low
}
