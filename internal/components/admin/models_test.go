package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweetshop/console/internal/backend"
)

func TestBuildOverview(t *testing.T) {
	sweets := []backend.Sweet{
		{SweetID: 1, Name: "Ladoo", Price: 25.50, QuantityInStock: 40},
		{SweetID: 2, Name: "Barfi", Price: 10.00, QuantityInStock: 5},
		{SweetID: 3, Name: "Jalebi", Price: 7.25, QuantityInStock: 9},
	}
	users := []backend.UserProfile{
		{UserID: 1, Username: "admin", IsAdmin: true},
		{UserID: 2, Username: "alice"},
	}

	overview := BuildOverview(sweets, users)

	assert.Equal(t, 3, overview.Products)
	assert.Equal(t, 54, overview.TotalStock)
	assert.Equal(t, 2, overview.LowStockCount)
	assert.Equal(t, 2, overview.TotalUsers)
	// 25.50*40 + 10.00*5 + 7.25*9 = 1135.25
	assert.Equal(t, 1135.25, overview.InventoryValue)
}

func TestBuildOverviewEmpty(t *testing.T) {
	overview := BuildOverview(nil, nil)
	assert.Equal(t, Overview{}, overview)
}

func TestBuildOverviewRoundsInventoryValue(t *testing.T) {
	sweets := []backend.Sweet{
		{Price: 0.1, QuantityInStock: 3},
	}

	overview := BuildOverview(sweets, nil)
	assert.Equal(t, 0.3, overview.InventoryValue)
}

func TestLowStock(t *testing.T) {
	sweets := []backend.Sweet{
		{SweetID: 1, QuantityInStock: 40},
		{SweetID: 2, QuantityInStock: 9},
		{SweetID: 3, QuantityInStock: 0},
		{SweetID: 4, QuantityInStock: 10},
	}

	low := LowStock(sweets)
	assert.Len(t, low, 2)
	assert.Equal(t, 2, low[0].SweetID)
	assert.Equal(t, 3, low[1].SweetID)

	assert.Nil(t, LowStock(nil))
}
