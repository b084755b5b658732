package squad

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickbutler25/FPLOptimizer/internal/models"
)

func TestSellPrice(t *testing.T) {
	tests := []struct {
		name     string
		now, buy int
		want     int
	}{
		{"no movement", 55, 55, 55},
		{"even profit halves", 59, 55, 57},
		{"odd profit rounds down", 58, 55, 56},
		{"single tick profit kept at buy", 56, 55, 55},
		{"loss carried in full", 52, 55, 52},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SellPrice(tt.now, tt.buy))
		})
	}
}

func TestSellPricesFallsBackToNowCost(t *testing.T) {
	players := map[int]models.Player{
		1: {ID: 1, NowCost: 60},
		2: {ID: 2, NowCost: 80},
	}
	buy := 75
	picks := []models.SquadPick{
		{Element: 1}, // unknown purchase price
		{Element: 2, PurchasePrice: &buy},
		{Element: 3}, // unknown player
	}

	prices := SellPrices(picks, players)
	assert.Equal(t, 60, prices[1])
	assert.Equal(t, 77, prices[2]) // 75 + (80-75)/2
	assert.Equal(t, 0, prices[3])
}

func TestTotalBudget(t *testing.T) {
	prices := map[int]int{1: 60, 2: 77}
	assert.Equal(t, 152, TotalBudget(15, prices))
}

func TestPurchasePricesReplaysOldestFirst(t *testing.T) {
	// Feed is newest first: player 9 bought at 70 then sold; player 5
	// bought at 45, later re-bought at 50.
	transfers := []models.TransferRecord{
		{Event: 10, ElementIn: 5, ElementInCost: 50, ElementOut: 9, ElementOutCost: 72},
		{Event: 6, ElementIn: 9, ElementInCost: 70, ElementOut: 5, ElementOutCost: 45},
		{Event: 3, ElementIn: 5, ElementInCost: 45, ElementOut: 2, ElementOutCost: 40},
	}

	prices := PurchasePrices(transfers)
	assert.Equal(t, 50, prices[5])
	assert.NotContains(t, prices, 9)
	assert.NotContains(t, prices, 2)
}

func TestAttach(t *testing.T) {
	picks := []models.SquadPick{{Element: 5}, {Element: 6}}
	out := Attach(picks, map[int]int{5: 45})

	assert.NotNil(t, out[0].PurchasePrice)
	assert.Equal(t, 45, *out[0].PurchasePrice)
	assert.Nil(t, out[1].PurchasePrice)
	// input untouched
	assert.Nil(t, picks[0].PurchasePrice)
}
