// Package squad holds the budget arithmetic around an entry's 15 picks.
// All prices are integer tenths of a million; conversion to display
// millions happens only at the serialization boundary.
package squad

import (
	"github.com/nickbutler25/FPLOptimizer/internal/models"
)

// SellPrice applies FPL's asymmetric selling rule in integer tenths: half
// of any profit, rounded down; losses are carried in full.
func SellPrice(nowCost, purchasePrice int) int {
	if nowCost >= purchasePrice {
		return purchasePrice + (nowCost-purchasePrice)/2
	}
	return nowCost
}

// SellPrices computes the selling price of every pick. A pick with an
// unknown purchase price sells at its current cost.
func SellPrices(picks []models.SquadPick, players map[int]models.Player) map[int]int {
	prices := make(map[int]int, len(picks))
	for _, pick := range picks {
		p, ok := players[pick.Element]
		if !ok {
			prices[pick.Element] = 0
			continue
		}
		buy := p.NowCost
		if pick.PurchasePrice != nil {
			buy = *pick.PurchasePrice
		}
		prices[pick.Element] = SellPrice(p.NowCost, buy)
	}
	return prices
}

// TotalBudget is the bank plus the selling value of the whole squad, in
// tenths. Any legal replacement squad must fit under this.
func TotalBudget(bankTenths int, sellPrices map[int]int) int {
	total := bankTenths
	for _, sell := range sellPrices {
		total += sell
	}
	return total
}

// PurchasePrices reconstructs the buy price of each currently-owned player
// from the transfer feed, which arrives newest first. Replayed oldest first:
// a transfer in records the price paid, a transfer out forgets the player.
// Players never transferred (original squad) stay absent and fall back to
// current cost.
func PurchasePrices(transfers []models.TransferRecord) map[int]int {
	prices := make(map[int]int)
	for i := len(transfers) - 1; i >= 0; i-- {
		tr := transfers[i]
		if tr.ElementIn != 0 && tr.ElementInCost != 0 {
			prices[tr.ElementIn] = tr.ElementInCost
		}
		if tr.ElementOut != 0 {
			delete(prices, tr.ElementOut)
		}
	}
	return prices
}

// Attach copies reconstructed purchase prices onto the picks.
func Attach(picks []models.SquadPick, purchase map[int]int) []models.SquadPick {
	out := make([]models.SquadPick, len(picks))
	for i, pick := range picks {
		out[i] = pick
		if price, ok := purchase[pick.Element]; ok {
			p := price
			out[i].PurchasePrice = &p
		}
	}
	return out
}
