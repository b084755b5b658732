// Package ledger replays an entry's gameweek history into the number of
// free transfers available for the upcoming deadline.
package ledger

import (
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const (
	maxFreeTransfers = 5
	hitPenalty       = 4
)

// FreeTransfers replays history forward from GW1 through lastCompleted and
// returns the free transfers available for the following gameweek, always
// within [1, 5]. Wildcard and free-hit weeks reset the count to 1. Missing
// or empty history defaults to 1.
func FreeTransfers(history *models.EntryHistory, lastCompleted int, log *logger.Logger) int {
	if history == nil || len(history.Current) == 0 || lastCompleted < 1 {
		return 1
	}

	ft := 0
	for _, rec := range history.Current {
		if rec.Event > lastCompleted {
			break
		}

		if rec.ActiveChip != nil && (*rec.ActiveChip == models.ChipWildcard || *rec.ActiveChip == models.ChipFreeHit) {
			// Unlimited transfers this week; the allowance restarts at 1.
			ft = 1
			continue
		}

		if rec.EventTransfers == 0 {
			ft = min(ft+1, maxFreeTransfers)
			continue
		}

		paid := rec.EventTransfersCost / hitPenalty
		freeUsed := rec.EventTransfers - paid
		if freeUsed < 0 {
			// Cost exceeding 4x transfers means corrupt data; treat every
			// transfer as paid.
			log.Warn("transfer cost exceeds transfer count",
				"event", rec.Event,
				"transfers", rec.EventTransfers,
				"cost", rec.EventTransfersCost)
			freeUsed = 0
		}
		ft = clamp(ft-freeUsed+1, 1, maxFreeTransfers)
	}

	if ft < 1 {
		ft = 1
	}
	return ft
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
