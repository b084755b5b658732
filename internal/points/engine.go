// Package points produces the per-player per-gameweek expected-points table
// the transfer solver optimizes over.
package points

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/gameweek"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const (
	minXP = 0.5
	maxXP = 8.0

	// Share of players allowed to fault before the table is unusable.
	faultThreshold = 0.10
)

// Table is the frozen (player, horizon step) expected-points surface for one
// solve. Steps index gameweeks starting at the next gameweek.
type Table struct {
	startGW int
	horizon int
	xp      map[int][]float64
}

// XP returns the expected points for a player at a horizon step, 0 for
// unknown players.
func (t *Table) XP(playerID, step int) float64 {
	row, ok := t.xp[playerID]
	if !ok || step < 0 || step >= len(row) {
		return 0
	}
	return row[step]
}

// Row returns the full horizon for one player, nil for unknown players.
func (t *Table) Row(playerID int) []float64 {
	return t.xp[playerID]
}

// HorizonSum is the undiscounted xp total for one player across the horizon.
func (t *Table) HorizonSum(playerID int) float64 {
	row, ok := t.xp[playerID]
	if !ok {
		return 0
	}
	return floats.Sum(row)
}

// Horizon returns the number of steps in the table.
func (t *Table) Horizon() int { return t.horizon }

// StartGameweek returns the gameweek id of step 0.
func (t *Table) StartGameweek() int { return t.startGW }

// Engine computes expected points from season-to-date form, fixtures and
// underlying statistics.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log.With("component", "points_engine")}
}

// Table computes xp for every player across the next horizon gameweeks.
// Individual forecasts that fail to compute degrade to 1.0; the whole table
// fails only when more than 10% of players have at least one failed forecast.
func (e *Engine) Table(players []models.Player, idx *gameweek.Indexer, horizon int) (*Table, error) {
	if horizon < 1 {
		return nil, fplerr.InvalidInput("horizon must be at least 1, got %d", horizon)
	}

	start := idx.NextGameweek()
	table := &Table{
		startGW: start,
		horizon: horizon,
		xp:      make(map[int][]float64, len(players)),
	}

	faultyPlayers := 0
	for _, p := range players {
		row := make([]float64, horizon)
		faulted := false
		for t := 0; t < horizon; t++ {
			outlook, hasFixture := idx.OutlookFor(p.Club, start+t)
			v, err := forecast(p, outlook, hasFixture)
			if err != nil {
				e.log.Warn("expected points fault, substituting 1.0",
					"player", p.ID, "gameweek", start+t, "error", err.Error())
				v = 1.0
				faulted = true
			}
			row[t] = v
		}
		if faulted {
			faultyPlayers++
		}
		table.xp[p.ID] = row
	}

	if len(players) > 0 && float64(faultyPlayers) > faultThreshold*float64(len(players)) {
		return nil, fplerr.ExpectedPoints(nil,
			"%d of %d players failed to forecast", faultyPlayers, len(players))
	}
	return table, nil
}

// forecast is the per-(player, gameweek) model. Deterministic; output in
// [0.5, 8.0] rounded to one decimal.
func forecast(p models.Player, outlook gameweek.Outlook, hasFixture bool) (float64, error) {
	if p.Starts == 0 || p.Minutes == 0 {
		return 1.0, nil
	}
	if !hasFixture {
		// Blank gameweek: no match, no points beyond the floor.
		return minXP, nil
	}

	games := float64(p.Starts)
	if games < 1 {
		games = 1
	}
	avgMinutes := float64(p.Minutes) / games

	form := p.Form.Float()
	xgi := p.XGI.Float()
	xgc := p.XGC.Float()

	base := form
	if form == 0 && avgMinutes > 60 {
		switch p.ElementType {
		case models.Midfielder, models.Forward:
			base = clampF(xgi/games*5, 1.5, 3.0)
		default:
			base = 2.0
		}
	}

	fixtureMult := 1.0 + float64(3-outlook.Difficulty)*0.15
	homeAwayMult := 0.95
	if outlook.IsHome {
		homeAwayMult = 1.10
	}

	minutesMult := 0.3 + math.Min(avgMinutes/90, 1.0)*0.7

	var adj float64
	xgiPerGame := xgi / games
	xgcPerGame := xgc / games
	switch p.ElementType {
	case models.Midfielder, models.Forward:
		adj = clampF(xgiPerGame-0.5*form, -0.5, 1.0)
	case models.Defender:
		if xgcPerGame < 1.0 {
			adj = (1.0 - xgcPerGame) * 0.5
		} else if xgcPerGame > 1.2 {
			adj = (1.2 - xgcPerGame) * 0.3
		}
		if xgiPerGame > 0.1 {
			adj += xgiPerGame * 0.5
		}
	case models.Goalkeeper:
		if xgcPerGame < 1.0 {
			adj = (1.0 - xgcPerGame) * 0.8
		} else if xgcPerGame > 1.5 {
			adj = (1.5 - xgcPerGame) * 0.4
		}
	default:
		return 0, fmt.Errorf("unknown position %d", p.ElementType)
	}

	raw := base * fixtureMult * homeAwayMult * minutesMult
	if raw > maxXP {
		raw = maxXP
	}
	xp := clampF(raw+clampF(adj, -1.0, 1.5), minXP, maxXP)

	if math.IsNaN(xp) || math.IsInf(xp, 0) {
		return 0, fmt.Errorf("non-finite forecast (form=%v xgi=%v xgc=%v)", form, xgi, xgc)
	}
	return math.Round(xp*10) / 10, nil
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
