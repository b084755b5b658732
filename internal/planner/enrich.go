package planner

import (
	"context"
	"sort"

	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/gameweek"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/internal/squad"
)

// PlayerForecast is the per-player expected-points view.
type PlayerForecast struct {
	PlayerID       int       `json:"player_id"`
	Name           string    `json:"name"`
	Position       string    `json:"position"`
	ClubShort      string    `json:"club_short"`
	CostMillions   float64   `json:"cost_millions"`
	StartGameweek  int       `json:"start_gameweek"`
	ExpectedPoints []float64 `json:"expected_points"`
}

// Squad returns the entry's current picks enriched with display metadata,
// selling prices and next-gameweek expected points.
func (s *Service) Squad(ctx context.Context, entryID int) ([]models.EnrichedPick, error) {
	snap, err := s.takeSnapshot(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if snap.picks == nil || len(snap.picks.Picks) == 0 {
		return nil, fplerr.NotFound("entry %d has no current squad", entryID)
	}

	idx, err := gameweek.New(snap.bootstrap.Events, snap.fixtures)
	if err != nil {
		return nil, err
	}
	table, err := s.expectedPoints(ctx, snap.bootstrap.Players, idx, 1)
	if err != nil {
		return nil, err
	}

	playerByID := make(map[int]models.Player, len(snap.bootstrap.Players))
	for _, p := range snap.bootstrap.Players {
		playerByID[p.ID] = p
	}
	teamByID := make(map[int]models.Team, len(snap.bootstrap.Teams))
	for _, tm := range snap.bootstrap.Teams {
		teamByID[tm.ID] = tm
	}

	picks := squad.Attach(snap.picks.Picks, squad.PurchasePrices(snap.transfers))
	sellPrices := squad.SellPrices(picks, playerByID)

	out := make([]models.EnrichedPick, 0, len(picks))
	for _, pick := range picks {
		p, ok := playerByID[pick.Element]
		if !ok {
			s.log.Warn("pick references unknown player", "player", pick.Element)
			continue
		}
		xp := table.XP(p.ID, 0)
		out = append(out, models.EnrichedPick{
			PlayerID:       p.ID,
			SquadSlot:      pick.SquadSlot,
			Multiplier:     pick.Multiplier,
			IsCaptain:      pick.IsCaptain,
			IsVice:         pick.IsVice,
			Name:           p.WebName,
			ClubShort:      teamByID[p.Club].ShortName,
			Position:       p.ElementType.String(),
			CostMillions:   p.CostMillions(),
			SellMillions:   float64(sellPrices[p.ID]) / 10.0,
			ExpectedPoints: &xp,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SquadSlot < out[j].SquadSlot })
	return out, nil
}

// PlayerXP returns one player's forecast across the horizon.
func (s *Service) PlayerXP(ctx context.Context, playerID, horizon int) (*PlayerForecast, error) {
	if horizon < 1 || horizon > s.cfg.Solver.MaxHorizon {
		return nil, fplerr.InvalidInput("horizon must be within [1, %d], got %d", s.cfg.Solver.MaxHorizon, horizon)
	}

	var bs *models.Bootstrap
	var cached models.Bootstrap
	if s.store.GetJSON(ctx, cacheKeyBootstrap, &cached) {
		bs = &cached
	} else {
		fresh, err := s.api.GetBootstrap(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SetJSON(cacheKeyBootstrap, fresh, s.cfg.Cache.BootstrapTTL)
		bs = fresh
	}

	var player *models.Player
	for i := range bs.Players {
		if bs.Players[i].ID == playerID {
			player = &bs.Players[i]
			break
		}
	}
	if player == nil {
		return nil, fplerr.NotFound("player %d", playerID)
	}

	fixtures, err := s.api.GetFixtures(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := gameweek.New(bs.Events, fixtures)
	if err != nil {
		return nil, err
	}
	table, err := s.expectedPoints(ctx, bs.Players, idx, horizon)
	if err != nil {
		return nil, err
	}

	teamShort := ""
	for _, tm := range bs.Teams {
		if tm.ID == player.Club {
			teamShort = tm.ShortName
			break
		}
	}

	return &PlayerForecast{
		PlayerID:       player.ID,
		Name:           player.WebName,
		Position:       player.ElementType.String(),
		ClubShort:      teamShort,
		CostMillions:   player.CostMillions(),
		StartGameweek:  table.StartGameweek(),
		ExpectedPoints: table.Row(player.ID),
	}, nil
}
