// Package planner orchestrates a transfer-plan solve: snapshot the upstream
// data, forecast expected points, assemble and solve the MIP, and shape the
// result for the caller.
package planner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/nickbutler25/FPLOptimizer/internal/cache"
	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/gameweek"
	"github.com/nickbutler25/FPLOptimizer/internal/integrations/fpl"
	"github.com/nickbutler25/FPLOptimizer/internal/ledger"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/internal/points"
	"github.com/nickbutler25/FPLOptimizer/internal/solver"
	"github.com/nickbutler25/FPLOptimizer/internal/squad"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const (
	cacheKeyBootstrap = "fpl:bootstrap"
	cacheKeyFixtures  = "fpl:fixtures"
	cacheKeyPicksFmt  = "fpl:entry:%d:event:%d:picks"
	cacheKeyXPFmt     = "fpl:xp:gw%d:h%d"
)

// Request is one plan computation.
type Request struct {
	EntryID        int
	NumGameweeks   int
	DiscountFactor float64
}

// Service wires the pipeline together.
type Service struct {
	api     fpl.API
	store   *cache.Store
	engine  *points.Engine
	adapter *solver.Adapter
	cfg     *config.Config
	log     *logger.Logger
}

func NewService(api fpl.API, store *cache.Store, engine *points.Engine, adapter *solver.Adapter, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		api:     api,
		store:   store,
		engine:  engine,
		adapter: adapter,
		cfg:     cfg,
		log:     log.With("component", "planner"),
	}
}

// snapshot holds every upstream read for one solve, taken as of plan start.
// Nothing re-reads mid-solve.
type snapshot struct {
	bootstrap *models.Bootstrap
	fixtures  []models.Fixture
	entry     *models.Entry
	picks     *models.EntryPicks
	transfers []models.TransferRecord
	history   *models.EntryHistory
}

// Plan computes the optimal transfer plan for an entry over the horizon.
func (s *Service) Plan(ctx context.Context, req Request) (*models.TransferPlan, error) {
	if req.NumGameweeks < 1 || req.NumGameweeks > s.cfg.Solver.MaxHorizon {
		return nil, fplerr.InvalidInput("num_gameweeks must be within [1, %d], got %d", s.cfg.Solver.MaxHorizon, req.NumGameweeks)
	}
	if math.IsNaN(req.DiscountFactor) || math.IsInf(req.DiscountFactor, 0) ||
		req.DiscountFactor < 0.5 || req.DiscountFactor > 1.0 {
		return nil, fplerr.InvalidInput("discount_factor must be within [0.5, 1.0], got %v", req.DiscountFactor)
	}

	snap, err := s.takeSnapshot(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	if snap.picks == nil || len(snap.picks.Picks) == 0 {
		return nil, fplerr.InvalidInput("entry %d has no current squad", req.EntryID)
	}

	idx, err := gameweek.New(snap.bootstrap.Events, snap.fixtures)
	if err != nil {
		return nil, err
	}

	playerByID := make(map[int]models.Player, len(snap.bootstrap.Players))
	for _, p := range snap.bootstrap.Players {
		playerByID[p.ID] = p
	}

	lastCompleted := 0
	if snap.entry.CurrentEvent != nil {
		lastCompleted = *snap.entry.CurrentEvent
	}
	freeTransfers := ledger.FreeTransfers(snap.history, lastCompleted, s.log)

	picks := squad.Attach(snap.picks.Picks, squad.PurchasePrices(snap.transfers))
	sellPrices := squad.SellPrices(picks, playerByID)
	bank := snap.entry.BankTenths
	if snap.picks.EntryHistory != nil {
		bank = snap.picks.EntryHistory.Bank
	}
	budget := squad.TotalBudget(bank, sellPrices)

	table, err := s.expectedPoints(ctx, snap.bootstrap.Players, idx, req.NumGameweeks)
	if err != nil {
		return nil, err
	}

	currentSquad := make(map[int]bool, len(picks))
	for _, pick := range picks {
		currentSquad[pick.Element] = true
	}

	pool := s.candidatePool(snap.bootstrap.Players, table, currentSquad)
	s.log.Info("solving transfer plan",
		"entry", req.EntryID,
		"horizon", req.NumGameweeks,
		"free_transfers", freeTransfers,
		"budget_tenths", budget,
		"pool_size", len(pool))

	model, err := solver.Build(solver.Input{
		Players:       pool,
		XP:            table,
		Horizon:       req.NumGameweeks,
		InitialSquad:  currentSquad,
		BudgetTenths:  budget,
		FreeTransfers: freeTransfers,
		Discount:      req.DiscountFactor,
		Cfg:           s.cfg.Solver,
	})
	if err != nil {
		return nil, err
	}

	sol, err := s.adapter.Solve(ctx, model.Problem)
	if err != nil {
		return nil, err
	}

	return s.extractPlan(model, sol, table, playerByID, currentSquad, freeTransfers, req.DiscountFactor), nil
}

// takeSnapshot fetches every upstream resource, independent calls running
// concurrently, cached resources read through the store.
func (s *Service) takeSnapshot(ctx context.Context, entryID int) (*snapshot, error) {
	snap := &snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var bs models.Bootstrap
		if s.store.GetJSON(gctx, cacheKeyBootstrap, &bs) {
			snap.bootstrap = &bs
			return nil
		}
		fresh, err := s.api.GetBootstrap(gctx)
		if err != nil {
			return err
		}
		s.store.SetJSON(cacheKeyBootstrap, fresh, s.cfg.Cache.BootstrapTTL)
		snap.bootstrap = fresh
		return nil
	})
	g.Go(func() error {
		var fx []models.Fixture
		if s.store.GetJSON(gctx, cacheKeyFixtures, &fx) {
			snap.fixtures = fx
			return nil
		}
		fresh, err := s.api.GetFixtures(gctx)
		if err != nil {
			return err
		}
		s.store.SetJSON(cacheKeyFixtures, fresh, s.cfg.Cache.FixturesTTL)
		snap.fixtures = fresh
		return nil
	})
	g.Go(func() error {
		entry, err := s.api.GetEntry(gctx, entryID)
		if err != nil {
			return err
		}
		snap.entry = entry
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snap.entry.CurrentEvent == nil {
		return nil, fplerr.InvalidInput("entry %d has no completed gameweek yet", entryID)
	}
	event := *snap.entry.CurrentEvent

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		key := fmt.Sprintf(cacheKeyPicksFmt, entryID, event)
		var picks models.EntryPicks
		if s.store.GetJSON(gctx, key, &picks) {
			snap.picks = &picks
			return nil
		}
		fresh, err := s.api.GetEntryPicks(gctx, entryID, event)
		if err != nil {
			return err
		}
		s.store.SetJSON(key, fresh, s.cfg.Cache.PicksTTL)
		snap.picks = fresh
		return nil
	})
	g.Go(func() error {
		transfers, err := s.api.GetEntryTransfers(gctx, entryID)
		if err != nil {
			return err
		}
		snap.transfers = transfers
		return nil
	})
	g.Go(func() error {
		history, err := s.api.GetEntryHistory(gctx, entryID)
		if err != nil {
			return err
		}
		snap.history = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// expectedPoints computes (or recalls) the frozen xp table for this solve.
func (s *Service) expectedPoints(ctx context.Context, players []models.Player, idx *gameweek.Indexer, horizon int) (*points.Table, error) {
	key := fmt.Sprintf(cacheKeyXPFmt, idx.NextGameweek(), horizon)
	var cached points.Table
	if s.store.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}
	table, err := s.engine.Table(players, idx, horizon)
	if err != nil {
		return nil, err
	}
	s.store.SetJSON(key, table, s.cfg.Cache.ExpectedPointsTTL)
	return table, nil
}

// candidatePool keeps the model small: the current squad plus the top
// non-squad players per position by horizon xp.
func (s *Service) candidatePool(players []models.Player, table *points.Table, current map[int]bool) []models.Player {
	perPos := s.cfg.Solver.CandidatesPerPos
	byPos := make(map[models.Position][]models.Player)
	pool := make([]models.Player, 0, len(current)+4*perPos)

	for _, p := range players {
		if current[p.ID] {
			pool = append(pool, p)
			continue
		}
		if !p.ElementType.Valid() {
			continue
		}
		byPos[p.ElementType] = append(byPos[p.ElementType], p)
	}

	for _, candidates := range byPos {
		sort.Slice(candidates, func(i, j int) bool {
			si, sj := table.HorizonSum(candidates[i].ID), table.HorizonSum(candidates[j].ID)
			if si != sj {
				return si > sj
			}
			return candidates[i].ID < candidates[j].ID
		})
		if len(candidates) > perPos {
			candidates = candidates[:perPos]
		}
		pool = append(pool, candidates...)
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool
}

// extractPlan translates solver output into the per-gameweek plan, restating
// the free-transfer ledger deterministically from the transfer counts.
func (s *Service) extractPlan(model *solver.Model, sol *solver.Solution, table *points.Table, playerByID map[int]models.Player, currentSquad map[int]bool, freeTransfers int, discount float64) *models.TransferPlan {
	steps := model.Extract(sol)
	startGW := table.StartGameweek()
	maxFT := s.cfg.Solver.MaxFreeTransfers
	penalty := s.cfg.Solver.TransferPenalty

	plan := &models.TransferPlan{
		PlanID:          uuid.New().String(),
		CurrentGameweek: startGW,
		Weekly:          make([]models.Weekly, 0, len(steps)),
	}

	avail := freeTransfers
	total := 0.0
	for t, sv := range steps {
		n := len(sv.TransfersInIDs)
		freeUsed := n
		if freeUsed > avail {
			freeUsed = avail
		}
		paid := n - freeUsed
		hit := paid * penalty
		left := clampInt(avail+1-n+paid, 0, maxFT)

		gwPoints := 0.0
		for _, id := range sv.StartingIDs {
			gwPoints += table.XP(id, t)
		}

		week := models.Weekly{
			Gameweek:       startGW + t,
			TransfersIn:    make([]models.TransferIn, 0, n),
			TransfersOut:   make([]models.TransferOut, 0, n),
			ExpectedPoints: round1(gwPoints),
			HitCost:        hit,
			FreeUsed:       freeUsed,
			FreeLeft:       left,
		}
		for _, id := range sortByPosition(sv.TransfersInIDs, playerByID) {
			p := playerByID[id]
			week.TransfersIn = append(week.TransfersIn, models.TransferIn{
				PlayerID:     id,
				Name:         p.WebName,
				Position:     p.ElementType.String(),
				CostMillions: p.CostMillions(),
			})
		}
		for _, id := range sortByPosition(sv.TransfersOutIDs, playerByID) {
			p := playerByID[id]
			week.TransfersOut = append(week.TransfersOut, models.TransferOut{
				PlayerID: id,
				Name:     p.WebName,
				Position: p.ElementType.String(),
			})
		}

		gamma := math.Pow(discount, float64(t))
		total += gamma * (gwPoints - float64(hit))
		plan.TotalHitCost += hit
		plan.Weekly = append(plan.Weekly, week)
		avail = left
	}

	plan.TotalExpected = total
	plan.Baseline = s.baseline(table, currentSquad, len(steps), discount)
	plan.Improvement = plan.TotalExpected - plan.Baseline
	return plan
}

// baseline is the no-transfer comparison: the top-11 xp inside the current
// squad each week, formation ignored. A deliberately loose upper bound used
// only for the improvement figure.
func (s *Service) baseline(table *points.Table, currentSquad map[int]bool, horizon int, discount float64) float64 {
	total := 0.0
	for t := 0; t < horizon; t++ {
		week := make([]float64, 0, len(currentSquad))
		for id := range currentSquad {
			week = append(week, table.XP(id, t))
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(week)))
		if len(week) > 11 {
			week = week[:11]
		}
		total += math.Pow(discount, float64(t)) * floats.Sum(week)
	}
	return total
}

func sortByPosition(ids []int, playerByID map[int]models.Player) []int {
	out := append([]int{}, ids...)
	sort.Slice(out, func(i, j int) bool {
		pi, pj := playerByID[out[i]], playerByID[out[j]]
		if pi.ElementType != pj.ElementType {
			return pi.ElementType < pj.ElementType
		}
		return out[i] < out[j]
	})
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
