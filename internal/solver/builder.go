package solver

import (
	"math"

	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
)

// XPSource yields expected points per player and horizon step. The points
// engine's table satisfies it; tests plug in literal values.
type XPSource interface {
	XP(playerID, step int) float64
}

// Squad composition rules.
const (
	squadSize     = 15
	startingSize  = 11
	maxPerClub    = 3
	startingGK    = 1
	minStartDEF   = 3
	minStartFWD   = 1
)

var positionQuota = map[models.Position]int{
	models.Goalkeeper: 2,
	models.Defender:   5,
	models.Midfielder: 5,
	models.Forward:    3,
}

// positionOrder fixes constraint-row order so identical inputs produce an
// identical program; map iteration would shuffle rows between runs and let
// symmetric ties resolve differently.
var positionOrder = []models.Position{
	models.Goalkeeper,
	models.Defender,
	models.Midfielder,
	models.Forward,
}

// Input is everything the builder needs to assemble the transfer MIP.
type Input struct {
	Players       []models.Player // candidate pool; must contain the squad
	XP            XPSource
	Horizon       int
	InitialSquad  map[int]bool // player ids of the current 15
	BudgetTenths  int
	FreeTransfers int
	Discount      float64
	Cfg           config.Solver
}

// Model is the assembled program plus the index bookkeeping needed to read
// a solution back out.
//
// Variable layout, M = len(players), N = horizon:
//
//	s[i,t]    block 0      squad membership
//	x[i,t]    block 1      starting XI
//	tin[i,t]  block 2      transfer in
//	tout[i,t] block 3      transfer out
//	ft[t]     4MN + t      free transfers carried out of step t
//	paid[t]   4MN + N + t  paid transfers at step t
//	u[t]      4MN + 2N + t flexibility slack, u ≤ ft − 1
type Model struct {
	Problem *Problem
	Players []models.Player
	Horizon int

	m int
}

func (m *Model) sIdx(i, t int) int    { return t*m.m + i }
func (m *Model) xIdx(i, t int) int    { return m.m*m.Horizon + t*m.m + i }
func (m *Model) tinIdx(i, t int) int  { return 2*m.m*m.Horizon + t*m.m + i }
func (m *Model) toutIdx(i, t int) int { return 3*m.m*m.Horizon + t*m.m + i }
func (m *Model) ftIdx(t int) int      { return 4*m.m*m.Horizon + t }
func (m *Model) paidIdx(t int) int    { return 4*m.m*m.Horizon + m.Horizon + t }
func (m *Model) uIdx(t int) int       { return 4*m.m*m.Horizon + 2*m.Horizon + t }

// Build assembles the transfer program: squad evolution, composition
// quotas, club cap, legal starting XI, budget under current prices, and
// free-transfer accounting with the banking cap.
func Build(in Input) (*Model, error) {
	M := len(in.Players)
	N := in.Horizon
	if M == 0 {
		return nil, fplerr.InvalidInput("empty candidate pool")
	}
	if N < 1 {
		return nil, fplerr.InvalidInput("horizon must be at least 1, got %d", N)
	}
	if in.Discount < 0.5 || in.Discount > 1.0 || math.IsNaN(in.Discount) {
		return nil, fplerr.InvalidInput("discount factor must be within [0.5, 1.0], got %v", in.Discount)
	}
	if len(in.InitialSquad) != squadSize {
		return nil, fplerr.InvalidInput("initial squad has %d players, want %d", len(in.InitialSquad), squadSize)
	}

	model := &Model{Players: in.Players, Horizon: N, m: M}
	p := NewProblem(4*M*N + 3*N)
	model.Problem = p

	maxFT := float64(in.Cfg.MaxFreeTransfers)
	for t := 0; t < N; t++ {
		for i := 0; i < M; i++ {
			p.Binary(model.sIdx(i, t))
			p.Binary(model.xIdx(i, t))
			p.Binary(model.tinIdx(i, t))
			p.Binary(model.toutIdx(i, t))
		}
		p.IntVar(model.ftIdx(t), 0, maxFT)
		p.IntVar(model.paidIdx(t), 0, squadSize)
		// u stays continuous; it lands on an integer anyway
		p.Lo[model.uIdx(t)] = 0
		p.Hi[model.uIdx(t)] = maxFT - 1
	}

	initial := func(i int) float64 {
		if in.InitialSquad[in.Players[i].ID] {
			return 1
		}
		return 0
	}

	for t := 0; t < N; t++ {
		// Squad continuity: s[t] = s[t-1] + tin[t] - tout[t], with the
		// current squad standing in for s[-1].
		for i := 0; i < M; i++ {
			coeffs := map[int]float64{
				model.sIdx(i, t):    1,
				model.tinIdx(i, t):  -1,
				model.toutIdx(i, t): 1,
			}
			rhs := 0.0
			if t == 0 {
				rhs = initial(i)
			} else {
				coeffs[model.sIdx(i, t-1)] = -1
			}
			p.AddEq(coeffs, rhs)
		}

		// Position quotas pin the squad shape at t=0; from then on the
		// per-position transfer balance preserves them, so repeating the
		// quota rows would only make the equality system rank-deficient.
		// The four quotas sum to the squad size of 15.
		if t == 0 {
			for _, pos := range positionOrder {
				coeffs := make(map[int]float64)
				for i := 0; i < M; i++ {
					if in.Players[i].ElementType == pos {
						coeffs[model.sIdx(i, t)] = 1
					}
				}
				p.AddEq(coeffs, float64(positionQuota[pos]))
			}
		}

		// Club cap
		clubs := make(map[int][]int)
		clubOrder := []int{}
		for i := 0; i < M; i++ {
			club := in.Players[i].Club
			if _, seen := clubs[club]; !seen {
				clubOrder = append(clubOrder, club)
			}
			clubs[club] = append(clubs[club], i)
		}
		for _, club := range clubOrder {
			members := clubs[club]
			if len(members) <= maxPerClub {
				continue
			}
			coeffs := make(map[int]float64, len(members))
			for _, i := range members {
				coeffs[model.sIdx(i, t)] = 1
			}
			p.AddLe(coeffs, maxPerClub)
		}

		// Starting XI: eleven starters drawn from the squad, one keeper,
		// at least three defenders and one forward
		xi := make(map[int]float64, M)
		for i := 0; i < M; i++ {
			xi[model.xIdx(i, t)] = 1
			p.AddLe(map[int]float64{
				model.xIdx(i, t): 1,
				model.sIdx(i, t): -1,
			}, 0)
		}
		p.AddEq(xi, startingSize)

		gk := make(map[int]float64)
		def := make(map[int]float64)
		fwd := make(map[int]float64)
		for i := 0; i < M; i++ {
			switch in.Players[i].ElementType {
			case models.Goalkeeper:
				gk[model.xIdx(i, t)] = 1
			case models.Defender:
				def[model.xIdx(i, t)] = -1
			case models.Forward:
				fwd[model.xIdx(i, t)] = -1
			}
		}
		p.AddEq(gk, startingGK)
		p.AddLe(def, -minStartDEF)
		p.AddLe(fwd, -minStartFWD)

		// Per-position transfer balance: every move out is matched by a
		// move in at the same position, which also forces equal overall
		// traffic. At t=0 these rows are already implied by continuity
		// plus the quota rows above.
		if t > 0 {
			for _, pos := range positionOrder {
				coeffs := make(map[int]float64)
				for i := 0; i < M; i++ {
					if in.Players[i].ElementType == pos {
						coeffs[model.tinIdx(i, t)] = 1
						coeffs[model.toutIdx(i, t)] = -1
					}
				}
				p.AddEq(coeffs, 0)
			}
		}

		// Provenance: only owned players leave, only outsiders arrive
		for i := 0; i < M; i++ {
			if t == 0 {
				if initial(i) == 1 {
					p.Hi[model.tinIdx(i, 0)] = 0
				} else {
					p.Hi[model.toutIdx(i, 0)] = 0
				}
			} else {
				p.AddLe(map[int]float64{
					model.toutIdx(i, t): 1,
					model.sIdx(i, t-1):  -1,
				}, 0)
				p.AddLe(map[int]float64{
					model.tinIdx(i, t): 1,
					model.sIdx(i, t-1): 1,
				}, 1)
			}
		}

		if t == 0 && in.Cfg.LockFirstWeek {
			for i := 0; i < M; i++ {
				p.Hi[model.tinIdx(i, 0)] = 0
				p.Hi[model.toutIdx(i, 0)] = 0
			}
		}

		// Budget under current prices, in tenths
		budget := make(map[int]float64, M)
		for i := 0; i < M; i++ {
			budget[model.sIdx(i, t)] = float64(in.Players[i].NowCost)
		}
		p.AddLe(budget, float64(in.BudgetTenths))

		// Free-transfer accounting. avail is ft[t-1], or the ledger's
		// count at t=0.
		//   paid[t] ≥ n_t − avail
		//   paid[t] ≤ n_t
		//   ft[t]   ≤ avail + 1 − n_t + paid[t]   (upper clamp at the cap
		//             comes from ft's bound; the flexibility bonus pulls
		//             ft up to the clamp whenever it has value)
		//   u[t]    ≤ ft[t] − 1
		needsPaid := map[int]float64{model.paidIdx(t): -1}
		capPaid := map[int]float64{model.paidIdx(t): 1}
		carry := map[int]float64{model.ftIdx(t): 1, model.paidIdx(t): -1}
		for i := 0; i < M; i++ {
			needsPaid[model.tinIdx(i, t)] = 1
			capPaid[model.tinIdx(i, t)] = -1
			carry[model.tinIdx(i, t)] = 1
		}
		availRHS := 0.0
		if t == 0 {
			availRHS = float64(in.FreeTransfers)
		} else {
			needsPaid[model.ftIdx(t-1)] = -1
			carry[model.ftIdx(t-1)] = -1
		}
		p.AddLe(needsPaid, availRHS)
		p.AddLe(capPaid, 0)
		p.AddLe(carry, availRHS+1)
		p.AddLe(map[int]float64{
			model.uIdx(t): 1,
			model.ftIdx(t): -1,
		}, -1)
	}

	// Objective: discounted starting-XI points, minus the 4-point hit per
	// paid transfer, plus the banked-transfer flexibility bonus (not on
	// the final step, where banking has no future to help).
	for t := 0; t < N; t++ {
		gamma := math.Pow(in.Discount, float64(t))
		for i := 0; i < M; i++ {
			p.C[model.xIdx(i, t)] = gamma * in.XP.XP(in.Players[i].ID, t)
		}
		p.C[model.paidIdx(t)] = -gamma * float64(in.Cfg.TransferPenalty)
		if t < N-1 {
			p.C[model.uIdx(t)] = gamma * in.Cfg.FlexibilityBonus
		}
	}

	return model, nil
}

// StepValues is the decoded solver output for one horizon step.
type StepValues struct {
	SquadIDs        []int
	StartingIDs     []int
	TransfersInIDs  []int
	TransfersOutIDs []int
	FreeTransfers   int
	Paid            int
}

// Extract thresholds the binary variables at 0.5 and maps columns back to
// player ids.
func (m *Model) Extract(sol *Solution) []StepValues {
	steps := make([]StepValues, m.Horizon)
	for t := 0; t < m.Horizon; t++ {
		var sv StepValues
		for i, player := range m.Players {
			if sol.Value(m.sIdx(i, t)) > 0.5 {
				sv.SquadIDs = append(sv.SquadIDs, player.ID)
			}
			if sol.Value(m.xIdx(i, t)) > 0.5 {
				sv.StartingIDs = append(sv.StartingIDs, player.ID)
			}
			if sol.Value(m.tinIdx(i, t)) > 0.5 {
				sv.TransfersInIDs = append(sv.TransfersInIDs, player.ID)
			}
			if sol.Value(m.toutIdx(i, t)) > 0.5 {
				sv.TransfersOutIDs = append(sv.TransfersOutIDs, player.ID)
			}
		}
		sv.FreeTransfers = int(math.Round(sol.Value(m.ftIdx(t))))
		sv.Paid = int(math.Round(sol.Value(m.paidIdx(t))))
		steps[t] = sv
	}
	return steps
}
