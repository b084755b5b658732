package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickbutler25/FPLOptimizer/internal/cache"
	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/integrations/fpl"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/internal/planner"
	"github.com/nickbutler25/FPLOptimizer/internal/points"
	"github.com/nickbutler25/FPLOptimizer/internal/solver"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

func testRouter(t *testing.T, mock *fpl.MockClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Cache: config.Cache{
			BootstrapTTL:      5 * time.Minute,
			FixturesTTL:       30 * time.Minute,
			PicksTTL:          10 * time.Minute,
			ExpectedPointsTTL: 10 * time.Minute,
		},
		Solver: config.Solver{
			TransferPenalty:  4,
			MaxFreeTransfers: 5,
			FlexibilityBonus: 0.5,
			DefaultDiscount:  0.9,
			DefaultHorizon:   1,
			MaxHorizon:       10,
			CandidatesPerPos: 12,
			TimeLimit:        30 * time.Second,
		},
	}
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	store := cache.New(nil, log)
	svc := planner.NewService(mock, store, points.NewEngine(log), solver.NewAdapter(cfg.Solver, log), cfg, log)
	h := NewPlanHandler(svc, cfg)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/entry/:id/plan", h.CreatePlan)
	api.GET("/entry/:id/squad", h.GetSquad)
	api.GET("/players/:id/xp", h.GetPlayerXP)
	return r
}

func planWorld() *fpl.MockClient {
	mk := func(id, club int, pos models.Position, started bool) models.Player {
		p := models.Player{ID: id, WebName: "P", Club: club, ElementType: pos, NowCost: 50, Status: "a"}
		if started {
			p.Minutes = 900
			p.Starts = 10
			p.Form = models.Stat(5.0)
		}
		return p
	}
	players := []models.Player{
		mk(1, 1, models.Goalkeeper, true), mk(2, 2, models.Goalkeeper, false),
		mk(3, 1, models.Defender, true), mk(4, 2, models.Defender, true),
		mk(5, 3, models.Defender, true), mk(6, 4, models.Defender, true),
		mk(7, 5, models.Defender, false),
		mk(8, 6, models.Midfielder, true), mk(9, 7, models.Midfielder, true),
		mk(10, 8, models.Midfielder, true), mk(11, 9, models.Midfielder, true),
		mk(12, 10, models.Midfielder, false),
		mk(13, 2, models.Forward, true), mk(14, 3, models.Forward, true),
		mk(15, 4, models.Forward, false),
	}
	var picks []models.SquadPick
	for i, p := range players {
		picks = append(picks, models.SquadPick{Element: p.ID, SquadSlot: i + 1, Multiplier: 1})
	}
	ev := 2
	var fixtures []models.Fixture
	for home := 1; home <= 9; home += 2 {
		fixtures = append(fixtures, models.Fixture{
			ID: home, Event: &ev, HomeClub: home, AwayClub: home + 1,
			HomeDifficulty: 3, AwayDifficulty: 3,
		})
	}
	cur := 1
	return &fpl.MockClient{
		Bootstrap: &models.Bootstrap{
			Players: players,
			Teams:   []models.Team{{ID: 1, ShortName: "AAA"}},
			Events:  []models.Event{{ID: 1, Finished: true}, {ID: 2, IsNext: true}},
		},
		Fixtures: fixtures,
		Entry:    &models.Entry{ID: 321, CurrentEvent: &cur},
		Picks:    &models.EntryPicks{Picks: picks, EntryHistory: &models.GWRecord{Event: 1}},
		History:  &models.EntryHistory{Current: []models.GWRecord{{Event: 1}}},
	}
}

func TestCreatePlanEndpoint(t *testing.T) {
	r := testRouter(t, planWorld())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entry/321/plan",
		strings.NewReader(`{"num_gameweeks": 1, "discount_factor": 1.0}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var plan models.TransferPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, 2, plan.CurrentGameweek)
	require.Len(t, plan.Weekly, 1)
	assert.Empty(t, plan.Weekly[0].TransfersIn)
}

func TestCreatePlanDefaultsApply(t *testing.T) {
	r := testRouter(t, planWorld())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entry/321/plan", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePlanRejectsBadInput(t *testing.T) {
	r := testRouter(t, planWorld())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entry/321/plan",
		strings.NewReader(`{"num_gameweeks": 99}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/entry/abc/plan", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSquadEndpoint(t *testing.T) {
	r := testRouter(t, planWorld())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entry/321/squad", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Picks []models.EnrichedPick `json:"picks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Picks, 15)
}

func TestGetPlayerXPEndpoint(t *testing.T) {
	r := testRouter(t, planWorld())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/1/xp?horizon=2", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var fc planner.PlayerForecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Len(t, fc.ExpectedPoints, 2)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/players/4242/xp", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
