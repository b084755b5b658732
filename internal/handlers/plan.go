package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/planner"
)

// statusClientClosedRequest mirrors nginx's code for a caller that went
// away mid-solve.
const statusClientClosedRequest = 499

// PlanHandler exposes the transfer-plan operations.
type PlanHandler struct {
	svc *planner.Service
	cfg *config.Config
}

func NewPlanHandler(svc *planner.Service, cfg *config.Config) *PlanHandler {
	return &PlanHandler{svc: svc, cfg: cfg}
}

type planRequest struct {
	NumGameweeks   *int     `json:"num_gameweeks"`
	DiscountFactor *float64 `json:"discount_factor"`
}

// CreatePlan handles POST /api/v1/entry/:id/plan
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req := planner.Request{
		EntryID:        entryID,
		NumGameweeks:   h.cfg.Solver.DefaultHorizon,
		DiscountFactor: h.cfg.Solver.DefaultDiscount,
	}
	if body.NumGameweeks != nil {
		req.NumGameweeks = *body.NumGameweeks
	}
	if body.DiscountFactor != nil {
		req.DiscountFactor = *body.DiscountFactor
	}

	plan, err := h.svc.Plan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetSquad handles GET /api/v1/entry/:id/squad
func (h *PlanHandler) GetSquad(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	picks, err := h.svc.Squad(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"picks": picks})
}

// GetPlayerXP handles GET /api/v1/players/:id/xp
func (h *PlanHandler) GetPlayerXP(c *gin.Context) {
	playerID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}
	horizon := h.cfg.Solver.DefaultHorizon
	if raw := c.Query("horizon"); raw != "" {
		horizon, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid horizon"})
			return
		}
	}

	forecast, err := h.svc.PlayerXP(c.Request.Context(), playerID, horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

// respondError maps error kinds onto HTTP statuses, keeping the
// machine-readable kind in the payload.
func respondError(c *gin.Context, err error) {
	kind := fplerr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case fplerr.KindNotFound:
		status = http.StatusNotFound
	case fplerr.KindInvalidInput:
		status = http.StatusBadRequest
	case fplerr.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	case fplerr.KindSolverUnavailable, fplerr.KindExpectedPoints:
		status = http.StatusServiceUnavailable
	case fplerr.KindCancelled:
		status = statusClientClosedRequest
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}
