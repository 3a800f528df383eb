package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/api/models"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/income"
	"grid-arbitrage/internal/lopf"
	"grid-arbitrage/internal/model"
	"grid-arbitrage/internal/scenario"
	"grid-arbitrage/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RunStore is the run history the handler reads and writes.
type RunStore interface {
	SaveRun(ctx context.Context, r *arbitrage.Result) error
	ListRuns(ctx context.Context, limit int) ([]arbitrage.Summary, error)
	GetLedger(ctx context.Context, id string) ([]arbitrage.LedgerRow, error)
}

// ArbitrageHandler handles arbitrage run requests
type ArbitrageHandler struct {
	engine      *arbitrage.Engine
	runs        RunStore
	scenarioDir string
}

// NewArbitrageHandler creates a new arbitrage handler. runs may be nil, in
// which case nothing is persisted and ledger lookups report NOT_FOUND.
func NewArbitrageHandler(engine *arbitrage.Engine, runs RunStore, scenarioDir string) *ArbitrageHandler {
	return &ArbitrageHandler{engine: engine, runs: runs, scenarioDir: scenarioDir}
}

// RunArbitrage handles POST /api/v1/arbitrage
func (h *ArbitrageHandler) RunArbitrage(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	sc, err := buildScenario(h.scenarioDir, req.ScenarioFile, req.Scenario)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_SCENARIO", err)
		return
	}

	res, err := h.engine.Run(sc)
	if err != nil {
		status, code := classify(err)
		abortWithError(c, status, code, err)
		return
	}
	h.persist(c.Request.Context(), res)

	resp := models.RunResponse{
		ID:      res.RunID,
		Status:  "completed",
		Summary: res.Summary(),
	}
	if req.Options.IncludeLedger {
		resp.Ledger = res.Ledger
	}
	c.JSON(http.StatusOK, resp)
}

// CompareArbitrage handles POST /api/v1/arbitrage/compare
func (h *ArbitrageHandler) CompareArbitrage(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	summaries := make([]arbitrage.Summary, 0, len(req.Variations))
	for _, v := range req.Variations {
		override := v.Scenario
		override.Name = v.Name
		sc, err := buildScenario(h.scenarioDir, req.ScenarioFile, config.MergeScenario(req.Base, override))
		if err != nil {
			abortWithDetails(c, http.StatusBadRequest, "INVALID_SCENARIO", err, v.Name)
			return
		}
		res, err := h.engine.Run(sc)
		if err != nil {
			status, code := classify(err)
			abortWithDetails(c, status, code, err, v.Name)
			return
		}
		h.persist(c.Request.Context(), res)
		summaries = append(summaries, res.Summary())
	}

	c.JSON(http.StatusOK, models.CompareResponse{Comparison: analysis.RankByIncome(summaries)})
}

// GetLedger handles GET /api/v1/arbitrage/:id/ledger
func (h *ArbitrageHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	if h.runs == nil {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", fmt.Errorf("run %s not found", id))
		return
	}
	ledger, err := h.runs.GetLedger(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, models.LedgerResponse{RunID: id, Ledger: ledger})
}

// ListRuns handles GET /api/v1/runs
func (h *ArbitrageHandler) ListRuns(c *gin.Context) {
	var req models.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if h.runs == nil {
		c.JSON(http.StatusOK, models.RunsResponse{Runs: []arbitrage.Summary{}})
		return
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, models.RunsResponse{Runs: runs})
}

// buildScenario loads the optional scenario file from the scenario
// directory and applies the request's overrides on top.
func buildScenario(dir, file string, override config.ScenarioConfig) (*scenario.Scenario, error) {
	sc := override
	if file != "" {
		// Only bare file names inside the scenario directory are accepted.
		if file != filepath.Base(file) || !strings.HasSuffix(file, ".yaml") {
			return nil, fmt.Errorf("scenario_file must be a .yaml file name, got %q", file)
		}
		loaded, err := config.LoadScenarioFile(filepath.Join(dir, file))
		if err != nil {
			return nil, err
		}
		sc = config.MergeScenario(loaded, override)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(file, ".yaml")
	}
	return sc.Build()
}

// persist records a finished run. A store failure does not fail the request.
func (h *ArbitrageHandler) persist(ctx context.Context, res *arbitrage.Result) {
	if h.runs == nil {
		return
	}
	if err := h.runs.SaveRun(ctx, res); err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("api: failed to save run")
	}
}

// classify maps run errors to HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, lopf.ErrInfeasible):
		return http.StatusUnprocessableEntity, "INFEASIBLE"
	case errors.Is(err, lopf.ErrUnbounded):
		return http.StatusUnprocessableEntity, "UNBOUNDED"
	case errors.Is(err, model.ErrInvalidNetwork),
		errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, income.ErrLengthMismatch),
		errors.Is(err, income.ErrNoPeriods):
		return http.StatusBadRequest, "INVALID_SCENARIO"
	default:
		return http.StatusInternalServerError, "SOLVER_ERROR"
	}
}

func abortWithError(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func abortWithDetails(c *gin.Context, status int, code string, err error, variation string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: map[string]interface{}{"variation": variation},
		},
	})
}
