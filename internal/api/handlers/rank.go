package handlers

import (
	"net/http"

	"grid-arbitrage/internal/analysis"
	"grid-arbitrage/internal/api/models"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/model"

	"github.com/gin-gonic/gin"
)

// RankHandler handles channel ranking requests
type RankHandler struct {
	scenarioDir string
}

// NewRankHandler creates a new rank handler
func NewRankHandler(scenarioDir string) *RankHandler {
	return &RankHandler{scenarioDir: scenarioDir}
}

// RankChannels handles GET /api/v1/rank
func (h *RankHandler) RankChannels(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	sc, err := buildScenario(h.scenarioDir, req.ScenarioFile, config.ScenarioConfig{})
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_SCENARIO", err)
		return
	}

	spread, err := analysis.CrossChannelSpread(sc.ChannelA, sc.ChannelB)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_SCENARIO", err)
		return
	}

	c.JSON(http.StatusOK, models.RankResponse{
		Scenario: sc.Name,
		Rankings: analysis.RankByOracleProfit([]model.MarketChannel{sc.ChannelA, sc.ChannelB}),
		Spread:   spread,
	})
}
