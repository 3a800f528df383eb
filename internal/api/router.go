// Package api wires the HTTP routes of the arbitrage service.
package api

import (
	"net/http"

	"grid-arbitrage/internal/api/handlers"
	"grid-arbitrage/internal/api/middleware"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the router needs. Runs and Metrics may be nil.
type Deps struct {
	Config  *config.Config
	Engine  *arbitrage.Engine
	Runs    handlers.RunStore
	Metrics *metrics.Recorder
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(d.Config.Server.CORSOrigins))
	router.Use(middleware.Logger())
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	arbitrageHandler := handlers.NewArbitrageHandler(d.Engine, d.Runs, d.Config.ScenarioDir)
	scenarioHandler := handlers.NewScenarioHandler(d.Config.ScenarioDir)
	rankHandler := handlers.NewRankHandler(d.Config.ScenarioDir)
	limiter := middleware.NewRateLimiter(d.Config.Server.RateLimit, d.Config.Server.Burst)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/scenarios", scenarioHandler.ListScenarios)
		v1.GET("/rank", rankHandler.RankChannels)
		v1.GET("/runs", arbitrageHandler.ListRuns)
		v1.GET("/arbitrage/:id/ledger", arbitrageHandler.GetLedger)

		// Solves are the expensive calls.
		solve := v1.Group("", limiter.Handler())
		solve.POST("/arbitrage", arbitrageHandler.RunArbitrage)
		solve.POST("/arbitrage/compare", arbitrageHandler.CompareArbitrage)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Not found",
			},
		})
	})
	return router
}
