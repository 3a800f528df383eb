package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"grid-arbitrage/internal/api/models"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/metrics"
	"grid-arbitrage/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	runs   *store.SQLiteStore
}

func newFixture(t *testing.T, rate float64, burst int) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hub_short.yaml"),
		[]byte("scenario:\n  name: hub short\n  preset: control_hub\n  params:\n    battery_hours: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	runs, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	rec := metrics.New()
	cfg := &config.Config{
		ScenarioDir: dir,
		Server: config.ServerConfig{
			Env:         "test",
			CORSOrigins: []string{"https://ui.example.com"},
			RateLimit:   rate,
			Burst:       burst,
		},
	}
	return &fixture{
		router: NewRouter(Deps{
			Config:  cfg,
			Engine:  arbitrage.New(arbitrage.WithRecorder(rec)),
			Runs:    runs,
			Metrics: rec,
		}),
		runs: runs,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListScenarios(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/api/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.ScenariosResponse](t, w)
	require.Len(t, resp.Presets, 2)
	assert.Equal(t, "single_bus", string(resp.Presets[0].Kind))
	assert.Equal(t, 13, resp.Presets[0].Snapshots)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "hub_short", resp.Files[0].ID)
	assert.Equal(t, "hub short", resp.Files[0].Name)
	assert.Equal(t, "control_hub", resp.Files[0].Preset)
}

func TestRunArbitrage_PersistsLedger(t *testing.T) {
	f := newFixture(t, 100, 100)

	w := f.do(t, http.MethodPost, "/api/v1/arbitrage", gin.H{
		"scenario": gin.H{"name": "reference", "preset": "single_bus"},
		"options":  gin.H{"include_ledger": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	run := decode[models.RunResponse](t, w)
	assert.Equal(t, "completed", run.Status)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "reference", run.Summary.Scenario)
	assert.Equal(t, 13, run.Summary.Periods)
	assert.Greater(t, run.Summary.TotalIncome, 0.0)
	require.Len(t, run.Ledger, 13)

	w = f.do(t, http.MethodGet, "/api/v1/arbitrage/"+run.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := decode[models.LedgerResponse](t, w)
	require.Len(t, ledger.Ledger, 13)
	assert.InDelta(t, run.Ledger[12].CumIncome, ledger.Ledger[12].CumIncome, 1e-9)

	w = f.do(t, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[models.RunsResponse](t, w)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, run.ID, runs.Runs[0].RunID)
}

func TestRunArbitrage_LedgerOmittedByDefault(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodPost, "/api/v1/arbitrage", gin.H{"scenario_file": "hub_short.yaml"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	run := decode[models.RunResponse](t, w)
	assert.Empty(t, run.Ledger)
	assert.Equal(t, "hub short", run.Summary.Scenario)
	assert.Equal(t, "control_hub", run.Summary.Kind)
}

func TestRunArbitrage_BadInput(t *testing.T) {
	f := newFixture(t, 100, 100)
	cases := map[string]any{
		"unknown preset": gin.H{"scenario": gin.H{"preset": "mesh"}},
		"path traversal": gin.H{"scenario_file": "../secrets.yaml"},
		"missing file":   gin.H{"scenario_file": "nope.yaml"},
		"short prices": gin.H{"scenario": gin.H{
			"preset": "single_bus",
			"params": gin.H{"epex_prices": []float64{1, 2}},
		}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/arbitrage", body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[models.ErrorResponse](t, w)
			assert.Equal(t, "INVALID_SCENARIO", resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/arbitrage", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestCompareArbitrage(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodPost, "/api/v1/arbitrage/compare", gin.H{
		"base": gin.H{"preset": "single_bus"},
		"variations": []gin.H{
			{"name": "one hour", "scenario": gin.H{"params": gin.H{"battery_hours": 1}}},
			{"name": "three hours", "scenario": gin.H{}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.CompareResponse](t, w)
	require.Len(t, resp.Comparison, 2)
	assert.Equal(t, 1, resp.Comparison[0].Rank)
	assert.Equal(t, 2, resp.Comparison[1].Rank)
	assert.GreaterOrEqual(t, resp.Comparison[0].TotalIncome, resp.Comparison[1].TotalIncome)
	assert.ElementsMatch(t, []string{"one hour", "three hours"},
		[]string{resp.Comparison[0].Scenario, resp.Comparison[1].Scenario})
}

func TestCompareArbitrage_RequiresVariations(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodPost, "/api/v1/arbitrage/compare", gin.H{"base": gin.H{"preset": "single_bus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankChannels(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/api/v1/rank", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.RankResponse](t, w)
	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, "intraday", resp.Rankings[0].Channel)
	assert.Equal(t, "epex", resp.Rankings[1].Channel)
	assert.Equal(t, "epex", resp.Spread.ChannelA)
	assert.Equal(t, 13, resp.Rankings[0].Count)

	w = f.do(t, http.MethodGet, "/api/v1/rank?scenario_file=hub_short.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hub short", decode[models.RankResponse](t, w).Scenario)

	w = f.do(t, http.MethodGet, "/api/v1/rank?scenario_file=missing.yaml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLedger_NotFound(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/api/v1/arbitrage/missing/ledger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestListRuns_BadLimit(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/api/v1/runs?limit=0", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/runs?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 0.001, 1)
	body := gin.H{"scenario": gin.H{"preset": "single_bus"}}

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/arbitrage", body).Code)
	w := f.do(t, http.MethodPost, "/api/v1/arbitrage", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode[models.ErrorResponse](t, w).Error.Code)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/runs", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, 100, 100)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/arbitrage", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 100, 100)
	f.do(t, http.MethodGet, "/health", nil)
	f.do(t, http.MethodPost, "/api/v1/arbitrage", gin.H{"scenario": gin.H{"name": "m", "preset": "single_bus"}})
	f.do(t, http.MethodPost, "/api/v1/arbitrage", gin.H{"scenario": gin.H{"name": "n", "preset": "single_bus"}})

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/health",status="200"} 1`)
	// Runs are labelled by preset kind, never by the request's name.
	assert.Contains(t, body, `arbitrage_runs_total{kind="single_bus",outcome="ok"} 2`)
	assert.NotContains(t, body, `scenario="m"`)
}

func TestNoRoute(t *testing.T) {
	f := newFixture(t, 100, 100)
	w := f.do(t, http.MethodGet, "/api/v2/anything", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[models.ErrorResponse](t, w).Error.Code)
}
