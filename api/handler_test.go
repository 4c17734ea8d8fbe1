package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/runner"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
	"github.com/Achrafcosmo/arena-ai/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type stubFeed struct{}

func (stubFeed) Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	candles := make([]model.Candle, limit)
	for i := range candles {
		c := decimal.NewFromInt(100 + int64(i))
		candles[i] = model.Candle{Timestamp: int64(i) * 3600000, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)}
	}
	return candles, nil
}

func newTestRouter() (*gin.Engine, *runner.Manager, *storage.Store) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	manager := runner.NewManager(store, stubFeed{}, nil, provider.Credentials{}, time.Second, zap.NewNop())
	h := NewHandler(manager, store, zap.NewNop())

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/runs", h.StartRun)
	v1.GET("/runs", h.ListActiveRuns)
	v1.GET("/runs/:id", h.GetRun)
	v1.POST("/runs/:id/stop", h.StopRun)
	v1.GET("/runs/:id/metrics", h.GetMetrics)
	return r, manager, store
}

const startBody = `{
	"config": {
		"market": "BTC",
		"timeframe": "1h",
		"initial_balance": "10000",
		"max_leverage": 5,
		"fee_rate": "0.001",
		"slippage_rate": "0.0005",
		"liquidation_threshold": "0.5",
		"candle_limit": 20
	},
	"models": [
		{"id": "ma-bot", "display_name": "MA Cross", "provider": "technical"}
	]
}`

func TestHandler_StartStatusMetrics(t *testing.T) {
	r, manager, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(startBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		RunID string `json:"run_id"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.RunID)

	manager.Wait(created.RunID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+created.RunID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Progress    float64 `json:"progress"`
		Leaderboard []struct {
			Rank    int    `json:"rank"`
			ModelID string `json:"model_id"`
		} `json:"leaderboard"`
		Run struct {
			Status string `json:"status"`
		} `json:"run"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "completed", status.Run.Status)
	assert.Equal(t, 100.0, status.Progress)
	assert.Len(t, status.Leaderboard, 1)
	assert.Equal(t, 1, status.Leaderboard[0].Rank)
	assert.Equal(t, "ma-bot", status.Leaderboard[0].ModelID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+created.RunID+"/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var metrics struct {
		Models []struct {
			ModelID string `json:"model_id"`
			Grade   string `json:"grade"`
		} `json:"models"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Len(t, metrics.Models, 1)
	assert.NotEmpty(t, metrics.Models[0].Grade)
}

func TestHandler_StartValidation(t *testing.T) {
	r, _, _ := newTestRouter()

	// empty model list fails binding
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"config": {}, "models": []}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad config fails engine validation
	w = httptest.NewRecorder()
	body := strings.Replace(startBody, `"max_leverage": 5`, `"max_leverage": 0`, 1)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UnknownRun(t *testing.T) {
	r, _, _ := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/runs/nope/stop", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
