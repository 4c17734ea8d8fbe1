package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/runner"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

type Handler struct {
	manager *runner.Manager
	store   *storage.Store
	logger  *zap.Logger
}

func NewHandler(manager *runner.Manager, store *storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		store:   store,
		logger:  logger,
	}
}

// Run Handlers

func (h *Handler) StartRun(c *gin.Context) {
	var req struct {
		Config model.SimulationConfig `json:"config" binding:"required"`
		Models []model.ModelSpec      `json:"models" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.manager.Start(req.Config, req.Models)
	if err != nil {
		var invalid model.ErrInvalidConfig
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to start run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"run_id": runID, "status": "running"})
}

func (h *Handler) StopRun(c *gin.Context) {
	runID := c.Param("id")

	if err := h.manager.Stop(runID); err != nil {
		if errors.Is(err, runner.ErrRunNotActive) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run is not active"})
			return
		}
		h.logger.Error("failed to stop run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "status": "stopping"})
}

func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("id")

	status, err := h.manager.Status(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		h.logger.Error("failed to fetch run status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	run := status.Run
	progress := 0.0
	if run.TotalCandles > 0 {
		progress = math.Round(float64(run.CurrentCandleIndex)/float64(run.TotalCandles)*1000) / 10
	}

	var duration *int64
	if run.StartedAt != nil {
		end := time.Now()
		if run.CompletedAt != nil {
			end = *run.CompletedAt
		}
		secs := int64(end.Sub(*run.StartedAt).Seconds())
		duration = &secs
	}

	leaderboard := make([]gin.H, 0, len(status.States))
	initial := run.Config.InitialBalance
	for i, state := range status.States {
		winRate := 0.0
		if state.TotalTrades > 0 {
			winRate = math.Round(float64(state.WinningTrades)/float64(state.TotalTrades)*1000) / 10
		}
		totalReturn := 0.0
		if initial.IsPositive() {
			totalReturn = state.Equity.Div(initial).InexactFloat64()*100 - 100
			totalReturn = math.Round(totalReturn*100) / 100
		}
		leaderboard = append(leaderboard, gin.H{
			"rank":           i + 1,
			"model_id":       state.ModelID,
			"equity":         state.Equity.Round(2),
			"balance":        state.Balance.Round(2),
			"unrealized_pnl": state.UnrealizedPnL.Round(2),
			"realized_pnl":   state.RealizedPnL.Round(2),
			"total_return":   totalReturn,
			"position":       state.PositionSide,
			"leverage":       state.PositionLeverage,
			"total_trades":   state.TotalTrades,
			"win_rate":       winRate,
			"max_drawdown":   math.Round(state.MaxDrawdown.InexactFloat64()*10000) / 100,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"run":          run,
		"progress":     progress,
		"duration":     duration,
		"model_states": status.States,
		"leaderboard":  leaderboard,
		"logs":         status.Logs,
	})
}

func (h *Handler) GetMetrics(c *gin.Context) {
	runID := c.Param("id")

	reports, portfolio, err := h.manager.Metrics(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		h.logger.Error("failed to compute metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    runID,
		"models":    reports,
		"portfolio": portfolio,
	})
}

func (h *Handler) ListActiveRuns(c *gin.Context) {
	runs, err := h.store.Runs.ListActiveRuns(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list active runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		progress := 0.0
		if run.TotalCandles > 0 {
			progress = math.Round(float64(run.CurrentCandleIndex)/float64(run.TotalCandles)*1000) / 10
		}
		out = append(out, gin.H{
			"run":      run,
			"progress": progress,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"active_runs": out,
		"total":       len(out),
	})
}
