package model

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Grade 综合评级
type Grade string

// PerformanceMetrics 单模型的回测绩效报告
type PerformanceMetrics struct {
	ModelID         string          `json:"model_id"`
	TotalReturn     float64         `json:"total_return"`     // percentage
	TotalReturnUSD  decimal.Decimal `json:"total_return_usd"` // equity - initial balance
	SharpeRatio     float64         `json:"sharpe_ratio"`
	SortinoRatio    float64         `json:"sortino_ratio"`
	CalmarRatio     float64         `json:"calmar_ratio"`
	MaxDrawdown     float64         `json:"max_drawdown"` // percentage
	CurrentDrawdown float64         `json:"current_drawdown"`
	Volatility      float64         `json:"volatility"` // annualized, percentage
	WinRate         float64         `json:"win_rate"`   // percentage
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	AverageWin      float64         `json:"average_win"`
	AverageLoss     float64         `json:"average_loss"`
	ProfitFactor    float64         `json:"profit_factor"` // +Inf when wins and no losses
	FinalEquity     decimal.Decimal `json:"final_equity"`
	PeakEquity      decimal.Decimal `json:"peak_equity"`
	RiskScore       int             `json:"risk_score"` // 0 (low) .. 100 (high)
	Grade           Grade           `json:"grade"`
}

// MarshalJSON emits null for a non-finite profit factor, which the wire
// format otherwise cannot represent.
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	type alias PerformanceMetrics
	out := struct {
		alias
		ProfitFactor *float64 `json:"profit_factor"`
	}{alias: alias(m)}
	if !math.IsInf(m.ProfitFactor, 0) && !math.IsNaN(m.ProfitFactor) {
		out.ProfitFactor = &m.ProfitFactor
	}
	return json.Marshal(out)
}

// PortfolioMetrics 跨模型的组合统计
type PortfolioMetrics struct {
	AverageReturn          float64 `json:"average_return"`
	BestPerformer          float64 `json:"best_performer"`
	WorstPerformer         float64 `json:"worst_performer"`
	DiversificationBenefit float64 `json:"diversification_benefit"`
}
