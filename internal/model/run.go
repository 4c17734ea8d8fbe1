package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus 运行状态机: pending -> running -> completed | failed
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SimulationConfig is the immutable per-run competition configuration.
type SimulationConfig struct {
	Market               string          `json:"market"`
	Timeframe            string          `json:"timeframe"`
	InitialBalance       decimal.Decimal `json:"initial_balance"`
	MaxLeverage          int             `json:"max_leverage"`
	FeeRate              decimal.Decimal `json:"fee_rate"`
	SlippageRate         decimal.Decimal `json:"slippage_rate"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	CandleLimit          int             `json:"candle_limit"`
}

// Validate checks the config against the ranges the engine assumes.
func (c SimulationConfig) Validate() error {
	if c.Market == "" {
		return ErrInvalidConfig("market is required")
	}
	if c.Timeframe == "" {
		return ErrInvalidConfig("timeframe is required")
	}
	if !c.InitialBalance.IsPositive() {
		return ErrInvalidConfig("initial_balance must be positive")
	}
	if c.MaxLeverage < 1 {
		return ErrInvalidConfig("max_leverage must be >= 1")
	}
	for _, rate := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"fee_rate", c.FeeRate},
		{"slippage_rate", c.SlippageRate},
		{"liquidation_threshold", c.LiquidationThreshold},
	} {
		if rate.value.IsNegative() || rate.value.GreaterThan(decimal.NewFromInt(1)) {
			return ErrInvalidConfig(rate.name + " must be in [0,1]")
		}
	}
	return nil
}

// ErrInvalidConfig marks a configuration rejected before a run starts.
type ErrInvalidConfig string

func (e ErrInvalidConfig) Error() string { return "invalid config: " + string(e) }

// ModelSpec 参赛模型的后端配置
type ModelSpec struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"` // "openai", "anthropic", "ollama", "technical", "" = random
	ModelID     string `json:"model_id"`
	BaseURL     string `json:"base_url,omitempty"`
}

// RunRecord is the persisted view of a simulation run.
type RunRecord struct {
	ID                 string           `json:"id" db:"id"`
	Config             SimulationConfig `json:"config" db:"config"`
	Status             RunStatus        `json:"status" db:"status"`
	CurrentCandleIndex int              `json:"current_candle_index" db:"current_candle_index"`
	TotalCandles       int              `json:"total_candles" db:"total_candles"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	StartedAt          *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// RunLog is a structured log line attached to a run.
type RunLog struct {
	RunID     string    `json:"run_id" db:"run_id"`
	ModelID   string    `json:"model_id,omitempty" db:"model_id"`
	Level     string    `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
