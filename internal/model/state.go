package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action 模型每根K线给出的交易指令
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionClose Action = "CLOSE"
	ActionHold  Action = "HOLD"
)

// ActionLiquidation only appears in trade records, never in decisions.
const ActionLiquidation Action = "LIQUIDATION"

// Side is the side of the currently held position.
type Side string

const (
	SideNone  Side = "none"
	SideLong  Side = "long"
	SideShort Side = "short"
)

// TradeDecision is a sanitized decision produced per (model, candle).
type TradeDecision struct {
	Action   Action          `json:"action"`
	Leverage int             `json:"leverage"`
	SizePct  decimal.Decimal `json:"size_pct"`
	Reason   string          `json:"reason"`
}

// ModelState 每个 (run, model) 的私有账本
//
// Invariants maintained by the engine:
//   - Equity == Balance + UnrealizedPnL after every update
//   - PositionSide == none implies PositionSize == 0 and PositionEntryPrice == nil
//   - MaxDrawdown is non-decreasing within a run
type ModelState struct {
	ModelID            string           `json:"model_id" db:"model_id"`
	Balance            decimal.Decimal  `json:"balance" db:"balance"`
	Equity             decimal.Decimal  `json:"equity" db:"equity"`
	PositionSide       Side             `json:"position_side" db:"position_side"`
	PositionSize       decimal.Decimal  `json:"position_size" db:"position_size"` // signed, sign = side
	PositionEntryPrice *decimal.Decimal `json:"position_entry_price,omitempty" db:"position_entry_price"`
	PositionLeverage   int              `json:"position_leverage" db:"position_leverage"`
	UnrealizedPnL      decimal.Decimal  `json:"unrealized_pnl" db:"unrealized_pnl"`
	RealizedPnL        decimal.Decimal  `json:"realized_pnl" db:"realized_pnl"`
	TotalTrades        int              `json:"total_trades" db:"total_trades"`
	WinningTrades      int              `json:"winning_trades" db:"winning_trades"`
	PeakEquity         decimal.Decimal  `json:"peak_equity" db:"peak_equity"`
	MaxDrawdown        decimal.Decimal  `json:"max_drawdown" db:"max_drawdown"` // fraction in [0,1]
}

// NewModelState returns the initial ledger for a model entering a run.
func NewModelState(modelID string, initialBalance decimal.Decimal) *ModelState {
	return &ModelState{
		ModelID:          modelID,
		Balance:          initialBalance,
		Equity:           initialBalance,
		PositionSide:     SideNone,
		PositionSize:     decimal.Zero,
		PositionLeverage: 1,
		UnrealizedPnL:    decimal.Zero,
		RealizedPnL:      decimal.Zero,
		PeakEquity:       initialBalance,
		MaxDrawdown:      decimal.Zero,
	}
}

// TradeRecord is an append-only audit log entry, one per executed leg.
type TradeRecord struct {
	RunID       string           `json:"run_id" db:"run_id"`
	ModelID     string           `json:"model_id" db:"model_id"`
	CandleIndex int              `json:"candle_index" db:"candle_index"`
	Action      Action           `json:"action" db:"action"`
	Leverage    int              `json:"leverage" db:"leverage"`
	SizePct     decimal.Decimal  `json:"size_pct" db:"size_pct"`
	Price       decimal.Decimal  `json:"price" db:"price"` // fee/slippage adjusted execution price
	Fee         decimal.Decimal  `json:"fee" db:"fee"`
	PnL         *decimal.Decimal `json:"pnl,omitempty" db:"pnl"` // set only on realizing legs
	Reason      string           `json:"reason" db:"reason"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// EquitySnapshot is a write-once equity curve point, one per (model, candle).
type EquitySnapshot struct {
	RunID         string          `json:"run_id" db:"run_id"`
	ModelID       string          `json:"model_id" db:"model_id"`
	CandleIndex   int             `json:"candle_index" db:"candle_index"`
	Equity        decimal.Decimal `json:"equity" db:"equity"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl" db:"unrealized_pnl"`
}
