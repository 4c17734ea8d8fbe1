package model

import (
	"github.com/shopspring/decimal"
)

// Candle 代表一根OHLCV K线
type Candle struct {
	Timestamp int64           `json:"timestamp" db:"time"` // epoch milliseconds, open time
	Open      decimal.Decimal `json:"open" db:"open"`
	High      decimal.Decimal `json:"high" db:"high"`
	Low       decimal.Decimal `json:"low" db:"low"`
	Close     decimal.Decimal `json:"close" db:"close"`
	Volume    decimal.Decimal `json:"volume" db:"volume"`
}

// Tick 代表一笔实时成交, 用于行情推送
type Tick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Side      string          `json:"side"` // "buy" or "sell"
	Timestamp int64           `json:"ts"`
}
