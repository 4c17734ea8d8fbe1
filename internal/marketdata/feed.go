package marketdata

import (
	"context"
	"strings"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// Feed supplies the ordered candle sequence a run is driven by.
// Index 0 is the earliest candle.
type Feed interface {
	Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error)
}

var symbolMapping = map[string]string{
	"BTC":   "BTCUSDT",
	"ETH":   "ETHUSDT",
	"SOL":   "SOLUSDT",
	"ADA":   "ADAUSDT",
	"DOT":   "DOTUSDT",
	"LINK":  "LINKUSDT",
	"UNI":   "UNIUSDT",
	"AVAX":  "AVAXUSDT",
	"MATIC": "MATICUSDT",
	"ATOM":  "ATOMUSDT",
}

var timeframeMapping = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "4h": "4h", "1d": "1d", "1w": "1w",
}

// ConvertSymbol maps a market name to the Binance spot symbol.
func ConvertSymbol(market string) string {
	if symbol, ok := symbolMapping[strings.ToUpper(market)]; ok {
		return symbol
	}
	return "BTCUSDT"
}

// ConvertTimeframe maps a timeframe to the Binance kline interval.
func ConvertTimeframe(timeframe string) string {
	if interval, ok := timeframeMapping[timeframe]; ok {
		return interval
	}
	return "1h"
}
