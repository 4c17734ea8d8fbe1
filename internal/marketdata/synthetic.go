package marketdata

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// GenerateCandles produces a random-walk OHLCV sequence ending at the
// current time. Used as the fetch fallback and by the synthetic feed.
func GenerateCandles(limit int, interval time.Duration) []model.Candle {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return generateCandles(rng, limit, interval)
}

func generateCandles(rng *rand.Rand, limit int, interval time.Duration) []model.Candle {
	candles := make([]model.Candle, 0, limit)
	now := time.Now().UnixMilli()

	price := 50000 + rng.Float64()*20000

	for i := limit - 1; i >= 0; i-- {
		timestamp := now - int64(i)*interval.Milliseconds()

		volatility := 0.02
		trend := (rng.Float64() - 0.5) * 0.001
		change := (rng.Float64()-0.5)*volatility + trend

		open := price
		close := open * (1 + change)

		spread := math.Abs(change) + rng.Float64()*0.01
		high := math.Max(open, close) * (1 + spread/2)
		low := math.Min(open, close) * (1 - spread/2)

		volume := 100 + rng.Float64()*500

		candles = append(candles, model.Candle{
			Timestamp: timestamp,
			Open:      decimal.NewFromFloat(open).Round(2),
			High:      decimal.NewFromFloat(high).Round(2),
			Low:       decimal.NewFromFloat(low).Round(2),
			Close:     decimal.NewFromFloat(close).Round(2),
			Volume:    decimal.NewFromFloat(volume).Round(2),
		})

		price = close
	}
	return candles
}

// SyntheticFeed serves generated candles only. Used in tests and demo mode
// where no exchange connectivity is wanted.
type SyntheticFeed struct {
	rng *rand.Rand
}

func NewSyntheticFeed(seed int64) *SyntheticFeed {
	return &SyntheticFeed{rng: rand.New(rand.NewSource(seed))}
}

func (f *SyntheticFeed) Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	return generateCandles(f.rng, limit, time.Hour), nil
}
