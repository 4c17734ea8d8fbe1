package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// BinanceFeed fetches spot klines from the Binance public REST API.
// Fetch failures degrade to a synthetic sequence so a run never fails on
// market data availability.
type BinanceFeed struct {
	logger  *zap.Logger
	client  *http.Client
	cache   *Cache
	baseURL string
}

func NewBinanceFeed(logger *zap.Logger, cache *Cache) *BinanceFeed {
	return &BinanceFeed{
		logger:  logger,
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   cache,
		baseURL: "https://api.binance.com",
	}
}

func (f *BinanceFeed) Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	if candles, ok := f.cache.Get(market, timeframe, limit); ok {
		return candles, nil
	}

	candles, err := f.fetch(ctx, market, timeframe, limit)
	if err != nil {
		f.logger.Warn("kline fetch failed, using synthetic candles",
			zap.String("market", market),
			zap.String("timeframe", timeframe),
			zap.Error(err),
		)
		candles = GenerateCandles(limit, time.Hour)
	}

	f.cache.Set(market, timeframe, limit, candles)
	return candles, nil
}

func (f *BinanceFeed) fetch(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		f.baseURL, ConvertSymbol(market), ConvertTimeframe(timeframe), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Arena-AI/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance klines: status %d", resp.StatusCode)
	}

	// Binance kline rows are mixed arrays:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal(row[0], &c.Timestamp); err != nil {
			continue
		}
		fields := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		ok := true
		for i, field := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				ok = false
				break
			}
			value, err := decimal.NewFromString(s)
			if err != nil {
				ok = false
				break
			}
			*field = value
		}
		if ok {
			candles = append(candles, c)
		}
	}

	f.logger.Info("fetched candles",
		zap.String("market", market),
		zap.String("timeframe", timeframe),
		zap.Int("count", len(candles)),
	)
	return candles, nil
}
