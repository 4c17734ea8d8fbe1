package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// Ticker streams live trades for a symbol from the Binance websocket and
// feeds the dashboard ticker bar. Purely informational; runs never depend
// on it.
type Ticker struct {
	logger *zap.Logger
	symbol string
}

func NewTicker(logger *zap.Logger, symbol string) *Ticker {
	return &Ticker{
		logger: logger,
		symbol: symbol,
	}
}

// binanceTradeEvent represents the raw trade event from Binance WS
type binanceTradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

func (t *Ticker) Run(ctx context.Context, tickChan chan<- model.Tick) {
	url := fmt.Sprintf("wss://stream.binance.com:9443/ws/%s@trade", t.symbol)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t.logger.Info("connecting to ticker websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			t.logger.Error("failed to connect ticker", zap.Error(err))
			time.Sleep(backoff)
			backoff = t.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second // Reset backoff on successful connection
		t.logger.Info("ticker websocket connected", zap.String("symbol", t.symbol))
		infrastructure.WSConnections.Inc()

		if err := t.handleConnection(ctx, conn, tickChan); err != nil {
			t.logger.Error("ticker connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (t *Ticker) handleConnection(ctx context.Context, conn *websocket.Conn, tickChan chan<- model.Tick) error {
	// A read deadline refreshed on pong detects stale connections.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var event binanceTradeEvent
			if err := json.Unmarshal(message, &event); err != nil {
				t.logger.Error("failed to unmarshal trade event", zap.Error(err))
				continue
			}

			tick := t.convertToModel(event)
			select {
			case tickChan <- tick:
			default:
				// Do not block, just drop if channel is full
			}
		}
	}
}

func (t *Ticker) convertToModel(event binanceTradeEvent) model.Tick {
	price, _ := decimal.NewFromString(event.Price)
	amount, _ := decimal.NewFromString(event.Quantity)

	side := "buy"
	if event.IsBuyerMaker {
		side = "sell" // Maker is buyer means taker is seller
	}

	return model.Tick{
		Symbol:    event.Symbol,
		Price:     price,
		Amount:    amount,
		Side:      side,
		Timestamp: event.TradeTime,
	}
}

func (t *Ticker) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
