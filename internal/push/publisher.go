package push

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/engine"
	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// Publisher streams run events onto JetStream so the websocket gateway
// and any other consumer can replay them. Publishing is async and
// best-effort; a broker outage never stalls the candle loop.
type Publisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

var _ engine.EventPublisher = (*Publisher)(nil)

func NewPublisher(js nats.JetStreamContext, logger *zap.Logger) *Publisher {
	return &Publisher{js: js, logger: logger}
}

func (p *Publisher) PublishTrade(runID string, trade *model.TradeRecord) {
	p.publish(fmt.Sprintf("arena.run.%s.trade", runID), trade)
}

func (p *Publisher) PublishSnapshot(runID string, snap *model.EquitySnapshot) {
	p.publish(fmt.Sprintf("arena.run.%s.equity", runID), snap)
}

func (p *Publisher) PublishStatus(runID string, run *model.RunRecord) {
	p.publish(fmt.Sprintf("arena.run.%s.status", runID), run)
}

// PublishTick forwards a live exchange tick to the ticker stream.
func (p *Publisher) PublishTick(symbol string, tick *model.Tick) {
	p.publish("arena.ticker."+symbol, tick)
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
