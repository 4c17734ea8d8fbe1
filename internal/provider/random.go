package provider

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// RandomProvider is the safe default used when a model has no backend
// configured. Biased towards HOLD so an unconfigured arena stays tame.
// It is chosen at construction time only; a configured backend that is
// slow or broken degrades to HOLD, never to randomness.
type RandomProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomProvider(seed int64) *RandomProvider {
	return &RandomProvider{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomProvider) Name() string { return "random" }

var randomActions = []model.Action{model.ActionLong, model.ActionShort, model.ActionClose, model.ActionHold}
var randomWeights = []float64{0.2, 0.2, 0.1, 0.5} // Favor HOLD for safety

func (p *RandomProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	random := p.rng.Float64()
	action := model.ActionHold
	for i, w := range randomWeights {
		random -= w
		if random <= 0 {
			action = randomActions[i]
			break
		}
	}

	maxLev := req.Config.MaxLeverage
	if maxLev > 3 {
		maxLev = 3
	}

	return model.TradeDecision{
		Action:   action,
		Leverage: p.rng.Intn(maxLev) + 1,
		SizePct:  decimal.NewFromFloat(p.rng.Float64()*0.2 + 0.1), // 10-30% position size
		Reason:   "Simulated decision (no backend configured)",
	}, nil
}
