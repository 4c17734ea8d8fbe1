package provider

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// Request carries everything a backend sees for one decision: the candle
// window ending at the current candle, the model's own account state, and
// the competition config. All of it is read-only.
type Request struct {
	CurrentPrice decimal.Decimal
	Candles      []model.Candle
	Account      *model.ModelState
	Config       model.SimulationConfig
}

// DecisionProvider is the pluggable decision backend. Implementations may
// fail; Decide (the package-level resolver) guarantees the orchestrator
// only ever sees a sanitized decision.
type DecisionProvider interface {
	Name() string
	Decide(ctx context.Context, req Request) (model.TradeDecision, error)
}

// Decide calls the backend with a timeout and resolves every failure mode
// to a sanitized HOLD. This is the only entry point the engine uses.
func Decide(ctx context.Context, p DecisionProvider, req Request, timeout time.Duration, logger *zap.Logger) model.TradeDecision {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	decision, err := p.Decide(ctx, req)
	infrastructure.DecisionLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := "error"
		if ctx.Err() == context.DeadlineExceeded {
			kind = "timeout"
		}
		infrastructure.ProviderErrors.WithLabelValues(p.Name(), kind).Inc()
		logger.Warn("provider call degraded to HOLD",
			zap.String("provider", p.Name()),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return holdDecision("provider " + kind + ": " + err.Error())
	}

	return Sanitize(decision, req.Config)
}

func holdDecision(reason string) model.TradeDecision {
	return model.TradeDecision{
		Action:   model.ActionHold,
		Leverage: 1,
		SizePct:  decimal.Zero,
		Reason:   truncate(reason, maxReasonLen),
	}
}

const maxReasonLen = 500

// Sanitize clamps a raw decision into the ranges the engine assumes.
// Out-of-range values are not errors; they are silently corrected.
func Sanitize(d model.TradeDecision, cfg model.SimulationConfig) model.TradeDecision {
	switch d.Action {
	case model.ActionLong, model.ActionShort, model.ActionClose, model.ActionHold:
	default:
		d.Action = model.ActionHold
	}

	if d.Leverage < 1 {
		d.Leverage = 1
	}
	if d.Leverage > cfg.MaxLeverage {
		d.Leverage = cfg.MaxLeverage
	}

	if d.SizePct.IsNegative() {
		d.SizePct = decimal.Zero
	}
	one := decimal.NewFromInt(1)
	if d.SizePct.GreaterThan(one) {
		d.SizePct = one
	}

	if d.Reason == "" {
		d.Reason = "No reason provided"
	}
	d.Reason = truncate(d.Reason, maxReasonLen)
	return d
}

// truncate cuts s to at most n bytes without splitting a rune; the reason
// string has to stay valid UTF-8 for the TEXT column it lands in.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
