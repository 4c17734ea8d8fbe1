package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
	"github.com/Achrafcosmo/arena-ai/internal/marketdata"
	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

const (
	defaultCandleLimit = 1000
	candleWindow       = 200
	progressLogEvery   = 50
)

// EventPublisher receives run events as they happen. Implementations must
// not block the candle loop; publishing failures are not run failures.
type EventPublisher interface {
	PublishTrade(runID string, trade *model.TradeRecord)
	PublishSnapshot(runID string, snap *model.EquitySnapshot)
	PublishStatus(runID string, run *model.RunRecord)
}

// NopPublisher discards all events. Used when no message bus is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTrade(string, *model.TradeRecord)       {}
func (NopPublisher) PublishSnapshot(string, *model.EquitySnapshot) {}
func (NopPublisher) PublishStatus(string, *model.RunRecord)        {}

// Participant binds a registered model to its decision backend.
type Participant struct {
	Spec    model.ModelSpec
	Backend provider.DecisionProvider
}

// Orchestrator drives one simulation run end to end: fetch candles once,
// replay them, fan decision calls out per model, apply executions, persist
// every mutation. One orchestrator per run; it is not reused.
type Orchestrator struct {
	runID           string
	cfg             model.SimulationConfig
	participants    []Participant
	feed            marketdata.Feed
	store           *storage.Store
	publisher       EventPublisher
	logger          *zap.Logger
	decisionTimeout time.Duration

	executor *TradeExecutor
	risk     *RiskEngine

	run     *model.RunRecord
	candles []model.Candle
	states  map[string]*model.ModelState
}

func NewOrchestrator(
	runID string,
	cfg model.SimulationConfig,
	participants []Participant,
	feed marketdata.Feed,
	store *storage.Store,
	publisher EventPublisher,
	decisionTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Orchestrator{
		runID:           runID,
		cfg:             cfg,
		participants:    participants,
		feed:            feed,
		store:           store,
		publisher:       publisher,
		logger:          logger.With(zap.String("run_id", runID)),
		decisionTimeout: decisionTimeout,
		executor:        NewTradeExecutor(cfg),
		risk:            NewRiskEngine(cfg),
		states:          make(map[string]*model.ModelState),
	}
}

// Initialize validates the config, loads the candle series and persists
// the run in running state. Must be called exactly once before Run.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	if len(o.participants) == 0 {
		return model.ErrInvalidConfig("at least one model is required")
	}

	limit := o.cfg.CandleLimit
	if limit <= 0 {
		limit = defaultCandleLimit
	}

	candles, err := o.feed.Candles(ctx, o.cfg.Market, o.cfg.Timeframe, limit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles available for %s %s", o.cfg.Market, o.cfg.Timeframe)
	}
	o.candles = candles

	now := time.Now().UTC()
	o.run = &model.RunRecord{
		ID:           o.runID,
		Config:       o.cfg,
		Status:       model.RunRunning,
		TotalCandles: len(candles),
		CreatedAt:    now,
		StartedAt:    &now,
	}
	if err := o.store.Runs.CreateRun(ctx, o.run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	// Past this point a run record exists; any error must not strand it
	// in running status.
	for _, p := range o.participants {
		state := model.NewModelState(p.Spec.ID, o.cfg.InitialBalance)
		o.states[p.Spec.ID] = state
		if err := o.store.States.UpsertState(ctx, o.runID, state); err != nil {
			return o.fail(ctx, fmt.Errorf("init state %s: %w", p.Spec.ID, err))
		}
	}

	o.logger.Info("run initialized",
		zap.String("market", o.cfg.Market),
		zap.String("timeframe", o.cfg.Timeframe),
		zap.Int("candles", len(candles)),
		zap.Int("models", len(o.participants)),
	)
	o.appendLog(ctx, "", "info", fmt.Sprintf("run started: %d candles, %d models", len(candles), len(o.participants)))
	o.publisher.PublishStatus(o.runID, o.run)
	return nil
}

// Run replays the candle series to completion. Cancellation between
// candles ends the run as completed with partial progress; a storage
// failure ends it as failed. Publishing and provider failures never
// fail a run.
func (o *Orchestrator) Run(ctx context.Context) error {
	persistCtx := context.Background()

	for i := range o.candles {
		if ctx.Err() != nil {
			o.appendLog(persistCtx, "", "info", fmt.Sprintf("run stopped at candle %d/%d", i, len(o.candles)))
			return o.complete(persistCtx)
		}

		if err := o.processCandle(ctx, i); err != nil {
			return o.fail(persistCtx, err)
		}

		o.run.CurrentCandleIndex = i + 1
		if err := o.store.Runs.UpdateRun(persistCtx, o.run); err != nil {
			return o.fail(persistCtx, fmt.Errorf("update run progress: %w", err))
		}
		o.publisher.PublishStatus(o.runID, o.run)
		infrastructure.CandlesProcessed.Inc()

		if (i+1)%progressLogEvery == 0 {
			o.logger.Info("run progress",
				zap.Int("candle", i+1),
				zap.Int("total", len(o.candles)),
			)
			o.appendLog(persistCtx, "", "info", fmt.Sprintf("progress: %d/%d candles", i+1, len(o.candles)))
		}
	}

	return o.complete(persistCtx)
}

type decisionResult struct {
	modelID  string
	decision model.TradeDecision
}

// processCandle fans the decision calls out concurrently, then applies
// them to the ledgers one model at a time. Execution order over models is
// the registration order, so replays are deterministic given the same
// decisions.
func (o *Orchestrator) processCandle(ctx context.Context, idx int) error {
	// Stop is observed at candle boundaries only. In-flight decision calls
	// finish under their own timeout, so a stopped run never records a
	// half-candle of synthetic HOLDs.
	decideCtx := context.WithoutCancel(ctx)

	candle := o.candles[idx]
	windowStart := idx + 1 - candleWindow
	if windowStart < 0 {
		windowStart = 0
	}
	window := o.candles[windowStart : idx+1]

	decisions := make(map[string]model.TradeDecision, len(o.participants))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range o.participants {
		wg.Add(1)
		go func(p Participant) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("provider panicked",
						zap.String("model_id", p.Spec.ID),
						zap.Any("panic", r),
					)
					mu.Lock()
					decisions[p.Spec.ID] = model.TradeDecision{
						Action:   model.ActionHold,
						Leverage: 1,
						Reason:   fmt.Sprintf("provider panic: %v", r),
					}
					mu.Unlock()
				}
			}()

			req := provider.Request{
				CurrentPrice: candle.Close,
				Candles:      window,
				Account:      o.states[p.Spec.ID],
				Config:       o.cfg,
			}
			d := provider.Decide(decideCtx, p.Backend, req, o.decisionTimeout, o.logger)
			mu.Lock()
			decisions[p.Spec.ID] = d
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	persistCtx := context.Background()
	for _, p := range o.participants {
		state := o.states[p.Spec.ID]
		decision := decisions[p.Spec.ID]

		legs := o.executor.Execute(state, decision, candle)
		if liq := o.risk.Evaluate(state, candle.Close); liq != nil {
			legs = append(legs, *liq)
			infrastructure.Liquidations.Inc()
			o.appendLog(persistCtx, p.Spec.ID, "warn", fmt.Sprintf("liquidated at candle %d, equity %s", idx, state.Equity.StringFixed(2)))
		}

		for _, leg := range legs {
			trade := &model.TradeRecord{
				RunID:       o.runID,
				ModelID:     p.Spec.ID,
				CandleIndex: idx,
				Action:      leg.Action,
				Leverage:    leg.Leverage,
				SizePct:     leg.SizePct,
				Price:       leg.Price,
				Fee:         leg.Fee,
				PnL:         leg.PnL,
				Reason:      leg.Reason,
				CreatedAt:   time.Now().UTC(),
			}
			if err := o.store.Trades.AppendTrade(persistCtx, trade); err != nil {
				return fmt.Errorf("append trade %s: %w", p.Spec.ID, err)
			}
			infrastructure.TradesExecuted.WithLabelValues(string(leg.Action)).Inc()
			o.publisher.PublishTrade(o.runID, trade)
		}

		snap := &model.EquitySnapshot{
			RunID:         o.runID,
			ModelID:       p.Spec.ID,
			CandleIndex:   idx,
			Equity:        state.Equity,
			Balance:       state.Balance,
			UnrealizedPnL: state.UnrealizedPnL,
		}
		if err := o.store.Snapshots.AppendSnapshot(persistCtx, snap); err != nil {
			return fmt.Errorf("append snapshot %s: %w", p.Spec.ID, err)
		}
		o.publisher.PublishSnapshot(o.runID, snap)

		if err := o.store.States.UpsertState(persistCtx, o.runID, state); err != nil {
			return fmt.Errorf("upsert state %s: %w", p.Spec.ID, err)
		}
	}

	return nil
}

func (o *Orchestrator) complete(ctx context.Context) error {
	now := time.Now().UTC()
	o.run.Status = model.RunCompleted
	o.run.CompletedAt = &now
	if err := o.store.Runs.UpdateRun(ctx, o.run); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	o.publisher.PublishStatus(o.runID, o.run)
	o.logger.Info("run completed",
		zap.Int("candles", o.run.CurrentCandleIndex),
		zap.Int("total", o.run.TotalCandles),
	)
	o.appendLog(ctx, "", "info", "run completed")
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, cause error) error {
	now := time.Now().UTC()
	o.run.Status = model.RunFailed
	o.run.CompletedAt = &now
	if err := o.store.Runs.UpdateRun(ctx, o.run); err != nil {
		o.logger.Error("failed to mark run failed", zap.Error(err))
	}
	o.publisher.PublishStatus(o.runID, o.run)
	o.logger.Error("run failed", zap.Error(cause))
	o.appendLog(ctx, "", "error", "run failed: "+cause.Error())
	return cause
}

// appendLog best-effort persists a run log line.
func (o *Orchestrator) appendLog(ctx context.Context, modelID, level, msg string) {
	log := &model.RunLog{
		RunID:     o.runID,
		ModelID:   modelID,
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.Logs.AppendLog(ctx, log); err != nil {
		o.logger.Warn("append log failed", zap.Error(err))
	}
}
