package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/engine"
	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
	"github.com/Achrafcosmo/arena-ai/internal/marketdata"
	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// ErrRunNotActive is returned by Stop when the run is unknown or has
// already finished.
var ErrRunNotActive = errors.New("run is not active")

const initializeTimeout = time.Minute

// Manager owns the lifecycle of simulation runs: it builds an
// orchestrator per run, drives it on a background goroutine and keeps a
// cancel handle until the run finishes. Reads (status, metrics) go to
// storage, so they work for finished runs too.
type Manager struct {
	store           *storage.Store
	feed            marketdata.Feed
	publisher       engine.EventPublisher
	creds           provider.Credentials
	decisionTimeout time.Duration
	logger          *zap.Logger

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(
	store *storage.Store,
	feed marketdata.Feed,
	publisher engine.EventPublisher,
	creds provider.Credentials,
	decisionTimeout time.Duration,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		store:           store,
		feed:            feed,
		publisher:       publisher,
		creds:           creds,
		decisionTimeout: decisionTimeout,
		logger:          logger,
		active:          make(map[string]*activeRun),
	}
}

// Start validates and initializes a new run, then drives it in the
// background. Returns the run id as soon as the first candle loop is
// scheduled; initialization errors (bad config, no candles) surface
// synchronously.
func (m *Manager) Start(cfg model.SimulationConfig, specs []model.ModelSpec) (string, error) {
	runID := newRunID()

	participants := make([]engine.Participant, 0, len(specs))
	for _, spec := range specs {
		participants = append(participants, engine.Participant{
			Spec:    spec,
			Backend: provider.New(spec, m.creds, m.logger),
		})
	}

	orch := engine.NewOrchestrator(runID, cfg, participants, m.feed, m.store, m.publisher, m.decisionTimeout, m.logger)

	initCtx, cancelInit := context.WithTimeout(context.Background(), initializeTimeout)
	defer cancelInit()
	if err := orch.Initialize(initCtx); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &activeRun{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.active[runID] = run
	m.mu.Unlock()
	infrastructure.ActiveRuns.Inc()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.active, runID)
			m.mu.Unlock()
			infrastructure.ActiveRuns.Dec()
			cancel()
			close(run.done)
		}()
		if err := orch.Run(runCtx); err != nil {
			m.logger.Error("run ended with error", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	return runID, nil
}

// Stop cancels a running simulation. The run drains its current candle
// and ends as completed with partial progress.
func (m *Manager) Stop(runID string) error {
	m.mu.Lock()
	run, ok := m.active[runID]
	m.mu.Unlock()
	if !ok {
		return ErrRunNotActive
	}
	run.cancel()
	return nil
}

// Wait blocks until the run's goroutine has exited. Test helper.
func (m *Manager) Wait(runID string) {
	m.mu.Lock()
	run, ok := m.active[runID]
	m.mu.Unlock()
	if ok {
		<-run.done
	}
}

// Status is a read-model of one run: the run record, ledgers ordered by
// equity (best first) and the latest log lines.
type Status struct {
	Run    *model.RunRecord
	States []*model.ModelState
	Logs   []*model.RunLog
}

func (m *Manager) Status(ctx context.Context, runID string) (*Status, error) {
	run, err := m.store.Runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	states, err := m.store.States.GetStates(ctx, runID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Equity.GreaterThan(states[j].Equity)
	})
	logs, err := m.store.Logs.RecentLogs(ctx, runID, 20)
	if err != nil {
		return nil, err
	}
	return &Status{Run: run, States: states, Logs: logs}, nil
}

// Metrics computes the ranked performance report for every model in a
// run, plus the portfolio aggregate. Pure recomputation over stored
// history: calling it twice yields identical results.
func (m *Manager) Metrics(ctx context.Context, runID string) ([]model.PerformanceMetrics, model.PortfolioMetrics, error) {
	run, err := m.store.Runs.GetRun(ctx, runID)
	if err != nil {
		return nil, model.PortfolioMetrics{}, err
	}
	states, err := m.store.States.GetStates(ctx, runID)
	if err != nil {
		return nil, model.PortfolioMetrics{}, err
	}

	periods := engine.PeriodsPerYear(run.Config.Timeframe)
	reports := make([]model.PerformanceMetrics, 0, len(states))
	for _, state := range states {
		snaps, err := m.store.Snapshots.GetSnapshots(ctx, runID, state.ModelID)
		if err != nil {
			return nil, model.PortfolioMetrics{}, err
		}
		trades, err := m.store.Trades.GetTrades(ctx, runID, state.ModelID)
		if err != nil {
			return nil, model.PortfolioMetrics{}, err
		}
		reports = append(reports, engine.CalculateMetrics(state, snaps, trades, run.Config.InitialBalance, periods))
	}

	ranked := engine.RankLeaderboard(reports)
	return ranked, engine.PortfolioMetrics(ranked), nil
}

func newRunID() string {
	return fmt.Sprintf("run-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}
