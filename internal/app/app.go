package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/api"
	"github.com/Achrafcosmo/arena-ai/internal/config"
	"github.com/Achrafcosmo/arena-ai/internal/engine"
	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
	"github.com/Achrafcosmo/arena-ai/internal/marketdata"
	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/push"
	"github.com/Achrafcosmo/arena-ai/internal/runner"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
	"github.com/Achrafcosmo/arena-ai/internal/storage/memory"
	"github.com/Achrafcosmo/arena-ai/internal/storage/postgres"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      *storage.Store
	DB         *postgres.Pool
	NC         *nats.Conn
	JS         nats.JetStreamContext
	Publisher  *push.Publisher
	Gateway    *push.Gateway
	Manager    *runner.Manager
	HTTPServer *http.Server

	cancelTickers context.CancelFunc
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Storage
	switch a.Config.Storage {
	case "postgres":
		pool, err := postgres.NewPool(ctx, a.Config.DB_DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = pool
		if err := a.initDatabase(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.Store = postgres.NewStore(pool)
	default:
		a.Store = memory.NewStore()
		a.Logger.Info("using in-memory storage")
	}

	// 2. NATS (optional: without a broker, events are simply dropped)
	var publisher engine.EventPublisher = engine.NopPublisher{}
	if a.Config.NatsURL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.NC = nc
		a.JS = js
		a.Publisher = push.NewPublisher(js, a.Logger)
		a.Gateway = push.NewGateway(js, a.Logger)
		publisher = a.Publisher
	}

	// 3. Market data + runner
	cache := marketdata.NewCache(a.Config.CandleCacheTTL)
	feed := marketdata.NewBinanceFeed(a.Logger, cache)

	creds := provider.Credentials{
		OpenAIAPIKey:    a.Config.OpenAIAPIKey,
		AnthropicAPIKey: a.Config.AnthropicAPIKey,
		GoogleAPIKey:    a.Config.GoogleAPIKey,
		XAIAPIKey:       a.Config.XAIAPIKey,
		DeepSeekAPIKey:  a.Config.DeepSeekAPIKey,
		OllamaURL:       a.Config.OllamaURL,
	}
	a.Manager = runner.NewManager(a.Store, feed, publisher, creds, a.Config.DecisionTimeout, a.Logger)

	return nil
}

// Run starts the application services and the HTTP server
func (a *App) Run(ctx context.Context) error {
	if a.Publisher != nil {
		a.startTickerWorkers(ctx)
	}

	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// startTickerWorkers streams live exchange trades onto the ticker
// subjects, one worker per configured symbol.
func (a *App) startTickerWorkers(ctx context.Context) {
	tickerCtx, cancel := context.WithCancel(ctx)
	a.cancelTickers = cancel

	for _, symbol := range a.Config.TickerSymbols {
		ticker := marketdata.NewTicker(a.Logger, symbol)
		tickChan := make(chan model.Tick, 256)

		go ticker.Run(tickerCtx, tickChan)
		go func(symbol string) {
			for {
				select {
				case <-tickerCtx.Done():
					return
				case tick := <-tickChan:
					a.Publisher.PublishTick(symbol, &tick)
				}
			}
		}(symbol)
	}
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	if a.cancelTickers != nil {
		a.cancelTickers()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	if _, err := a.DB.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Manager, a.Store, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/runs", apiHandler.StartRun)
		v1.GET("/runs", apiHandler.ListActiveRuns)
		v1.GET("/runs/:id", apiHandler.GetRun)
		v1.POST("/runs/:id/stop", apiHandler.StopRun)
		v1.GET("/runs/:id/metrics", apiHandler.GetMetrics)
	}

	if a.Gateway != nil {
		r.GET("/ws", func(c *gin.Context) {
			a.Gateway.ServeHTTP(c.Writer, c.Request)
		})
	}

	return r
}
