package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nexuswealth/mcu/internal/application/dispatcher"
	"github.com/nexuswealth/mcu/internal/application/ledger"
	"github.com/nexuswealth/mcu/internal/application/registry"
	"github.com/nexuswealth/mcu/internal/application/riskgate"
	"github.com/nexuswealth/mcu/internal/config"
	"github.com/nexuswealth/mcu/pkg/adapters/agents"
	"github.com/nexuswealth/mcu/pkg/adapters/broker"
	memorybus "github.com/nexuswealth/mcu/pkg/adapters/events/memory"
	redisbus "github.com/nexuswealth/mcu/pkg/adapters/events/redis"
	"github.com/nexuswealth/mcu/pkg/adapters/marketdata"
	"github.com/nexuswealth/mcu/pkg/adapters/metrics/prometheus"
	searchmemory "github.com/nexuswealth/mcu/pkg/adapters/search/memory"
	memorystorage "github.com/nexuswealth/mcu/pkg/adapters/storage/memory"
	redisstorage "github.com/nexuswealth/mcu/pkg/adapters/storage/redis"
	"github.com/nexuswealth/mcu/pkg/api/http"
	"github.com/nexuswealth/mcu/pkg/api/websocket"
	"github.com/nexuswealth/mcu/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting mission control",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage_backend", cfg.StorageBackend))

	metricsCollector := prometheus.NewCollector()

	// Storage and event bus per configured backend
	var (
		jobStore    ports.JobStore
		ledgerStore ports.LedgerStore
		feed        ports.DecisionLog
		eventBus    ports.EventBus
		tickWriter  ports.TickWriter
		redisClient *goredis.Client
	)

	switch cfg.StorageBackend {
	case "redis":
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		store := redisstorage.NewStore(redisClient, cfg.Redis.JobTTL, logger)
		jobStore, ledgerStore, feed = store, store, store
		eventBus = redisbus.NewStreamsEventBus(
			redisClient,
			"mcu-core",
			fmt.Sprintf("mcu-%d", os.Getpid()),
			logger,
		)
		tickWriter = marketdata.NewRedisTickWriter(redisClient)

	default:
		store := memorystorage.NewStore()
		jobStore, ledgerStore, feed = store, store, store
		eventBus = memorybus.NewBus()
	}

	// Market data
	quotes := marketdata.NewStaticQuotes()
	seedInstruments(quotes)
	feeder := marketdata.NewFeeder(quotes, tickWriter, cfg.MarketData.TickInterval, logger)
	feeder.Start()

	// Application components
	agentRegistry := registry.New(logger, metricsCollector)
	gate := riskgate.New(quotes)
	portfolioLedger := ledger.New(ledgerStore, quotes, quotes, metricsCollector, logger)

	clock := ports.SystemClock()
	core := dispatcher.New(
		dispatcher.Config{
			MaxAttempts:              cfg.Dispatch.MaxAttempts,
			RetryBaseDelay:           cfg.Dispatch.RetryBaseDelay,
			RetryMaxDelay:            cfg.Dispatch.RetryMaxDelay,
			AgentJobDeadline:         cfg.Dispatch.AgentJobDeadline,
			DefaultMaxSingleTradePct: cfg.MaxSingleTradePct(),
		},
		agentRegistry,
		gate,
		portfolioLedger,
		jobStore,
		eventBus,
		feed,
		metricsCollector,
		logger,
		clock,
	)
	core.Start()

	// Built-in agents
	brokerage := broker.NewSimulator(quotes, logger)
	builtins := []ports.Agent{
		agents.NewEquityAgent("equity-1", cfg.Agents.EquityConcurrency, brokerage, logger),
		agents.NewCryptoAgent("crypto-1", cfg.Agents.CryptoConcurrency, brokerage, logger),
		agents.NewAuditAgent("risk-1", cfg.Agents.RiskConcurrency, ledgerStore, quotes, core.Constraints, logger),
		agents.NewCashAgent("cash-1", cfg.Agents.CashConcurrency, logger),
	}
	for _, agent := range builtins {
		if err := agentRegistry.Register(agent); err != nil {
			logger.Fatal("failed to register agent",
				zap.String("agent_id", agent.ID()),
				zap.Error(err))
		}
	}

	healthMonitor := registry.NewHealthMonitor(agentRegistry, cfg.Agents.HealthCheckInterval, logger)
	healthMonitor.Start()

	// Retrieval provider
	searchIndex := searchmemory.NewIndex()

	// API servers
	httpServer := http.NewServer(&http.Config{
		Port:       cfg.HTTPPort,
		Dispatcher: core,
		Ledger:     portfolioLedger,
		Registry:   agentRegistry,
		Feed:       feed,
		Search:     searchIndex,
		Logger:     logger,
	})

	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("mission control started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("agents", len(builtins)))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := core.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown error", zap.Error(err))
	}

	healthMonitor.Stop()
	feeder.Stop()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("mission control shut down complete")
}

// seedInstruments loads the default tradable universe.
func seedInstruments(quotes *marketdata.StaticQuotes) {
	seed := []struct {
		info  ports.InstrumentInfo
		price float64
	}{
		{ports.InstrumentInfo{Symbol: "AAPL", Name: "Apple Inc.", Category: "Equities"}, 232.50},
		{ports.InstrumentInfo{Symbol: "MSFT", Name: "Microsoft Corp.", Category: "Equities"}, 418.20},
		{ports.InstrumentInfo{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Category: "ETFs"}, 278.35},
		{ports.InstrumentInfo{Symbol: "BND", Name: "Vanguard Total Bond Market ETF", Category: "Bonds"}, 73.10},
		{ports.InstrumentInfo{Symbol: "BTC", Name: "Bitcoin", Category: "Crypto"}, 64250.00},
		{ports.InstrumentInfo{Symbol: "ETH", Name: "Ethereum", Category: "Crypto"}, 3180.00},
	}
	for _, s := range seed {
		quotes.AddInstrument(s.info, decimal.NewFromFloat(s.price))
	}
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
