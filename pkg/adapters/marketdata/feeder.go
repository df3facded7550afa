package marketdata

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// maxDriftPct bounds the per-interval random walk step.
const maxDriftPct = 0.5

// Feeder drives the quote table with a bounded random walk and writes
// each tick to the time-series store. It stands in for a live market
// data subscription.
type Feeder struct {
	quotes   *StaticQuotes
	writer   ports.TickWriter
	logger   *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewFeeder creates a feeder over the given quote table. writer may
// be nil when no time-series store is configured.
func NewFeeder(quotes *StaticQuotes, writer ports.TickWriter, interval time.Duration, logger *zap.Logger) *Feeder {
	return &Feeder{
		quotes:   quotes,
		writer:   writer,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the tick loop.
func (f *Feeder) Start() {
	go f.run()
	f.logger.Info("market data feeder started",
		zap.Duration("interval", f.interval))
}

// Stop halts the tick loop and waits for it to exit.
func (f *Feeder) Stop() {
	close(f.stopCh)
	<-f.doneCh
}

func (f *Feeder) run() {
	defer close(f.doneCh)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.step()
		}
	}
}

func (f *Feeder) step() {
	ctx, cancel := context.WithTimeout(context.Background(), f.interval)
	defer cancel()

	now := time.Now()
	for _, symbol := range f.quotes.Symbols() {
		price, err := f.quotes.Quote(ctx, symbol)
		if err != nil || !price.IsPositive() {
			continue
		}

		driftPct := (rand.Float64()*2 - 1) * maxDriftPct
		drift := price.Mul(decimal.NewFromFloat(driftPct / 100))
		next := price.Add(drift)
		if !next.IsPositive() {
			next = price
		}
		f.quotes.SetQuote(symbol, next)

		if f.writer == nil {
			continue
		}
		tick := ports.Tick{Symbol: symbol, Price: next, Timestamp: now}
		if err := f.writer.WriteTick(ctx, tick); err != nil {
			f.logger.Warn("failed to write tick",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}
}
