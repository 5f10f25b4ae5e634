// Package live is the intake pipeline for streamed trade submissions: a
// concurrency-safe pending buffer, a synthetic trade generator, and
// recurring flush / auto-document jobs driven by a reconfigurable scheduler.
package live

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// Importer is the slice of the import lifecycle the pipeline needs.
type Importer interface {
	ConsolidateLiveBatch(ctx context.Context, name string, trades []model.Trade) (*model.TradeImport, error)
	GenerateDocumentsForAllConsolidated(ctx context.Context) ([]model.TradeImport, error)
}

// Trade is one live trade submission. Unset identifiers and timestamps are
// filled in by Submit.
type Trade struct {
	TradeID      string          `json:"trade_id"`
	CurrencyPair string          `json:"currency_pair"`
	Side         model.TradeSide `json:"side"`
	Counterparty string          `json:"counterparty"`
	Book         string          `json:"book"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Synthetic trade vocabularies.
var (
	demoCurrencyPairs  = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "USD/CHF"}
	demoCounterparties = []string{"BANK_A", "BANK_B", "FUND_C", "CORP_D"}
	demoBooks          = []string{"TRADING", "HEDGE", "CLIENT"}
	demoSides          = []model.TradeSide{model.SideBuy, model.SideSell}
)

// Pipeline buffers live trade submissions and periodically drains them into
// consolidated imports. Many producers may Submit concurrently; Flush drains
// the whole buffer atomically so no two flushes ever see the same trade.
type Pipeline struct {
	importer Importer
	feed     *Feed

	mu      sync.Mutex
	pending []Trade

	idCounter atomic.Int64

	// cfgMu guards the config snapshot and the cancel func of the
	// current scheduler generation.
	cfgMu  sync.Mutex
	cfg    Config
	cancel context.CancelFunc
}

// NewPipeline creates a stopped pipeline. Call Reconfigure to start the
// scheduled jobs.
func NewPipeline(importer Importer) *Pipeline {
	return &Pipeline{
		importer: importer,
		feed:     NewFeed(),
	}
}

// Feed exposes the websocket fan-out of submitted trades.
func (p *Pipeline) Feed() *Feed {
	return p.feed
}

// Submit enriches a trade with a UTC timestamp and a generated identifier if
// absent, then appends it to the pending buffer. Safe for concurrent use,
// never blocks on consumers.
func (p *Pipeline) Submit(t Trade) Trade {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.TradeID == "" {
		t.TradeID = "LIVE-" + strconv.FormatInt(p.idCounter.Add(1), 10)
	}

	p.mu.Lock()
	p.pending = append(p.pending, t)
	p.mu.Unlock()

	p.feed.Publish(t)

	logger.WithField("trade_id", t.TradeID).Debug("Live trade submitted")
	return t
}

// PendingCount reports how many submissions are waiting for the next flush.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// PendingTrades returns a snapshot of the buffered submissions in FIFO
// order.
func (p *Pipeline) PendingTrades() []Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]Trade, len(p.pending))
	copy(snapshot, p.pending)
	return snapshot
}

// Flush atomically drains the pending buffer and hands the batch to the
// import lifecycle, which persists it as a new import consolidated by
// currency pair. An empty buffer is a no-op returning (nil, nil). When the
// importer fails, the drained batch is re-queued ahead of newer submissions
// so a storage failure never loses trades.
func (p *Pipeline) Flush(ctx context.Context) (*model.TradeImport, error) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		logger.Debug("No pending live trades to flush")
		return nil, nil
	}

	trades := make([]model.Trade, 0, len(batch))
	for _, t := range batch {
		quantity := t.Quantity
		price := t.Price
		trades = append(trades, model.Trade{
			TradeID:      t.TradeID,
			CurrencyPair: t.CurrencyPair,
			Side:         t.Side,
			Counterparty: t.Counterparty,
			Book:         t.Book,
			Quantity:     &quantity,
			Price:        &price,
			IsOriginal:   true,
			CreatedAt:    t.Timestamp,
		})
	}

	name := "LIVE-" + strings.ReplaceAll(time.Now().UTC().Format("2006-01-02T15:04:05.000000000"), ":", "-")
	ti, err := p.importer.ConsolidateLiveBatch(ctx, name, trades)
	if err != nil {
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.mu.Unlock()
		logger.WithField("trades", len(batch)).WithError(err).Warn("Flush failed, re-queued batch")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"import_id": ti.ID,
		"trades":    len(batch),
	}).Info("Flushed live trades")

	return ti, nil
}

// Config returns the current configuration snapshot.
func (p *Pipeline) Config() Config {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	return p.cfg
}

// Reconfigure atomically swaps the pipeline configuration: all timers of the
// previous generation are cancelled before the new ones start, so a stale
// timer never fires under a replaced config. In-flight cycles complete.
func (p *Pipeline) Reconfigure(cfg Config) Config {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.cfg = cfg

	if !cfg.Enabled {
		logger.Info("Live pipeline disabled")
		return p.cfg
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if cfg.TradesPerSecond > 0 {
		interval := time.Duration(float64(time.Second) / cfg.TradesPerSecond)
		go p.runTicker(ctx, interval, "synthetic-generator", func(context.Context) error {
			p.Submit(p.generateSyntheticTrade())
			return nil
		})
	}

	if cfg.GroupingIntervalSeconds > 0 {
		go p.runTicker(ctx, time.Duration(cfg.GroupingIntervalSeconds)*time.Second, "flush", func(tickCtx context.Context) error {
			_, err := p.Flush(tickCtx)
			return err
		})
	}

	if cfg.AutoDocumentsEnabled && cfg.DocumentIntervalSeconds > 0 {
		go p.runTicker(ctx, time.Duration(cfg.DocumentIntervalSeconds)*time.Second, "auto-documents", func(tickCtx context.Context) error {
			generated, err := p.importer.GenerateDocumentsForAllConsolidated(tickCtx)
			if err != nil {
				return err
			}
			if len(generated) > 0 {
				logger.WithField("imports", len(generated)).Info("Auto-generated documents")
			}
			return nil
		})
	}

	logger.WithFields(map[string]interface{}{
		"trades_per_second": cfg.TradesPerSecond,
		"grouping_interval": cfg.GroupingIntervalSeconds,
		"auto_documents":    cfg.AutoDocumentsEnabled,
	}).Info("Live pipeline reconfigured")

	return p.cfg
}

// Shutdown cancels all scheduled jobs. In-flight cycles complete.
func (p *Pipeline) Shutdown() {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// runTicker executes fn on every tick until the generation context is
// cancelled. The generation context governs scheduling only: each cycle runs
// on a detached context, so cancelling the generation stops future ticks but
// never aborts an in-flight cycle. Cycle errors are logged, never fatal, so
// one bad cycle cannot stop future scheduling.
func (p *Pipeline) runTicker(ctx context.Context, every time.Duration, name string, fn func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.WithField("task", name).Debug("Scheduled task stopped")
			return
		case <-ticker.C:
			if err := fn(context.Background()); err != nil {
				logger.WithField("task", name).WithError(err).Error("Scheduled task cycle failed")
			}
		}
	}
}

// generateSyntheticTrade draws one pseudo-random trade from the demo
// vocabularies: quantity in [10000,100000), price in [1.0,1.5) truncated to
// 6 digits so the upper bound stays exclusive.
func (p *Pipeline) generateSyntheticTrade() Trade {
	return Trade{
		TradeID:      "DEMO-" + strconv.FormatInt(p.idCounter.Add(1), 10),
		CurrencyPair: demoCurrencyPairs[rand.Intn(len(demoCurrencyPairs))],
		Side:         demoSides[rand.Intn(len(demoSides))],
		Counterparty: demoCounterparties[rand.Intn(len(demoCounterparties))],
		Book:         demoBooks[rand.Intn(len(demoBooks))],
		Quantity:     int64(10000 + rand.Intn(90000)),
		Price:        decimal.NewFromFloat(1.0 + rand.Float64()*0.5).Truncate(6),
		Timestamp:    time.Now().UTC(),
	}
}
