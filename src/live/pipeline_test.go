package live

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/faculax/shanghai-commercial-bank/src/model"
)

type stubImporter struct {
	mu            sync.Mutex
	batches       [][]model.Trade
	names         []string
	generateCalls int
	err           error
}

func (s *stubImporter) ConsolidateLiveBatch(_ context.Context, name string, trades []model.Trade) (*model.TradeImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	s.batches = append(s.batches, trades)
	s.names = append(s.names, name)
	return &model.TradeImport{
		ID:                 uint(len(s.batches)),
		ImportName:         name,
		Status:             model.StatusConsolidated,
		OriginalTradeCount: len(trades),
	}, nil
}

func (s *stubImporter) GenerateDocumentsForAllConsolidated(context.Context) ([]model.TradeImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateCalls++
	return nil, nil
}

func (s *stubImporter) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *stubImporter) documentCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateCalls
}

func TestSubmitFillsIdentifierAndTimestamp(t *testing.T) {
	p := NewPipeline(&stubImporter{})

	submitted := p.Submit(Trade{
		CurrencyPair: "EUR/USD",
		Side:         model.SideBuy,
		Quantity:     1000,
		Price:        decimal.RequireFromString("1.085"),
	})

	if !strings.HasPrefix(submitted.TradeID, "LIVE-") {
		t.Fatalf("expected generated LIVE- id, got %q", submitted.TradeID)
	}
	if submitted.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled")
	}
	if p.PendingCount() != 1 {
		t.Fatalf("expected 1 pending trade, got %d", p.PendingCount())
	}
}

func TestSubmitKeepsCallerIdentifier(t *testing.T) {
	p := NewPipeline(&stubImporter{})

	submitted := p.Submit(Trade{TradeID: "EXT-42", CurrencyPair: "USD/JPY", Side: model.SideSell})
	if submitted.TradeID != "EXT-42" {
		t.Fatalf("caller id overwritten: %q", submitted.TradeID)
	}
}

func TestConcurrentSubmitThenFlush(t *testing.T) {
	stub := &stubImporter{}
	p := NewPipeline(stub)

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				p.Submit(Trade{
					CurrencyPair: "EUR/USD",
					Side:         model.SideBuy,
					Quantity:     100,
					Price:        decimal.RequireFromString("1.1"),
				})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, p.PendingCount())

	ti, err := p.Flush(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ti)
	require.Equal(t, producers*perProducer, ti.OriginalTradeCount)
	require.Zero(t, p.PendingCount())

	// Every submission landed in the batch exactly once.
	require.Equal(t, 1, stub.batchCount())
	seen := make(map[string]bool, producers*perProducer)
	for _, trade := range stub.batches[0] {
		if seen[trade.TradeID] {
			t.Fatalf("duplicate trade id in flushed batch: %s", trade.TradeID)
		}
		seen[trade.TradeID] = true
		require.True(t, trade.IsOriginal)
		require.NotNil(t, trade.Quantity)
		require.NotNil(t, trade.Price)
	}
	require.Len(t, seen, producers*perProducer)
}

func TestFlushEmptyBufferIsNoOp(t *testing.T) {
	stub := &stubImporter{}
	p := NewPipeline(stub)

	ti, err := p.Flush(context.Background())
	require.NoError(t, err)
	require.Nil(t, ti)
	require.Zero(t, stub.batchCount())
}

func TestFlushImportNamePrefix(t *testing.T) {
	stub := &stubImporter{}
	p := NewPipeline(stub)

	p.Submit(Trade{CurrencyPair: "EUR/USD", Side: model.SideBuy, Quantity: 10, Price: decimal.New(1, 0)})

	ti, err := p.Flush(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ti.ImportName, "LIVE-"), "unexpected name %q", ti.ImportName)
	require.NotContains(t, ti.ImportName, ":")
}

func TestFlushPropagatesImporterError(t *testing.T) {
	stub := &stubImporter{err: errors.New("db down")}
	p := NewPipeline(stub)

	p.Submit(Trade{CurrencyPair: "EUR/USD", Side: model.SideBuy})

	_, err := p.Flush(context.Background())
	require.Error(t, err)
}

// blockingImporter parks inside ConsolidateLiveBatch until released and
// reports the context state it completed under.
type blockingImporter struct {
	stubImporter
	entered chan struct{}
	release chan struct{}
	ctxErrs chan error
}

func (b *blockingImporter) ConsolidateLiveBatch(ctx context.Context, name string, trades []model.Trade) (*model.TradeImport, error) {
	b.entered <- struct{}{}
	<-b.release
	b.ctxErrs <- ctx.Err()
	return b.stubImporter.ConsolidateLiveBatch(ctx, name, trades)
}

func TestReconfigureDoesNotAbortInFlightFlush(t *testing.T) {
	stub := &blockingImporter{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErrs: make(chan error, 1),
	}
	p := NewPipeline(stub)
	defer p.Shutdown()

	p.Submit(Trade{CurrencyPair: "EUR/USD", Side: model.SideBuy, Quantity: 100, Price: decimal.New(11, -1)})

	p.Reconfigure(Config{Enabled: true, GroupingIntervalSeconds: 1})

	select {
	case <-stub.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("flush timer never fired")
	}

	// Swap the config while the flush still holds the drained batch.
	p.Reconfigure(Config{Enabled: false})
	close(stub.release)

	select {
	case err := <-stub.ctxErrs:
		require.NoError(t, err, "in-flight flush ran under a cancelled context")
	case <-time.After(time.Second):
		t.Fatal("flush never completed")
	}

	deadline := time.Now().Add(time.Second)
	for stub.batchCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, stub.batchCount(), "drained batch was not persisted")
	require.Zero(t, p.PendingCount())
}

func TestFlushRequeuesBatchOnImporterError(t *testing.T) {
	stub := &stubImporter{err: errors.New("store unavailable")}
	p := NewPipeline(stub)

	first := p.Submit(Trade{CurrencyPair: "EUR/USD", Side: model.SideBuy, Quantity: 100, Price: decimal.New(11, -1)})
	second := p.Submit(Trade{CurrencyPair: "USD/JPY", Side: model.SideSell, Quantity: 200, Price: decimal.New(150, 0)})

	_, err := p.Flush(context.Background())
	require.Error(t, err)

	// Nothing lost, FIFO order preserved.
	pending := p.PendingTrades()
	require.Len(t, pending, 2)
	require.Equal(t, first.TradeID, pending[0].TradeID)
	require.Equal(t, second.TradeID, pending[1].TradeID)

	stub.err = nil
	ti, err := p.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, ti.OriginalTradeCount)
	require.Zero(t, p.PendingCount())
}

func TestReconfigureStartsAndStopsGenerator(t *testing.T) {
	p := NewPipeline(&stubImporter{})
	defer p.Shutdown()

	p.Reconfigure(Config{
		Enabled:                 true,
		TradesPerSecond:         100,
		GroupingIntervalSeconds: 3600,
	})

	deadline := time.Now().Add(2 * time.Second)
	for p.PendingCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Positive(t, p.PendingCount(), "generator produced no trades")

	p.Reconfigure(Config{Enabled: false})

	// Let any in-flight tick finish, then the count must hold steady.
	time.Sleep(100 * time.Millisecond)
	settled := p.PendingCount()
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, settled, p.PendingCount(), "generator still running after disable")
}

func TestReconfigureReturnsAppliedConfig(t *testing.T) {
	p := NewPipeline(&stubImporter{})
	defer p.Shutdown()

	cfg := Config{Enabled: false, TradesPerSecond: 5, GroupingIntervalSeconds: 30}
	applied := p.Reconfigure(cfg)
	require.Equal(t, cfg, applied)
	require.Equal(t, cfg, p.Config())
}

func TestAutoDocumentsTimer(t *testing.T) {
	stub := &stubImporter{}
	p := NewPipeline(stub)
	defer p.Shutdown()

	p.Reconfigure(Config{
		Enabled:                 true,
		TradesPerSecond:         1,
		GroupingIntervalSeconds: 3600,
		AutoDocumentsEnabled:    true,
		DocumentIntervalSeconds: 1,
	})

	deadline := time.Now().Add(3 * time.Second)
	for stub.documentCalls() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	require.Positive(t, stub.documentCalls(), "auto-documents timer never fired")
}

func TestGenerateSyntheticTradeVocabulary(t *testing.T) {
	p := NewPipeline(&stubImporter{})

	pairs := make(map[string]bool)
	for _, pair := range demoCurrencyPairs {
		pairs[pair] = true
	}
	counterparties := make(map[string]bool)
	for _, cp := range demoCounterparties {
		counterparties[cp] = true
	}
	books := make(map[string]bool)
	for _, book := range demoBooks {
		books[book] = true
	}

	low := decimal.RequireFromString("1.0")
	high := decimal.RequireFromString("1.5")

	for i := 0; i < 100; i++ {
		trade := p.generateSyntheticTrade()

		if !strings.HasPrefix(trade.TradeID, "DEMO-") {
			t.Fatalf("unexpected synthetic id %q", trade.TradeID)
		}
		if !pairs[trade.CurrencyPair] {
			t.Fatalf("unexpected currency pair %q", trade.CurrencyPair)
		}
		if !counterparties[trade.Counterparty] {
			t.Fatalf("unexpected counterparty %q", trade.Counterparty)
		}
		if !books[trade.Book] {
			t.Fatalf("unexpected book %q", trade.Book)
		}
		if trade.Side != model.SideBuy && trade.Side != model.SideSell {
			t.Fatalf("unexpected side %q", trade.Side)
		}
		if trade.Quantity < 10000 || trade.Quantity >= 100000 {
			t.Fatalf("quantity out of range: %d", trade.Quantity)
		}
		if trade.Price.LessThan(low) || trade.Price.GreaterThanOrEqual(high) {
			t.Fatalf("price out of range: %s", trade.Price)
		}
	}
}

func TestFeedReceivesSubmissions(t *testing.T) {
	p := NewPipeline(&stubImporter{})

	trades, cancel := p.Feed().Subscribe()
	defer cancel()

	submitted := p.Submit(Trade{CurrencyPair: "GBP/USD", Side: model.SideSell, Quantity: 500})

	select {
	case got := <-trades:
		require.Equal(t, submitted.TradeID, got.TradeID)
	case <-time.After(time.Second):
		t.Fatal("no trade received on feed")
	}
}
