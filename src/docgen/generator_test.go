package docgen

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faculax/shanghai-commercial-bank/src/model"
)

func TestRenderConfirmation(t *testing.T) {
	qty := int64(15000)
	price := decimal.RequireFromString("1.0855")
	generatedAt := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	doc := Render(model.Trade{
		TradeID:      "T1",
		CurrencyPair: "EUR/USD",
		Side:         model.SideBuy,
		Counterparty: "BANK_A",
		Book:         "TRADING",
		Quantity:     &qty,
		Price:        &price,
	}, "2026-03-15-10:30", generatedAt)

	if doc.Filename != "trade_2026-03-15-10:30_T1.xml" {
		t.Fatalf("unexpected filename: %q", doc.Filename)
	}

	for _, fragment := range []string{
		"<TradeId>T1</TradeId>",
		"<CurrencyPair>EUR/USD</CurrencyPair>",
		"<Side>BUY</Side>",
		"<Quantity>15000</Quantity>",
		"<Price>1.085500</Price>",
		"<Counterparty>BANK_A</Counterparty>",
		"<Book>TRADING</Book>",
		"<Timestamp>2026-03-15T10:30:00</Timestamp>",
	} {
		if !strings.Contains(doc.Content, fragment) {
			t.Fatalf("document missing %q:\n%s", fragment, doc.Content)
		}
	}
}

func TestRenderMissingQuantityAndPrice(t *testing.T) {
	doc := Render(model.Trade{
		TradeID:      "T2",
		CurrencyPair: "USD/JPY",
		Side:         model.SideSell,
	}, "batch", time.Now())

	if !strings.Contains(doc.Content, "<Quantity>0</Quantity>") {
		t.Fatalf("missing quantity fallback:\n%s", doc.Content)
	}
	if !strings.Contains(doc.Content, "<Price>0.000000</Price>") {
		t.Fatalf("missing price fallback:\n%s", doc.Content)
	}
}

func TestRenderTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	generatedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, loc)

	doc := Render(model.Trade{TradeID: "T3", Side: model.SideBuy}, "batch", generatedAt)

	if !strings.Contains(doc.Content, "<Timestamp>2026-03-15T10:00:00</Timestamp>") {
		t.Fatalf("timestamp not normalised to UTC:\n%s", doc.Content)
	}
}
