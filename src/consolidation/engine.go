// Package consolidation nets groups of FX trades into single representative
// positions. The engine is pure: it neither reads nor writes the store.
package consolidation

import (
	"github.com/shopspring/decimal"

	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// priceScale is the number of fractional digits carried by netted prices.
const priceScale = 6

type group struct {
	representative  model.Trade
	buyQuantity     int64
	sellQuantity    int64
	buyWeightedSum  decimal.Decimal
	sellWeightedSum decimal.Decimal
}

// Consolidate groups the original trades by the given criteria and nets each
// group's BUY/SELL exposure into at most one representative trade.
//
// Trades with a nil quantity or price are skipped during accumulation but do
// not abort the run. A group whose buy and sell quantities fully offset
// produces no output. The representative descriptive attributes (trade id,
// currency pair, counterparty, book) are taken from the first trade seen in
// the group; for compound criteria this pick is arbitrary and intentional.
func Consolidate(trades []model.Trade, criteria Criteria) []model.Trade {
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, t := range trades {
		if !t.IsOriginal {
			continue
		}

		key := criteria.Key(t)
		g, ok := groups[key]
		if !ok {
			g = &group{representative: t}
			groups[key] = g
			order = append(order, key)
		}

		if t.Quantity == nil || t.Price == nil {
			continue
		}

		weighted := t.Price.Mul(decimal.NewFromInt(*t.Quantity))
		switch t.Side {
		case model.SideBuy:
			g.buyQuantity += *t.Quantity
			g.buyWeightedSum = g.buyWeightedSum.Add(weighted)
		case model.SideSell:
			g.sellQuantity += *t.Quantity
			g.sellWeightedSum = g.sellWeightedSum.Add(weighted)
		}
	}

	consolidated := make([]model.Trade, 0, len(groups))
	for _, key := range order {
		g := groups[key]

		netQuantity := g.buyQuantity - g.sellQuantity
		if netQuantity == 0 {
			// Fully offset exposure is dropped, not emitted as a
			// zero-quantity trade.
			continue
		}

		var side model.TradeSide
		var price *decimal.Decimal
		if netQuantity > 0 {
			side = model.SideBuy
			if g.buyQuantity > 0 {
				p := g.buyWeightedSum.DivRound(decimal.NewFromInt(g.buyQuantity), priceScale)
				price = &p
			}
		} else {
			side = model.SideSell
			netQuantity = -netQuantity
			if g.sellQuantity > 0 {
				p := g.sellWeightedSum.DivRound(decimal.NewFromInt(g.sellQuantity), priceScale)
				price = &p
			}
		}

		quantity := netQuantity
		consolidated = append(consolidated, model.Trade{
			TradeID:      g.representative.TradeID,
			CurrencyPair: g.representative.CurrencyPair,
			Side:         side,
			Counterparty: g.representative.Counterparty,
			Book:         g.representative.Book,
			Quantity:     &quantity,
			Price:        price,
			IsOriginal:   false,
		})
	}

	return consolidated
}
