// Package docgen renders trade-confirmation documents for consolidated
// trades. The downstream settlement system consumes one document per trade.
package docgen

import (
	"fmt"
	"time"

	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// DocumentExtension is the file extension of generated confirmations.
const DocumentExtension = ".xml"

// Document is one rendered trade confirmation.
type Document struct {
	Filename string
	Content  string
}

const contentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<TradeConfirmation>
    <TradeId>%s</TradeId>
    <CurrencyPair>%s</CurrencyPair>
    <Side>%s</Side>
    <Quantity>%s</Quantity>
    <Price>%s</Price>
    <Counterparty>%s</Counterparty>
    <Book>%s</Book>
    <Timestamp>%s</Timestamp>
</TradeConfirmation>
`

// Render builds the confirmation document for one consolidated trade. The
// filename follows trade_<importName>_<tradeID>.xml; missing quantity or
// price render as "0" and "0.000000" respectively.
func Render(trade model.Trade, importName string, generatedAt time.Time) Document {
	quantity := "0"
	if trade.Quantity != nil {
		quantity = fmt.Sprintf("%d", *trade.Quantity)
	}

	price := "0.000000"
	if trade.Price != nil {
		price = trade.Price.StringFixed(6)
	}

	content := fmt.Sprintf(contentTemplate,
		trade.TradeID,
		trade.CurrencyPair,
		trade.Side,
		quantity,
		price,
		trade.Counterparty,
		trade.Book,
		generatedAt.UTC().Format("2006-01-02T15:04:05"),
	)

	return Document{
		Filename: fmt.Sprintf("trade_%s_%s%s", importName, trade.TradeID, DocumentExtension),
		Content:  content,
	}
}
