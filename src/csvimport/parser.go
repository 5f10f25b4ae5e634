// Package csvimport parses batch trade uploads. A row is
// id,pair,side,quantity,price,value,counterparty,book; a legacy 6-column
// format without counterparty/book is still accepted.
package csvimport

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

const (
	defaultCounterparty = "DEFAULT_CP"
	defaultBook         = "DEFAULT_BOOK"
)

// Parse reads a CSV upload into trade records. The first row is treated as a
// header and skipped. Malformed side, quantity or price values surface as a
// ValidationError naming the offending line; rows with fewer than six fields
// are skipped.
func Parse(r io.Reader) ([]model.Trade, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var trades []model.Trade
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("line %d: malformed CSV row: %v", line+1, err)
		}

		line++
		if line == 1 {
			// Header row.
			continue
		}
		if len(record) < 6 {
			continue
		}

		trade, err := parseRow(record, line)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

func parseRow(record []string, line int) (model.Trade, error) {
	tradeID := strings.TrimSpace(record[0])
	if tradeID == "" {
		tradeID = uuid.NewString()
	}

	side, err := model.ParseTradeSide(record[2])
	if err != nil {
		return model.Trade{}, apperr.Validation("line %d: %v", line, err)
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(record[3]), 10, 64)
	if err != nil {
		return model.Trade{}, apperr.Validation("line %d: unparseable quantity %q", line, record[3])
	}
	if quantity < 0 {
		return model.Trade{}, apperr.Validation("line %d: negative quantity %d", line, quantity)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return model.Trade{}, apperr.Validation("line %d: unparseable price %q", line, record[4])
	}

	counterparty := defaultCounterparty
	book := defaultBook
	if len(record) >= 8 {
		counterparty = strings.TrimSpace(record[6])
		book = strings.TrimSpace(record[7])
	}

	return model.Trade{
		TradeID:      tradeID,
		CurrencyPair: strings.TrimSpace(record[1]),
		Side:         side,
		Counterparty: counterparty,
		Book:         book,
		Quantity:     &quantity,
		Price:        &price,
		IsOriginal:   true,
	}, nil
}
