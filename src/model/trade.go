package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// ParseTradeSide converts a raw string (any case) into a TradeSide.
func ParseTradeSide(s string) (TradeSide, error) {
	switch TradeSide(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// Trade is one buy or sell of a currency-pair amount at a price.
// Original trades come in via CSV upload or the live intake pipeline;
// consolidated trades are produced by the consolidation engine and carry
// IsOriginal=false.
type Trade struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	TradeID      string           `gorm:"size:100;not null;column:trade_id" json:"trade_id"`
	CurrencyPair string           `gorm:"size:20;not null" json:"currency_pair"`
	Side         TradeSide        `gorm:"size:10;not null" json:"side"`
	Counterparty string           `gorm:"size:100;not null" json:"counterparty"`
	Book         string           `gorm:"size:100;not null" json:"book"`
	Quantity     *int64           `json:"quantity"`
	Price        *decimal.Decimal `gorm:"type:numeric(15,6)" json:"price"`
	ImportID     uint             `gorm:"not null;index" json:"import_id"`
	IsOriginal   bool             `gorm:"not null;default:true" json:"is_original"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
