package consolidation

import (
	"strings"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// Criteria selects which trade attributes define a netting group.
type Criteria string

const (
	CriteriaCurrencyPair                Criteria = "CURRENCY_PAIR"
	CriteriaCounterparty                Criteria = "COUNTERPARTY"
	CriteriaBook                        Criteria = "BOOK"
	CriteriaCurrencyPairAndCounterparty Criteria = "CURRENCY_PAIR_AND_COUNTERPARTY"
	CriteriaCurrencyPairAndBook         Criteria = "CURRENCY_PAIR_AND_BOOK"
	CriteriaCounterpartyAndBook         Criteria = "COUNTERPARTY_AND_BOOK"
	CriteriaAll                         Criteria = "ALL_CRITERIA"
)

// AllCriteria lists every supported grouping rule.
var AllCriteria = []Criteria{
	CriteriaCurrencyPair,
	CriteriaCounterparty,
	CriteriaBook,
	CriteriaCurrencyPairAndCounterparty,
	CriteriaCurrencyPairAndBook,
	CriteriaCounterpartyAndBook,
	CriteriaAll,
}

// ParseCriteria converts a raw string into a Criteria, rejecting unknown
// values with a ValidationError.
func ParseCriteria(s string) (Criteria, error) {
	c := Criteria(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllCriteria {
		if c == known {
			return c, nil
		}
	}
	return "", apperr.Validation("unknown consolidation criteria %q", s)
}

// Key derives the grouping key for a trade. Compound criteria join their
// fields with "|".
func (c Criteria) Key(t model.Trade) string {
	switch c {
	case CriteriaCurrencyPair:
		return t.CurrencyPair
	case CriteriaCounterparty:
		return t.Counterparty
	case CriteriaBook:
		return t.Book
	case CriteriaCurrencyPairAndCounterparty:
		return t.CurrencyPair + "|" + t.Counterparty
	case CriteriaCurrencyPairAndBook:
		return t.CurrencyPair + "|" + t.Book
	case CriteriaCounterpartyAndBook:
		return t.Counterparty + "|" + t.Book
	case CriteriaAll:
		return t.CurrencyPair + "|" + t.Counterparty + "|" + t.Book
	default:
		return t.CurrencyPair + "|" + t.Counterparty + "|" + t.Book
	}
}
