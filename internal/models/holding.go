package models

import "github.com/shopspring/decimal"

// Holding represents a user's current position in one stock symbol.
// Total carries the position's value as maintained by the ledger:
// cost on buys, re-valued at market price on sells.
type Holding struct {
	UserID int             `json:"user_id"`
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}
