package models

import "github.com/shopspring/decimal"

// Quote is the normalized shape returned by the quote provider.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
