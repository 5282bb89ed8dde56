package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is an immutable record of one executed trade.
// Shares is signed: positive for buys, negative for sells.
type HistoryEntry struct {
	ID     int             `json:"id"`
	UserID int             `json:"user_id"`
	Symbol string          `json:"symbol"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}
