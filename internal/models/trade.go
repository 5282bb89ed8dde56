package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeTransition is the fully computed outcome of a buy or sell,
// applied against the store as one atomic unit. A nil Holding means
// the position row is removed (shares reached zero).
type TradeTransition struct {
	NewCash decimal.Decimal
	Holding *Holding
	Entry   HistoryEntry
}

// TradeEvent is published after a trade commits.
type TradeEvent struct {
	EventType string          `json:"event_type"`
	UserID    int             `json:"user_id"`
	Username  string          `json:"username,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Shares    int64           `json:"shares,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Total     decimal.Decimal `json:"total,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
