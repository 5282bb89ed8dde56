package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account with its simulated cash balance.
type User struct {
	ID        int             `json:"id"`
	Username  string          `json:"username"`
	Hash      string          `json:"-"`
	Cash      decimal.Decimal `json:"cash"`
	CreatedAt time.Time       `json:"created_at"`
}
