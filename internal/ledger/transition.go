package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/brokerage/internal/models"
)

// buyTransition computes the state change for buying shares at the
// quoted price. holding is nil when the user has no position in the
// symbol yet.
func buyTransition(userID int, quote *models.Quote, shares int64, cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error) {
	cost := quote.Price.Mul(decimal.NewFromInt(shares))
	newCash := cash.Sub(cost)
	if newCash.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	var next models.Holding
	if holding == nil {
		next = models.Holding{
			UserID: userID,
			Symbol: quote.Symbol,
			Name:   quote.Name,
			Shares: shares,
			Price:  quote.Price,
			Total:  cost,
		}
	} else {
		next = *holding
		next.Shares += shares
		next.Total = next.Total.Add(cost)
	}

	return &models.TradeTransition{
		NewCash: newCash,
		Holding: &next,
		Entry: models.HistoryEntry{
			UserID: userID,
			Symbol: quote.Symbol,
			Shares: shares,
			Price:  quote.Price,
			Time:   time.Now(),
		},
	}, nil
}

// sellTransition computes the state change for selling shares at the
// current market price. The remaining position is re-valued at that
// price and the difference between the old and new totals is credited
// as proceeds. A position that reaches zero shares is removed.
func sellTransition(userID int, quote *models.Quote, shares int64, cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error) {
	if holding == nil {
		return nil, ErrNoPosition
	}
	if shares > holding.Shares {
		return nil, ErrInsufficientShares
	}

	newShares := holding.Shares - shares
	newTotal := quote.Price.Mul(decimal.NewFromInt(newShares))
	proceeds := holding.Total.Sub(newTotal)

	// Re-valuation can make proceeds negative after a large price
	// rise; the cash balance must still never go below zero.
	newCash := cash.Add(proceeds)
	if newCash.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	var next *models.Holding
	if newShares > 0 {
		h := *holding
		h.Shares = newShares
		h.Total = newTotal
		next = &h
	}

	return &models.TradeTransition{
		NewCash: newCash,
		Holding: next,
		Entry: models.HistoryEntry{
			UserID: userID,
			Symbol: quote.Symbol,
			Shares: -shares,
			Price:  quote.Price,
			Time:   time.Now(),
		},
	}, nil
}
