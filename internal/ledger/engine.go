package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/papertrade/brokerage/internal/models"
)

// Store is the persistence surface the engine needs. ExecuteTrade must
// apply the computed transition atomically: the holding mutation, the
// history insert and the cash update either all commit or none do.
type Store interface {
	ExecuteTrade(ctx context.Context, userID int, symbol string,
		fn func(cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error)) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetHoldingsByUser(ctx context.Context, userID int) ([]*models.Holding, error)
	GetHistoryByUser(ctx context.Context, userID int) ([]*models.HistoryEntry, error)
}

// QuoteProvider resolves a ticker symbol to its current quote.
// Implementations return ErrUnknownSymbol for symbols that do not
// resolve.
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*models.Quote, error)
}

// EventPublisher publishes trade events after a commit. Publishing is
// best-effort and never fails the trade.
type EventPublisher interface {
	PublishTradeExecuted(ctx context.Context, event models.TradeEvent) error
}

// Engine enforces the cash/shares invariants across buy and sell
// operations. Every method takes the authenticated user id as input;
// the engine never touches session state.
type Engine struct {
	store  Store
	quotes QuoteProvider
	events EventPublisher
	log    *logrus.Logger
}

// NewEngine creates a ledger engine. events may be nil.
func NewEngine(store Store, quotes QuoteProvider, events EventPublisher, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		store:  store,
		quotes: quotes,
		events: events,
		log:    log,
	}
}

// Portfolio is the view backing the index page: the user's cash, all
// current holdings and the combined account value.
type Portfolio struct {
	Cash     decimal.Decimal   `json:"cash"`
	Holdings []*models.Holding `json:"holdings"`
	Total    decimal.Decimal   `json:"total"`
}

// Buy purchases shares of symbol at the current quoted price.
func (e *Engine) Buy(ctx context.Context, userID int, symbol string, shares int64) error {
	if shares <= 0 {
		return ErrInvalidQuantity
	}

	quote, err := e.Quote(ctx, symbol)
	if err != nil {
		return err
	}

	err = e.store.ExecuteTrade(ctx, userID, quote.Symbol,
		func(cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error) {
			return buyTransition(userID, quote, shares, cash, holding)
		})
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"symbol":  quote.Symbol,
		"shares":  shares,
		"price":   quote.Price,
	}).Info("buy executed")

	e.publish(ctx, userID, quote, shares)
	return nil
}

// Sell disposes of shares of an existing position at the current
// quoted price.
func (e *Engine) Sell(ctx context.Context, userID int, symbol string, shares int64) error {
	if shares <= 0 {
		return ErrInvalidQuantity
	}

	quote, err := e.Quote(ctx, symbol)
	if err != nil {
		return err
	}

	err = e.store.ExecuteTrade(ctx, userID, quote.Symbol,
		func(cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error) {
			return sellTransition(userID, quote, shares, cash, holding)
		})
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"symbol":  quote.Symbol,
		"shares":  shares,
		"price":   quote.Price,
	}).Info("sell executed")

	e.publish(ctx, userID, quote, -shares)
	return nil
}

// Quote resolves a symbol through the quote provider.
func (e *Engine) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrUnknownSymbol
	}
	return e.quotes.Lookup(ctx, symbol)
}

// Portfolio returns the user's cash and holdings for the index view.
func (e *Engine) Portfolio(ctx context.Context, userID int) (*Portfolio, error) {
	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	holdings, err := e.store.GetHoldingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := user.Cash
	for _, h := range holdings {
		total = total.Add(h.Total)
	}

	return &Portfolio{
		Cash:     user.Cash,
		Holdings: holdings,
		Total:    total,
	}, nil
}

// History returns the user's trade history, most recent first.
func (e *Engine) History(ctx context.Context, userID int) ([]*models.HistoryEntry, error) {
	return e.store.GetHistoryByUser(ctx, userID)
}

func (e *Engine) publish(ctx context.Context, userID int, quote *models.Quote, shares int64) {
	if e.events == nil {
		return
	}

	event := models.TradeEvent{
		EventType: "TRADE_EXECUTED",
		UserID:    userID,
		Symbol:    quote.Symbol,
		Shares:    shares,
		Price:     quote.Price,
		Total:     quote.Price.Mul(decimal.NewFromInt(shares)).Abs(),
		Timestamp: time.Now(),
	}
	if err := e.events.PublishTradeExecuted(ctx, event); err != nil {
		e.log.WithError(err).Warn("failed to publish trade event")
	}
}
