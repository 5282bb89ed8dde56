package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrade/brokerage/internal/models"
)

// memStore applies trade transitions against in-memory state with the
// same all-or-nothing contract as the database.
type memStore struct {
	user     models.User
	holdings map[string]*models.Holding
	history  []models.HistoryEntry
}

func newMemStore(cash float64) *memStore {
	return &memStore{
		user: models.User{
			ID:       1,
			Username: "alice",
			Cash:     decimal.NewFromFloat(cash),
		},
		holdings: make(map[string]*models.Holding),
	}
}

func (s *memStore) ExecuteTrade(ctx context.Context, userID int, symbol string,
	fn func(cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error)) error {

	var holding *models.Holding
	if h, ok := s.holdings[symbol]; ok {
		copied := *h
		holding = &copied
	}

	transition, err := fn(s.user.Cash, holding)
	if err != nil {
		return err
	}

	if transition.Holding == nil {
		delete(s.holdings, symbol)
	} else {
		s.holdings[symbol] = transition.Holding
	}
	s.history = append(s.history, transition.Entry)
	s.user.Cash = transition.NewCash
	return nil
}

func (s *memStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	u := s.user
	return &u, nil
}

func (s *memStore) GetHoldingsByUser(ctx context.Context, userID int) ([]*models.Holding, error) {
	var out []*models.Holding
	for _, h := range s.holdings {
		out = append(out, h)
	}
	return out, nil
}

func (s *memStore) GetHistoryByUser(ctx context.Context, userID int) ([]*models.HistoryEntry, error) {
	out := make([]*models.HistoryEntry, 0, len(s.history))
	for i := range s.history {
		out = append(out, &s.history[i])
	}
	return out, nil
}

// stubQuotes resolves symbols from a fixed table.
type stubQuotes struct {
	quotes map[string]models.Quote
	calls  int
}

func (q *stubQuotes) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	q.calls++
	quote, ok := q.quotes[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	return &quote, nil
}

type recordingPublisher struct {
	events []models.TradeEvent
}

func (p *recordingPublisher) PublishTradeExecuted(ctx context.Context, event models.TradeEvent) error {
	p.events = append(p.events, event)
	return nil
}

func setupEngine(t *testing.T, cash float64, prices map[string]float64) (*Engine, *memStore, *stubQuotes, *recordingPublisher) {
	t.Helper()

	quotes := &stubQuotes{quotes: make(map[string]models.Quote)}
	for symbol, price := range prices {
		quotes.quotes[symbol] = models.Quote{
			Symbol: symbol,
			Name:   symbol + " Inc",
			Price:  decimal.NewFromFloat(price),
		}
	}

	store := newMemStore(cash)
	events := &recordingPublisher{}
	return NewEngine(store, quotes, events, nil), store, quotes, events
}

func TestBuy(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new holding and debits cash", func(t *testing.T) {
		engine, store, _, events := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Buy(ctx, 1, "AAA", 10)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(9500).Equal(store.user.Cash), "cash should be 9500, got %s", store.user.Cash)

		h := store.holdings["AAA"]
		require.NotNil(t, h)
		assert.Equal(t, int64(10), h.Shares)
		assert.True(t, decimal.NewFromInt(500).Equal(h.Total))
		assert.Equal(t, "AAA Inc", h.Name)

		require.Len(t, store.history, 1)
		assert.Equal(t, int64(10), store.history[0].Shares)
		assert.True(t, decimal.NewFromInt(50).Equal(store.history[0].Price))
		assert.False(t, store.history[0].Time.IsZero())

		require.Len(t, events.events, 1)
		assert.Equal(t, "TRADE_EXECUTED", events.events[0].EventType)
		assert.Equal(t, int64(10), events.events[0].Shares)
	})

	t.Run("adds to existing holding", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.NoError(t, engine.Buy(ctx, 1, "AAA", 5))

		h := store.holdings["AAA"]
		require.NotNil(t, h)
		assert.Equal(t, int64(15), h.Shares)
		assert.True(t, decimal.NewFromInt(750).Equal(h.Total))
		assert.True(t, decimal.NewFromInt(9250).Equal(store.user.Cash))
		assert.Len(t, store.history, 2)
	})

	t.Run("rejects purchase exceeding cash without mutation", func(t *testing.T) {
		engine, store, _, events := setupEngine(t, 100, map[string]float64{"AAA": 50})

		err := engine.Buy(ctx, 1, "AAA", 10)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		assert.True(t, decimal.NewFromInt(100).Equal(store.user.Cash))
		assert.Empty(t, store.holdings)
		assert.Empty(t, store.history)
		assert.Empty(t, events.events)
	})

	t.Run("rejects zero shares before any lookup", func(t *testing.T) {
		engine, store, quotes, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Buy(ctx, 1, "AAA", 0)
		require.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Zero(t, quotes.calls)
		assert.Empty(t, store.history)
	})

	t.Run("rejects negative shares", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Buy(ctx, 1, "AAA", -3)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects unknown symbol", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Buy(ctx, 1, "ZZZZ", 1)
		require.ErrorIs(t, err, ErrUnknownSymbol)
		assert.Empty(t, store.history)
	})

	t.Run("normalizes symbol case", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		require.NoError(t, engine.Buy(ctx, 1, "  aaa ", 1))
		assert.Contains(t, store.holdings, "AAA")
	})
}

func TestSell(t *testing.T) {
	ctx := context.Background()

	t.Run("re-values remaining shares at current price", func(t *testing.T) {
		engine, store, quotes, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})
		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))

		quotes.quotes["AAA"] = models.Quote{Symbol: "AAA", Name: "AAA Inc", Price: decimal.NewFromInt(60)}

		err := engine.Sell(ctx, 1, "AAA", 4)
		require.NoError(t, err)

		h := store.holdings["AAA"]
		require.NotNil(t, h)
		assert.Equal(t, int64(6), h.Shares)
		assert.True(t, decimal.NewFromInt(360).Equal(h.Total), "total should be 360, got %s", h.Total)
		assert.True(t, decimal.NewFromInt(9640).Equal(store.user.Cash), "cash should be 9640, got %s", store.user.Cash)

		require.Len(t, store.history, 2)
		assert.Equal(t, int64(-4), store.history[1].Shares)
		assert.True(t, decimal.NewFromInt(60).Equal(store.history[1].Price))
	})

	t.Run("buy then sell all at same price restores cash and removes holding", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.NoError(t, engine.Sell(ctx, 1, "AAA", 10))

		assert.True(t, decimal.NewFromInt(10000).Equal(store.user.Cash))
		assert.NotContains(t, store.holdings, "AAA")
		assert.Len(t, store.history, 2)
	})

	t.Run("rejects selling more shares than held without mutation", func(t *testing.T) {
		engine, store, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})
		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))

		err := engine.Sell(ctx, 1, "AAA", 11)
		require.ErrorIs(t, err, ErrInsufficientShares)

		h := store.holdings["AAA"]
		require.NotNil(t, h)
		assert.Equal(t, int64(10), h.Shares)
		assert.True(t, decimal.NewFromInt(9500).Equal(store.user.Cash))
		assert.Len(t, store.history, 1)
	})

	t.Run("rejects selling a symbol with no position", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Sell(ctx, 1, "AAA", 1)
		require.ErrorIs(t, err, ErrNoPosition)
	})

	t.Run("rejects zero shares", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		err := engine.Sell(ctx, 1, "AAA", 0)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects sell whose negative proceeds would overdraw cash", func(t *testing.T) {
		// Re-valuing 9 remaining shares at 1000 prices the position at
		// 9000 against an original total of 500; the -8500 proceeds
		// would push the emptied cash balance below zero.
		engine, store, quotes, _ := setupEngine(t, 500, map[string]float64{"AAA": 50})
		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.True(t, store.user.Cash.IsZero())

		quotes.quotes["AAA"] = models.Quote{Symbol: "AAA", Name: "AAA Inc", Price: decimal.NewFromInt(1000)}

		err := engine.Sell(ctx, 1, "AAA", 1)
		require.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(10), store.holdings["AAA"].Shares)
		assert.True(t, store.user.Cash.IsZero())
	})

	t.Run("publishes negative share count", func(t *testing.T) {
		engine, _, _, events := setupEngine(t, 10000, map[string]float64{"AAA": 50})
		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.NoError(t, engine.Sell(ctx, 1, "AAA", 3))

		require.Len(t, events.events, 2)
		assert.Equal(t, int64(-3), events.events[1].Shares)
		assert.True(t, decimal.NewFromInt(150).Equal(events.events[1].Total))
	})
}

func TestQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves known symbol", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 0, map[string]float64{"AAA": 50})

		quote, err := engine.Quote(ctx, "aaa")
		require.NoError(t, err)
		assert.Equal(t, "AAA", quote.Symbol)
		assert.True(t, decimal.NewFromInt(50).Equal(quote.Price))
	})

	t.Run("rejects unknown symbol", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 0, map[string]float64{"AAA": 50})

		_, err := engine.Quote(ctx, "NOPE")
		require.ErrorIs(t, err, ErrUnknownSymbol)
	})

	t.Run("rejects empty symbol without lookup", func(t *testing.T) {
		engine, _, quotes, _ := setupEngine(t, 0, map[string]float64{"AAA": 50})

		_, err := engine.Quote(ctx, "   ")
		require.ErrorIs(t, err, ErrUnknownSymbol)
		assert.Zero(t, quotes.calls)
	})
}

func TestPortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("sums cash and holding totals", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50, "BBB": 20})

		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.NoError(t, engine.Buy(ctx, 1, "BBB", 5))

		portfolio, err := engine.Portfolio(ctx, 1)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(9400).Equal(portfolio.Cash))
		assert.Len(t, portfolio.Holdings, 2)
		assert.True(t, decimal.NewFromInt(10000).Equal(portfolio.Total))
	})

	t.Run("empty portfolio is just cash", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 1234.56, nil)

		portfolio, err := engine.Portfolio(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, portfolio.Holdings)
		assert.True(t, portfolio.Cash.Equal(portfolio.Total))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("records one signed entry per trade", func(t *testing.T) {
		engine, _, _, _ := setupEngine(t, 10000, map[string]float64{"AAA": 50})

		require.NoError(t, engine.Buy(ctx, 1, "AAA", 10))
		require.NoError(t, engine.Sell(ctx, 1, "AAA", 4))

		entries, err := engine.History(ctx, 1)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(10), entries[0].Shares)
		assert.Equal(t, int64(-4), entries[1].Shares)
	})
}
