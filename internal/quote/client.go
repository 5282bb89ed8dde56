package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/brokerage/internal/ledger"
	"github.com/papertrade/brokerage/internal/models"
)

// Client looks up quotes against an IEX-style REST endpoint
// (GET {base}/stock/{symbol}/quote?token=...). A 404 from the
// provider means the symbol does not exist.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a quote client for the given provider endpoint
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type quoteResponse struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

// Lookup resolves a symbol to its current quote. Unknown symbols map
// to ledger.ErrUnknownSymbol.
func (c *Client) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	u := fmt.Sprintf("%s/stock/%s/quote?token=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ledger.ErrUnknownSymbol
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if body.Symbol == "" {
		return nil, ledger.ErrUnknownSymbol
	}

	return &models.Quote{
		Symbol: body.Symbol,
		Name:   body.CompanyName,
		Price:  body.LatestPrice,
	}, nil
}
