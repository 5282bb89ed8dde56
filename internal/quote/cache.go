package quote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/papertrade/brokerage/internal/ledger"
	"github.com/papertrade/brokerage/internal/models"
)

// Cache wraps a quote provider with a short-lived redis cache so a
// burst of requests for the same symbol hits the upstream provider
// once. Redis failures fall through to the upstream provider.
type Cache struct {
	next ledger.QuoteProvider
	rdb  *redis.Client
	ttl  time.Duration
	log  *logrus.Logger
}

// NewCache creates a caching decorator around next
func NewCache(next ledger.QuoteProvider, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, log: log}
}

// Lookup returns the cached quote for symbol, falling back to the
// wrapped provider and caching its answer.
func (c *Cache) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	key := "quote:" + symbol

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var q models.Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return &q, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("quote cache read failed")
	}

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("quote cache write failed")
		}
	}
	return q, nil
}
