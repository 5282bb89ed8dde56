package database

import (
	"context"
	"fmt"

	"github.com/papertrade/brokerage/internal/models"
)

// GetHistoryByUser retrieves a user's trade history, most recent first.
// History rows are append-only; they are written inside ExecuteTrade.
func (db *DB) GetHistoryByUser(ctx context.Context, userID int) ([]*models.HistoryEntry, error) {
	query := `
		SELECT id, users_id, symbol, shares, price, time
		FROM history
		WHERE users_id = $1
		ORDER BY time DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Symbol, &e.Shares, &e.Price, &e.Time); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}
