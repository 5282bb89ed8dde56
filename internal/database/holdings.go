package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/papertrade/brokerage/internal/models"
)

// ErrHoldingNotFound is returned when a user holds no position in a symbol.
var ErrHoldingNotFound = errors.New("holding not found")

// GetHolding retrieves one user's position in a symbol
func (db *DB) GetHolding(ctx context.Context, userID int, symbol string) (*models.Holding, error) {
	query := `
		SELECT user_id, symbol, name, shares, price, total
		FROM bought
		WHERE user_id = $1 AND symbol = $2
	`
	var h models.Holding
	err := db.conn.QueryRowContext(ctx, query, userID, symbol).
		Scan(&h.UserID, &h.Symbol, &h.Name, &h.Shares, &h.Price, &h.Total)

	if err == sql.ErrNoRows {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// GetHoldingsByUser retrieves all of a user's positions ordered by symbol
func (db *DB) GetHoldingsByUser(ctx context.Context, userID int) ([]*models.Holding, error) {
	query := `
		SELECT user_id, symbol, name, shares, price, total
		FROM bought
		WHERE user_id = $1
		ORDER BY symbol ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Name, &h.Shares, &h.Price, &h.Total); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}
	return holdings, nil
}
