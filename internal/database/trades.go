package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/papertrade/brokerage/internal/models"
)

// ExecuteTrade runs one buy or sell as a single transaction. The user
// row is locked FOR UPDATE before anything is read, so concurrent
// trades for the same user serialize and never observe a half-applied
// state. fn computes the transition from the locked cash balance and
// current holding (nil when the user has no position in symbol); any
// error it returns aborts the transaction untouched and is passed
// through to the caller unwrapped.
func (db *DB) ExecuteTrade(ctx context.Context, userID int, symbol string,
	fn func(cash decimal.Decimal, holding *models.Holding) (*models.TradeTransition, error)) error {

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trade transaction: %w", err)
	}
	defer tx.Rollback()

	var cash decimal.Decimal
	err = tx.QueryRowContext(ctx, `SELECT cash FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&cash)
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock user row: %w", err)
	}

	holding, err := lockHolding(ctx, tx, userID, symbol)
	if err != nil {
		return err
	}

	transition, err := fn(cash, holding)
	if err != nil {
		return err
	}

	if err := applyHolding(ctx, tx, userID, symbol, transition.Holding); err != nil {
		return err
	}

	entry := transition.Entry
	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (users_id, symbol, shares, price, time) VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Symbol, entry.Shares, entry.Price, entry.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET cash = $2 WHERE id = $1`, userID, transition.NewCash)
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}
	return nil
}

func lockHolding(ctx context.Context, tx *sql.Tx, userID int, symbol string) (*models.Holding, error) {
	query := `
		SELECT user_id, symbol, name, shares, price, total
		FROM bought
		WHERE user_id = $1 AND symbol = $2
		FOR UPDATE
	`
	var h models.Holding
	err := tx.QueryRowContext(ctx, query, userID, symbol).
		Scan(&h.UserID, &h.Symbol, &h.Name, &h.Shares, &h.Price, &h.Total)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock holding: %w", err)
	}
	return &h, nil
}

func applyHolding(ctx context.Context, tx *sql.Tx, userID int, symbol string, h *models.Holding) error {
	if h == nil {
		_, err := tx.ExecContext(ctx, `DELETE FROM bought WHERE user_id = $1 AND symbol = $2`, userID, symbol)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO bought (user_id, symbol, name, shares, price, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			name = EXCLUDED.name,
			shares = EXCLUDED.shares,
			price = EXCLUDED.price,
			total = EXCLUDED.total
	`
	_, err := tx.ExecContext(ctx, query, h.UserID, h.Symbol, h.Name, h.Shares, h.Price, h.Total)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}
