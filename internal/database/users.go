package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/papertrade/brokerage/internal/models"
)

// Sentinel errors surfaced to callers so the request boundary can map
// them to user-facing responses.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// CreateUser inserts a new user row. Cash is initialized by the schema
// default. A unique violation on username maps to ErrDuplicateUsername.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (username, hash)
		VALUES ($1, $2)
		RETURNING id, cash, created_at
	`
	err := db.conn.QueryRowContext(ctx, query, u.Username, u.Hash).
		Scan(&u.ID, &u.Cash, &u.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id
func (db *DB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, hash, cash, created_at FROM users WHERE id = $1`
	return db.scanUser(db.conn.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, hash, cash, created_at FROM users WHERE username = $1`
	return db.scanUser(db.conn.QueryRowContext(ctx, query, username))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var createdAt sql.NullTime

	err := row.Scan(&u.ID, &u.Username, &u.Hash, &u.Cash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	return &u, nil
}

// UpdateUserHash replaces the stored password hash for one user
func (db *DB) UpdateUserHash(ctx context.Context, username, hash string) error {
	query := `UPDATE users SET hash = $2 WHERE username = $1`
	result, err := db.conn.ExecContext(ctx, query, username, hash)
	if err != nil {
		return fmt.Errorf("failed to update user hash: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
