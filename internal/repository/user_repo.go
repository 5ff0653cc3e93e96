package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tribunapp/prediction/internal/domain"
)

// UserRepository reads platform user rows and moves the coins balance.
// Profile writes belong to the platform's auth service; here only the coins
// column is ever mutated.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByID: %w", err)
	}
	return &u, nil
}

// DebitCoins subtracts a stake from the user's balance inside a transaction.
// The FOR UPDATE lock serialises concurrent debits on the same user; an
// insufficient balance returns a typed error carrying the exact shortfall.
func (r *UserRepository) DebitCoins(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64) error {
	var u struct {
		Coins    int64 `db:"coins"`
		IsActive bool  `db:"is_active"`
	}
	err := tx.GetContext(ctx, &u,
		`SELECT coins, is_active FROM users WHERE id = $1 FOR UPDATE`,
		userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("user_repo.DebitCoins lock: %w", err)
	}

	if !u.IsActive {
		return domain.ErrUserInactive
	}
	if u.Coins < amount {
		return &domain.InsufficientBalanceError{Balance: u.Coins, Required: amount}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET coins = coins - $1, updated_at = now() WHERE id = $2`,
		amount, userID)
	if err != nil {
		return fmt.Errorf("user_repo.DebitCoins update: %w", err)
	}
	return nil
}

// CreditCoins adds a payout or refund to the user's balance inside a
// transaction.
func (r *UserRepository) CreditCoins(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET coins = coins + $1, updated_at = now() WHERE id = $2`,
		amount, userID)
	if err != nil {
		return fmt.Errorf("user_repo.CreditCoins: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// GetCoins returns the user's current balance.
func (r *UserRepository) GetCoins(ctx context.Context, userID uuid.UUID) (int64, error) {
	var coins int64
	err := r.db.GetContext(ctx, &coins, `SELECT coins FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("user_repo.GetCoins: %w", err)
	}
	return coins, nil
}
