package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hanzara/chamapay-backend/internal/models"
)

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, phone_number, full_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query, user.ID, user.Email, user.PhoneNumber, user.FullName, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, phone_number, full_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1`
	err := q.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PhoneNumber, &user.FullName, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EnsureUserWallet creates the user's personal wallet if it does not exist
// and returns it.
func (q *Queries) EnsureUserWallet(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error) {
	wallet := &models.UserWallet{}
	query := `
		INSERT INTO user_wallets (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, 0, 'KES', NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = user_wallets.updated_at
		RETURNING id, user_id, balance, currency, created_at, updated_at`
	err := q.db.QueryRow(ctx, query, uuid.New(), userID).Scan(
		&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.Currency,
		&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user wallet: %w", err)
	}
	return wallet, nil
}

// CreditUserWallet moves the personal wallet by delta cents. Negative deltas
// are guarded by the balance check.
func (q *Queries) CreditUserWallet(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	query := `
		UPDATE user_wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING balance`
	var balance int64
	err := q.db.QueryRow(ctx, query, userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit user wallet: %w", err)
	}
	return balance, nil
}
