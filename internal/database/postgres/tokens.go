package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viaacode/teamleader2db/internal/domain"
)

// TokenRepository persists the single OAuth2 credential row for PostgreSQL
type TokenRepository struct {
	db    *pgxpool.Pool
	table string
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db, table: "tl_auth"}
}

// Read returns the stored credential, or ErrNoCredentials when none exists.
func (r *TokenRepository) Read(ctx context.Context) (domain.Credential, error) {
	query := fmt.Sprintf(`SELECT code, auth_token, refresh_token FROM %s LIMIT 1`, r.table)

	var cred domain.Credential
	err := r.db.QueryRow(ctx, query).Scan(&cred.Code, &cred.AuthToken, &cred.RefreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, ErrNoCredentials
		}
		return domain.Credential{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	return cred, nil
}

// Save upserts the single credential row. The insert and the conditional
// update run in one transaction so concurrent callers can never produce a
// second row.
func (r *TokenRepository) Save(ctx context.Context, cred domain.Credential) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int64
	if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count); err != nil {
		return fmt.Errorf("failed to count credentials: %w", err)
	}

	if count == 0 {
		query := fmt.Sprintf(`INSERT INTO %s (code, auth_token, refresh_token) VALUES ($1, $2, $3)`, r.table)
		if _, err := tx.Exec(ctx, query, cred.Code, cred.AuthToken, cred.RefreshToken); err != nil {
			return fmt.Errorf("failed to insert credentials: %w", err)
		}
	} else {
		query := fmt.Sprintf(`UPDATE %s SET code = $1, auth_token = $2, refresh_token = $3, updated_at = now()`, r.table)
		if _, err := tx.Exec(ctx, query, cred.Code, cred.AuthToken, cred.RefreshToken); err != nil {
			return fmt.Errorf("failed to update credentials: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Count returns the number of stored credential rows (0 or 1).
func (r *TokenRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return count, nil
}

// Reset clears all stored credentials.
func (r *TokenRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, r.table)); err != nil {
		return fmt.Errorf("failed to reset credentials: %w", err)
	}
	return nil
}
