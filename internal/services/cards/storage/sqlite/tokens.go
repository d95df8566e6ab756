package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

// CreateToken inserts an unused token.
func (s *Store) CreateToken(ctx context.Context, code, creator string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	creator = strings.TrimSpace(creator)
	if code == "" {
		return fmt.Errorf("token code is required")
	}
	if creator == "" {
		return fmt.Errorf("token creator is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tokens (code, is_used, created_by, created_at)
VALUES (?, 0, ?, ?)
`, code, creator, toMillis(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateCode
		}
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// RedeemToken marks the token used by redeemer if, and only if, it is unused.
func (s *Store) RedeemToken(ctx context.Context, code, redeemer string, at time.Time) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	redeemer = strings.TrimSpace(redeemer)
	if code == "" || redeemer == "" {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now()
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE tokens
SET is_used = 1, used_by = ?, used_at = ?
WHERE code = ? AND is_used = 0
`, redeemer, toMillis(at), code)
	if err != nil {
		return false, fmt.Errorf("redeem token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("redeem token rows affected: %w", err)
	}
	return affected == 1, nil
}

// GetToken returns one token by code.
func (s *Store) GetToken(ctx context.Context, code string) (storage.Token, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Token{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT code, is_used, created_by, used_by, created_at, used_at
FROM tokens WHERE code = ?
`, strings.TrimSpace(code))
	token, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Token{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Token{}, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// TokenStats counts total and used tokens in one query.
func (s *Store) TokenStats(ctx context.Context) (storage.TokenStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TokenStats{}, err
	}
	var stats storage.TokenStats
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(is_used), 0) FROM tokens
`).Scan(&stats.Total, &stats.Used)
	if err != nil {
		return storage.TokenStats{}, fmt.Errorf("token stats: %w", err)
	}
	stats.Available = stats.Total - stats.Used
	return stats, nil
}

// ListUnusedTokens lists newest-first unused tokens.
func (s *Store) ListUnusedTokens(ctx context.Context, limit int) ([]storage.Token, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT code, is_used, created_by, used_by, created_at, used_at
FROM tokens
WHERE is_used = 0
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unused tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]storage.Token, 0, limit)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (storage.Token, error) {
	var (
		token     storage.Token
		used      int
		usedBy    sql.NullString
		createdAt int64
		usedAt    sql.NullInt64
	)
	if err := row.Scan(&token.Code, &used, &token.CreatedBy, &usedBy, &createdAt, &usedAt); err != nil {
		return storage.Token{}, err
	}
	token.Used = used == 1
	token.UsedBy = usedBy.String
	token.CreatedAt = fromMillis(createdAt)
	token.UsedAt = fromNullMillis(usedAt)
	return token, nil
}
