// Package postgres provides the PostgreSQL-backed token ledger and issuance
// store. It mirrors the SQLite store for deployments with an existing
// Postgres server.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/louisbranch/cardpress/internal/platform/timeouts"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store persists tokens and issuance records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreOpen)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.pool == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// CreateToken inserts an unused token.
func (s *Store) CreateToken(ctx context.Context, code, creator string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	creator = strings.TrimSpace(creator)
	if code == "" || creator == "" {
		return fmt.Errorf("token code and creator are required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tokens (code, is_used, created_by, created_at) VALUES ($1, FALSE, $2, $3)`,
		code, creator, time.Now().UTC())
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
	tag, err := s.pool.Exec(ctx, `
UPDATE tokens SET is_used = TRUE, used_by = $1, used_at = $2
WHERE code = $3 AND is_used = FALSE`, redeemer, at.UTC(), code)
	if err != nil {
		return false, fmt.Errorf("redeem token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetToken returns one token by code.
func (s *Store) GetToken(ctx context.Context, code string) (storage.Token, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Token{}, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT code, is_used, created_by, used_by, created_at, used_at FROM tokens WHERE code = $1`,
		strings.TrimSpace(code))
	if err != nil {
		return storage.Token{}, fmt.Errorf("get token: %w", err)
	}
	token, err := pgx.CollectExactlyOneRow(rows, scanToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Token{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Token{}, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// TokenStats counts total and used tokens.
func (s *Store) TokenStats(ctx context.Context) (storage.TokenStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TokenStats{}, err
	}
	var stats storage.TokenStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used) FROM tokens`).Scan(&stats.Total, &stats.Used)
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
	rows, err := s.pool.Query(ctx, `
SELECT code, is_used, created_by, used_by, created_at, used_at
FROM tokens WHERE is_used = FALSE
ORDER BY created_at DESC, code DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unused tokens: %w", err)
	}
	tokens, err := pgx.CollectRows(rows, scanToken)
	if err != nil {
		return nil, fmt.Errorf("list unused tokens: %w", err)
	}
	return tokens, nil
}

func scanToken(row pgx.CollectableRow) (storage.Token, error) {
	var (
		token  storage.Token
		usedBy *string
		usedAt *time.Time
	)
	if err := row.Scan(&token.Code, &token.Used, &token.CreatedBy, &usedBy, &token.CreatedAt, &usedAt); err != nil {
		return storage.Token{}, err
	}
	if usedBy != nil {
		token.UsedBy = *usedBy
	}
	if usedAt != nil {
		token.UsedAt = usedAt.UTC()
	}
	token.CreatedAt = token.CreatedAt.UTC()
	return token, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ storage.TokenStore    = (*Store)(nil)
	_ storage.IssuanceStore = (*Store)(nil)
	_ storage.SubjectStore  = (*Store)(nil)
	_ storage.Store         = (*Store)(nil)
)
