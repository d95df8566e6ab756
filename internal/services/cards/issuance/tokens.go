package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/random"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

const (
	// TokenLength is the number of characters in a generated code.
	TokenLength = 8
	// MaxTokensPerRequest bounds one generation call.
	MaxTokensPerRequest = 100
)

// TokenGenerator creates batches of random unused tokens.
type TokenGenerator struct {
	store   storage.TokenStore
	metrics *metrics.Metrics
	code    func() (string, error)
}

// NewTokenGenerator returns a generator writing to store.
func NewTokenGenerator(store storage.TokenStore, m *metrics.Metrics) (*TokenGenerator, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	return &TokenGenerator{
		store:   store,
		metrics: m,
		code: func() (string, error) {
			return random.String(random.Alphanumeric, TokenLength)
		},
	}, nil
}

// Generate creates count tokens owned by creator and returns their codes.
// Duplicate codes are retried with fresh ones.
func (g *TokenGenerator) Generate(ctx context.Context, count int, creator string) ([]string, error) {
	if count < 1 || count > MaxTokensPerRequest {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("token count must be between 1 and %d", MaxTokensPerRequest))
	}
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "creator is required")
	}

	codes := make([]string, 0, count)
	attempts := count*4 + 16
	for len(codes) < count {
		if attempts == 0 {
			g.metrics.AddTokensGenerated(len(codes))
			return codes, fmt.Errorf("generate tokens: exhausted retries after %d codes", len(codes))
		}
		attempts--

		code, err := g.code()
		if err != nil {
			return codes, fmt.Errorf("generate token code: %w", err)
		}
		if err := g.store.CreateToken(ctx, code, creator); err != nil {
			if errors.Is(err, storage.ErrDuplicateCode) {
				continue
			}
			g.metrics.AddTokensGenerated(len(codes))
			return codes, fmt.Errorf("create token: %w", err)
		}
		codes = append(codes, code)
	}
	g.metrics.AddTokensGenerated(len(codes))
	return codes, nil
}

// Unused returns up to limit unused tokens, newest first.
func (g *TokenGenerator) Unused(ctx context.Context, limit int) ([]storage.Token, error) {
	if limit <= 0 {
		limit = 50
	}
	return g.store.ListUnusedTokens(ctx, limit)
}
