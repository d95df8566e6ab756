package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

// RecentWindow is the period counted as recent in reports.
const RecentWindow = 7 * 24 * time.Hour

// Report is the administrative overview of tokens and cards.
type Report struct {
	Tokens    storage.TokenStats
	Issuances storage.IssuanceStats
	Subjects  storage.SubjectStats
}

// Reporter aggregates ledger and issuance statistics.
type Reporter struct {
	tokens    storage.TokenStore
	issuances storage.IssuanceStore
	subjects  storage.SubjectStore
	clock     func() time.Time
}

// NewReporter returns a reporter over the stores. A nil subjects store
// reports zero subjects.
func NewReporter(tokens storage.TokenStore, issuances storage.IssuanceStore, subjects storage.SubjectStore) *Reporter {
	return &Reporter{tokens: tokens, issuances: issuances, subjects: subjects, clock: time.Now}
}

// Report collects current statistics.
func (r *Reporter) Report(ctx context.Context) (Report, error) {
	tokens, err := r.tokens.TokenStats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("token stats: %w", err)
	}
	issuances, err := r.issuances.IssuanceStats(ctx, r.clock().UTC().Add(-RecentWindow))
	if err != nil {
		return Report{}, fmt.Errorf("issuance stats: %w", err)
	}
	report := Report{Tokens: tokens, Issuances: issuances}
	if r.subjects != nil {
		report.Subjects, err = r.subjects.SubjectStats(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("subject stats: %w", err)
		}
	}
	return report, nil
}
