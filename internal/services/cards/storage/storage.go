// Package storage defines the persistence contracts for tokens and issuance
// records.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
)

var (
	// ErrDuplicateCode indicates a token code already exists.
	ErrDuplicateCode = apperrors.New(apperrors.CodeDuplicateCode, "token code already exists")
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrTokenNotRedeemed indicates an issuance references a token that is not
	// used by the record's subject.
	ErrTokenNotRedeemed = apperrors.New(apperrors.CodeTokenNotRedeemed, "token is not redeemed by subject")
	// ErrAlreadyIssued indicates a token already backs an issuance record.
	ErrAlreadyIssued = apperrors.New(apperrors.CodeAlreadyIssued, "token already has an issued card")
)

// Token is one single-use issuance code.
type Token struct {
	Code      string
	Used      bool
	CreatedBy string
	UsedBy    string
	CreatedAt time.Time
	UsedAt    time.Time
}

// TokenStats summarises the ledger. Available is always Total - Used.
type TokenStats struct {
	Total     int
	Used      int
	Available int
}

// IssuanceRecord is one issued card.
type IssuanceRecord struct {
	ID              int64
	SubjectID       string
	Name            string
	Father          string
	Phone           string
	Department      string
	BloodGroup      string
	StudentID       string
	InstitutionID   string
	InstitutionName string
	Authority       string
	Payload         string
	ArtifactPath    string
	TokenCode       string
	CreatedAt       time.Time
}

// InstitutionCount is the number of cards issued for one institution.
type InstitutionCount struct {
	InstitutionID   string
	InstitutionName string
	Count           int
}

// IssuanceStats summarises issued cards.
type IssuanceStats struct {
	Total         int
	Recent        int
	RecentSince   time.Time
	ByInstitution []InstitutionCount
}

// Subject is one person who has started an intake.
type Subject struct {
	ID        string
	FirstSeen time.Time
	LastSeen  time.Time
	CardCount int
}

// SubjectStats summarises known subjects.
type SubjectStats struct {
	Total int
}

// Page selects a window of a newest-first listing. Zero PerPage means no limit.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the row offset for the page, treating Number < 1 as 1.
func (p Page) Offset() int {
	if p.PerPage <= 0 || p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// TokenStore persists the token ledger.
type TokenStore interface {
	// CreateToken inserts an unused token, returning ErrDuplicateCode when the
	// code exists.
	CreateToken(ctx context.Context, code, creator string) error
	// RedeemToken marks an unused token used by redeemer in one conditional
	// update. It reports false, with no side effects, when the token is
	// missing or already used.
	RedeemToken(ctx context.Context, code, redeemer string, at time.Time) (bool, error)
	GetToken(ctx context.Context, code string) (Token, error)
	TokenStats(ctx context.Context) (TokenStats, error)
	ListUnusedTokens(ctx context.Context, limit int) ([]Token, error)
}

// IssuanceStore persists issuance records.
type IssuanceStore interface {
	// AppendIssuance inserts a record whose token is already redeemed by the
	// record's subject, otherwise ErrTokenNotRedeemed.
	AppendIssuance(ctx context.Context, record IssuanceRecord) (int64, error)
	GetIssuance(ctx context.Context, id int64) (IssuanceRecord, error)
	ListIssuancesBySubject(ctx context.Context, subjectID string) ([]IssuanceRecord, error)
	ListIssuances(ctx context.Context, page Page) ([]IssuanceRecord, error)
	// DeleteIssuance removes the record and returns it so callers can clean
	// up its artifact.
	DeleteIssuance(ctx context.Context, id int64) (IssuanceRecord, error)
	IssuanceStats(ctx context.Context, since time.Time) (IssuanceStats, error)
}

// SubjectStore persists the registry of subjects that started an intake.
type SubjectStore interface {
	// TouchSubject records subjectID as seen at at, keeping the first-seen
	// time of an existing subject.
	TouchSubject(ctx context.Context, subjectID string, at time.Time) error
	// ListSubjects lists subjects most recently seen first, with their
	// current card counts.
	ListSubjects(ctx context.Context, page Page) ([]Subject, error)
	SubjectStats(ctx context.Context) (SubjectStats, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	TokenStore
	IssuanceStore
	SubjectStore
	Close() error
}
