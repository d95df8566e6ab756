// Package issuance orchestrates token redemption, card rendering and
// issuance records.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/platform/otel"
	"github.com/louisbranch/cardpress/internal/random"
	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/domain"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

// ErrRedemptionFailed is returned when a token is missing or already used.
var ErrRedemptionFailed = apperrors.New(apperrors.CodeRedemptionFailed, "token is invalid or already used")

// Renderer composes a card and returns the written artifact path.
type Renderer interface {
	Render(ctx context.Context, institutionID string, fields domain.CardFields, payload, photoPath string) (string, error)
}

// Issuer turns complete intake requests into issued cards.
type Issuer struct {
	tokens    storage.TokenStore
	issuances storage.IssuanceStore
	registry  *domain.Registry
	renderer  Renderer
	metrics   *metrics.Metrics
	subjects  storage.SubjectStore

	rng   domain.IntN
	clock func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithRand sets the source for blood groups, student ids and departments.
// The source must be safe for concurrent use.
func WithRand(rng domain.IntN) Option {
	return func(i *Issuer) { i.rng = rng }
}

// WithClock sets the issue timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(i *Issuer) { i.clock = clock }
}

// WithSubjects keeps the registry of subjects that start an intake.
func WithSubjects(subjects storage.SubjectStore) Option {
	return func(i *Issuer) { i.subjects = subjects }
}

// WithMetrics records issuance outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Issuer) { i.metrics = m }
}

// NewIssuer builds an issuer over the given collaborators.
func NewIssuer(tokens storage.TokenStore, issuances storage.IssuanceStore, registry *domain.Registry, renderer Renderer, opts ...Option) (*Issuer, error) {
	if tokens == nil || issuances == nil {
		return nil, errors.New("token and issuance stores are required")
	}
	if registry == nil {
		return nil, errors.New("institution registry is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	issuer := &Issuer{
		tokens:    tokens,
		issuances: issuances,
		registry:  registry,
		renderer:  renderer,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	if issuer.rng == nil {
		rng, err := random.NewLocked()
		if err != nil {
			return nil, fmt.Errorf("seed issuer: %w", err)
		}
		issuer.rng = rng
	}
	return issuer, nil
}

// Registry returns the institution registry.
func (i *Issuer) Registry() *domain.Registry {
	return i.registry
}

// Issue redeems the request's token, renders the card and records it. The
// institution is checked before the token is touched. A render failure after
// redemption leaves the token used and persists nothing.
func (i *Issuer) Issue(ctx context.Context, req domain.IssuanceRequest) (storage.IssuanceRecord, error) {
	ctx, span := otel.Tracer("issuance").Start(ctx, "issuance.issue")
	defer span.End()

	if err := req.Validate(); err != nil {
		return storage.IssuanceRecord{}, err
	}
	inst, err := i.registry.Lookup(req.InstitutionID)
	if err != nil {
		return storage.IssuanceRecord{}, err
	}
	span.SetAttributes(attribute.String("institution.id", inst.ID))

	code := strings.ToUpper(strings.TrimSpace(req.TokenCode))
	now := i.clock().UTC()
	ok, err := i.tokens.RedeemToken(ctx, code, req.SubjectID, now)
	if err != nil {
		return storage.IssuanceRecord{}, fmt.Errorf("redeem token: %w", err)
	}
	if !ok {
		i.metrics.IncrementRedeemFailure()
		return storage.IssuanceRecord{}, ErrRedemptionFailed
	}

	fields := i.cardFields(req, inst, now)
	payload := domain.Payload{Fields: fields, Institution: inst.Name, TokenCode: code}.String()

	started := time.Now()
	path, err := i.renderer.Render(ctx, inst.ID, fields, payload, req.PhotoPath)
	i.metrics.ObserveRender(time.Since(started))
	if err != nil {
		log.Printf("render card for %s after redeeming %s: %v", req.SubjectID, code, err)
		return storage.IssuanceRecord{}, fmt.Errorf("render card: %w", err)
	}

	record := storage.IssuanceRecord{
		SubjectID:       req.SubjectID,
		Name:            fields.Name,
		Father:          fields.Father,
		Phone:           fields.Phone,
		Department:      fields.Department,
		BloodGroup:      fields.BloodGroup,
		StudentID:       fields.StudentID,
		InstitutionID:   inst.ID,
		InstitutionName: inst.Name,
		Authority:       inst.Authority,
		Payload:         payload,
		ArtifactPath:    path,
		TokenCode:       code,
		CreatedAt:       now,
	}
	id, err := i.issuances.AppendIssuance(ctx, record)
	if err != nil {
		if removeErr := artifacts.Remove(path); removeErr != nil {
			log.Printf("remove orphaned card %s: %v", path, removeErr)
		}
		return storage.IssuanceRecord{}, fmt.Errorf("append issuance: %w", err)
	}
	record.ID = id
	i.metrics.IncrementIssued(inst.ID)
	return record, nil
}

// AssignDepartment picks a department offered by the institution.
func (i *Issuer) AssignDepartment(institutionID string) (string, error) {
	inst, err := i.registry.Lookup(institutionID)
	if err != nil {
		return "", err
	}
	department, _ := domain.PickRandom(inst.Departments, i.rng)
	return department, nil
}

func (i *Issuer) cardFields(req domain.IssuanceRequest, inst domain.Institution, now time.Time) domain.CardFields {
	phone, _ := domain.NormalizePhone(req.Phone)
	department := strings.TrimSpace(req.Department)
	if department == "" {
		department, _ = domain.PickRandom(inst.Departments, i.rng)
	}
	bloodGroup, _ := domain.PickRandom(domain.BloodGroups, i.rng)
	return domain.CardFields{
		Name:       strings.TrimSpace(req.Name),
		Father:     strings.TrimSpace(req.Father),
		Phone:      phone,
		Department: department,
		BloodGroup: bloodGroup,
		StudentID:  domain.StudentID(inst.ShortName, i.rng),
		IssueDate:  now,
	}
}

// Get returns one issuance record.
func (i *Issuer) Get(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	return i.issuances.GetIssuance(ctx, id)
}

// ListBySubject returns a subject's cards, newest first.
func (i *Issuer) ListBySubject(ctx context.Context, subjectID string) ([]storage.IssuanceRecord, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "subject id is required")
	}
	return i.issuances.ListIssuancesBySubject(ctx, subjectID)
}

// List returns a page of all cards, newest first.
func (i *Issuer) List(ctx context.Context, page storage.Page) ([]storage.IssuanceRecord, error) {
	return i.issuances.ListIssuances(ctx, page)
}

// TouchSubject records that subjectID started an intake. It is a no-op
// without a subject store.
func (i *Issuer) TouchSubject(ctx context.Context, subjectID string) error {
	if i.subjects == nil {
		return nil
	}
	if strings.TrimSpace(subjectID) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "subject id is required")
	}
	return i.subjects.TouchSubject(ctx, subjectID, i.clock().UTC())
}

// ListSubjects returns a page of known subjects, most recently seen first.
func (i *Issuer) ListSubjects(ctx context.Context, page storage.Page) ([]storage.Subject, error) {
	if i.subjects == nil {
		return nil, nil
	}
	return i.subjects.ListSubjects(ctx, page)
}

// Delete removes a record and then its card file. A missing file is not an
// error and other removal failures are only logged.
func (i *Issuer) Delete(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	record, err := i.issuances.DeleteIssuance(ctx, id)
	if err != nil {
		return storage.IssuanceRecord{}, err
	}
	if err := artifacts.Remove(record.ArtifactPath); err != nil {
		log.Printf("remove card %s: %v", record.ArtifactPath, err)
	}
	return record, nil
}
