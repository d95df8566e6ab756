package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/services/cards/domain"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

// Issuer is the subset of issuance.Issuer a session drives.
type Issuer interface {
	Issue(ctx context.Context, req domain.IssuanceRequest) (storage.IssuanceRecord, error)
	AssignDepartment(institutionID string) (string, error)
	TouchSubject(ctx context.Context, subjectID string) error
	Registry() *domain.Registry
}

var _ Issuer = (*issuance.Issuer)(nil)

// Reply is the outcome of applying an event.
type Reply struct {
	State        State
	Prompt       string
	Institutions []domain.Institution
	Record       *storage.IssuanceRecord
}

// Session is one subject's intake. It is safe for concurrent use; events
// are applied one at a time.
type Session struct {
	mu      sync.Mutex
	state   State
	request domain.IssuanceRequest
	issuer  Issuer
	metrics *metrics.Metrics
}

// NewSession returns an idle session for subjectID.
func NewSession(subjectID string, issuer Issuer, m *metrics.Metrics) *Session {
	return &Session{
		state:   StateIdle,
		request: domain.IssuanceRequest{SubjectID: subjectID},
		issuer:  issuer,
		metrics: m,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reply returns the current state with its prompt.
func (s *Session) Reply() Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply("")
}

// Request returns a copy of the collected request.
func (s *Session) Request() domain.IssuanceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// Apply feeds one event to the session. Events not accepted in the current
// state fail with INTAKE_INVALID_TRANSITION. Input rejected by validation
// returns the error alongside a reply re-prompting the same state.
func (s *Session) Apply(ctx context.Context, event Event) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := Next(s.state, event.Kind)
	if !ok {
		return s.reply(""), apperrors.WithMetadata(apperrors.CodeIntakeInvalidTransition,
			fmt.Sprintf("%s is not accepted while %s", event.Kind, s.state),
			map[string]string{"state": s.state.String(), "event": string(event.Kind)})
	}

	switch event.Kind {
	case EventStart:
		s.request = domain.IssuanceRequest{SubjectID: s.request.SubjectID}
		if err := s.issuer.TouchSubject(ctx, s.request.SubjectID); err != nil {
			log.Printf("record subject %s: %v", s.request.SubjectID, err)
		}
		return s.advance(next, ""), nil
	case EventCancel:
		s.request = domain.IssuanceRequest{SubjectID: s.request.SubjectID}
		return s.advance(next, ""), nil
	}

	switch s.state {
	case StateCollectingName:
		name := strings.TrimSpace(event.Text)
		if name == "" {
			return s.reply("Please enter your full name:"), apperrors.New(apperrors.CodeInvalidArgument, "name is required")
		}
		s.request.Name = name
	case StateCollectingFather:
		father := strings.TrimSpace(event.Text)
		if father == "" {
			return s.reply("Please enter your father's name:"), apperrors.New(apperrors.CodeInvalidArgument, "father's name is required")
		}
		s.request.Father = father
	case StateCollectingPhone:
		phone, err := domain.NormalizePhone(event.Text)
		if err != nil {
			return s.reply("Please enter a valid phone number (digits only):"), err
		}
		s.request.Phone = phone
	case StateAwaitingPhoto:
		s.request.PhotoPath = ""
		if event.Kind == EventPhoto {
			s.request.PhotoPath = strings.TrimSpace(event.PhotoPath)
		}
	case StateSelectingInstitution:
		department, err := s.issuer.AssignDepartment(strings.TrimSpace(event.InstitutionID))
		if err != nil {
			return s.reply(""), err
		}
		s.request.InstitutionID = strings.TrimSpace(event.InstitutionID)
		s.request.Department = department
	case StateAwaitingToken:
		req := s.request
		req.TokenCode = strings.TrimSpace(event.Text)
		record, err := s.issuer.Issue(ctx, req)
		if err != nil {
			if errors.Is(err, issuance.ErrRedemptionFailed) {
				return s.reply("Invalid or already used token. Please enter a valid token:"), err
			}
			return s.reply("Card generation failed. Please try again with a valid token:"), err
		}
		reply := s.advance(next, "")
		reply.Record = &record
		s.request = domain.IssuanceRequest{SubjectID: s.request.SubjectID}
		return reply, nil
	}
	return s.advance(next, ""), nil
}

func (s *Session) advance(next State, prompt string) Reply {
	s.state = next
	s.metrics.IncrementTransition(next.String())
	return s.reply(prompt)
}

func (s *Session) reply(prompt string) Reply {
	if prompt == "" {
		prompt = s.prompt()
	}
	reply := Reply{State: s.state, Prompt: prompt}
	if s.state == StateSelectingInstitution {
		reply.Institutions = s.issuer.Registry().List()
	}
	return reply
}

func (s *Session) prompt() string {
	switch s.state {
	case StateCollectingName:
		return "Please enter your full name as it should appear on the card:"
	case StateCollectingFather:
		return "Please enter your father's name:"
	case StateCollectingPhone:
		return "Please enter your phone number:"
	case StateAwaitingPhoto:
		return "Upload a clear, front-facing photo or skip this step."
	case StateSelectingInstitution:
		if s.request.PhotoPath == "" {
			return "Continuing without a photo. Choose your institution:"
		}
		return "Photo received. Choose your institution:"
	case StateAwaitingToken:
		return fmt.Sprintf("Department %s assigned. Enter your token to generate the card:", s.request.Department)
	case StateDone:
		return "Your card is ready."
	case StateCancelled:
		return "Card generation cancelled. Start again anytime."
	default:
		return "Start a new card request."
	}
}
