package intake

import (
	"context"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
)

// Sessions keeps one intake session per subject.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	issuer   Issuer
	metrics  *metrics.Metrics
}

// NewSessions returns an empty session registry.
func NewSessions(issuer Issuer, m *metrics.Metrics) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		issuer:   issuer,
		metrics:  m,
	}
}

// Get returns the subject's session, if one exists.
func (s *Sessions) Get(subjectID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[subjectID]
	return session, ok
}

// Apply routes event to the subject's session, creating it on first use.
// Finished and cancelled sessions are forgotten.
func (s *Sessions) Apply(ctx context.Context, subjectID string, event Event) (Reply, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Reply{}, apperrors.New(apperrors.CodeInvalidArgument, "subject id is required")
	}

	s.mu.Lock()
	session, ok := s.sessions[subjectID]
	if !ok {
		session = NewSession(subjectID, s.issuer, s.metrics)
		s.sessions[subjectID] = session
	}
	s.mu.Unlock()

	reply, err := session.Apply(ctx, event)
	if err == nil && (reply.State == StateCancelled || reply.State == StateDone) {
		s.mu.Lock()
		if s.sessions[subjectID] == session {
			delete(s.sessions, subjectID)
		}
		s.mu.Unlock()
	}
	return reply, err
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
