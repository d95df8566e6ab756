package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

// TouchSubject inserts the subject or moves its last-seen time forward.
func (s *Store) TouchSubject(ctx context.Context, subjectID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("subject id is required")
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO subjects (id, first_seen_at, last_seen_at)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO UPDATE SET
	first_seen_at = LEAST(subjects.first_seen_at, EXCLUDED.first_seen_at),
	last_seen_at = GREATEST(subjects.last_seen_at, EXCLUDED.last_seen_at)`,
		subjectID, at.UTC())
	if err != nil {
		return fmt.Errorf("touch subject: %w", err)
	}
	return nil
}

// ListSubjects lists subjects most recently seen first with card counts.
func (s *Store) ListSubjects(ctx context.Context, page storage.Page) ([]storage.Subject, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `
SELECT s.id, s.first_seen_at, s.last_seen_at, COUNT(i.id)
FROM subjects s
LEFT JOIN issuances i ON i.subject_id = s.id
GROUP BY s.id, s.first_seen_at, s.last_seen_at
ORDER BY s.last_seen_at DESC, s.id`
	args := []any{}
	if page.PerPage > 0 {
		query += "\nLIMIT $1 OFFSET $2"
		args = append(args, page.PerPage, page.Offset())
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Subject, error) {
		var subject storage.Subject
		err := row.Scan(&subject.ID, &subject.FirstSeen, &subject.LastSeen, &subject.CardCount)
		subject.FirstSeen = subject.FirstSeen.UTC()
		subject.LastSeen = subject.LastSeen.UTC()
		return subject, err
	})
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// SubjectStats counts known subjects.
func (s *Store) SubjectStats(ctx context.Context) (storage.SubjectStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SubjectStats{}, err
	}
	var stats storage.SubjectStats
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&stats.Total); err != nil {
		return storage.SubjectStats{}, fmt.Errorf("subject stats: %w", err)
	}
	return stats, nil
}
