package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO subjects (id, first_seen_at, last_seen_at)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	first_seen_at = MIN(subjects.first_seen_at, excluded.first_seen_at),
	last_seen_at = MAX(subjects.last_seen_at, excluded.last_seen_at)
`, subjectID, toMillis(at), toMillis(at))
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
		query += "\nLIMIT ? OFFSET ?"
		args = append(args, page.PerPage, page.Offset())
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []storage.Subject
	for rows.Next() {
		var (
			subject             storage.Subject
			firstSeen, lastSeen int64
		)
		if err := rows.Scan(&subject.ID, &firstSeen, &lastSeen, &subject.CardCount); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subject.FirstSeen = fromMillis(firstSeen)
		subject.LastSeen = fromMillis(lastSeen)
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// SubjectStats counts known subjects.
func (s *Store) SubjectStats(ctx context.Context) (storage.SubjectStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SubjectStats{}, err
	}
	var stats storage.SubjectStats
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&stats.Total); err != nil {
		return storage.SubjectStats{}, fmt.Errorf("subject stats: %w", err)
	}
	return stats, nil
}
