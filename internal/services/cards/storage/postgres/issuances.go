package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

const issuanceColumns = `id, subject_id, name, father, phone, department, blood_group, student_id,
	institution_id, institution_name, authority, payload, artifact_path, token_code, created_at`

// AppendIssuance inserts record only when its token is used by the record's
// subject.
func (s *Store) AppendIssuance(ctx context.Context, record storage.IssuanceRecord) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	record.SubjectID = strings.TrimSpace(record.SubjectID)
	record.TokenCode = strings.TrimSpace(record.TokenCode)
	if record.SubjectID == "" || record.TokenCode == "" || strings.TrimSpace(record.ArtifactPath) == "" {
		return 0, fmt.Errorf("subject id, token code and artifact path are required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO issuances (
	subject_id, name, father, phone, department, blood_group, student_id,
	institution_id, institution_name, authority, payload, artifact_path, token_code, created_at
)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
WHERE EXISTS (SELECT 1 FROM tokens WHERE code = $13 AND is_used AND used_by = $1)
RETURNING id`,
		record.SubjectID, record.Name, record.Father, record.Phone, record.Department,
		record.BloodGroup, record.StudentID, record.InstitutionID, record.InstitutionName,
		record.Authority, record.Payload, record.ArtifactPath, record.TokenCode, record.CreatedAt.UTC(),
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, storage.ErrTokenNotRedeemed
	case isUniqueViolation(err):
		return 0, storage.ErrAlreadyIssued
	case err != nil:
		return 0, fmt.Errorf("append issuance: %w", err)
	}
	return id, nil
}

// GetIssuance returns one record by id.
func (s *Store) GetIssuance(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceRecord{}, err
	}
	return s.one(ctx, `SELECT `+issuanceColumns+` FROM issuances WHERE id = $1`, id)
}

// ListIssuancesBySubject lists a subject's records newest first.
func (s *Store) ListIssuancesBySubject(ctx context.Context, subjectID string) ([]storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.many(ctx, `SELECT `+issuanceColumns+` FROM issuances
WHERE subject_id = $1 ORDER BY created_at DESC, id DESC`, strings.TrimSpace(subjectID))
}

// ListIssuances lists all records newest first, optionally paged.
func (s *Store) ListIssuances(ctx context.Context, page storage.Page) ([]storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + issuanceColumns + ` FROM issuances ORDER BY created_at DESC, id DESC`
	if page.PerPage <= 0 {
		return s.many(ctx, query)
	}
	return s.many(ctx, query+` LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
}

// DeleteIssuance removes a record and returns what was removed.
func (s *Store) DeleteIssuance(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceRecord{}, err
	}
	return s.one(ctx, `DELETE FROM issuances WHERE id = $1 RETURNING `+issuanceColumns, id)
}

// IssuanceStats aggregates totals, recent records and per-institution counts.
func (s *Store) IssuanceStats(ctx context.Context, since time.Time) (storage.IssuanceStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceStats{}, err
	}
	stats := storage.IssuanceStats{RecentSince: since.UTC()}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1) FROM issuances`, since.UTC(),
	).Scan(&stats.Total, &stats.Recent)
	if err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("issuance totals: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT institution_id, MAX(institution_name), COUNT(*) AS n
FROM issuances GROUP BY institution_id ORDER BY n DESC, institution_id`)
	if err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("issuance distribution: %w", err)
	}
	stats.ByInstitution, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.InstitutionCount, error) {
		var c storage.InstitutionCount
		err := row.Scan(&c.InstitutionID, &c.InstitutionName, &c.Count)
		return c, err
	})
	if err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("issuance distribution: %w", err)
	}
	return stats, nil
}

func (s *Store) one(ctx context.Context, query string, args ...any) (storage.IssuanceRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return storage.IssuanceRecord{}, fmt.Errorf("query issuance: %w", err)
	}
	record, err := pgx.CollectExactlyOneRow(rows, scanIssuance)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.IssuanceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.IssuanceRecord{}, fmt.Errorf("query issuance: %w", err)
	}
	return record, nil
}

func (s *Store) many(ctx context.Context, query string, args ...any) ([]storage.IssuanceRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanIssuance)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	return records, nil
}

func scanIssuance(row pgx.CollectableRow) (storage.IssuanceRecord, error) {
	var r storage.IssuanceRecord
	err := row.Scan(&r.ID, &r.SubjectID, &r.Name, &r.Father, &r.Phone, &r.Department,
		&r.BloodGroup, &r.StudentID, &r.InstitutionID, &r.InstitutionName, &r.Authority,
		&r.Payload, &r.ArtifactPath, &r.TokenCode, &r.CreatedAt)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, err
}
