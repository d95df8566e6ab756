package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

const issuanceColumns = `id, subject_id, name, father, phone, department, blood_group, student_id,
	institution_id, institution_name, authority, payload, artifact_path, token_code, created_at`

// AppendIssuance inserts record only when its token is used by the record's
// subject. The token check and the insert are one statement.
func (s *Store) AppendIssuance(ctx context.Context, record storage.IssuanceRecord) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	record.SubjectID = strings.TrimSpace(record.SubjectID)
	record.TokenCode = strings.TrimSpace(record.TokenCode)
	record.ArtifactPath = strings.TrimSpace(record.ArtifactPath)
	if record.SubjectID == "" {
		return 0, fmt.Errorf("subject id is required")
	}
	if record.TokenCode == "" {
		return 0, fmt.Errorf("token code is required")
	}
	if record.ArtifactPath == "" {
		return 0, fmt.Errorf("artifact path is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO issuances (
	subject_id, name, father, phone, department, blood_group, student_id,
	institution_id, institution_name, authority, payload, artifact_path, token_code, created_at
)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE EXISTS (
	SELECT 1 FROM tokens WHERE code = ? AND is_used = 1 AND used_by = ?
)
`,
		record.SubjectID,
		record.Name,
		record.Father,
		record.Phone,
		record.Department,
		record.BloodGroup,
		record.StudentID,
		record.InstitutionID,
		record.InstitutionName,
		record.Authority,
		record.Payload,
		record.ArtifactPath,
		record.TokenCode,
		toMillis(record.CreatedAt),
		record.TokenCode,
		record.SubjectID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyIssued
		}
		return 0, fmt.Errorf("append issuance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("append issuance rows affected: %w", err)
	}
	if affected != 1 {
		return 0, storage.ErrTokenNotRedeemed
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append issuance id: %w", err)
	}
	return id, nil
}

// GetIssuance returns one record by id.
func (s *Store) GetIssuance(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+issuanceColumns+` FROM issuances WHERE id = ?`, id)
	record, err := scanIssuance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.IssuanceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.IssuanceRecord{}, fmt.Errorf("get issuance: %w", err)
	}
	return record, nil
}

// ListIssuancesBySubject lists a subject's records newest first.
func (s *Store) ListIssuancesBySubject(ctx context.Context, subjectID string) ([]storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	return s.queryIssuances(ctx, `
SELECT `+issuanceColumns+`
FROM issuances
WHERE subject_id = ?
ORDER BY created_at DESC, id DESC
`, subjectID)
}

// ListIssuances lists all records newest first, optionally paged.
func (s *Store) ListIssuances(ctx context.Context, page storage.Page) ([]storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `
SELECT ` + issuanceColumns + `
FROM issuances
ORDER BY created_at DESC, id DESC`
	if page.PerPage <= 0 {
		return s.queryIssuances(ctx, query)
	}
	return s.queryIssuances(ctx, query+"\nLIMIT ? OFFSET ?", page.PerPage, page.Offset())
}

// DeleteIssuance removes a record and returns what was removed.
func (s *Store) DeleteIssuance(ctx context.Context, id int64) (storage.IssuanceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `DELETE FROM issuances WHERE id = ? RETURNING `+issuanceColumns, id)
	record, err := scanIssuance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.IssuanceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.IssuanceRecord{}, fmt.Errorf("delete issuance: %w", err)
	}
	return record, nil
}

// IssuanceStats aggregates totals, records created at or after since, and
// per-institution counts.
func (s *Store) IssuanceStats(ctx context.Context, since time.Time) (storage.IssuanceStats, error) {
	if err := s.ready(ctx); err != nil {
		return storage.IssuanceStats{}, err
	}
	stats := storage.IssuanceStats{RecentSince: since.UTC()}
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
FROM issuances
`, toMillis(since)).Scan(&stats.Total, &stats.Recent)
	if err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("issuance totals: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT institution_id, MAX(institution_name), COUNT(*) AS n
FROM issuances
GROUP BY institution_id
ORDER BY n DESC, institution_id
`)
	if err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("issuance distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c storage.InstitutionCount
		if err := rows.Scan(&c.InstitutionID, &c.InstitutionName, &c.Count); err != nil {
			return storage.IssuanceStats{}, fmt.Errorf("scan distribution: %w", err)
		}
		stats.ByInstitution = append(stats.ByInstitution, c)
	}
	if err := rows.Err(); err != nil {
		return storage.IssuanceStats{}, fmt.Errorf("iterate distribution: %w", err)
	}
	return stats, nil
}

func (s *Store) queryIssuances(ctx context.Context, query string, args ...any) ([]storage.IssuanceRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	defer rows.Close()

	var records []storage.IssuanceRecord
	for rows.Next() {
		record, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issuance: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuances: %w", err)
	}
	return records, nil
}

func scanIssuance(row rowScanner) (storage.IssuanceRecord, error) {
	var (
		record    storage.IssuanceRecord
		createdAt int64
	)
	err := row.Scan(
		&record.ID,
		&record.SubjectID,
		&record.Name,
		&record.Father,
		&record.Phone,
		&record.Department,
		&record.BloodGroup,
		&record.StudentID,
		&record.InstitutionID,
		&record.InstitutionName,
		&record.Authority,
		&record.Payload,
		&record.ArtifactPath,
		&record.TokenCode,
		&createdAt,
	)
	if err != nil {
		return storage.IssuanceRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
