package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

// PostgresEvidenceRepository implements EvidenceRepository using PostgreSQL
type PostgresEvidenceRepository struct {
	db *sql.DB
}

// NewPostgresEvidenceRepository creates a new PostgreSQL evidence repository
func NewPostgresEvidenceRepository(db *sql.DB) ports.EvidenceRepository {
	return &PostgresEvidenceRepository{db: db}
}

// Create saves a new evidence item
func (r *PostgresEvidenceRepository) Create(ctx context.Context, ev *domain.Evidence) error {
	query := `
		INSERT INTO evidence (id, tenant_id, requirement_id, organization_id, title, file_ref, status, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.TenantID,
		ev.RequirementID,
		ev.OrganizationID,
		ev.Title,
		ev.FileRef,
		string(ev.Status),
		ev.UploadedBy,
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create evidence: %w", err)
	}
	return nil
}

// FindByID retrieves an evidence item by its ID
func (r *PostgresEvidenceRepository) FindByID(ctx context.Context, id string) (*domain.Evidence, error) {
	query := `
		SELECT id, tenant_id, requirement_id, organization_id, title, file_ref, status, uploaded_by, created_at, updated_at
		FROM evidence
		WHERE id = $1
	`

	ev, err := scanEvidence(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("failed to find evidence: %w", err)
	}
	return ev, nil
}

// List retrieves evidence items based on filter criteria
func (r *PostgresEvidenceRepository) List(ctx context.Context, filter domain.EvidenceFilter) ([]*domain.Evidence, error) {
	query := `
		SELECT id, tenant_id, requirement_id, organization_id, title, file_ref, status, uploaded_by, created_at, updated_at
		FROM evidence
	`

	where := ""
	var args []interface{}
	and := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	if filter.RequirementID != nil {
		args = append(args, *filter.RequirementID)
		and(fmt.Sprintf("requirement_id = $%d", len(args)))
	}
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		and(fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		and(fmt.Sprintf("status = $%d", len(args)))
	}

	query += where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var items []*domain.Evidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

// Update updates an existing evidence item
func (r *PostgresEvidenceRepository) Update(ctx context.Context, ev *domain.Evidence) error {
	query := `
		UPDATE evidence
		SET title = $2, file_ref = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, ev.ID, ev.Title, ev.FileRef, string(ev.Status))
	if err != nil {
		return fmt.Errorf("failed to update evidence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrEvidenceNotFound
	}
	return nil
}

// Delete removes an evidence item
func (r *PostgresEvidenceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evidence WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrEvidenceNotFound
	}
	return nil
}

func scanEvidence(s rowScanner) (*domain.Evidence, error) {
	var ev domain.Evidence
	var status string
	var fileRef sql.NullString

	if err := s.Scan(
		&ev.ID,
		&ev.TenantID,
		&ev.RequirementID,
		&ev.OrganizationID,
		&ev.Title,
		&fileRef,
		&status,
		&ev.UploadedBy,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return nil, err
	}

	ev.Status = domain.EvidenceStatus(status)
	if fileRef.Valid {
		ev.FileRef = fileRef.String
	}
	return &ev, nil
}
