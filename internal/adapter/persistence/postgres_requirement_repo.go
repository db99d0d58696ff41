package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

// PostgresRequirementRepository implements RequirementRepository using PostgreSQL
type PostgresRequirementRepository struct {
	db *sql.DB
}

// NewPostgresRequirementRepository creates a new PostgreSQL requirement repository
func NewPostgresRequirementRepository(db *sql.DB) ports.RequirementRepository {
	return &PostgresRequirementRepository{db: db}
}

// Create saves a new requirement
func (r *PostgresRequirementRepository) Create(ctx context.Context, req *domain.Requirement) error {
	query := `
		INSERT INTO requirements (id, tenant_id, code, title, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.TenantID,
		req.Code,
		req.Title,
		req.Description,
		string(req.Status),
		req.CreatedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create requirement: %w", err)
	}
	return nil
}

// FindByID retrieves a requirement by its ID
func (r *PostgresRequirementRepository) FindByID(ctx context.Context, id string) (*domain.Requirement, error) {
	query := `
		SELECT id, tenant_id, code, title, description, status, created_by, created_at, updated_at
		FROM requirements
		WHERE id = $1
	`

	req, err := scanRequirement(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRequirementNotFound
		}
		return nil, fmt.Errorf("failed to find requirement: %w", err)
	}
	return req, nil
}

// List retrieves requirements based on filter criteria
func (r *PostgresRequirementRepository) List(ctx context.Context, filter domain.RequirementFilter) ([]*domain.Requirement, error) {
	query := `
		SELECT id, tenant_id, code, title, description, status, created_by, created_at, updated_at
		FROM requirements
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
	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		and(fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		and(fmt.Sprintf("status = $%d", len(args)))
	}

	query += where + " ORDER BY code ASC"
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
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Update updates an existing requirement
func (r *PostgresRequirementRepository) Update(ctx context.Context, req *domain.Requirement) error {
	query := `
		UPDATE requirements
		SET title = $2, description = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, req.ID, req.Title, req.Description, string(req.Status))
	if err != nil {
		return fmt.Errorf("failed to update requirement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrRequirementNotFound
	}
	return nil
}

// Delete removes a requirement
func (r *PostgresRequirementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requirements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete requirement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrRequirementNotFound
	}
	return nil
}

func scanRequirement(s rowScanner) (*domain.Requirement, error) {
	var req domain.Requirement
	var status string

	if err := s.Scan(
		&req.ID,
		&req.TenantID,
		&req.Code,
		&req.Title,
		&req.Description,
		&status,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.RequirementStatus(status)
	return &req, nil
}
