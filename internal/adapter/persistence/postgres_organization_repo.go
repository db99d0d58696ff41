package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

// PostgresOrganizationRepository implements OrganizationRepository using PostgreSQL
type PostgresOrganizationRepository struct {
	db *sql.DB
}

// NewPostgresOrganizationRepository creates a new PostgreSQL organization repository
func NewPostgresOrganizationRepository(db *sql.DB) ports.OrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

// Create saves a new organization
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, tenant_id, name, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	profileJSON, err := marshalProfile(org.Profile)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		org.ID,
		org.TenantID,
		org.Name,
		profileJSON,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// FindByID retrieves an organization by its ID
func (r *PostgresOrganizationRepository) FindByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, tenant_id, name, profile, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// FindMany retrieves organizations based on filter criteria
func (r *PostgresOrganizationRepository) FindMany(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, error) {
	query := `
		SELECT id, tenant_id, name, profile, created_at, updated_at
		FROM organizations
	`
	where, args := organizationConditions(filter)
	query += where + ` ORDER BY name ASC`

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
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Update updates an existing organization
func (r *PostgresOrganizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, profile = $3, updated_at = NOW()
		WHERE id = $1
	`

	profileJSON, err := marshalProfile(org.Profile)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, org.ID, org.Name, profileJSON)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// Delete removes an organization
func (r *PostgresOrganizationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// Count returns the number of organizations matching the filter
func (r *PostgresOrganizationRepository) Count(ctx context.Context, filter domain.OrganizationFilter) (int, error) {
	query := `SELECT COUNT(*) FROM organizations`
	where, args := organizationConditions(filter)
	query += where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}

func organizationConditions(filter domain.OrganizationFilter) (string, []interface{}) {
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
	if filter.Name != nil {
		args = append(args, "%"+*filter.Name+"%")
		and(fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrganization(s rowScanner) (*domain.Organization, error) {
	var org domain.Organization
	var profileJSON []byte

	if err := s.Scan(
		&org.ID,
		&org.TenantID,
		&org.Name,
		&profileJSON,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(profileJSON) > 0 {
		var profile domain.OrganizationProfile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		org.Profile = &profile
	}
	return &org, nil
}

func marshalProfile(p *domain.OrganizationProfile) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return data, nil
}
