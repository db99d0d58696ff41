package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

const pgUniqueViolation = "23505"

// PostgresApplicabilityRepository implements ApplicabilityRepository using PostgreSQL.
// The applicability_mappings table carries a UNIQUE (requirement_id,
// organization_id) constraint; concurrent mapping writes are resolved by
// the database, not by this code.
type PostgresApplicabilityRepository struct {
	db *sql.DB
}

// NewPostgresApplicabilityRepository creates a new PostgreSQL applicability repository
func NewPostgresApplicabilityRepository(db *sql.DB) ports.ApplicabilityRepository {
	return &PostgresApplicabilityRepository{db: db}
}

// GetRule retrieves the rule for a requirement; (nil, nil) when absent
func (r *PostgresApplicabilityRepository) GetRule(ctx context.Context, requirementID string) (*domain.ApplicabilityRule, error) {
	query := `
		SELECT id, requirement_id, rules, created_by, created_at, updated_at
		FROM applicability_rules
		WHERE requirement_id = $1
	`

	var rule domain.ApplicabilityRule
	var rulesJSON []byte
	err := r.db.QueryRowContext(ctx, query, requirementID).Scan(
		&rule.ID,
		&rule.RequirementID,
		&rulesJSON,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find applicability rule: %w", err)
	}

	if err := json.Unmarshal(rulesJSON, &rule.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filter rules: %w", err)
	}
	return &rule, nil
}

// UpsertRule creates or replaces the rule for a requirement
func (r *PostgresApplicabilityRepository) UpsertRule(ctx context.Context, rule *domain.ApplicabilityRule) error {
	query := `
		INSERT INTO applicability_rules (id, requirement_id, rules, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (requirement_id) DO UPDATE SET
			rules = EXCLUDED.rules,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at
	`

	rulesJSON, err := json.Marshal(rule.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal filter rules: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.RequirementID,
		rulesJSON,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert applicability rule: %w", err)
	}
	return nil
}

// GetMappings retrieves all mappings for a requirement
func (r *PostgresApplicabilityRepository) GetMappings(ctx context.Context, requirementID string) ([]*domain.ApplicabilityMapping, error) {
	query := `
		SELECT id, requirement_id, organization_id, mapping_type, reason, created_by, created_at, updated_at
		FROM applicability_mappings
		WHERE requirement_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicability mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*domain.ApplicabilityMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicability mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// GetMapping retrieves one mapping; (nil, nil) when absent
func (r *PostgresApplicabilityRepository) GetMapping(ctx context.Context, requirementID, organizationID string) (*domain.ApplicabilityMapping, error) {
	query := `
		SELECT id, requirement_id, organization_id, mapping_type, reason, created_by, created_at, updated_at
		FROM applicability_mappings
		WHERE requirement_id = $1 AND organization_id = $2
	`

	m, err := scanMapping(r.db.QueryRowContext(ctx, query, requirementID, organizationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find applicability mapping: %w", err)
	}
	return m, nil
}

// UpsertMapping creates or replaces the mapping for a pair
func (r *PostgresApplicabilityRepository) UpsertMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error {
	query := `
		INSERT INTO applicability_mappings (id, requirement_id, organization_id, mapping_type, reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (requirement_id, organization_id) DO UPDATE SET
			mapping_type = EXCLUDED.mapping_type,
			reason = EXCLUDED.reason,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		mapping.ID,
		mapping.RequirementID,
		mapping.OrganizationID,
		string(mapping.Type),
		mapping.Reason,
		mapping.CreatedBy,
		mapping.CreatedAt,
		mapping.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert applicability mapping: %w", err)
	}
	return nil
}

// CreateMapping inserts a mapping; a unique-constraint loss surfaces as
// ports.ErrMappingExists
func (r *PostgresApplicabilityRepository) CreateMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error {
	query := `
		INSERT INTO applicability_mappings (id, requirement_id, organization_id, mapping_type, reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		mapping.ID,
		mapping.RequirementID,
		mapping.OrganizationID,
		string(mapping.Type),
		mapping.Reason,
		mapping.CreatedBy,
		mapping.CreatedAt,
		mapping.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pgUniqueViolation {
			return ports.ErrMappingExists
		}
		return fmt.Errorf("failed to create applicability mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes the mapping for a pair if present
func (r *PostgresApplicabilityRepository) DeleteMapping(ctx context.Context, requirementID, organizationID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM applicability_mappings WHERE requirement_id = $1 AND organization_id = $2`,
		requirementID, organizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete applicability mapping: %w", err)
	}
	return nil
}

// DeleteAutomaticMappings removes every automatic mapping for a requirement
func (r *PostgresApplicabilityRepository) DeleteAutomaticMappings(ctx context.Context, requirementID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM applicability_mappings WHERE requirement_id = $1 AND mapping_type = $2`,
		requirementID, string(domain.MappingAutomatic),
	)
	if err != nil {
		return fmt.Errorf("failed to delete automatic mappings: %w", err)
	}
	return nil
}

func scanMapping(s rowScanner) (*domain.ApplicabilityMapping, error) {
	var m domain.ApplicabilityMapping
	var mappingType string
	var reason sql.NullString

	if err := s.Scan(
		&m.ID,
		&m.RequirementID,
		&m.OrganizationID,
		&mappingType,
		&reason,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.Type = domain.MappingType(mappingType)
	if reason.Valid {
		m.Reason = reason.String
	}
	return &m, nil
}
