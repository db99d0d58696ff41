package ports

import (
	"context"

	"github.com/complior/complior/internal/domain"
)

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	// Create saves a new organization
	Create(ctx context.Context, org *domain.Organization) error

	// FindByID retrieves an organization by its ID
	FindByID(ctx context.Context, id string) (*domain.Organization, error)

	// FindMany retrieves organizations based on filter criteria
	FindMany(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, error)

	// Update updates an existing organization
	Update(ctx context.Context, org *domain.Organization) error

	// Delete removes an organization
	Delete(ctx context.Context, id string) error

	// Count returns the number of organizations matching the filter
	Count(ctx context.Context, filter domain.OrganizationFilter) (int, error)
}

// ApplicabilityRepository defines the interface for rule and mapping persistence
type ApplicabilityRepository interface {
	// GetRule retrieves the rule for a requirement; (nil, nil) when no rule exists
	GetRule(ctx context.Context, requirementID string) (*domain.ApplicabilityRule, error)

	// UpsertRule creates or replaces the rule for a requirement
	UpsertRule(ctx context.Context, rule *domain.ApplicabilityRule) error

	// GetMappings retrieves all mappings for a requirement
	GetMappings(ctx context.Context, requirementID string) ([]*domain.ApplicabilityMapping, error)

	// GetMapping retrieves one mapping; (nil, nil) when absent
	GetMapping(ctx context.Context, requirementID, organizationID string) (*domain.ApplicabilityMapping, error)

	// UpsertMapping creates or replaces the mapping for a (requirement, organization) pair
	UpsertMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error

	// CreateMapping inserts a mapping, relying on the unique
	// (requirement_id, organization_id) constraint for concurrent safety
	CreateMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error

	// DeleteMapping removes the mapping for a pair if present
	DeleteMapping(ctx context.Context, requirementID, organizationID string) error

	// DeleteAutomaticMappings removes every automatic mapping for a requirement
	DeleteAutomaticMappings(ctx context.Context, requirementID string) error
}

// ErrMappingExists reports a CreateMapping insert that lost to a
// concurrent writer on the (requirement_id, organization_id) constraint.
var ErrMappingExists = domain.NewDomainError("applicability mapping already exists")

// RequirementRepository defines the interface for requirement persistence
type RequirementRepository interface {
	Create(ctx context.Context, req *domain.Requirement) error
	FindByID(ctx context.Context, id string) (*domain.Requirement, error)
	List(ctx context.Context, filter domain.RequirementFilter) ([]*domain.Requirement, error)
	Update(ctx context.Context, req *domain.Requirement) error
	Delete(ctx context.Context, id string) error
}

// EvidenceRepository defines the interface for evidence persistence
type EvidenceRepository interface {
	Create(ctx context.Context, ev *domain.Evidence) error
	FindByID(ctx context.Context, id string) (*domain.Evidence, error)
	List(ctx context.Context, filter domain.EvidenceFilter) ([]*domain.Evidence, error)
	Update(ctx context.Context, ev *domain.Evidence) error
	Delete(ctx context.Context, id string) error
}

// AuditRepository defines the interface for append-only audit persistence
type AuditRepository interface {
	// Create appends a new audit entry; entries are never updated or deleted
	Create(ctx context.Context, entry *domain.AuditLogEntry) error

	// List retrieves audit entries matching the filter, newest first
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLogEntry, error)

	// FindByID retrieves an audit entry by its ID
	FindByID(ctx context.Context, id string) (*domain.AuditLogEntry, error)
}
