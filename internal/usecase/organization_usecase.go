package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// CreateOrganizationRequest represents the request to register an organization
type CreateOrganizationRequest struct {
	TenantID  string                      `json:"tenant_id" validate:"required"`
	Name      string                      `json:"name" validate:"required,min=2,max=300"`
	Profile   *domain.OrganizationProfile `json:"profile,omitempty"`
	CreatedBy string                      `json:"created_by" validate:"required"`
}

// OrganizationUseCase handles organization CRUD with best-effort audit
// logging.
type OrganizationUseCase struct {
	orgRepo ports.OrganizationRepository
	auditor Auditor
	log     logger.Logger
}

// NewOrganizationUseCase creates an organization use case.
func NewOrganizationUseCase(orgRepo ports.OrganizationRepository, auditor Auditor, log logger.Logger) *OrganizationUseCase {
	return &OrganizationUseCase{orgRepo: orgRepo, auditor: auditor, log: log}
}

// CreateOrganization registers a new organization.
func (uc *OrganizationUseCase) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*domain.Organization, error) {
	if len(req.Name) < 2 {
		return nil, fmt.Errorf("name must be at least 2 characters")
	}

	org := domain.NewOrganization(req.TenantID, req.Name, req.Profile)
	if err := uc.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	uc.audit(ctx, org.TenantID, req.CreatedBy, domain.ActionCreate, org.ID, domain.ChangeSet{
		Created: organizationRow(org),
	})
	return org, nil
}

// GetOrganization retrieves an organization by ID.
func (uc *OrganizationUseCase) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	if id == "" {
		return nil, fmt.Errorf("organization ID is required")
	}
	org, err := uc.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations retrieves organizations based on filter criteria.
func (uc *OrganizationUseCase) ListOrganizations(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	orgs, err := uc.orgRepo.FindMany(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}
	count, err := uc.orgRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return orgs, count, nil
}

// UpdateOrganization replaces the name and attribute profile of an
// organization.
func (uc *OrganizationUseCase) UpdateOrganization(ctx context.Context, id, name string, profile *domain.OrganizationProfile, userID string) (*domain.Organization, error) {
	org, err := uc.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	before := organizationRow(org)

	if name != "" {
		org.Name = name
	}
	org.Profile = profile
	if err := uc.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	uc.audit(ctx, org.TenantID, userID, domain.ActionUpdate, org.ID, domain.ChangeSet{
		Before: before,
		After:  organizationRow(org),
	})
	return org, nil
}

// DeleteOrganization removes an organization.
func (uc *OrganizationUseCase) DeleteOrganization(ctx context.Context, id, userID string) error {
	org, err := uc.orgRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}

	if err := uc.orgRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	uc.audit(ctx, org.TenantID, userID, domain.ActionDelete, org.ID, domain.ChangeSet{
		Deleted: organizationRow(org),
	})
	return nil
}

func (uc *OrganizationUseCase) audit(ctx context.Context, tenantID, userID string, action domain.AuditAction, entityID string, changes domain.ChangeSet) {
	if uc.auditor == nil {
		return
	}
	if err := uc.auditor.LogAction(ctx, LogActionInput{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: domain.EntityOrganization,
		EntityID:   entityID,
		Changes:    changes,
	}); err != nil {
		uc.log.Warn(ctx, "audit entry dropped", map[string]interface{}{
			"entity_type": string(domain.EntityOrganization),
			"entity_id":   entityID,
			"error":       err.Error(),
		})
	}
}

func organizationRow(o *domain.Organization) domain.Row {
	row := domain.Row{
		"id":         o.ID,
		"tenant_id":  o.TenantID,
		"name":       o.Name,
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}
	if o.Profile != nil {
		if data, err := json.Marshal(o.Profile); err == nil {
			row["profile"] = string(data)
		}
	}
	return row
}
