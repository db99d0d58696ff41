package usecase

import (
	"context"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// CreateRequirementRequest represents the request to create a requirement
type CreateRequirementRequest struct {
	TenantID    string `json:"tenant_id" validate:"required"`
	Code        string `json:"code" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,min=3,max=300"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by" validate:"required"`
}

// UpdateRequirementRequest carries the mutable requirement fields; nil
// means "leave unchanged".
type UpdateRequirementRequest struct {
	Title       *string                   `json:"title,omitempty"`
	Description *string                   `json:"description,omitempty"`
	Status      *domain.RequirementStatus `json:"status,omitempty"`
}

// RequirementUseCase handles requirement CRUD. Every mutation is written
// to the audit log best-effort: a failing audit store never fails the
// operation itself.
type RequirementUseCase struct {
	reqRepo ports.RequirementRepository
	auditor Auditor
	log     logger.Logger
}

// NewRequirementUseCase creates a requirement use case.
func NewRequirementUseCase(reqRepo ports.RequirementRepository, auditor Auditor, log logger.Logger) *RequirementUseCase {
	return &RequirementUseCase{reqRepo: reqRepo, auditor: auditor, log: log}
}

// CreateRequirement creates a new requirement.
func (uc *RequirementUseCase) CreateRequirement(ctx context.Context, req CreateRequirementRequest) (*domain.Requirement, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if len(req.Title) < 3 {
		return nil, fmt.Errorf("title must be at least 3 characters")
	}
	if req.CreatedBy == "" {
		return nil, fmt.Errorf("created by is required")
	}

	requirement := domain.NewRequirement(req.TenantID, req.Code, req.Title, req.Description, req.CreatedBy)
	if err := uc.reqRepo.Create(ctx, requirement); err != nil {
		return nil, fmt.Errorf("failed to create requirement: %w", err)
	}

	uc.audit(ctx, req.TenantID, req.CreatedBy, domain.ActionCreate, requirement.ID, domain.ChangeSet{
		Created: requirementRow(requirement),
	})
	return requirement, nil
}

// GetRequirement retrieves a requirement by ID.
func (uc *RequirementUseCase) GetRequirement(ctx context.Context, id string) (*domain.Requirement, error) {
	if id == "" {
		return nil, fmt.Errorf("requirement ID is required")
	}
	requirement, err := uc.reqRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return requirement, nil
}

// ListRequirements retrieves requirements based on filter criteria.
func (uc *RequirementUseCase) ListRequirements(ctx context.Context, filter domain.RequirementFilter) ([]*domain.Requirement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	requirements, err := uc.reqRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	return requirements, nil
}

// UpdateRequirement applies the given changes to a requirement.
func (uc *RequirementUseCase) UpdateRequirement(ctx context.Context, id string, req UpdateRequirementRequest, userID string) (*domain.Requirement, error) {
	requirement, err := uc.reqRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	before := requirementRow(requirement)

	if req.Title != nil && *req.Title != "" {
		requirement.Title = *req.Title
	}
	if req.Description != nil {
		requirement.Description = *req.Description
	}
	if req.Status != nil {
		requirement.Status = *req.Status
	}

	if err := uc.reqRepo.Update(ctx, requirement); err != nil {
		return nil, fmt.Errorf("failed to update requirement: %w", err)
	}

	uc.audit(ctx, requirement.TenantID, userID, domain.ActionUpdate, requirement.ID, domain.ChangeSet{
		Before: before,
		After:  requirementRow(requirement),
	})
	return requirement, nil
}

// DeleteRequirement removes a requirement.
func (uc *RequirementUseCase) DeleteRequirement(ctx context.Context, id, userID string) error {
	requirement, err := uc.reqRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get requirement: %w", err)
	}

	if err := uc.reqRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete requirement: %w", err)
	}

	uc.audit(ctx, requirement.TenantID, userID, domain.ActionDelete, requirement.ID, domain.ChangeSet{
		Deleted: requirementRow(requirement),
	})
	return nil
}

func (uc *RequirementUseCase) audit(ctx context.Context, tenantID, userID string, action domain.AuditAction, entityID string, changes domain.ChangeSet) {
	if uc.auditor == nil {
		return
	}
	if err := uc.auditor.LogAction(ctx, LogActionInput{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: domain.EntityRequirement,
		EntityID:   entityID,
		Changes:    changes,
	}); err != nil {
		uc.log.Warn(ctx, "audit entry dropped", map[string]interface{}{
			"entity_type": string(domain.EntityRequirement),
			"entity_id":   entityID,
			"error":       err.Error(),
		})
	}
}

func requirementRow(r *domain.Requirement) domain.Row {
	return domain.Row{
		"id":          r.ID,
		"tenant_id":   r.TenantID,
		"code":        r.Code,
		"title":       r.Title,
		"description": r.Description,
		"status":      string(r.Status),
		"created_by":  r.CreatedBy,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
}
