package usecase

import (
	"context"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// CreateEvidenceRequest represents the request to attach evidence
type CreateEvidenceRequest struct {
	TenantID       string `json:"tenant_id" validate:"required"`
	RequirementID  string `json:"requirement_id" validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
	Title          string `json:"title" validate:"required,min=3,max=300"`
	FileRef        string `json:"file_ref"`
	UploadedBy     string `json:"uploaded_by" validate:"required"`
}

// EvidenceUseCase handles evidence CRUD with best-effort audit logging.
type EvidenceUseCase struct {
	evidenceRepo ports.EvidenceRepository
	auditor      Auditor
	log          logger.Logger
}

// NewEvidenceUseCase creates an evidence use case.
func NewEvidenceUseCase(evidenceRepo ports.EvidenceRepository, auditor Auditor, log logger.Logger) *EvidenceUseCase {
	return &EvidenceUseCase{evidenceRepo: evidenceRepo, auditor: auditor, log: log}
}

// CreateEvidence attaches a new evidence item to a requirement for one
// organization. A failing audit store is reported through logging only;
// the creation still succeeds.
func (uc *EvidenceUseCase) CreateEvidence(ctx context.Context, req CreateEvidenceRequest) (*domain.Evidence, error) {
	if req.RequirementID == "" {
		return nil, fmt.Errorf("requirement ID is required")
	}
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("organization ID is required")
	}
	if len(req.Title) < 3 {
		return nil, fmt.Errorf("title must be at least 3 characters")
	}

	evidence := domain.NewEvidence(req.TenantID, req.RequirementID, req.OrganizationID, req.Title, req.FileRef, req.UploadedBy)
	if err := uc.evidenceRepo.Create(ctx, evidence); err != nil {
		return nil, fmt.Errorf("failed to create evidence: %w", err)
	}

	uc.audit(ctx, req.TenantID, req.UploadedBy, domain.ActionCreate, evidence.ID, domain.ChangeSet{
		Created: evidenceRow(evidence),
	})
	return evidence, nil
}

// GetEvidence retrieves an evidence item by ID.
func (uc *EvidenceUseCase) GetEvidence(ctx context.Context, id string) (*domain.Evidence, error) {
	if id == "" {
		return nil, fmt.Errorf("evidence ID is required")
	}
	evidence, err := uc.evidenceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	return evidence, nil
}

// ListEvidence retrieves evidence items based on filter criteria.
func (uc *EvidenceUseCase) ListEvidence(ctx context.Context, filter domain.EvidenceFilter) ([]*domain.Evidence, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	items, err := uc.evidenceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	return items, nil
}

// ReviewEvidence sets the review status of an evidence item.
func (uc *EvidenceUseCase) ReviewEvidence(ctx context.Context, id string, status domain.EvidenceStatus, userID string) (*domain.Evidence, error) {
	switch status {
	case domain.EvidenceStatusApproved, domain.EvidenceStatusRejected, domain.EvidenceStatusPending:
	default:
		return nil, fmt.Errorf("invalid evidence status: %s", status)
	}

	evidence, err := uc.evidenceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	before := evidenceRow(evidence)

	evidence.Status = status
	if err := uc.evidenceRepo.Update(ctx, evidence); err != nil {
		return nil, fmt.Errorf("failed to update evidence: %w", err)
	}

	uc.audit(ctx, evidence.TenantID, userID, domain.ActionUpdate, evidence.ID, domain.ChangeSet{
		Before: before,
		After:  evidenceRow(evidence),
	})
	return evidence, nil
}

// DeleteEvidence removes an evidence item.
func (uc *EvidenceUseCase) DeleteEvidence(ctx context.Context, id, userID string) error {
	evidence, err := uc.evidenceRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}

	if err := uc.evidenceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}

	uc.audit(ctx, evidence.TenantID, userID, domain.ActionDelete, evidence.ID, domain.ChangeSet{
		Deleted: evidenceRow(evidence),
	})
	return nil
}

func (uc *EvidenceUseCase) audit(ctx context.Context, tenantID, userID string, action domain.AuditAction, entityID string, changes domain.ChangeSet) {
	if uc.auditor == nil {
		return
	}
	if err := uc.auditor.LogAction(ctx, LogActionInput{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: domain.EntityEvidence,
		EntityID:   entityID,
		Changes:    changes,
	}); err != nil {
		uc.log.Warn(ctx, "audit entry dropped", map[string]interface{}{
			"entity_type": string(domain.EntityEvidence),
			"entity_id":   entityID,
			"error":       err.Error(),
		})
	}
}

func evidenceRow(e *domain.Evidence) domain.Row {
	return domain.Row{
		"id":              e.ID,
		"tenant_id":       e.TenantID,
		"requirement_id":  e.RequirementID,
		"organization_id": e.OrganizationID,
		"title":           e.Title,
		"file_ref":        e.FileRef,
		"status":          string(e.Status),
		"uploaded_by":     e.UploadedBy,
		"created_at":      e.CreatedAt,
		"updated_at":      e.UpdatedAt,
	}
}
