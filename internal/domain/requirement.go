package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequirementStatus represents the lifecycle state of a requirement.
type RequirementStatus string

const (
	RequirementStatusDraft    RequirementStatus = "DRAFT"
	RequirementStatusActive   RequirementStatus = "ACTIVE"
	RequirementStatusArchived RequirementStatus = "ARCHIVED"
)

// Requirement represents a regulatory requirement managed within a tenant.
type Requirement struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	Code        string            `json:"code"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      RequirementStatus `json:"status"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewRequirement creates a new requirement in draft state.
func NewRequirement(tenantID, code, title, description, createdBy string) *Requirement {
	now := time.Now()
	return &Requirement{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Code:        code,
		Title:       title,
		Description: description,
		Status:      RequirementStatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RequirementFilter represents filters for listing requirements.
type RequirementFilter struct {
	TenantID *string            `json:"tenant_id,omitempty"`
	Status   *RequirementStatus `json:"status,omitempty"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

var ErrRequirementNotFound = NewDomainError("requirement not found")
