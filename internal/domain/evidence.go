package domain

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceStatus represents the review state of an evidence item.
type EvidenceStatus string

const (
	EvidenceStatusPending  EvidenceStatus = "PENDING"
	EvidenceStatusApproved EvidenceStatus = "APPROVED"
	EvidenceStatusRejected EvidenceStatus = "REJECTED"
)

// Evidence is a compliance artifact attached to a requirement for one
// organization. File contents live in external storage; only the
// reference is kept here.
type Evidence struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	RequirementID  string         `json:"requirement_id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	FileRef        string         `json:"file_ref,omitempty"`
	Status         EvidenceStatus `json:"status"`
	UploadedBy     string         `json:"uploaded_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewEvidence creates a pending evidence item.
func NewEvidence(tenantID, requirementID, organizationID, title, fileRef, uploadedBy string) *Evidence {
	now := time.Now()
	return &Evidence{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		RequirementID:  requirementID,
		OrganizationID: organizationID,
		Title:          title,
		FileRef:        fileRef,
		Status:         EvidenceStatusPending,
		UploadedBy:     uploadedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// EvidenceFilter represents filters for listing evidence.
type EvidenceFilter struct {
	RequirementID  *string         `json:"requirement_id,omitempty"`
	OrganizationID *string         `json:"organization_id,omitempty"`
	Status         *EvidenceStatus `json:"status,omitempty"`
	Limit          int             `json:"limit"`
	Offset         int             `json:"offset"`
}

var ErrEvidenceNotFound = NewDomainError("evidence not found")
