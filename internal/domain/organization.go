package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationProfile holds the regulatory attribute profile of an organization.
// Every attribute is optional: a nil field means "unknown", which is different
// from false/zero and fails any rule predicate that checks it.
type OrganizationProfile struct {
	KIICategory    *int  `json:"kii_category,omitempty"`
	PDNLevel       *int  `json:"pdn_level,omitempty"`
	IsFinancial    *bool `json:"is_financial,omitempty"`
	IsHealthcare   *bool `json:"is_healthcare,omitempty"`
	IsGovernment   *bool `json:"is_government,omitempty"`
	HasForeignData *bool `json:"has_foreign_data,omitempty"`
	EmployeeCount  *int  `json:"employee_count,omitempty"`
}

// Organization represents a supervised organization within a tenant.
type Organization struct {
	ID        string               `json:"id"`
	TenantID  string               `json:"tenant_id"`
	Name      string               `json:"name"`
	Profile   *OrganizationProfile `json:"profile,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewOrganization creates a new organization with a generated ID.
func NewOrganization(tenantID, name string, profile *OrganizationProfile) *Organization {
	now := time.Now()
	return &Organization{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OrganizationFilter represents filters for listing organizations.
type OrganizationFilter struct {
	TenantID *string `json:"tenant_id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
}

var ErrOrganizationNotFound = NewDomainError("organization not found")
