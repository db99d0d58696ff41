package domain

import (
	"time"

	"github.com/google/uuid"
)

// MappingType classifies how an organization ended up mapped to a requirement.
type MappingType string

const (
	// MappingAutomatic is derived purely from rule evaluation.
	MappingAutomatic MappingType = "automatic"
	// MappingManualInclude is an administrator's explicit inclusion.
	MappingManualInclude MappingType = "manual_include"
	// MappingManualExclude is an administrator's explicit exclusion.
	MappingManualExclude MappingType = "manual_exclude"
	// MappingNone is a computed classification only, never persisted.
	MappingNone MappingType = "none"
)

// Manual reports whether the mapping type is a human override. Manual
// mappings are sticky: recalculation never touches them.
func (t MappingType) Manual() bool {
	return t == MappingManualInclude || t == MappingManualExclude
}

// FilterRules is the set of predicates a requirement uses to select
// organizations. Every field is optional; an absent predicate is not
// checked. An empty rule set matches every organization.
type FilterRules struct {
	KIICategories  []int `json:"kii_categories,omitempty"`
	PDNLevels      []int `json:"pdn_levels,omitempty"`
	IsFinancial    *bool `json:"is_financial,omitempty"`
	IsHealthcare   *bool `json:"is_healthcare,omitempty"`
	IsGovernment   *bool `json:"is_government,omitempty"`
	HasForeignData *bool `json:"has_foreign_data,omitempty"`
	MinEmployees   *int  `json:"min_employees,omitempty"`
	MaxEmployees   *int  `json:"max_employees,omitempty"`
}

// Empty reports whether no predicate is present.
func (r FilterRules) Empty() bool {
	return len(r.KIICategories) == 0 &&
		len(r.PDNLevels) == 0 &&
		r.IsFinancial == nil &&
		r.IsHealthcare == nil &&
		r.IsGovernment == nil &&
		r.HasForeignData == nil &&
		r.MinEmployees == nil &&
		r.MaxEmployees == nil
}

// Matches evaluates the rule set against an organization's attribute
// profile. An empty rule set matches everything. A nil profile, or a
// profile missing an attribute a present predicate checks, fails:
// unknown attributes are closed, missing rules are open.
func (r FilterRules) Matches(p *OrganizationProfile) bool {
	if r.Empty() {
		return true
	}
	if p == nil {
		return false
	}
	if len(r.KIICategories) > 0 && !containsInt(r.KIICategories, p.KIICategory) {
		return false
	}
	if len(r.PDNLevels) > 0 && !containsInt(r.PDNLevels, p.PDNLevel) {
		return false
	}
	if r.IsFinancial != nil && !boolEquals(p.IsFinancial, *r.IsFinancial) {
		return false
	}
	if r.IsHealthcare != nil && !boolEquals(p.IsHealthcare, *r.IsHealthcare) {
		return false
	}
	if r.IsGovernment != nil && !boolEquals(p.IsGovernment, *r.IsGovernment) {
		return false
	}
	if r.HasForeignData != nil && !boolEquals(p.HasForeignData, *r.HasForeignData) {
		return false
	}
	if r.MinEmployees != nil && (p.EmployeeCount == nil || *p.EmployeeCount < *r.MinEmployees) {
		return false
	}
	if r.MaxEmployees != nil && (p.EmployeeCount == nil || *p.EmployeeCount > *r.MaxEmployees) {
		return false
	}
	return true
}

func containsInt(allowed []int, v *int) bool {
	if v == nil {
		return false
	}
	for _, a := range allowed {
		if a == *v {
			return true
		}
	}
	return false
}

func boolEquals(v *bool, want bool) bool {
	return v != nil && *v == want
}

// ApplicabilityRule is the persisted rule for one requirement. At most
// one rule per requirement; recreated on each update.
type ApplicabilityRule struct {
	ID            string      `json:"id"`
	RequirementID string      `json:"requirement_id"`
	Rules         FilterRules `json:"rules"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewApplicabilityRule creates a rule for a requirement.
func NewApplicabilityRule(requirementID string, rules FilterRules, createdBy string) *ApplicabilityRule {
	now := time.Now()
	return &ApplicabilityRule{
		ID:            uuid.NewString(),
		RequirementID: requirementID,
		Rules:         rules,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplicabilityMapping associates a requirement with an organization.
// Invariant: at most one mapping row per (requirement, organization).
type ApplicabilityMapping struct {
	ID             string      `json:"id"`
	RequirementID  string      `json:"requirement_id"`
	OrganizationID string      `json:"organization_id"`
	Type           MappingType `json:"mapping_type"`
	Reason         string      `json:"reason,omitempty"`
	CreatedBy      string      `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewApplicabilityMapping creates a mapping row.
func NewApplicabilityMapping(requirementID, organizationID string, t MappingType, reason, createdBy string) *ApplicabilityMapping {
	now := time.Now()
	return &ApplicabilityMapping{
		ID:             uuid.NewString(),
		RequirementID:  requirementID,
		OrganizationID: organizationID,
		Type:           t,
		Reason:         reason,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// OrganizationApplicability is the per-organization classification inside
// an ApplicabilityResult.
type OrganizationApplicability struct {
	Organization *Organization `json:"organization"`
	Type         MappingType   `json:"mapping_type"`
	Reason       string        `json:"reason,omitempty"`
}

// ApplicabilityCounts summarizes a result set.
type ApplicabilityCounts struct {
	Total         int `json:"total"`
	Applicable    int `json:"applicable"`
	Automatic     int `json:"automatic"`
	ManualInclude int `json:"manual_include"`
	ManualExclude int `json:"manual_exclude"`
}

// ApplicabilityResult is the read-only projection of which organizations
// a requirement applies to. Nothing in it is persisted.
type ApplicabilityResult struct {
	RequirementID string                      `json:"requirement_id"`
	HasRule       bool                        `json:"has_rule"`
	Counts        ApplicabilityCounts         `json:"counts"`
	Organizations []OrganizationApplicability `json:"organizations"`
}

// Applicable returns the organizations classified as applicable, i.e.
// everything except manual excludes and non-matches.
func (r *ApplicabilityResult) Applicable() []*Organization {
	var orgs []*Organization
	for _, oa := range r.Organizations {
		if oa.Type != MappingManualExclude && oa.Type != MappingNone {
			orgs = append(orgs, oa.Organization)
		}
	}
	return orgs
}
