package domain

import (
	"testing"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestFilterRules_EmptyMatchesEverything(t *testing.T) {
	rules := FilterRules{}

	if !rules.Empty() {
		t.Error("Expected rules to be empty")
	}

	if !rules.Matches(nil) {
		t.Error("Expected empty rules to match nil profile")
	}

	if !rules.Matches(&OrganizationProfile{}) {
		t.Error("Expected empty rules to match empty profile")
	}
}

func TestFilterRules_NilProfileFailsAnyPredicate(t *testing.T) {
	rules := FilterRules{IsFinancial: boolp(true)}

	if rules.Matches(nil) {
		t.Error("Expected nil profile to fail a present predicate")
	}
}

func TestFilterRules_KIICategories(t *testing.T) {
	profile := &OrganizationProfile{KIICategory: intp(2)}

	if !(FilterRules{KIICategories: []int{1, 2}}).Matches(profile) {
		t.Error("Expected category 2 to match allowed set [1, 2]")
	}

	if (FilterRules{KIICategories: []int{1}}).Matches(profile) {
		t.Error("Expected category 2 not to match allowed set [1]")
	}

	// unknown attribute fails the predicate
	if (FilterRules{KIICategories: []int{1, 2}}).Matches(&OrganizationProfile{}) {
		t.Error("Expected missing category to fail the predicate")
	}
}

func TestFilterRules_PDNLevels(t *testing.T) {
	rules := FilterRules{PDNLevels: []int{1, 2}}

	if !rules.Matches(&OrganizationProfile{PDNLevel: intp(1)}) {
		t.Error("Expected level 1 to match")
	}
	if rules.Matches(&OrganizationProfile{PDNLevel: intp(3)}) {
		t.Error("Expected level 3 not to match")
	}
	if rules.Matches(&OrganizationProfile{}) {
		t.Error("Expected missing level to fail the predicate")
	}
}

func TestFilterRules_BooleanPredicates(t *testing.T) {
	rules := FilterRules{IsFinancial: boolp(true), IsHealthcare: boolp(false)}

	match := &OrganizationProfile{IsFinancial: boolp(true), IsHealthcare: boolp(false)}
	if !rules.Matches(match) {
		t.Error("Expected matching boolean profile to pass")
	}

	wrong := &OrganizationProfile{IsFinancial: boolp(false), IsHealthcare: boolp(false)}
	if rules.Matches(wrong) {
		t.Error("Expected mismatched boolean to fail")
	}

	unknown := &OrganizationProfile{IsHealthcare: boolp(false)}
	if rules.Matches(unknown) {
		t.Error("Expected missing boolean attribute to fail the predicate")
	}
}

func TestFilterRules_EmployeeRange(t *testing.T) {
	rules := FilterRules{MinEmployees: intp(100), MaxEmployees: intp(500)}

	if !rules.Matches(&OrganizationProfile{EmployeeCount: intp(250)}) {
		t.Error("Expected count inside the range to match")
	}
	if rules.Matches(&OrganizationProfile{EmployeeCount: intp(50)}) {
		t.Error("Expected count below minimum not to match")
	}
	if rules.Matches(&OrganizationProfile{EmployeeCount: intp(900)}) {
		t.Error("Expected count above maximum not to match")
	}
	if rules.Matches(&OrganizationProfile{}) {
		t.Error("Expected unknown count to fail a range predicate")
	}

	// boundaries are inclusive
	if !rules.Matches(&OrganizationProfile{EmployeeCount: intp(100)}) {
		t.Error("Expected count equal to minimum to match")
	}
	if !rules.Matches(&OrganizationProfile{EmployeeCount: intp(500)}) {
		t.Error("Expected count equal to maximum to match")
	}
}

func TestFilterRules_AllPredicatesMustPass(t *testing.T) {
	rules := FilterRules{
		KIICategories: []int{1},
		IsFinancial:   boolp(true),
	}

	profile := &OrganizationProfile{
		KIICategory: intp(1),
		IsFinancial: boolp(false),
	}

	if rules.Matches(profile) {
		t.Error("Expected one failing predicate to fail the whole rule set")
	}
}

func TestMappingType_Manual(t *testing.T) {
	if !MappingManualInclude.Manual() {
		t.Error("Expected manual_include to be manual")
	}
	if !MappingManualExclude.Manual() {
		t.Error("Expected manual_exclude to be manual")
	}
	if MappingAutomatic.Manual() {
		t.Error("Expected automatic not to be manual")
	}
	if MappingNone.Manual() {
		t.Error("Expected none not to be manual")
	}
}

func TestApplicabilityResult_Applicable(t *testing.T) {
	result := &ApplicabilityResult{
		Organizations: []OrganizationApplicability{
			{Organization: &Organization{ID: "a"}, Type: MappingAutomatic},
			{Organization: &Organization{ID: "b"}, Type: MappingManualInclude},
			{Organization: &Organization{ID: "c"}, Type: MappingManualExclude},
			{Organization: &Organization{ID: "d"}, Type: MappingNone},
		},
	}

	applicable := result.Applicable()
	if len(applicable) != 2 {
		t.Fatalf("Expected 2 applicable organizations, got %d", len(applicable))
	}
	if applicable[0].ID != "a" || applicable[1].ID != "b" {
		t.Errorf("Expected organizations a and b, got %s and %s", applicable[0].ID, applicable[1].ID)
	}
}

func TestAuditAction_Valid(t *testing.T) {
	valid := []AuditAction{ActionCreate, ActionUpdate, ActionDelete, ActionBulkCreate, ActionBulkUpdate, ActionBulkDelete}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("Expected action %s to be valid", a)
		}
	}
	if AuditAction("drop_tables").Valid() {
		t.Error("Expected unknown action to be invalid")
	}
}
