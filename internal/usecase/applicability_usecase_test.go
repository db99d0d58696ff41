package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

type fakeOrgRepo struct {
	orgs []*domain.Organization
}

func (f *fakeOrgRepo) Create(ctx context.Context, org *domain.Organization) error {
	f.orgs = append(f.orgs, org)
	return nil
}

func (f *fakeOrgRepo) FindByID(ctx context.Context, id string) (*domain.Organization, error) {
	for _, org := range f.orgs {
		if org.ID == id {
			return org, nil
		}
	}
	return nil, domain.ErrOrganizationNotFound
}

func (f *fakeOrgRepo) FindMany(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, error) {
	return f.orgs, nil
}

func (f *fakeOrgRepo) Update(ctx context.Context, org *domain.Organization) error { return nil }
func (f *fakeOrgRepo) Delete(ctx context.Context, id string) error                { return nil }
func (f *fakeOrgRepo) Count(ctx context.Context, filter domain.OrganizationFilter) (int, error) {
	return len(f.orgs), nil
}

type fakeApplRepo struct {
	rule     *domain.ApplicabilityRule
	mappings map[string]*domain.ApplicabilityMapping // keyed by organization ID
}

func newFakeApplRepo() *fakeApplRepo {
	return &fakeApplRepo{mappings: make(map[string]*domain.ApplicabilityMapping)}
}

func (f *fakeApplRepo) GetRule(ctx context.Context, requirementID string) (*domain.ApplicabilityRule, error) {
	return f.rule, nil
}

func (f *fakeApplRepo) UpsertRule(ctx context.Context, rule *domain.ApplicabilityRule) error {
	f.rule = rule
	return nil
}

func (f *fakeApplRepo) GetMappings(ctx context.Context, requirementID string) ([]*domain.ApplicabilityMapping, error) {
	var out []*domain.ApplicabilityMapping
	for _, m := range f.mappings {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeApplRepo) GetMapping(ctx context.Context, requirementID, organizationID string) (*domain.ApplicabilityMapping, error) {
	return f.mappings[organizationID], nil
}

func (f *fakeApplRepo) UpsertMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error {
	f.mappings[mapping.OrganizationID] = mapping
	return nil
}

func (f *fakeApplRepo) CreateMapping(ctx context.Context, mapping *domain.ApplicabilityMapping) error {
	if _, ok := f.mappings[mapping.OrganizationID]; ok {
		return ports.ErrMappingExists
	}
	f.mappings[mapping.OrganizationID] = mapping
	return nil
}

func (f *fakeApplRepo) DeleteMapping(ctx context.Context, requirementID, organizationID string) error {
	delete(f.mappings, organizationID)
	return nil
}

func (f *fakeApplRepo) DeleteAutomaticMappings(ctx context.Context, requirementID string) error {
	for orgID, m := range f.mappings {
		if m.Type == domain.MappingAutomatic {
			delete(f.mappings, orgID)
		}
	}
	return nil
}

type fakeCache struct {
	results     map[string]*domain.ApplicabilityResult
	sets        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{results: make(map[string]*domain.ApplicabilityResult)}
}

func (f *fakeCache) Get(ctx context.Context, requirementID string) (*domain.ApplicabilityResult, error) {
	return f.results[requirementID], nil
}

func (f *fakeCache) Set(ctx context.Context, result *domain.ApplicabilityResult) error {
	f.results[result.RequirementID] = result
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, requirementID string) error {
	delete(f.results, requirementID)
	f.invalidated++
	return nil
}

type recordingAuditor struct {
	entries []LogActionInput
	fail    bool
}

func (a *recordingAuditor) LogAction(ctx context.Context, in LogActionInput) error {
	if a.fail {
		return &domain.AuditError{Err: errors.New("audit store down")}
	}
	a.entries = append(a.entries, in)
	return nil
}

func newOrg(id string, profile *domain.OrganizationProfile) *domain.Organization {
	return &domain.Organization{ID: id, TenantID: "t1", Name: "org-" + id, Profile: profile}
}

func newApplicabilityFixture(orgs ...*domain.Organization) (*ApplicabilityUseCase, *fakeApplRepo, *recordingAuditor) {
	orgRepo := &fakeOrgRepo{orgs: orgs}
	applRepo := newFakeApplRepo()
	auditor := &recordingAuditor{}
	uc := NewApplicabilityUseCase(orgRepo, applRepo, nil, auditor, logger.Noop())
	return uc, applRepo, auditor
}

func TestGetApplicabilityResult_NoRuleAppliesEverywhere(t *testing.T) {
	uc, _, _ := newApplicabilityFixture(
		newOrg("a", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("b", nil),
	)

	result, err := uc.GetApplicabilityResult(context.Background(), "req1")
	require.NoError(t, err)

	assert.False(t, result.HasRule)
	assert.Equal(t, 2, result.Counts.Total)
	assert.Equal(t, 2, result.Counts.Applicable)
	assert.Equal(t, 2, result.Counts.Automatic)
	for _, oa := range result.Organizations {
		assert.Equal(t, domain.MappingAutomatic, oa.Type)
	}
}

func TestGetApplicabilityResult_ClassifiesByRule(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("match", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("nomatch", &domain.OrganizationProfile{KIICategory: intp(3)}),
		newOrg("unknown", nil),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1, 2}}, "admin")

	result, err := uc.GetApplicabilityResult(context.Background(), "req1")
	require.NoError(t, err)

	assert.True(t, result.HasRule)
	types := map[string]domain.MappingType{}
	for _, oa := range result.Organizations {
		types[oa.Organization.ID] = oa.Type
	}
	assert.Equal(t, domain.MappingAutomatic, types["match"])
	assert.Equal(t, domain.MappingNone, types["nomatch"])
	assert.Equal(t, domain.MappingNone, types["unknown"])
	assert.Equal(t, 1, result.Counts.Applicable)
}

func TestGetApplicabilityResult_MappingsWinOverRule(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("excluded", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("included", &domain.OrganizationProfile{KIICategory: intp(3)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1}}, "admin")
	applRepo.mappings["excluded"] = domain.NewApplicabilityMapping("req1", "excluded", domain.MappingManualExclude, "not in scope", "admin")
	applRepo.mappings["included"] = domain.NewApplicabilityMapping("req1", "included", domain.MappingManualInclude, "regulator order", "admin")

	result, err := uc.GetApplicabilityResult(context.Background(), "req1")
	require.NoError(t, err)

	types := map[string]domain.MappingType{}
	for _, oa := range result.Organizations {
		types[oa.Organization.ID] = oa.Type
	}
	assert.Equal(t, domain.MappingManualExclude, types["excluded"])
	assert.Equal(t, domain.MappingManualInclude, types["included"])
	assert.Equal(t, 1, result.Counts.Applicable)
	assert.Equal(t, 1, result.Counts.ManualInclude)
	assert.Equal(t, 1, result.Counts.ManualExclude)
}

func TestGetApplicabilityResult_CacheHitSkipsRecomputation(t *testing.T) {
	orgRepo := &fakeOrgRepo{orgs: []*domain.Organization{newOrg("a", nil)}}
	cache := newFakeCache()
	cached := &domain.ApplicabilityResult{RequirementID: "req1", HasRule: true}
	cache.results["req1"] = cached

	uc := NewApplicabilityUseCase(orgRepo, newFakeApplRepo(), cache, nil, logger.Noop())

	result, err := uc.GetApplicabilityResult(context.Background(), "req1")
	require.NoError(t, err)
	assert.Same(t, cached, result)
	assert.Equal(t, 0, cache.sets)
}

func TestGetApplicabilityResult_CacheMissStoresResult(t *testing.T) {
	orgRepo := &fakeOrgRepo{orgs: []*domain.Organization{newOrg("a", nil)}}
	cache := newFakeCache()

	uc := NewApplicabilityUseCase(orgRepo, newFakeApplRepo(), cache, nil, logger.Noop())

	_, err := uc.GetApplicabilityResult(context.Background(), "req1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.NotNil(t, cache.results["req1"])
}

func TestUpdateApplicabilityRule_RecalculatesMappings(t *testing.T) {
	uc, applRepo, auditor := newApplicabilityFixture(
		newOrg("fin", &domain.OrganizationProfile{IsFinancial: boolp(true)}),
		newOrg("other", &domain.OrganizationProfile{IsFinancial: boolp(false)}),
	)

	err := uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{IsFinancial: boolp(true)}, "admin")
	require.NoError(t, err)

	require.Len(t, applRepo.mappings, 1)
	m := applRepo.mappings["fin"]
	require.NotNil(t, m)
	assert.Equal(t, domain.MappingAutomatic, m.Type)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, domain.ActionUpdate, auditor.entries[0].Action)
	assert.Equal(t, domain.EntityRule, auditor.entries[0].EntityType)
	assert.Nil(t, auditor.entries[0].Changes.Before)
	assert.NotNil(t, auditor.entries[0].Changes.After)
}

func TestUpdateApplicabilityRule_DropsStaleAutomaticMappings(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("a", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("b", &domain.OrganizationProfile{KIICategory: intp(2)}),
	)

	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{1}}, "admin"))
	require.NotNil(t, applRepo.mappings["a"])
	require.Nil(t, applRepo.mappings["b"])

	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{2}}, "admin"))
	assert.Nil(t, applRepo.mappings["a"], "stale automatic mapping must be dropped")
	require.NotNil(t, applRepo.mappings["b"])
	assert.Equal(t, domain.MappingAutomatic, applRepo.mappings["b"].Type)
}

func TestUpdateApplicabilityRule_KeepsPersistedRuleIdentity(t *testing.T) {
	uc, applRepo, auditor := newApplicabilityFixture(newOrg("a", nil))

	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{1}}, "admin"))
	firstID := applRepo.rule.ID

	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{2}}, "admin"))

	// the store's upsert never rewrites the row id, so the audit trail
	// must keep referencing it
	assert.Equal(t, firstID, applRepo.rule.ID)
	require.Len(t, auditor.entries, 2)
	assert.Equal(t, firstID, auditor.entries[1].EntityID)
}

func TestAddManualOverride_KeepsPersistedMappingIdentity(t *testing.T) {
	uc, applRepo, auditor := newApplicabilityFixture(newOrg("a", nil))

	require.NoError(t, uc.AddManualInclude(context.Background(), "req1", "a", "in scope", "admin"))
	firstID := applRepo.mappings["a"].ID

	require.NoError(t, uc.AddManualExclude(context.Background(), "req1", "a", "out of scope", "admin"))

	assert.Equal(t, firstID, applRepo.mappings["a"].ID)
	assert.Equal(t, domain.MappingManualExclude, applRepo.mappings["a"].Type)
	require.Len(t, auditor.entries, 2)
	assert.Equal(t, firstID, auditor.entries[1].EntityID)
}

func TestRuleUpdateEntryRollsBackAfterStorageRoundTrip(t *testing.T) {
	uc, _, auditor := newApplicabilityFixture(newOrg("a", &domain.OrganizationProfile{KIICategory: intp(1)}))

	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{1}}, "admin"))
	require.NoError(t, uc.UpdateApplicabilityRule(context.Background(), "req1", domain.FilterRules{KIICategories: []int{2}}, "admin"))
	require.Len(t, auditor.entries, 2)
	in := auditor.entries[1]
	require.NotNil(t, in.Changes.Before)

	// persist and reload the entry the way the jsonb changes column does
	entry := domain.NewAuditLogEntry("t1", "admin", in.Action, in.EntityType, in.EntityID, in.Changes)
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	var stored domain.AuditLogEntry
	require.NoError(t, json.Unmarshal(data, &stored))

	// every snapshot column must come back as a bindable scalar
	rules, ok := stored.Changes.Before["rules"].(string)
	require.True(t, ok, "rules snapshot must survive the round-trip as a string")
	assert.Contains(t, rules, "kii_categories")

	auditRepo := &fakeAuditRepo{entries: []*domain.AuditLogEntry{&stored}}
	rowStore := newFakeRowStore()
	rowStore.table("applicability_rules")[stored.EntityID] = stored.Changes.After
	audit := NewAuditUseCase(auditRepo, rowStore, logger.Noop())

	rolled, err := audit.RollbackOperation(context.Background(), stored.ID, "admin")
	require.NoError(t, err)
	require.True(t, rolled)
	assert.Equal(t, stored.Changes.Before, rowStore.table("applicability_rules")[stored.EntityID])
}

func TestRecalculateMappings_NoRuleIsNoOp(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(newOrg("a", nil))
	existing := domain.NewApplicabilityMapping("req1", "a", domain.MappingAutomatic, "", "admin")
	applRepo.mappings["a"] = existing

	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))
	assert.Same(t, existing, applRepo.mappings["a"])
}

func TestRecalculateMappings_Idempotent(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("a", &domain.OrganizationProfile{PDNLevel: intp(1)}),
		newOrg("b", &domain.OrganizationProfile{PDNLevel: intp(3)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{PDNLevels: []int{1, 2}}, "admin")

	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))
	first := applRepo.mappings["a"]
	require.NotNil(t, first)
	require.Len(t, applRepo.mappings, 1)

	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))
	require.Len(t, applRepo.mappings, 1)
	assert.Equal(t, domain.MappingAutomatic, applRepo.mappings["a"].Type)
}

func TestRecalculateMappings_PreservesManualOverrides(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("excluded", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("included", &domain.OrganizationProfile{KIICategory: intp(3)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1}}, "admin")
	applRepo.mappings["excluded"] = domain.NewApplicabilityMapping("req1", "excluded", domain.MappingManualExclude, "", "admin")
	applRepo.mappings["included"] = domain.NewApplicabilityMapping("req1", "included", domain.MappingManualInclude, "", "admin")

	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))

	assert.Equal(t, domain.MappingManualExclude, applRepo.mappings["excluded"].Type)
	assert.Equal(t, domain.MappingManualInclude, applRepo.mappings["included"].Type)
	assert.Len(t, applRepo.mappings, 2)
}

func TestAddManualExclude_StickyAcrossRecalculation(t *testing.T) {
	uc, applRepo, _ := newApplicabilityFixture(
		newOrg("a", &domain.OrganizationProfile{KIICategory: intp(1)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1}}, "admin")

	require.NoError(t, uc.AddManualExclude(context.Background(), "req1", "a", "decommissioned", "admin"))
	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))

	m := applRepo.mappings["a"]
	require.NotNil(t, m)
	assert.Equal(t, domain.MappingManualExclude, m.Type)
	assert.Equal(t, "decommissioned", m.Reason)
}

func TestRemoveManualOverride_RestoresRuleDerivedState(t *testing.T) {
	uc, applRepo, auditor := newApplicabilityFixture(
		newOrg("matching", &domain.OrganizationProfile{KIICategory: intp(1)}),
		newOrg("nonmatching", &domain.OrganizationProfile{KIICategory: intp(3)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1}}, "admin")
	applRepo.mappings["matching"] = domain.NewApplicabilityMapping("req1", "matching", domain.MappingManualExclude, "", "admin")
	applRepo.mappings["nonmatching"] = domain.NewApplicabilityMapping("req1", "nonmatching", domain.MappingManualInclude, "", "admin")

	require.NoError(t, uc.RemoveManualOverride(context.Background(), "req1", "matching", "admin"))
	m := applRepo.mappings["matching"]
	require.NotNil(t, m, "matching organization must revert to an automatic mapping")
	assert.Equal(t, domain.MappingAutomatic, m.Type)

	require.NoError(t, uc.RemoveManualOverride(context.Background(), "req1", "nonmatching", "admin"))
	assert.Nil(t, applRepo.mappings["nonmatching"], "non-matching organization must end up unmapped")

	deletes := 0
	for _, e := range auditor.entries {
		if e.Action == domain.ActionDelete && e.EntityType == domain.EntityMapping {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes)
}

func TestRemoveManualOverride_IgnoresAutomaticMapping(t *testing.T) {
	uc, applRepo, auditor := newApplicabilityFixture(
		newOrg("a", &domain.OrganizationProfile{KIICategory: intp(1)}),
	)
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{KIICategories: []int{1}}, "admin")
	applRepo.mappings["a"] = domain.NewApplicabilityMapping("req1", "a", domain.MappingAutomatic, "", "admin")

	require.NoError(t, uc.RemoveManualOverride(context.Background(), "req1", "a", "admin"))

	require.NotNil(t, applRepo.mappings["a"])
	assert.Equal(t, domain.MappingAutomatic, applRepo.mappings["a"].Type)
	assert.Empty(t, auditor.entries)
}

func TestAddManualInclude_SurvivesFailingAuditor(t *testing.T) {
	orgRepo := &fakeOrgRepo{orgs: []*domain.Organization{newOrg("a", nil)}}
	applRepo := newFakeApplRepo()
	auditor := &recordingAuditor{fail: true}
	uc := NewApplicabilityUseCase(orgRepo, applRepo, nil, auditor, logger.Noop())

	err := uc.AddManualInclude(context.Background(), "req1", "a", "regulator order", "admin")
	require.NoError(t, err)
	require.NotNil(t, applRepo.mappings["a"])
	assert.Equal(t, domain.MappingManualInclude, applRepo.mappings["a"].Type)
}

func TestRecalculateMappings_InvalidatesCache(t *testing.T) {
	orgRepo := &fakeOrgRepo{orgs: []*domain.Organization{newOrg("a", nil)}}
	applRepo := newFakeApplRepo()
	applRepo.rule = domain.NewApplicabilityRule("req1", domain.FilterRules{}, "admin")
	cache := newFakeCache()
	cache.results["req1"] = &domain.ApplicabilityResult{RequirementID: "req1"}

	uc := NewApplicabilityUseCase(orgRepo, applRepo, cache, nil, logger.Noop())

	require.NoError(t, uc.RecalculateMappings(context.Background(), "req1"))
	assert.Nil(t, cache.results["req1"])
	assert.Equal(t, 1, cache.invalidated)
}

func TestCalculateApplicableOrganizations(t *testing.T) {
	uc, _, _ := newApplicabilityFixture()
	orgs := []*domain.Organization{
		newOrg("small", &domain.OrganizationProfile{EmployeeCount: intp(10)}),
		newOrg("big", &domain.OrganizationProfile{EmployeeCount: intp(1000)}),
		newOrg("unknown", nil),
	}

	matched := uc.CalculateApplicableOrganizations(orgs, domain.FilterRules{MinEmployees: intp(100)})
	require.Len(t, matched, 1)
	assert.Equal(t, "big", matched[0].ID)

	all := uc.CalculateApplicableOrganizations(orgs, domain.FilterRules{})
	assert.Len(t, all, 3)
}
