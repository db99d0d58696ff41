package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// ApplicabilityUseCase decides which organizations a requirement applies
// to. Rule evaluation is fail-open: a requirement without a rule applies
// everywhere. Manual overrides always win over rule evaluation and are
// never touched by recalculation.
type ApplicabilityUseCase struct {
	orgRepo  ports.OrganizationRepository
	applRepo ports.ApplicabilityRepository
	cache    ports.ApplicabilityCache
	auditor  Auditor
	log      logger.Logger
}

// NewApplicabilityUseCase creates the applicability engine. cache and
// auditor may be nil.
func NewApplicabilityUseCase(
	orgRepo ports.OrganizationRepository,
	applRepo ports.ApplicabilityRepository,
	cache ports.ApplicabilityCache,
	auditor Auditor,
	log logger.Logger,
) *ApplicabilityUseCase {
	return &ApplicabilityUseCase{
		orgRepo:  orgRepo,
		applRepo: applRepo,
		cache:    cache,
		auditor:  auditor,
		log:      log,
	}
}

// CalculateApplicableOrganizations returns the organizations whose
// attribute profile satisfies every predicate in rules. An empty rule
// set returns the input unchanged.
func (uc *ApplicabilityUseCase) CalculateApplicableOrganizations(orgs []*domain.Organization, rules domain.FilterRules) []*domain.Organization {
	if rules.Empty() {
		return orgs
	}
	var matched []*domain.Organization
	for _, org := range orgs {
		if rules.Matches(org.Profile) {
			matched = append(matched, org)
		}
	}
	return matched
}

// GetApplicabilityResult computes the read-only applicability projection
// for a requirement. Persisted mappings win verbatim; everything else is
// classified against the current rule. Missing rules, mappings and
// profiles are valid states, never errors.
func (uc *ApplicabilityUseCase) GetApplicabilityResult(ctx context.Context, requirementID string) (*domain.ApplicabilityResult, error) {
	if uc.cache != nil {
		if cached, _ := uc.cache.Get(ctx, requirementID); cached != nil {
			return cached, nil
		}
	}

	orgs, err := uc.orgRepo.FindMany(ctx, domain.OrganizationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}

	rule, err := uc.applRepo.GetRule(ctx, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicability rule: %w", err)
	}

	mappings, err := uc.applRepo.GetMappings(ctx, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicability mappings: %w", err)
	}
	mapped := make(map[string]*domain.ApplicabilityMapping, len(mappings))
	for _, m := range mappings {
		mapped[m.OrganizationID] = m
	}

	result := &domain.ApplicabilityResult{
		RequirementID: requirementID,
		HasRule:       rule != nil,
	}
	for _, org := range orgs {
		oa := domain.OrganizationApplicability{Organization: org}
		if m, ok := mapped[org.ID]; ok {
			oa.Type = m.Type
			oa.Reason = m.Reason
		} else if rule == nil || rule.Rules.Matches(org.Profile) {
			oa.Type = domain.MappingAutomatic
		} else {
			oa.Type = domain.MappingNone
		}
		result.Organizations = append(result.Organizations, oa)

		result.Counts.Total++
		switch oa.Type {
		case domain.MappingAutomatic:
			result.Counts.Automatic++
		case domain.MappingManualInclude:
			result.Counts.ManualInclude++
		case domain.MappingManualExclude:
			result.Counts.ManualExclude++
		}
		if oa.Type != domain.MappingManualExclude && oa.Type != domain.MappingNone {
			result.Counts.Applicable++
		}
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, result)
	}
	return result, nil
}

// UpdateApplicabilityRule replaces the rule for a requirement and
// reconciles the automatic mappings against it.
func (uc *ApplicabilityUseCase) UpdateApplicabilityRule(ctx context.Context, requirementID string, rules domain.FilterRules, userID string) error {
	prev, err := uc.applRepo.GetRule(ctx, requirementID)
	if err != nil {
		return fmt.Errorf("failed to load applicability rule: %w", err)
	}

	rule := domain.NewApplicabilityRule(requirementID, rules, userID)
	if prev != nil {
		// the upsert never rewrites id or created_at; keep them so the
		// audit entry references the row that actually exists
		rule.ID = prev.ID
		rule.CreatedAt = prev.CreatedAt
	}
	if err := uc.applRepo.UpsertRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to upsert applicability rule: %w", err)
	}

	uc.audit(ctx, userID, domain.ActionUpdate, domain.EntityRule, rule.ID, domain.ChangeSet{
		Before: ruleRow(prev),
		After:  ruleRow(rule),
	})

	if err := uc.RecalculateMappings(ctx, requirementID); err != nil {
		return err
	}
	return nil
}

// RecalculateMappings reconciles the automatic mappings of a requirement
// with its current rule. Idempotent: stale automatic rows are dropped and
// rebuilt, manual rows are left alone. Without a rule this is a no-op.
func (uc *ApplicabilityUseCase) RecalculateMappings(ctx context.Context, requirementID string) error {
	rule, err := uc.applRepo.GetRule(ctx, requirementID)
	if err != nil {
		return fmt.Errorf("failed to load applicability rule: %w", err)
	}
	if rule == nil {
		return nil
	}

	orgs, err := uc.orgRepo.FindMany(ctx, domain.OrganizationFilter{})
	if err != nil {
		return fmt.Errorf("failed to load organizations: %w", err)
	}
	applicable := uc.CalculateApplicableOrganizations(orgs, rule.Rules)

	if err := uc.applRepo.DeleteAutomaticMappings(ctx, requirementID); err != nil {
		return fmt.Errorf("failed to delete stale automatic mappings: %w", err)
	}

	remaining, err := uc.applRepo.GetMappings(ctx, requirementID)
	if err != nil {
		return fmt.Errorf("failed to load applicability mappings: %w", err)
	}
	manual := make(map[string]domain.MappingType, len(remaining))
	for _, m := range remaining {
		manual[m.OrganizationID] = m.Type
	}

	for _, org := range applicable {
		if manual[org.ID].Manual() {
			continue
		}
		mapping := domain.NewApplicabilityMapping(requirementID, org.ID, domain.MappingAutomatic, "", rule.CreatedBy)
		if err := uc.applRepo.CreateMapping(ctx, mapping); err != nil {
			if errors.Is(err, ports.ErrMappingExists) {
				// lost to a concurrent recalculation, the row is there either way
				continue
			}
			return fmt.Errorf("failed to create automatic mapping: %w", err)
		}
	}

	uc.invalidate(ctx, requirementID)
	return nil
}

// AddManualInclude marks an organization as explicitly in scope for a
// requirement, overriding any prior mapping for the pair.
func (uc *ApplicabilityUseCase) AddManualInclude(ctx context.Context, requirementID, organizationID, reason, userID string) error {
	return uc.addManualOverride(ctx, requirementID, organizationID, domain.MappingManualInclude, reason, userID)
}

// AddManualExclude marks an organization as explicitly out of scope for a
// requirement, overriding any prior mapping for the pair.
func (uc *ApplicabilityUseCase) AddManualExclude(ctx context.Context, requirementID, organizationID, reason, userID string) error {
	return uc.addManualOverride(ctx, requirementID, organizationID, domain.MappingManualExclude, reason, userID)
}

func (uc *ApplicabilityUseCase) addManualOverride(ctx context.Context, requirementID, organizationID string, t domain.MappingType, reason, userID string) error {
	existing, err := uc.applRepo.GetMapping(ctx, requirementID, organizationID)
	if err != nil {
		return fmt.Errorf("failed to load applicability mapping: %w", err)
	}

	mapping := domain.NewApplicabilityMapping(requirementID, organizationID, t, reason, userID)
	if existing != nil {
		mapping.ID = existing.ID
		mapping.CreatedAt = existing.CreatedAt
	}
	if err := uc.applRepo.UpsertMapping(ctx, mapping); err != nil {
		return fmt.Errorf("failed to upsert manual mapping: %w", err)
	}

	uc.audit(ctx, userID, domain.ActionCreate, domain.EntityMapping, mapping.ID, domain.ChangeSet{
		Created: mappingRow(mapping),
	})
	uc.invalidate(ctx, requirementID)
	return nil
}

// RemoveManualOverride drops the manual mapping for a pair, then
// recalculates so the organization reverts to its rule-derived state.
func (uc *ApplicabilityUseCase) RemoveManualOverride(ctx context.Context, requirementID, organizationID, userID string) error {
	mapping, err := uc.applRepo.GetMapping(ctx, requirementID, organizationID)
	if err != nil {
		return fmt.Errorf("failed to load applicability mapping: %w", err)
	}

	if mapping != nil && mapping.Type.Manual() {
		if err := uc.applRepo.DeleteMapping(ctx, requirementID, organizationID); err != nil {
			return fmt.Errorf("failed to delete manual mapping: %w", err)
		}
		uc.audit(ctx, userID, domain.ActionDelete, domain.EntityMapping, mapping.ID, domain.ChangeSet{
			Deleted: mappingRow(mapping),
		})
	}

	if err := uc.RecalculateMappings(ctx, requirementID); err != nil {
		return err
	}
	uc.invalidate(ctx, requirementID)
	return nil
}

func (uc *ApplicabilityUseCase) invalidate(ctx context.Context, requirementID string) {
	if uc.cache != nil {
		_ = uc.cache.Invalidate(ctx, requirementID)
	}
}

func (uc *ApplicabilityUseCase) audit(ctx context.Context, userID string, action domain.AuditAction, entityType domain.EntityType, entityID string, changes domain.ChangeSet) {
	if uc.auditor == nil {
		return
	}
	if err := uc.auditor.LogAction(ctx, LogActionInput{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
	}); err != nil {
		uc.log.Warn(ctx, "audit entry dropped", map[string]interface{}{
			"entity_type": string(entityType),
			"entity_id":   entityID,
			"error":       err.Error(),
		})
	}
}

func ruleRow(rule *domain.ApplicabilityRule) domain.Row {
	if rule == nil {
		return nil
	}
	row := domain.Row{
		"id":             rule.ID,
		"requirement_id": rule.RequirementID,
		"created_by":     rule.CreatedBy,
	}
	// the rules column is jsonb; snapshot it as a string so the row
	// stays bindable when a rollback replays it
	if data, err := json.Marshal(rule.Rules); err == nil {
		row["rules"] = string(data)
	}
	return row
}

func mappingRow(m *domain.ApplicabilityMapping) domain.Row {
	return domain.Row{
		"id":              m.ID,
		"requirement_id":  m.RequirementID,
		"organization_id": m.OrganizationID,
		"mapping_type":    string(m.Type),
		"reason":          m.Reason,
		"created_by":      m.CreatedBy,
	}
}
