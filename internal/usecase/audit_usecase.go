package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// LogActionInput is one mutation to record in the audit log.
type LogActionInput struct {
	TenantID   string
	UserID     string
	Action     domain.AuditAction
	EntityType domain.EntityType
	EntityID   string
	Changes    domain.ChangeSet
	IPAddress  string
	UserAgent  string
}

// Auditor records mutations. Implementations must never abort the
// caller's primary operation: the returned error is advisory and safe to
// ignore.
type Auditor interface {
	LogAction(ctx context.Context, in LogActionInput) error
}

// RequestMeta is the request-level metadata (client address, user agent)
// stamped onto audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches request metadata to the context; LogAction
// fills entry fields from it when the input leaves them empty.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}

// entityTables resolves an audited entity type to the table its rows live
// in. Rollback refuses entries whose type is not registered here;
// audit_log itself is deliberately absent, audit entries cannot be
// rolled back.
var entityTables = map[domain.EntityType]string{
	domain.EntityOrganization: "organizations",
	domain.EntityRequirement:  "requirements",
	domain.EntityEvidence:     "evidence",
	domain.EntityMapping:      "applicability_mappings",
	domain.EntityRule:         "applicability_rules",
}

// AuditUseCase records every mutating operation as an immutable log
// entry and can reverse a single create/update/delete by replaying its
// inverse against the originating table.
type AuditUseCase struct {
	auditRepo ports.AuditRepository
	rowStore  ports.RowStore
	log       logger.Logger
}

// NewAuditUseCase creates the audit service.
func NewAuditUseCase(auditRepo ports.AuditRepository, rowStore ports.RowStore, log logger.Logger) *AuditUseCase {
	return &AuditUseCase{auditRepo: auditRepo, rowStore: rowStore, log: log}
}

// LogAction appends one immutable entry. Best-effort: a failing store
// yields an *domain.AuditError that the caller may observe or ignore; it
// is also logged here so dropped entries always leave a trace.
func (uc *AuditUseCase) LogAction(ctx context.Context, in LogActionInput) error {
	if !in.Action.Valid() {
		err := &domain.AuditError{Err: fmt.Errorf("unknown audit action %q", in.Action)}
		uc.log.Warn(ctx, "audit entry dropped", map[string]interface{}{
			"action":      string(in.Action),
			"entity_type": string(in.EntityType),
			"entity_id":   in.EntityID,
		})
		return err
	}

	entry := domain.NewAuditLogEntry(in.TenantID, in.UserID, in.Action, in.EntityType, in.EntityID, in.Changes)
	meta := requestMetaFrom(ctx)
	entry.IPAddress = in.IPAddress
	entry.UserAgent = in.UserAgent
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}

	if err := uc.auditRepo.Create(ctx, entry); err != nil {
		auditErr := &domain.AuditError{Entry: entry, Err: err}
		uc.log.Error(ctx, "audit entry dropped", auditErr, map[string]interface{}{
			"action":      string(in.Action),
			"entity_type": string(in.EntityType),
			"entity_id":   in.EntityID,
		})
		return auditErr
	}
	return nil
}

// GetAuditLog retrieves audit entries matching the filter, newest first.
// The result count is capped at 100, defaulting to 50.
func (uc *AuditUseCase) GetAuditLog(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLogEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	entries, err := uc.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// RollbackOperation reverses the mutation recorded by one audit entry.
// It returns false, without touching any entity, when the entry is
// missing, its action is not a single create/update/delete, its entity
// type is unregistered, or the target row no longer matches the
// snapshot. The compensating write is itself logged as an inverse entry
// marked rollback, plus a meta-entry on the audit log, so every undo is
// visible in the trail.
func (uc *AuditUseCase) RollbackOperation(ctx context.Context, auditLogID, userID string) (bool, error) {
	entry, err := uc.auditRepo.FindByID(ctx, auditLogID)
	if err != nil {
		if errors.Is(err, domain.ErrAuditEntryNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load audit entry: %w", err)
	}

	table, ok := entityTables[entry.EntityType]
	if !ok {
		return false, nil
	}

	var inverse LogActionInput
	switch entry.Action {
	case domain.ActionCreate:
		if err := uc.rowStore.Delete(ctx, table, entry.EntityID); err != nil {
			if errors.Is(err, ports.ErrRowConflict) {
				return false, nil
			}
			return false, fmt.Errorf("failed to roll back create: %w", err)
		}
		inverse = LogActionInput{
			Action:  domain.ActionDelete,
			Changes: domain.ChangeSet{Deleted: entry.Changes.Created, Rollback: true},
		}

	case domain.ActionUpdate:
		if entry.Changes.Before == nil {
			return false, nil
		}
		if err := uc.rowStore.Update(ctx, table, entry.EntityID, entry.Changes.Before); err != nil {
			if errors.Is(err, ports.ErrRowConflict) {
				return false, nil
			}
			return false, fmt.Errorf("failed to roll back update: %w", err)
		}
		inverse = LogActionInput{
			Action: domain.ActionUpdate,
			Changes: domain.ChangeSet{
				Before:   entry.Changes.After,
				After:    entry.Changes.Before,
				Rollback: true,
			},
		}

	case domain.ActionDelete:
		if entry.Changes.Deleted == nil {
			return false, nil
		}
		if err := uc.rowStore.Insert(ctx, table, entry.Changes.Deleted); err != nil {
			if errors.Is(err, ports.ErrRowConflict) {
				return false, nil
			}
			return false, fmt.Errorf("failed to roll back delete: %w", err)
		}
		inverse = LogActionInput{
			Action:  domain.ActionCreate,
			Changes: domain.ChangeSet{Created: entry.Changes.Deleted, Rollback: true},
		}

	default:
		// bulk operations have no single-row inverse
		return false, nil
	}

	inverse.TenantID = entry.TenantID
	inverse.UserID = userID
	inverse.EntityType = entry.EntityType
	inverse.EntityID = entry.EntityID
	_ = uc.LogAction(ctx, inverse)

	_ = uc.LogAction(ctx, LogActionInput{
		TenantID:   entry.TenantID,
		UserID:     userID,
		Action:     domain.ActionUpdate,
		EntityType: domain.EntityAuditLog,
		EntityID:   entry.ID,
		Changes: domain.ChangeSet{
			After:    domain.Row{"rolled_back_by": userID, "rolled_back_entry": entry.ID},
			Rollback: true,
		},
	})

	uc.log.Info(ctx, "rollback performed", map[string]interface{}{
		"audit_log_id": entry.ID,
		"entity_type":  string(entry.EntityType),
		"entity_id":    entry.EntityID,
		"action":       string(entry.Action),
		"user_id":      userID,
	})
	return true, nil
}
