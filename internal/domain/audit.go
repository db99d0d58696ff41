package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	ActionCreate     AuditAction = "create"
	ActionUpdate     AuditAction = "update"
	ActionDelete     AuditAction = "delete"
	ActionBulkCreate AuditAction = "bulk_create"
	ActionBulkUpdate AuditAction = "bulk_update"
	ActionBulkDelete AuditAction = "bulk_delete"
)

// Valid reports whether the action is one of the known kinds.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete,
		ActionBulkCreate, ActionBulkUpdate, ActionBulkDelete:
		return true
	}
	return false
}

// EntityType identifies the kind of entity an audit entry refers to.
// Rollback resolves it to a table through a static registry; adding an
// entity type means extending that registry.
type EntityType string

const (
	EntityOrganization EntityType = "organization"
	EntityRequirement  EntityType = "requirement"
	EntityEvidence     EntityType = "evidence"
	EntityMapping      EntityType = "applicability_mapping"
	EntityRule         EntityType = "applicability_rule"
	EntityAuditLog     EntityType = "audit_log"
)

// Row is a generic snapshot of one table row, keyed by column name.
type Row map[string]any

// ChangeSet is the structured `changes` payload of an audit entry. The
// populated fields depend on the action: update carries Before/After,
// delete carries Deleted, create carries Created. Rollback marks entries
// written by a compensating operation. The JSON shape is stable; rollback
// interprets historical entries through it.
type ChangeSet struct {
	Before   Row  `json:"before,omitempty"`
	After    Row  `json:"after,omitempty"`
	Deleted  Row  `json:"deleted,omitempty"`
	Created  Row  `json:"created,omitempty"`
	Rollback bool `json:"rollback,omitempty"`
}

// AuditLogEntry is an immutable record of one mutating operation. Entries
// are append-only: a rollback produces new entries, never edits.
type AuditLogEntry struct {
	ID         string      `json:"id"`
	TenantID   string      `json:"tenant_id"`
	UserID     string      `json:"user_id"`
	Action     AuditAction `json:"action"`
	EntityType EntityType  `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Changes    ChangeSet   `json:"changes"`
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewAuditLogEntry creates an entry with a generated ID and timestamp.
func NewAuditLogEntry(tenantID, userID string, action AuditAction, entityType EntityType, entityID string, changes ChangeSet) *AuditLogEntry {
	return &AuditLogEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		CreatedAt:  time.Now(),
	}
}

// AuditFilter represents filters for querying the audit log.
type AuditFilter struct {
	EntityType *EntityType  `json:"entity_type,omitempty"`
	EntityID   *string      `json:"entity_id,omitempty"`
	UserID     *string      `json:"user_id,omitempty"`
	Action     *AuditAction `json:"action,omitempty"`
	From       *time.Time   `json:"from,omitempty"`
	To         *time.Time   `json:"to,omitempty"`
	Limit      int          `json:"limit"`
}

// AuditError wraps a failure to append an audit entry. Audit is advisory:
// callers may observe the error or ignore it, but must not abort their
// primary operation because of it.
type AuditError struct {
	Entry *AuditLogEntry
	Err   error
}

func (e *AuditError) Error() string {
	return "audit log append failed: " + e.Err.Error()
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

var ErrAuditEntryNotFound = NewDomainError("audit entry not found")
