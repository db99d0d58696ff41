package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

// PostgresAuditRepository implements AuditRepository using PostgreSQL.
// The audit_log table is append-only; no update or delete statement
// exists here on purpose.
type PostgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository creates a new PostgreSQL audit repository
func NewPostgresAuditRepository(db *sql.DB) ports.AuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Create appends a new audit entry
func (r *PostgresAuditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (id, tenant_id, user_id, action, entity_type, entity_id, changes, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.UserID,
		string(entry.Action),
		string(entry.EntityType),
		entry.EntityID,
		changesJSON,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// List retrieves audit entries matching the filter, newest first
func (r *PostgresAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLogEntry, error) {
	query := `
		SELECT id, tenant_id, user_id, action, entity_type, entity_id, changes, ip_address, user_agent, created_at
		FROM audit_log
	`

	where := ""
	var args []interface{}
	and := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	if filter.EntityType != nil {
		args = append(args, string(*filter.EntityType))
		and(fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		and(fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		and(fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, string(*filter.Action))
		and(fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		and(fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		and(fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query += where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindByID retrieves an audit entry by its ID
func (r *PostgresAuditRepository) FindByID(ctx context.Context, id string) (*domain.AuditLogEntry, error) {
	query := `
		SELECT id, tenant_id, user_id, action, entity_type, entity_id, changes, ip_address, user_agent, created_at
		FROM audit_log
		WHERE id = $1
	`

	entry, err := scanAuditEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAuditEntryNotFound
		}
		return nil, fmt.Errorf("failed to find audit entry: %w", err)
	}
	return entry, nil
}

func scanAuditEntry(s rowScanner) (*domain.AuditLogEntry, error) {
	var entry domain.AuditLogEntry
	var action, entityType string
	var changesJSON []byte
	var ipAddress, userAgent sql.NullString

	if err := s.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.UserID,
		&action,
		&entityType,
		&entry.EntityID,
		&changesJSON,
		&ipAddress,
		&userAgent,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	entry.Action = domain.AuditAction(action)
	entry.EntityType = domain.EntityType(entityType)
	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}
	if ipAddress.Valid {
		entry.IPAddress = ipAddress.String
	}
	if userAgent.Valid {
		entry.UserAgent = userAgent.String
	}
	return &entry, nil
}
