package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
)

// rollbackTables is the closed set of tables compensating writes may
// touch. Anything else is refused before a statement is built.
var rollbackTables = map[string]bool{
	"organizations":          true,
	"requirements":           true,
	"evidence":               true,
	"applicability_mappings": true,
	"applicability_rules":    true,
}

// PostgresRowStore implements the generic per-table access rollback uses.
// Every write re-validates its precondition through the statement itself:
// zero affected rows or a unique-constraint hit means the table moved on
// since the audit snapshot, reported as ports.ErrRowConflict.
type PostgresRowStore struct {
	db *sql.DB
}

// NewPostgresRowStore creates a new PostgreSQL row store
func NewPostgresRowStore(db *sql.DB) ports.RowStore {
	return &PostgresRowStore{db: db}
}

// Insert adds a full row to the table
func (s *PostgresRowStore) Insert(ctx context.Context, table string, row domain.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(row) == 0 {
		return fmt.Errorf("row store insert into %s: empty row", table)
	}

	columns := sortedColumns(row)
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
		quoted[i] = pq.QuoteIdentifier(col)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pgUniqueViolation {
			return ports.ErrRowConflict
		}
		return fmt.Errorf("row store insert into %s failed: %w", table, err)
	}
	return nil
}

// Update overwrites the identified row with the given columns
func (s *PostgresRowStore) Update(ctx context.Context, table, id string, row domain.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}

	columns := sortedColumns(row)
	var assignments []string
	var args []interface{}
	for _, col := range columns {
		if col == "id" {
			continue
		}
		args = append(args, row[col])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args)))
	}
	if len(assignments) == 0 {
		return fmt.Errorf("row store update of %s: no columns", table)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pq.QuoteIdentifier(table),
		strings.Join(assignments, ", "),
		len(args),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("row store update of %s failed: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ports.ErrRowConflict
	}
	return nil
}

// Delete removes the identified row
func (s *PostgresRowStore) Delete(ctx context.Context, table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(table))
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("row store delete from %s failed: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ports.ErrRowConflict
	}
	return nil
}

func checkTable(table string) error {
	if !rollbackTables[table] {
		return fmt.Errorf("row store: table %q is not registered for rollback", table)
	}
	return nil
}

func sortedColumns(row domain.Row) []string {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
