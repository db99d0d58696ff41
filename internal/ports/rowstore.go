package ports

import (
	"context"

	"github.com/complior/complior/internal/domain"
)

// RowStore is the generic per-table access rollback compensating writes go
// through. Implementations re-validate preconditions at write time: a
// write that finds no matching row (or a conflicting one) reports
// ErrRowConflict so the caller can refuse the rollback without any
// partial mutation.
type RowStore interface {
	// Insert adds a full row to the table
	Insert(ctx context.Context, table string, row domain.Row) error

	// Update overwrites the identified row with the given columns
	Update(ctx context.Context, table, id string, row domain.Row) error

	// Delete removes the identified row
	Delete(ctx context.Context, table, id string) error
}

// ErrRowConflict reports that a compensating write found the target table
// in an unexpected state: the row is gone, or already exists.
var ErrRowConflict = domain.NewDomainError("row store conflict")
