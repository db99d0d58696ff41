package ports

import (
	"context"

	"github.com/complior/complior/internal/domain"
)

// ApplicabilityCache caches computed applicability results per
// requirement. Misses and backend failures both surface as (nil, nil):
// the cache is advisory and callers fall through to recomputation.
type ApplicabilityCache interface {
	Get(ctx context.Context, requirementID string) (*domain.ApplicabilityResult, error)
	Set(ctx context.Context, result *domain.ApplicabilityResult) error
	Invalidate(ctx context.Context, requirementID string) error
}
