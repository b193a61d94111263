package domain

import (
	"context"
)

// EvidenceStore is the narrow contract the validator needs for its aging and
// contradiction sweeps. Implementations may fail; callers impose timeouts via
// ctx.
type EvidenceStore interface {
	ListClaims(ctx context.Context) ([]EvidenceClaim, error)
	ListEvidenceForClaim(ctx context.Context, claimID string) ([]EvidenceRecord, error)
	UpdateEvidenceForClaim(ctx context.Context, claimID string, records []EvidenceRecord) error
}

// EvidenceBatchStore is an optional capability: apply a whole sweep's worth
// of updates in one atomic call. Preferred over per-claim updates when
// available, to avoid partial-write inconsistency.
type EvidenceBatchStore interface {
	UpdateEvidenceBatch(ctx context.Context, updates map[string][]EvidenceRecord) error
}

type ContradictionStore interface {
	RecordContradiction(ctx context.Context, c *Contradiction) error
	ListOpenContradictions(ctx context.Context, limit int) ([]Contradiction, error)
}

// ClaimSimilarityStore is an optional capability: rank claims near a given
// one, used to hand reviewers context when a contradiction needs a human.
type ClaimSimilarityStore interface {
	FindRelatedClaims(ctx context.Context, claimID string, limit int) ([]EvidenceClaim, error)
}
