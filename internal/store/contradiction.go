package store

import (
	"context"

	"github.com/credenceproj/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

// RecordContradiction stores a detected conflict. Re-detecting the same
// subject+proposition pair is a no-op, so repeated sweeps do not pile up
// duplicates awaiting review.
func (s *ContradictionStore) RecordContradiction(ctx context.Context, c *domain.Contradiction) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO contradictions (id, subject_id, proposition, affirmative_claim_id, negative_claim_id, resolution, detected_at, related_claim_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (subject_id, proposition) DO NOTHING`,
		c.ID, c.SubjectID, c.Proposition, c.AffirmativeClaimID, c.NegativeClaimID, c.Resolution, c.DetectedAt, c.RelatedClaimIDs,
	)
	return err
}

func (s *ContradictionStore) ListOpenContradictions(ctx context.Context, limit int) ([]domain.Contradiction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, subject_id, proposition, affirmative_claim_id, negative_claim_id, resolution, detected_at, related_claim_ids
		 FROM contradictions WHERE resolution = $1
		 ORDER BY detected_at DESC
		 LIMIT $2`,
		domain.ResolutionNeedsHuman, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contradiction
	for rows.Next() {
		var c domain.Contradiction
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Proposition, &c.AffirmativeClaimID, &c.NegativeClaimID, &c.Resolution, &c.DetectedAt, &c.RelatedClaimIDs); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ResolveContradiction records the human verdict for a conflict.
func (s *ContradictionStore) ResolveContradiction(ctx context.Context, id uuid.UUID, resolution string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradictions SET resolution = $1 WHERE id = $2`,
		resolution, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
