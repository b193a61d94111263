package service

import (
	"context"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type claimGroup struct {
	affirmative []string
	negative    []string
}

// DetectContradictions scans the stored claims for subject+proposition pairs
// asserted with both polarities. Each conflicting pair yields one
// Contradiction marked needs_human; the engine never auto-resolves. Claims
// that fail validation are skipped, not fatal.
func (v *Validator) DetectContradictions(ctx context.Context) ([]domain.Contradiction, error) {
	if v.store == nil {
		return nil, domain.Unverified(domain.ReasonStoreUnavailable, "contradiction sweep requires an evidence store")
	}

	claims, err := v.store.ListClaims(ctx)
	if err != nil {
		return nil, domain.WrapUnverified(domain.ReasonStoreReadFailed, "list claims", err)
	}

	groups := make(map[domain.ClaimKey]*claimGroup)
	order := make([]domain.ClaimKey, 0, len(claims))
	for _, claim := range claims {
		if err := claim.Validate(); err != nil {
			v.logger.Debug("skipping malformed claim", zap.String("claim_id", claim.ID), zap.Error(err))
			continue
		}
		key := claim.Key()
		group, ok := groups[key]
		if !ok {
			group = &claimGroup{}
			groups[key] = group
			order = append(order, key)
		}
		if claim.EffectivePolarity() == domain.PolarityNegative {
			group.negative = append(group.negative, claim.ID)
		} else {
			group.affirmative = append(group.affirmative, claim.ID)
		}
	}

	now := time.Now().UTC()
	var found []domain.Contradiction
	for _, key := range order {
		group := groups[key]
		if len(group.affirmative) == 0 || len(group.negative) == 0 {
			continue
		}

		c := domain.Contradiction{
			ID:                 uuid.New(),
			SubjectID:          key.SubjectID,
			Proposition:        key.Proposition,
			AffirmativeClaimID: group.affirmative[0],
			NegativeClaimID:    group.negative[0],
			Resolution:         domain.ResolutionNeedsHuman,
			DetectedAt:         now,
		}
		c.RelatedClaimIDs = append(c.RelatedClaimIDs, group.affirmative[1:]...)
		c.RelatedClaimIDs = append(c.RelatedClaimIDs, group.negative[1:]...)
		found = append(found, c)
	}

	if len(found) > 0 {
		v.logger.Info("contradiction sweep found conflicts", zap.Int("count", len(found)))
	}
	return found, nil
}
