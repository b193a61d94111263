package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// agingEpsilon is the smallest confidence change worth persisting.
const agingEpsilon = 0.001

// AgingReport summarizes one evidence aging sweep.
type AgingReport struct {
	EvaluatedAt     time.Time `json:"evaluated_at"`
	ScannedClaims   int       `json:"scanned_claims"`
	UpdatedEvidence int       `json:"updated_evidence"`
	SkippedEvidence int       `json:"skipped_evidence"`
}

// ApplyAging decays stored evidence confidence exponentially with age. All
// updates are buffered and flushed after the scan, so a failure mid-sweep
// leaves the store untouched. Aging never drops a record below the configured
// floor and never raises one above its current confidence.
func (v *Validator) ApplyAging(ctx context.Context) (*AgingReport, error) {
	if err := v.checkConfig(); err != nil {
		return nil, err
	}
	if v.store == nil {
		return nil, domain.Unverified(domain.ReasonStoreUnavailable, "aging sweep requires an evidence store")
	}

	var limiter *rate.Limiter
	if v.Aging.ReadsPerSecond > 0 {
		burst := v.Aging.ReadBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(v.Aging.ReadsPerSecond), burst)
	}

	now := time.Now().UTC()
	report := &AgingReport{EvaluatedAt: now}

	claims, err := v.store.ListClaims(ctx)
	if err != nil {
		return nil, domain.WrapUnverified(domain.ReasonStoreReadFailed, "list claims", err)
	}

	updates := make(map[string][]domain.EvidenceRecord)
	for _, claim := range claims {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("wait for read slot: %w", err)
			}
		}

		records, err := v.store.ListEvidenceForClaim(ctx, claim.ID)
		if err != nil {
			return nil, domain.WrapUnverified(domain.ReasonStoreReadFailed,
				"list evidence for claim "+claim.ID, err)
		}
		report.ScannedClaims++

		changed := false
		next := make([]domain.EvidenceRecord, len(records))
		for i, rec := range records {
			if rec.CapturedAt.IsZero() {
				return nil, domain.Unverified(domain.ReasonInvalidTimestamp,
					fmt.Sprintf("claim %s evidence %q has no capture time", claim.ID, rec.Source))
			}

			days := now.Sub(rec.CapturedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
			decayed := rec.Confidence * math.Exp(-v.Aging.DecayPerDay*days)
			floor := math.Min(rec.Confidence, v.Aging.MinConfidence)
			ceil := math.Min(rec.Confidence, v.Aging.MaxConfidence)
			aged := clampRange(decayed, floor, ceil)

			next[i] = rec
			if math.Abs(aged-rec.Confidence) < agingEpsilon {
				report.SkippedEvidence++
				continue
			}
			next[i].Confidence = aged
			report.UpdatedEvidence++
			changed = true
		}
		if changed {
			updates[claim.ID] = next
		}
	}

	if len(updates) > 0 {
		if batch, ok := v.store.(domain.EvidenceBatchStore); ok {
			if err := batch.UpdateEvidenceBatch(ctx, updates); err != nil {
				return nil, domain.WrapUnverified(domain.ReasonStoreUpdateFailed, "flush aged evidence", err)
			}
		} else {
			for claimID, records := range updates {
				if err := v.store.UpdateEvidenceForClaim(ctx, claimID, records); err != nil {
					return nil, domain.WrapUnverified(domain.ReasonStoreUpdateFailed,
						"update evidence for claim "+claimID, err)
				}
			}
		}
	}

	v.logger.Info("evidence aging sweep complete",
		zap.Int("scanned_claims", report.ScannedClaims),
		zap.Int("updated_evidence", report.UpdatedEvidence),
		zap.Int("skipped_evidence", report.SkippedEvidence))

	return report, nil
}
