package service

import (
	"fmt"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultMinEvidenceStrength = 0.55
	DefaultDefeaterPenalty     = 0.15
	DefaultMinWeight           = 0.2
	DefaultMaxWeight           = 1.0

	DefaultAgingDecayPerDay   = 0.005
	DefaultAgingMinConfidence = 0.1
	DefaultAgingMaxConfidence = 1.0
)

// AgingConfig tunes the evidence aging sweep. ReadsPerSecond of zero leaves
// per-claim store reads unthrottled.
type AgingConfig struct {
	DecayPerDay    float64
	MinConfidence  float64
	MaxConfidence  float64
	ReadsPerSecond float64
	ReadBurst      int
}

func DefaultAgingConfig() AgingConfig {
	return AgingConfig{
		DecayPerDay:   DefaultAgingDecayPerDay,
		MinConfidence: DefaultAgingMinConfidence,
		MaxConfidence: DefaultAgingMaxConfidence,
	}
}

// SupportResult is the answer to "is this claim currently supported".
type SupportResult struct {
	Supported         bool              `json:"supported"`
	EffectiveStrength float64           `json:"effective_strength"`
	ActiveDefeaters   []domain.Defeater `json:"active_defeaters,omitempty"`
	Contradictions    []string          `json:"contradictions,omitempty"`
}

// Validator holds the adjustable per-type evidence weights and answers
// support queries against them. The weight table is single-writer state:
// concurrent UpdateWeights callers must serialize externally.
type Validator struct {
	store  domain.EvidenceStore
	logger *zap.Logger

	weights map[domain.EvidenceType]float64

	MinEvidenceStrength float64
	DefeaterPenalty     float64
	MinWeight           float64
	MaxWeight           float64
	Adjustments         map[domain.Outcome]float64
	Aging               AgingConfig
}

// NewValidator seeds the weight table from the evidence-type defaults. The
// store may be nil; only the aging and contradiction sweeps need one.
func NewValidator(store domain.EvidenceStore, logger *zap.Logger) *Validator {
	weights := make(map[domain.EvidenceType]float64, 7)
	for _, t := range []domain.EvidenceType{
		domain.EvidenceTest, domain.EvidenceCode, domain.EvidenceCommit,
		domain.EvidenceComment, domain.EvidenceDoc, domain.EvidenceUsage,
		domain.EvidenceInferred,
	} {
		weights[t] = t.DefaultWeight()
	}

	adjustments := make(map[domain.Outcome]float64, len(domain.OutcomeAdjustments))
	for o, adj := range domain.OutcomeAdjustments {
		adjustments[o] = adj
	}

	return &Validator{
		store:               store,
		logger:              logger,
		weights:             weights,
		MinEvidenceStrength: DefaultMinEvidenceStrength,
		DefeaterPenalty:     DefaultDefeaterPenalty,
		MinWeight:           DefaultMinWeight,
		MaxWeight:           DefaultMaxWeight,
		Adjustments:         adjustments,
		Aging:               DefaultAgingConfig(),
	}
}

func (v *Validator) checkConfig() error {
	if v.MinEvidenceStrength < 0 || v.MinEvidenceStrength > 1 {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("min evidence strength %v out of range", v.MinEvidenceStrength))
	}
	if v.DefeaterPenalty < 0 || v.DefeaterPenalty > 1 {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("defeater penalty %v out of range", v.DefeaterPenalty))
	}
	if v.MinWeight < 0 || v.MaxWeight > 1 || v.MinWeight >= v.MaxWeight {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("weight bounds [%v, %v] out of range", v.MinWeight, v.MaxWeight))
	}
	if v.Aging.DecayPerDay < 0 {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("aging decay per day %v is negative", v.Aging.DecayPerDay))
	}
	if v.Aging.MinConfidence < 0 || v.Aging.MaxConfidence > 1 || v.Aging.MinConfidence > v.Aging.MaxConfidence {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("aging confidence bounds [%v, %v] out of range", v.Aging.MinConfidence, v.Aging.MaxConfidence))
	}
	return nil
}

// Weight returns the current weight for an evidence type.
func (v *Validator) Weight(t domain.EvidenceType) float64 {
	if w, ok := v.weights[t]; ok {
		return w
	}
	return t.DefaultWeight()
}

// SetWeight overrides one type's weight. Unlike learning updates, explicit
// overrides outside the configured bounds are rejected, not clamped.
func (v *Validator) SetWeight(t domain.EvidenceType, w float64) error {
	if !domain.ValidEvidenceType(string(t)) {
		return domain.Unverified(domain.ReasonInvalidType, "unknown evidence type "+string(t))
	}
	if w < v.MinWeight || w > v.MaxWeight {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("weight %v for %s outside [%v, %v]", w, t, v.MinWeight, v.MaxWeight))
	}
	v.weights[t] = w
	return nil
}

// ValidateEvidence checks whether a claim is currently supported by its
// evidence, net of active defeaters. A live contradiction defeater vetoes
// support regardless of numeric strength.
func (v *Validator) ValidateEvidence(claim domain.EvidenceClaim, evidence []domain.Evidence, defeaters []domain.Defeater) (*SupportResult, error) {
	if err := v.checkConfig(); err != nil {
		return nil, err
	}
	if err := claim.Validate(); err != nil {
		return nil, err
	}
	for _, ev := range evidence {
		if err := ev.Validate(); err != nil {
			return nil, err
		}
	}

	result := &SupportResult{}
	for _, d := range defeaters {
		if !d.Active() {
			continue
		}
		result.ActiveDefeaters = append(result.ActiveDefeaters, d)
		if d.Type == domain.DefeaterContradiction {
			result.Contradictions = append(result.Contradictions, d.Description)
		}
	}

	if len(evidence) == 0 {
		v.logger.Debug("claim has no evidence", zap.String("claim_id", claim.ID))
		return result, nil
	}

	var weighted, weightSum float64
	for _, ev := range evidence {
		w := v.Weight(ev.Type)
		weighted += ev.Confidence * w
		weightSum += w
	}
	base := 0.0
	if weightSum > 0 {
		base = weighted / weightSum
	}

	penalty := clampRange(1-float64(len(result.ActiveDefeaters))*v.DefeaterPenalty, 0, 1)
	result.EffectiveStrength = base * penalty
	result.Supported = result.EffectiveStrength >= v.MinEvidenceStrength && len(result.Contradictions) == 0

	v.logger.Debug("validated claim evidence",
		zap.String("claim_id", claim.ID),
		zap.Bool("supported", result.Supported),
		zap.Float64("effective_strength", result.EffectiveStrength),
		zap.Int("active_defeaters", len(result.ActiveDefeaters)))

	return result, nil
}

// UpdateWeights adjusts type weights from a reinforcement outcome, scaled by
// each record's confidence. This is the engine's only learning mechanism.
func (v *Validator) UpdateWeights(evidence []domain.Evidence, outcome domain.Outcome) error {
	if err := v.checkConfig(); err != nil {
		return err
	}
	adjustment, ok := v.Adjustments[outcome]
	if !ok {
		return domain.Unverified(domain.ReasonInvalidOutcome, "unknown outcome "+string(outcome))
	}
	for _, ev := range evidence {
		if err := ev.Validate(); err != nil {
			return err
		}
	}

	for _, ev := range evidence {
		old := v.Weight(ev.Type)
		next := clampRange(old+adjustment*ev.Confidence, v.MinWeight, v.MaxWeight)
		v.weights[ev.Type] = next

		v.logger.Debug("adjusted evidence weight",
			zap.String("evidence_type", string(ev.Type)),
			zap.String("outcome", string(outcome)),
			zap.Float64("old_weight", old),
			zap.Float64("new_weight", next))
	}
	return nil
}
