package service

import (
	"fmt"
	"math"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultStrongEvidenceThreshold = 0.8
	DefaultStrongEvidenceCount     = 3
	DefaultEvidenceBoost           = 1.1
	DefaultBoostCap                = 0.95
	DefaultCriticalPenalty         = 0.8
	DefaultMinOverall              = 0.1
	DefaultMaxOverall              = 0.95
	DefaultUnknownPrior            = 0.3

	// Aggregation inputs are clamped away from zero so ln() stays finite.
	minAggregationInput = 0.01
	maxAggregationInput = 1.0

	// Uncertainty decomposition
	concreteEvidenceTarget = 5
	aleatoricScale         = 0.8
	reasoningPerDefeater   = 0.1
	reasoningCap           = 0.5
	reducerThreshold       = 0.5
	// Reasoning is capped at 0.5, so it gets a lower trigger than the
	// other two components.
	reasoningReducerThreshold = 0.3
)

// Aggregator folds per-section extractor results into one KnowledgeMeta with
// a weighted geometric-mean confidence. The boost and penalty constants are
// heuristics carried from production tuning; they are fields rather than
// constants so operators can override them without a rebuild.
type Aggregator struct {
	logger *zap.Logger

	StrongEvidenceThreshold float64
	StrongEvidenceCount     int
	EvidenceBoost           float64
	BoostCap                float64
	CriticalPenalty         float64
	MinOverall              float64
	MaxOverall              float64
	UnknownPrior            float64
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		logger:                  logger,
		StrongEvidenceThreshold: DefaultStrongEvidenceThreshold,
		StrongEvidenceCount:     DefaultStrongEvidenceCount,
		EvidenceBoost:           DefaultEvidenceBoost,
		BoostCap:                DefaultBoostCap,
		CriticalPenalty:         DefaultCriticalPenalty,
		MinOverall:              DefaultMinOverall,
		MaxOverall:              DefaultMaxOverall,
		UnknownPrior:            DefaultUnknownPrior,
	}
}

func (a *Aggregator) checkConfig() error {
	if a.MinOverall < 0 || a.MaxOverall > 1 || a.MinOverall >= a.MaxOverall {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("overall bounds [%v, %v] out of range", a.MinOverall, a.MaxOverall))
	}
	if a.EvidenceBoost < 1 || a.BoostCap > 1 {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("evidence boost %v / cap %v out of range", a.EvidenceBoost, a.BoostCap))
	}
	if a.CriticalPenalty <= 0 || a.CriticalPenalty > 1 {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("critical defeater penalty %v out of range", a.CriticalPenalty))
	}
	if a.UnknownPrior < a.MinOverall || a.UnknownPrior > a.MaxOverall {
		return domain.Unverified(domain.ReasonInvalidConfig,
			fmt.Sprintf("unknown prior %v outside overall bounds", a.UnknownPrior))
	}
	return nil
}

// Aggregate builds the knowledge record for one extraction pass. Malformed
// evidence anywhere in the bundle fails the whole call; a half-aggregated
// bundle is worse than none.
func (a *Aggregator) Aggregate(bundle domain.ExtractionBundle) (*domain.KnowledgeMeta, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	for _, sec := range bundle.Sections {
		if math.IsNaN(sec.Confidence) || sec.Confidence < 0 || sec.Confidence > 1 {
			return nil, domain.Unverified(domain.ReasonInvalidConfidence,
				fmt.Sprintf("section %s confidence must be in [0,1]", sec.Name))
		}
		for _, ev := range sec.Evidence {
			if err := ev.Validate(); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	bySection := make(map[domain.SectionName]float64, len(bundle.Sections))
	var evidence []domain.Evidence
	var defeaters []domain.Defeater

	for _, sec := range bundle.Sections {
		bySection[sec.Name] = sec.Confidence
		evidence = append(evidence, sec.Evidence...)
		defeaters = append(defeaters, sec.Defeaters...)

		// Absence of a recorded model run for an interpretation-heavy
		// section is itself evidentiary.
		if sec.Name.RequiresLLMEvidence() && sec.LLM == nil {
			detected := now
			evidence = append(evidence, domain.Evidence{
				Type:        domain.EvidenceInferred,
				Source:      "aggregator",
				Description: fmt.Sprintf("no model evidence recorded for %s section", sec.Name),
				Confidence:  0,
			})
			defeaters = append(defeaters, domain.Defeater{
				Type:        domain.DefeaterNewInfo,
				Description: fmt.Sprintf("missing model evidence for %s section", sec.Name),
				Detected:    &detected,
			})
		}
	}
	defeaters = domain.DedupeDefeaters(defeaters)

	overall := a.UnknownPrior
	if len(bundle.Sections) > 0 {
		overall = a.weightedGeometricMean(bundle.Sections)
		overall = a.applyEvidenceBoost(overall, evidence)
		overall = a.applyDefeaterPenalty(overall, defeaters)
	}
	overall = clampRange(overall, a.MinOverall, a.MaxOverall)

	meta := &domain.KnowledgeMeta{
		Confidence: domain.MetaConfidence{
			Overall:     overall,
			BySection:   bySection,
			Uncertainty: a.uncertaintyProfile(evidence, defeaters),
		},
		Evidence:      evidence,
		Defeaters:     defeaters,
		GeneratedAt:   now,
		GeneratedBy:   bundle.GeneratedBy,
		ContentHash:   bundle.ContentHash,
		LastValidated: now,
	}

	a.logger.Debug("aggregated knowledge bundle",
		zap.Int("sections", len(bundle.Sections)),
		zap.Int("evidence", len(evidence)),
		zap.Int("defeaters", len(defeaters)),
		zap.Float64("overall", overall))

	return meta, nil
}

// weightedGeometricMean averages section confidences in log space so a single
// near-zero section pulls the aggregate down, where an arithmetic mean would
// let optimistic sections paper over it.
func (a *Aggregator) weightedGeometricMean(sections []domain.SectionResult) float64 {
	var logSum, weightSum float64
	for _, sec := range sections {
		w := sec.Name.Weight()
		c := clampRange(sec.Confidence, minAggregationInput, maxAggregationInput)
		logSum += w * math.Log(c)
		weightSum += w
	}
	return math.Exp(logSum / weightSum)
}

func (a *Aggregator) applyEvidenceBoost(overall float64, evidence []domain.Evidence) float64 {
	strong := 0
	for _, ev := range evidence {
		if ev.Confidence > a.StrongEvidenceThreshold {
			strong++
		}
	}
	if strong > a.StrongEvidenceCount {
		boosted := overall * a.EvidenceBoost
		if boosted > a.BoostCap {
			boosted = a.BoostCap
		}
		return boosted
	}
	return overall
}

func (a *Aggregator) applyDefeaterPenalty(overall float64, defeaters []domain.Defeater) float64 {
	for _, d := range defeaters {
		if d.Type.Critical() {
			overall *= a.CriticalPenalty
			if overall < a.MinOverall {
				return a.MinOverall
			}
		}
	}
	return overall
}

func (a *Aggregator) uncertaintyProfile(evidence []domain.Evidence, defeaters []domain.Defeater) *domain.UncertaintyProfile {
	var concrete, inferred, direct int
	for _, ev := range evidence {
		if ev.Type.Concrete() {
			concrete++
		}
		if ev.Type == domain.EvidenceInferred {
			inferred++
		} else {
			direct++
		}
	}

	profile := &domain.UncertaintyProfile{
		Aleatoric: 1 - math.Min(float64(concrete)/concreteEvidenceTarget, 1)*aleatoricScale,
		Reasoning: math.Min(float64(len(defeaters))*reasoningPerDefeater, reasoningCap),
	}
	if inferred+direct > 0 {
		profile.Epistemic = float64(inferred) / float64(inferred+direct)
	}

	if profile.Aleatoric > reducerThreshold {
		profile.ReducibleBy = append(profile.ReducibleBy, "add tests or concrete code references")
	}
	if profile.Epistemic > reducerThreshold {
		profile.ReducibleBy = append(profile.ReducibleBy, "replace inferred claims with direct documentation")
	}
	if profile.Reasoning >= reasoningReducerThreshold {
		profile.ReducibleBy = append(profile.ReducibleBy, "resolve recorded defeaters or request expert review")
	}
	return profile
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
