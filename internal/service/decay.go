package service

import (
	"math"
	"time"

	"github.com/credenceproj/credence/internal/domain"
)

const (
	// A directly modified entity gets no partial credit; its knowledge is
	// forced down to the floor so re-extraction wins every comparison.
	DirectModificationFloor = 0.10

	// Per-edge impact of a changed relation. Weaker signals get smaller
	// per-edge impact.
	DependencyEdgeImpact = 0.15
	CallGraphEdgeImpact  = 0.08
	CochangeEdgeImpact   = 0.05

	// Change-based decay keeps at least this share of the base confidence.
	changeDecayFloorShare = 0.1

	// Time-based decay tunables.
	timeDecayMax        = 0.6
	timeDecayScale      = 0.4
	timeDecayFloorShare = 0.25
	staleWindowMultiple = 6
)

// DecayStrategy maps a base confidence to a decayed one. Call sites pick a
// strategy explicitly; nothing silently prefers one over the other.
type DecayStrategy interface {
	Decay(base float64) float64
}

// ChangeBasedDecay degrades confidence only in response to detected changes
// in the code graph, not elapsed wall-clock time.
type ChangeBasedDecay struct {
	changes domain.ChangeContext
}

func NewChangeBasedDecay(changes domain.ChangeContext) ChangeBasedDecay {
	return ChangeBasedDecay{changes: changes}
}

func (d ChangeBasedDecay) Decay(base float64) float64 {
	if d.changes.DirectlyModified {
		return DirectModificationFloor
	}

	factor := 1.0
	for _, e := range d.changes.DependencyChanges {
		factor *= 1 - clampRange(e.Confidence, 0, 1)*DependencyEdgeImpact
	}
	for _, e := range d.changes.CallGraphChanges {
		factor *= 1 - clampRange(e.Confidence, 0, 1)*CallGraphEdgeImpact
	}
	for _, e := range d.changes.CochangeChanges {
		factor *= 1 - clampRange(e.Confidence, 0, 1)*CochangeEdgeImpact
	}

	return clampRange(base*factor, base*changeDecayFloorShare, base)
}

// TimeBasedDecay degrades confidence by calendar age against the most
// staleness-sensitive section present.
//
// Deprecated: retained for records generated before change tracking existed.
// New callers should build a ChangeContext and use ChangeBasedDecay.
type TimeBasedDecay struct {
	generatedAt time.Time
	sections    []domain.SectionName
}

func NewTimeBasedDecay(generatedAt time.Time, sections []domain.SectionName) TimeBasedDecay {
	return TimeBasedDecay{generatedAt: generatedAt, sections: sections}
}

func (d TimeBasedDecay) Decay(base float64) float64 {
	// Fail open on missing timestamps; this path is already deprecated and
	// the caller is better served by an undecayed value than an error.
	if d.generatedAt.IsZero() {
		return base
	}

	ageDays := time.Since(d.generatedAt).Hours() / 24

	minDays := 365
	for _, s := range d.sections {
		if w := s.StalenessWindowDays(); w < minDays {
			minDays = w
		}
	}

	window := float64(minDays * staleWindowMultiple)
	if window < 1 {
		window = 1
	}

	ratio := clampRange(ageDays/window, 0, 1)
	decay := math.Min(timeDecayMax, ratio*timeDecayScale)

	decayed := base * (1 - decay)
	if floor := base * timeDecayFloorShare; decayed < floor {
		return floor
	}
	return decayed
}
