package domain

import (
	"math"
	"time"
)

type EvidenceType string

const (
	EvidenceTest     EvidenceType = "test"
	EvidenceCode     EvidenceType = "code"
	EvidenceCommit   EvidenceType = "commit"
	EvidenceComment  EvidenceType = "comment"
	EvidenceDoc      EvidenceType = "doc"
	EvidenceUsage    EvidenceType = "usage"
	EvidenceInferred EvidenceType = "inferred"
)

// DefaultWeight returns how trustworthy this evidence kind is on its own,
// independent of the confidence reported by the record.
func (e EvidenceType) DefaultWeight() float64 {
	switch e {
	case EvidenceTest:
		return 0.95
	case EvidenceCode:
		return 0.90
	case EvidenceCommit:
		return 0.85
	case EvidenceUsage:
		return 0.75
	case EvidenceDoc:
		return 0.70
	case EvidenceComment:
		return 0.60
	case EvidenceInferred:
		return 0.40
	default:
		return 0.50
	}
}

// Concrete reports whether the evidence kind is backed by observable
// artifacts rather than interpretation.
func (e EvidenceType) Concrete() bool {
	switch e {
	case EvidenceTest, EvidenceCode, EvidenceCommit:
		return true
	}
	return false
}

func ValidEvidenceType(e string) bool {
	switch EvidenceType(e) {
	case EvidenceTest, EvidenceCode, EvidenceCommit, EvidenceComment,
		EvidenceDoc, EvidenceUsage, EvidenceInferred:
		return true
	}
	return false
}

// Evidence is an immutable unit of support for a claim. Supersede it by
// creating a new record; never mutate one in place.
type Evidence struct {
	Type        EvidenceType `json:"type"`
	Source      string       `json:"source"`
	Description string       `json:"description"`
	Confidence  float64      `json:"confidence"`
}

// Validate checks the record's shape. A violation is a programming error in
// the producing extractor, surfaced as a reason-coded UnverifiedError.
func (e Evidence) Validate() error {
	if !ValidEvidenceType(string(e.Type)) {
		return Unverified(ReasonInvalidType, "unknown evidence type "+string(e.Type))
	}
	if e.Source == "" || e.Description == "" {
		return Unverified(ReasonInvalidEntry, "evidence source and description are required")
	}
	if math.IsNaN(e.Confidence) || e.Confidence < 0 || e.Confidence > 1 {
		return Unverified(ReasonInvalidConfidence, "evidence confidence must be in [0,1]")
	}
	return nil
}

type DefeaterType string

const (
	DefeaterCodeChange    DefeaterType = "code_change"
	DefeaterContradiction DefeaterType = "contradiction"
	DefeaterTestFailure   DefeaterType = "test_failure"
	DefeaterNewInfo       DefeaterType = "new_info"
)

// Critical defeater types void trust aggressively rather than merely
// discounting it.
func (d DefeaterType) Critical() bool {
	switch d {
	case DefeaterContradiction, DefeaterTestFailure:
		return true
	}
	return false
}

func ValidDefeaterType(d string) bool {
	switch DefeaterType(d) {
	case DefeaterCodeChange, DefeaterContradiction, DefeaterTestFailure, DefeaterNewInfo:
		return true
	}
	return false
}

// Defeater is a condition that, once detected, should reduce or void trust
// in a claim.
type Defeater struct {
	Type        DefeaterType `json:"type"`
	Description string       `json:"description"`
	Detected    *time.Time   `json:"detected,omitempty"`
}

// Active reports whether the defeater has actually been detected, as
// opposed to merely being a known failure mode.
func (d Defeater) Active() bool {
	return d.Detected != nil
}

// DedupeDefeaters flattens duplicates by (type, description), keeping first
// occurrence order. A later duplicate that carries a detection timestamp
// promotes the kept entry to active.
func DedupeDefeaters(defeaters []Defeater) []Defeater {
	type key struct {
		t DefeaterType
		d string
	}
	seen := make(map[key]int, len(defeaters))
	out := make([]Defeater, 0, len(defeaters))
	for _, def := range defeaters {
		k := key{def.Type, def.Description}
		if i, ok := seen[k]; ok {
			if out[i].Detected == nil && def.Detected != nil {
				out[i].Detected = def.Detected
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, def)
	}
	return out
}
