package domain

import (
	"time"

	"github.com/google/uuid"
)

type SectionName string

const (
	SectionIdentity      SectionName = "identity"
	SectionSemantics     SectionName = "semantics"
	SectionQuality       SectionName = "quality"
	SectionSecurity      SectionName = "security"
	SectionTesting       SectionName = "testing"
	SectionHistory       SectionName = "history"
	SectionOwnership     SectionName = "ownership"
	SectionRationale     SectionName = "rationale"
	SectionTraceability  SectionName = "traceability"
	SectionRelationships SectionName = "relationships"
)

// Weight returns the section's share in the aggregated confidence. Sections
// the engine does not know about still aggregate, at a neutral weight.
func (s SectionName) Weight() float64 {
	switch s {
	case SectionSemantics, SectionSecurity, SectionTesting:
		return 1.0
	case SectionQuality:
		return 0.9
	case SectionIdentity:
		return 0.8
	case SectionRationale:
		return 0.7
	case SectionHistory, SectionTraceability:
		return 0.6
	case SectionOwnership:
		return 0.5
	default:
		return 0.5
	}
}

// StalenessWindowDays returns how many days this section's claims stay
// presentable before they should be re-verified.
func (s SectionName) StalenessWindowDays() int {
	switch s {
	case SectionSecurity, SectionTesting:
		return 7
	case SectionQuality:
		return 30
	case SectionSemantics, SectionRationale, SectionRelationships:
		return 90
	default:
		return 365
	}
}

// RequiresLLMEvidence reports whether claims in this section are only
// trustworthy when the producing model run is on record.
func (s SectionName) RequiresLLMEvidence() bool {
	switch s {
	case SectionSemantics, SectionSecurity, SectionRationale:
		return true
	}
	return false
}

// LLMEvidence records which model run produced a section, making the
// extraction reproducible and auditable.
type LLMEvidence struct {
	Provider     string `json:"provider"`
	ModelID      string `json:"model_id"`
	PromptDigest string `json:"prompt_digest"`
}

// SectionResult is one extractor's contribution to an entity's knowledge
// bundle.
type SectionResult struct {
	Name       SectionName  `json:"name"`
	Confidence float64      `json:"confidence"`
	Evidence   []Evidence   `json:"evidence,omitempty"`
	Defeaters  []Defeater   `json:"defeaters,omitempty"`
	LLM        *LLMEvidence `json:"llm_evidence,omitempty"`
}

// ExtractionBundle is everything one extraction pass produced for an entity.
type ExtractionBundle struct {
	GeneratedBy string          `json:"generated_by"`
	ContentHash string          `json:"content_hash,omitempty"`
	Sections    []SectionResult `json:"sections"`
}

// UncertaintyProfile decomposes why a confidence is not higher. The
// components and reducer hints are advisory; they never feed back into the
// overall score.
type UncertaintyProfile struct {
	Aleatoric   float64  `json:"aleatoric"`
	Epistemic   float64  `json:"epistemic"`
	Reasoning   float64  `json:"reasoning"`
	ReducibleBy []string `json:"reducible_by,omitempty"`
}

type MetaConfidence struct {
	Overall     float64                 `json:"overall"`
	BySection   map[SectionName]float64 `json:"by_section"`
	Uncertainty *UncertaintyProfile     `json:"uncertainty,omitempty"`
}

// KnowledgeMeta is the aggregate trust record produced once per extraction
// pass. Append-only afterwards: defeaters may be added, existing ones only
// gain a detection timestamp.
type KnowledgeMeta struct {
	Confidence    MetaConfidence `json:"confidence"`
	Evidence      []Evidence     `json:"evidence,omitempty"`
	Defeaters     []Defeater     `json:"defeaters,omitempty"`
	GeneratedAt   time.Time      `json:"generated_at"`
	GeneratedBy   string         `json:"generated_by"`
	ContentHash   string         `json:"content_hash,omitempty"`
	ValidUntil    *time.Time     `json:"valid_until,omitempty"`
	LastValidated time.Time      `json:"last_validated"`
}

// ValidationResult reports whether a knowledge record can still be trusted.
type ValidationResult struct {
	Valid         bool          `json:"valid"`
	Stale         bool          `json:"stale"`
	InvalidatedBy string        `json:"invalidated_by,omitempty"`
	NeedsRefresh  []SectionName `json:"needs_refresh,omitempty"`
}

const ResolutionNeedsHuman = "needs_human"

// Contradiction pairs two claims about the same subject+proposition with
// opposite polarity.
type Contradiction struct {
	ID                 uuid.UUID `json:"id"`
	SubjectID          string    `json:"subject_id,omitempty"`
	Proposition        string    `json:"proposition"`
	AffirmativeClaimID string    `json:"affirmative_claim_id"`
	NegativeClaimID    string    `json:"negative_claim_id"`
	Resolution         string    `json:"resolution"`
	DetectedAt         time.Time `json:"detected_at"`
	RelatedClaimIDs    []string  `json:"related_claim_ids,omitempty"`
}

type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeRefuted      Outcome = "refuted"
	OutcomeInconclusive Outcome = "inconclusive"
)

func ValidOutcome(o string) bool {
	switch Outcome(o) {
	case OutcomeConfirmed, OutcomeRefuted, OutcomeInconclusive:
		return true
	}
	return false
}

// OutcomeAdjustments maps reinforcement outcomes to signed weight deltas.
// Applied scaled by each record's confidence, so weak evidence moves its
// type's weight less than strong evidence does.
var OutcomeAdjustments = map[Outcome]float64{
	OutcomeConfirmed:    +0.05,
	OutcomeRefuted:      -0.10,
	OutcomeInconclusive: -0.02,
}
