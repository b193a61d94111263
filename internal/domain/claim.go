package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

type Polarity string

const (
	PolarityAffirmative Polarity = "affirmative"
	PolarityNegative    Polarity = "negative"
)

func ValidPolarity(p string) bool {
	switch Polarity(p) {
	case PolarityAffirmative, PolarityNegative:
		return true
	}
	return false
}

// Subject identifies the entity a claim is about (a function, module,
// directory, ...).
type Subject struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// EvidenceClaim is a proposition about a subject whose support is tracked
// through evidence records.
type EvidenceClaim struct {
	ID          string   `json:"id"`
	Proposition string   `json:"proposition"`
	Subject     *Subject `json:"subject,omitempty"`
	Polarity    Polarity `json:"polarity,omitempty"`
}

func (c EvidenceClaim) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return Unverified(ReasonInvalidClaim, "claim id is required")
	}
	if strings.TrimSpace(c.Proposition) == "" {
		return Unverified(ReasonInvalidClaim, "claim proposition is required")
	}
	return nil
}

// EffectivePolarity treats an unset polarity as affirmative.
func (c EvidenceClaim) EffectivePolarity() Polarity {
	if c.Polarity == PolarityNegative {
		return PolarityNegative
	}
	return PolarityAffirmative
}

// ClaimKey is the normalized (subject, proposition) join key used for
// contradiction detection.
type ClaimKey struct {
	SubjectID   string
	Proposition string
}

// Key returns the claim's normalized join key. Claims with the same key are
// "the same subject+proposition" even if they differ in case, spacing or
// Unicode form.
func (c EvidenceClaim) Key() ClaimKey {
	k := ClaimKey{Proposition: NormalizeProposition(c.Proposition)}
	if c.Subject != nil {
		k.SubjectID = NormalizeProposition(c.Subject.ID)
	}
	return k
}

// NormalizeProposition canonicalizes text for comparison: Unicode NFC,
// lower-cased, whitespace collapsed to single spaces.
func NormalizeProposition(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// EvidenceRecord is a stored Evidence tied to a claim, carrying the capture
// time the aging sweep decays from.
type EvidenceRecord struct {
	Evidence
	ClaimID    string    `json:"claim_id"`
	CapturedAt time.Time `json:"captured_at"`
}
