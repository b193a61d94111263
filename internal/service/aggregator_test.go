package service

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
)

func TestAggregator_Aggregate(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		GeneratedBy: "extractor-v2",
		ContentHash: "3b9d",
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionSemantics,
				Confidence: 0.8,
				Evidence: []domain.Evidence{
					{Type: domain.EvidenceCode, Source: "session.go:18", Description: "ttl constant", Confidence: 0.7},
				},
				LLM: &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "ab12"},
			},
			{
				Name:       domain.SectionQuality,
				Confidence: 0.6,
				Evidence: []domain.Evidence{
					{Type: domain.EvidenceUsage, Source: "callers", Description: "12 call sites", Confidence: 0.6},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// exp((1.0*ln 0.8 + 0.9*ln 0.6) / 1.9)
	want := 0.6981
	if math.Abs(meta.Confidence.Overall-want) > 0.001 {
		t.Errorf("Overall = %f, want ~%f", meta.Confidence.Overall, want)
	}
	if meta.Confidence.BySection[domain.SectionSemantics] != 0.8 {
		t.Errorf("BySection[semantics] = %f, want 0.8", meta.Confidence.BySection[domain.SectionSemantics])
	}
	if len(meta.Evidence) != 2 {
		t.Errorf("flattened evidence = %d, want 2", len(meta.Evidence))
	}
	if len(meta.Defeaters) != 0 {
		t.Errorf("defeaters = %d, want 0", len(meta.Defeaters))
	}
	if meta.GeneratedBy != "extractor-v2" || meta.ContentHash != "3b9d" {
		t.Error("generation metadata should be carried through")
	}
	if meta.GeneratedAt.IsZero() || meta.LastValidated.IsZero() {
		t.Error("generation timestamps should be set")
	}
	if meta.ValidUntil != nil {
		t.Error("aggregation should leave expiry to the scheduler")
	}
}

func TestAggregator_Aggregate_EmptyBundle(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{GeneratedBy: "extractor-v2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Confidence.Overall != DefaultUnknownPrior {
		t.Errorf("Overall = %f, want unknown prior %f", meta.Confidence.Overall, DefaultUnknownPrior)
	}
	if len(meta.Confidence.BySection) != 0 {
		t.Errorf("BySection should be empty, got %v", meta.Confidence.BySection)
	}
}

func TestAggregator_Aggregate_StrongEvidenceBoost(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	strong := make([]domain.Evidence, 4)
	for i := range strong {
		strong[i] = domain.Evidence{Type: domain.EvidenceTest, Source: "suite", Description: "case green", Confidence: 0.9}
	}

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionSemantics,
				Confidence: 0.85,
				Evidence:   strong,
				LLM:        &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "ab12"},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := 0.85 * DefaultEvidenceBoost
	if math.Abs(meta.Confidence.Overall-want) > 0.0001 {
		t.Errorf("Overall = %f, want boosted %f", meta.Confidence.Overall, want)
	}
}

func TestAggregator_Aggregate_BoostRequiresMoreThanThreeRecords(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	strong := make([]domain.Evidence, 3)
	for i := range strong {
		strong[i] = domain.Evidence{Type: domain.EvidenceTest, Source: "suite", Description: "case green", Confidence: 0.9}
	}

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionTesting,
				Confidence: 0.85,
				Evidence:   strong,
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(meta.Confidence.Overall-0.85) > 0.0001 {
		t.Errorf("Overall = %f, three strong records should not trigger the boost", meta.Confidence.Overall)
	}
}

func TestAggregator_Aggregate_BoostCapped(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	strong := make([]domain.Evidence, 5)
	for i := range strong {
		strong[i] = domain.Evidence{Type: domain.EvidenceTest, Source: "suite", Description: "case green", Confidence: 0.95}
	}

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{Name: domain.SectionTesting, Confidence: 0.9, Evidence: strong},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Confidence.Overall != DefaultBoostCap {
		t.Errorf("Overall = %f, want cap %f", meta.Confidence.Overall, DefaultBoostCap)
	}
}

func TestAggregator_Aggregate_CriticalDefeaterPenalty(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionTesting,
				Confidence: 0.9,
				Defeaters: []domain.Defeater{
					{Type: domain.DefeaterTestFailure, Description: "TestExpiry failing on main"},
					{Type: domain.DefeaterCodeChange, Description: "neighbor file touched"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the critical defeater discounts: 0.9 * 0.8
	want := 0.72
	if math.Abs(meta.Confidence.Overall-want) > 0.0001 {
		t.Errorf("Overall = %f, want %f", meta.Confidence.Overall, want)
	}
}

func TestAggregator_Aggregate_PenaltyCompoundsToFloor(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	defeaters := make([]domain.Defeater, 10)
	for i := range defeaters {
		defeaters[i] = domain.Defeater{
			Type:        domain.DefeaterTestFailure,
			Description: "failing case " + string(rune('a'+i)),
		}
	}

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{Name: domain.SectionTesting, Confidence: 0.9, Defeaters: defeaters},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Confidence.Overall != DefaultMinOverall {
		t.Errorf("Overall = %f, want floor %f", meta.Confidence.Overall, DefaultMinOverall)
	}
}

func TestAggregator_Aggregate_SecurityContradictionShortensValidity(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	detected := time.Now().UTC()
	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionSecurity,
				Confidence: 0.2,
				Defeaters: []domain.Defeater{
					{Type: domain.DefeaterContradiction, Description: "scanner contradicts the posture claim", Detected: &detected},
				},
				LLM: &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "ab12"},
			},
			{Name: domain.SectionTesting, Confidence: 0.9},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Geometric mean sqrt(0.2*0.9) = 0.424, discounted once for the
	// critical defeater: 0.424 * 0.8
	want := 0.33941
	if math.Abs(meta.Confidence.Overall-want) > 0.0001 {
		t.Errorf("Overall = %f, want %f", meta.Confidence.Overall, want)
	}
	if len(meta.Defeaters) != 1 || !meta.Defeaters[0].Active() {
		t.Fatalf("defeaters = %+v, want the one active contradiction", meta.Defeaters)
	}

	s := NewValidityScheduler(zap.NewNop())
	until := s.ValidUntil(meta.GeneratedAt,
		[]domain.SectionName{domain.SectionSecurity, domain.SectionTesting},
		meta.Defeaters)

	leash := until.Sub(meta.GeneratedAt)
	if leash > 7*24*time.Hour {
		t.Errorf("validity window = %s, the security section must cap it at 7d", leash)
	}
	if leash != 48*time.Hour {
		t.Errorf("validity window = %s, want 48h (7d cap minus 5d for the defeater)", leash)
	}
}

func TestAggregator_Aggregate_LowSectionDominates(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionSemantics,
				Confidence: 0.9,
				LLM:        &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "ab12"},
			},
			{
				Name:       domain.SectionSecurity,
				Confidence: 0.01,
				LLM:        &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "cd34"},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An arithmetic mean would report 0.455; the geometric mean collapses
	// to the floor.
	if meta.Confidence.Overall != DefaultMinOverall {
		t.Errorf("Overall = %f, want %f", meta.Confidence.Overall, DefaultMinOverall)
	}
}

func TestAggregator_Aggregate_MissingModelEvidence(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionSemantics,
				Confidence: 0.8,
				Evidence: []domain.Evidence{
					{Type: domain.EvidenceCode, Source: "session.go:18", Description: "ttl constant", Confidence: 0.7},
				},
			},
			{Name: domain.SectionIdentity, Confidence: 0.9},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(meta.Defeaters) != 1 {
		t.Fatalf("defeaters = %d, want 1 for the undocumented semantics run", len(meta.Defeaters))
	}
	d := meta.Defeaters[0]
	if d.Type != domain.DefeaterNewInfo || !d.Active() {
		t.Errorf("defeater = %+v, want active new_info", d)
	}
	if !strings.Contains(d.Description, "semantics") {
		t.Errorf("defeater description %q should name the section", d.Description)
	}

	var synthetic *domain.Evidence
	for i := range meta.Evidence {
		if meta.Evidence[i].Source == "aggregator" {
			synthetic = &meta.Evidence[i]
		}
	}
	if synthetic == nil {
		t.Fatal("expected a synthetic evidence record for the gap")
	}
	if synthetic.Type != domain.EvidenceInferred || synthetic.Confidence != 0 {
		t.Errorf("synthetic record = %+v, want zero-confidence inferred", synthetic)
	}

	if meta.Confidence.Uncertainty == nil || meta.Confidence.Uncertainty.Reasoning != 0.1 {
		t.Error("one defeater should contribute 0.1 reasoning uncertainty")
	}
}

func TestAggregator_Aggregate_RawSectionScalars(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{Name: domain.SectionTesting, Confidence: 0.003},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The per-section map keeps the reported scalar; only the aggregate is
	// clamped.
	if meta.Confidence.BySection[domain.SectionTesting] != 0.003 {
		t.Errorf("BySection[testing] = %f, want raw 0.003", meta.Confidence.BySection[domain.SectionTesting])
	}
	if meta.Confidence.Overall != DefaultMinOverall {
		t.Errorf("Overall = %f, want floor %f", meta.Confidence.Overall, DefaultMinOverall)
	}
}

func TestAggregator_Aggregate_InvalidInput(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	t.Run("section confidence out of range", func(t *testing.T) {
		_, err := agg.Aggregate(domain.ExtractionBundle{
			Sections: []domain.SectionResult{{Name: domain.SectionTesting, Confidence: 1.5}},
		})
		if domain.ReasonOf(err) != domain.ReasonInvalidConfidence {
			t.Errorf("reason = %s, want %s", domain.ReasonOf(err), domain.ReasonInvalidConfidence)
		}
	})

	t.Run("malformed evidence", func(t *testing.T) {
		_, err := agg.Aggregate(domain.ExtractionBundle{
			Sections: []domain.SectionResult{{
				Name:       domain.SectionTesting,
				Confidence: 0.8,
				Evidence:   []domain.Evidence{{Type: "hearsay", Source: "s", Description: "d", Confidence: 0.5}},
			}},
		})
		if domain.ReasonOf(err) != domain.ReasonInvalidType {
			t.Errorf("reason = %s, want %s", domain.ReasonOf(err), domain.ReasonInvalidType)
		}
	})

	t.Run("inverted bounds", func(t *testing.T) {
		bad := NewAggregator(zap.NewNop())
		bad.MinOverall = 0.5
		bad.MaxOverall = 0.4
		_, err := bad.Aggregate(domain.ExtractionBundle{})
		if domain.ReasonOf(err) != domain.ReasonInvalidConfig {
			t.Errorf("reason = %s, want %s", domain.ReasonOf(err), domain.ReasonInvalidConfig)
		}
	})
}

func TestAggregator_UncertaintyProfile(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	meta, err := agg.Aggregate(domain.ExtractionBundle{
		Sections: []domain.SectionResult{
			{
				Name:       domain.SectionTesting,
				Confidence: 0.8,
				Evidence: []domain.Evidence{
					{Type: domain.EvidenceTest, Source: "suite", Description: "green", Confidence: 0.8},
					{Type: domain.EvidenceCode, Source: "impl.go", Description: "bounded loop", Confidence: 0.8},
					{Type: domain.EvidenceCommit, Source: "9f2c1ab", Description: "introduced bound", Confidence: 0.8},
					{Type: domain.EvidenceDoc, Source: "docs.md", Description: "documented", Confidence: 0.6},
					{Type: domain.EvidenceInferred, Source: "extractor", Description: "guessed intent", Confidence: 0.4},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := meta.Confidence.Uncertainty
	if u == nil {
		t.Fatal("expected an uncertainty profile")
	}

	// 3 of 5 concrete: 1 - (3/5)*0.8
	if math.Abs(u.Aleatoric-0.52) > 1e-9 {
		t.Errorf("Aleatoric = %f, want 0.52", u.Aleatoric)
	}
	// 1 inferred out of 5
	if math.Abs(u.Epistemic-0.2) > 1e-9 {
		t.Errorf("Epistemic = %f, want 0.2", u.Epistemic)
	}
	if u.Reasoning != 0 {
		t.Errorf("Reasoning = %f, want 0", u.Reasoning)
	}

	if len(u.ReducibleBy) != 1 || !strings.Contains(u.ReducibleBy[0], "add tests") {
		t.Errorf("ReducibleBy = %v, want the concrete-evidence hint only", u.ReducibleBy)
	}
}

func TestAggregator_Aggregate_Deterministic(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	bundle := domain.ExtractionBundle{
		GeneratedBy: "extractor-v2",
		Sections: []domain.SectionResult{
			{Name: domain.SectionSemantics, Confidence: 0.8, LLM: &domain.LLMEvidence{Provider: "openai", ModelID: "gpt-4o-mini", PromptDigest: "ab12"}},
			{Name: domain.SectionQuality, Confidence: 0.6},
			{Name: domain.SectionHistory, Confidence: 0.7},
		},
	}

	first, err := agg.Aggregate(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.Aggregate(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Confidence.Overall != second.Confidence.Overall {
		t.Errorf("recomputed Overall = %f, first run %f", second.Confidence.Overall, first.Confidence.Overall)
	}
	for name, v := range first.Confidence.BySection {
		if second.Confidence.BySection[name] != v {
			t.Errorf("BySection[%s] = %f after recompute, want %f", name, second.Confidence.BySection[name], v)
		}
	}
}
