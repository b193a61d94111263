package domain

import "testing"

func TestEvidenceClaim_Validate(t *testing.T) {
	valid := EvidenceClaim{ID: "c1", Proposition: "parses RFC 3339 timestamps"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		claim EvidenceClaim
	}{
		{"empty id", EvidenceClaim{Proposition: "p"}},
		{"whitespace id", EvidenceClaim{ID: "   ", Proposition: "p"}},
		{"empty proposition", EvidenceClaim{ID: "c1"}},
		{"whitespace proposition", EvidenceClaim{ID: "c1", Proposition: "\t\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.claim.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ReasonOf(err); got != ReasonInvalidClaim {
				t.Errorf("reason = %s, want %s", got, ReasonInvalidClaim)
			}
		})
	}
}

func TestNormalizeProposition(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Handles Auth", "handles auth"},
		{"trims", "  handles auth  ", "handles auth"},
		{"collapses whitespace", "handles\t\tauth\n tokens", "handles auth tokens"},
		{"composes unicode", "café latte", "café latte"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeProposition(tt.in); got != tt.want {
				t.Errorf("NormalizeProposition(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvidenceClaim_Key(t *testing.T) {
	a := EvidenceClaim{ID: "a", Proposition: "Session Tokens  Expire", Subject: &Subject{ID: "Internal/Auth"}}
	b := EvidenceClaim{ID: "b", Proposition: "session tokens expire", Subject: &Subject{ID: "internal/auth"}}
	if a.Key() != b.Key() {
		t.Errorf("equivalent claims should share a key: %v vs %v", a.Key(), b.Key())
	}

	c := EvidenceClaim{ID: "c", Proposition: "session tokens expire", Subject: &Subject{ID: "internal/session"}}
	if a.Key() == c.Key() {
		t.Error("different subjects should not share a key")
	}

	noSubject := EvidenceClaim{ID: "d", Proposition: "session tokens expire"}
	if noSubject.Key().SubjectID != "" {
		t.Errorf("nil subject should yield empty subject id, got %q", noSubject.Key().SubjectID)
	}
}

func TestEvidenceClaim_EffectivePolarity(t *testing.T) {
	tests := []struct {
		name     string
		polarity Polarity
		want     Polarity
	}{
		{"unset defaults to affirmative", "", PolarityAffirmative},
		{"affirmative", PolarityAffirmative, PolarityAffirmative},
		{"negative", PolarityNegative, PolarityNegative},
		{"unknown treated as affirmative", Polarity("maybe"), PolarityAffirmative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := EvidenceClaim{ID: "c", Proposition: "p", Polarity: tt.polarity}
			if got := c.EffectivePolarity(); got != tt.want {
				t.Errorf("EffectivePolarity() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidPolarity(t *testing.T) {
	for _, v := range []string{"affirmative", "negative"} {
		if !ValidPolarity(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}

	for _, v := range []string{"", "neutral", "AFFIRMATIVE"} {
		if ValidPolarity(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}
