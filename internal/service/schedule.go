package service

import (
	"sort"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultMaxValidityDays     = 365
	DefaultDefeaterPenaltyDays = 5
	minValidityDays            = 1
	hoursPerDay                = 24
)

// ValidityScheduler decides how long generated knowledge stays trustworthy
// and what a revalidation pass must refresh.
type ValidityScheduler struct {
	logger *zap.Logger

	MaxValidityDays     int
	DefeaterPenaltyDays int
}

func NewValidityScheduler(logger *zap.Logger) *ValidityScheduler {
	return &ValidityScheduler{
		logger:              logger,
		MaxValidityDays:     DefaultMaxValidityDays,
		DefeaterPenaltyDays: DefaultDefeaterPenaltyDays,
	}
}

// ValidUntil computes the expiry for knowledge generated at generatedAt. The
// most volatile section present caps the horizon, and every recorded defeater
// shortens it further. The result is never sooner than one day out.
func (s *ValidityScheduler) ValidUntil(generatedAt time.Time, sections []domain.SectionName, defeaters []domain.Defeater) time.Time {
	days := s.MaxValidityDays
	for _, name := range sections {
		if w := name.StalenessWindowDays(); w < days {
			days = w
		}
	}
	days -= s.DefeaterPenaltyDays * len(defeaters)
	if days < minValidityDays {
		days = minValidityDays
	}
	return generatedAt.Add(time.Duration(days) * hoursPerDay * time.Hour)
}

// ValidateKnowledge checks stored knowledge against the current state of its
// subject. A content hash mismatch invalidates everything; expiry alone marks
// it stale and selects only the sections whose staleness window has elapsed.
// Passing an empty originalHash falls back to the hash recorded in meta.
func (s *ValidityScheduler) ValidateKnowledge(meta domain.KnowledgeMeta, currentHash, originalHash string) domain.ValidationResult {
	if originalHash == "" {
		originalHash = meta.ContentHash
	}

	now := time.Now().UTC()
	result := domain.ValidationResult{Valid: true}
	if meta.ValidUntil != nil && now.After(*meta.ValidUntil) {
		result.Stale = true
	}

	if currentHash != "" && originalHash != "" && currentHash != originalHash {
		result.Valid = false
		result.InvalidatedBy = string(domain.DefeaterCodeChange)
		result.NeedsRefresh = sortedSectionNames(meta.Confidence.BySection)

		s.logger.Debug("knowledge invalidated by content change",
			zap.String("generated_by", meta.GeneratedBy),
			zap.Int("sections", len(result.NeedsRefresh)))
		return result
	}

	if result.Stale {
		elapsedDays := now.Sub(meta.GeneratedAt).Hours() / hoursPerDay
		for _, name := range sortedSectionNames(meta.Confidence.BySection) {
			if elapsedDays >= float64(name.StalenessWindowDays()) {
				result.NeedsRefresh = append(result.NeedsRefresh, name)
			}
		}
	}
	return result
}

func sortedSectionNames(bySection map[domain.SectionName]float64) []domain.SectionName {
	names := make([]domain.SectionName, 0, len(bySection))
	for name := range bySection {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
