package service

import (
	"context"
	"sync"
	"time"

	"github.com/credenceproj/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultMaintenanceInterval = 1 * time.Hour
	relatedClaimLimit          = 5
)

// MaintenanceService periodically ages stored evidence and surfaces
// contradictions for human review.
type MaintenanceService struct {
	validator      *Validator
	contradictions domain.ContradictionStore
	logger         *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMaintenanceService wires the sweeps together. The contradiction store
// may be nil, in which case detected conflicts are only logged.
func NewMaintenanceService(v *Validator, cs domain.ContradictionStore, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		validator:      v,
		contradictions: cs,
		logger:         logger,
		interval:       defaultMaintenanceInterval,
		stopCh:         make(chan struct{}),
	}
}

func (s *MaintenanceService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the maintenance sweeps on a periodic schedule in a background
// goroutine.
func (s *MaintenanceService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("evidence maintenance started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("evidence maintenance stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the maintenance loop.
func (s *MaintenanceService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce executes a single maintenance pass outside the periodic schedule.
func (s *MaintenanceService) RunOnce(ctx context.Context) {
	// 1. Age stored evidence so old support decays toward the floor
	report, err := s.validator.ApplyAging(ctx)
	if err != nil {
		s.logger.Error("failed to age evidence", zap.Error(err))
	} else if report.UpdatedEvidence > 0 {
		s.logger.Info("aged stored evidence",
			zap.Int("scanned_claims", report.ScannedClaims),
			zap.Int("updated_evidence", report.UpdatedEvidence))
	}

	// 2. Surface conflicting claims for human review
	found, err := s.validator.DetectContradictions(ctx)
	if err != nil {
		s.logger.Error("failed to detect contradictions", zap.Error(err))
		return
	}

	for i := range found {
		c := &found[i]
		s.annotateRelated(ctx, c)

		if s.contradictions == nil {
			s.logger.Warn("contradiction needs review",
				zap.String("subject_id", c.SubjectID),
				zap.String("proposition", c.Proposition))
			continue
		}
		if err := s.contradictions.RecordContradiction(ctx, c); err != nil {
			s.logger.Warn("failed to record contradiction",
				zap.String("subject_id", c.SubjectID),
				zap.Error(err))
		}
	}
}

// annotateRelated attaches nearby claims when the backing store can search by
// similarity, giving reviewers context beyond the conflicting pair.
func (s *MaintenanceService) annotateRelated(ctx context.Context, c *domain.Contradiction) {
	sim, ok := s.validator.store.(domain.ClaimSimilarityStore)
	if !ok {
		return
	}

	related, err := sim.FindRelatedClaims(ctx, c.AffirmativeClaimID, relatedClaimLimit)
	if err != nil {
		s.logger.Warn("failed to find related claims",
			zap.String("claim_id", c.AffirmativeClaimID),
			zap.Error(err))
		return
	}

	seen := map[string]bool{c.AffirmativeClaimID: true, c.NegativeClaimID: true}
	for _, id := range c.RelatedClaimIDs {
		seen[id] = true
	}
	for _, rc := range related {
		if seen[rc.ID] {
			continue
		}
		seen[rc.ID] = true
		c.RelatedClaimIDs = append(c.RelatedClaimIDs, rc.ID)
	}
}
