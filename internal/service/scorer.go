package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ComputeScore evaluates the belief formula against a score record at the
// given instant. It is pure: the caller persists the result.
//
// Support is log-dampened so heavily repeated facts cannot crowd out
// everything else, recency halves every halfLifeDays, and the corroboration
// and feedback contributions are individually capped. A NaN from any term
// resolves to the neutral 0.5.
func ComputeScore(b *domain.BeliefScore, now time.Time) float64 {
	supportFactor := math.Log(1 + float64(b.SupportCount))

	days := now.Sub(b.LastCorroborated).Hours() / 24
	if days < 0 {
		days = 0
	}
	recencyFactor := 1.0
	if b.HalfLifeDays > 0 {
		recencyFactor = math.Pow(0.5, days/b.HalfLifeDays)
	}

	raw := 0.5*(supportFactor/5)*recencyFactor*b.AttributionWeight +
		math.Min(b.ExternalCorroboration, domain.MaxExternalCorroboration) +
		math.Min(b.UserFeedbackDelta, domain.MaxFeedbackContribution)

	if math.IsNaN(raw) {
		return 0.5
	}

	floor := 0.0
	if b.StabilityFloorActive {
		floor = domain.StabilityFloor
	}
	if raw < floor {
		return floor
	}
	if raw > 1.0 {
		return 1.0
	}
	return raw
}

// ScorerService recalculates belief scores, applies feedback signals, and
// serves the ranked visible subset.
type ScorerService struct {
	entityStore domain.EntityStore
	logger      *zap.Logger

	now func() time.Time
}

func NewScorerService(entityStore domain.EntityStore, logger *zap.Logger) *ScorerService {
	return &ScorerService{
		entityStore: entityStore,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ScorerService) SetClock(now func() time.Time) { s.now = now }

// Rescore recomputes and persists one entity's score.
func (s *ScorerService) Rescore(ctx context.Context, id uuid.UUID) (*domain.CanonicalEntity, error) {
	entity, err := s.entityStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)
	entity.Belief.LastCalculated = now
	if err := s.entityStore.UpdateBelief(ctx, entity.ID, entity.Belief); err != nil {
		return nil, fmt.Errorf("persist score: %w", err)
	}
	return entity, nil
}

// ApplyFeedback accumulates the signal's fixed delta, marks the entity as
// interacted, and rescores immediately.
func (s *ScorerService) ApplyFeedback(ctx context.Context, id uuid.UUID, signal domain.FeedbackSignal) (*domain.CanonicalEntity, error) {
	if !domain.ValidFeedbackSignal(signal) {
		return nil, fmt.Errorf("invalid feedback signal: %s", signal)
	}

	entity, err := s.entityStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entity.Belief.UserFeedbackDelta += signal.Delta()
	entity.Belief.Interacted = true

	now := s.now()
	entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)
	entity.Belief.LastCalculated = now

	if err := s.entityStore.UpdateBelief(ctx, entity.ID, entity.Belief); err != nil {
		return nil, fmt.Errorf("persist feedback: %w", err)
	}

	s.logger.Debug("applied feedback",
		zap.String("entity_id", id.String()),
		zap.String("signal", string(signal)),
		zap.Float64("delta", signal.Delta()),
		zap.Float64("score", entity.Belief.CurrentScore))

	return entity, nil
}

// VisibleEntities returns the visibility-filtered entity set ranked by score,
// highest first. Uninteracted entities pass at the low threshold so new facts
// stay reviewable; interacted entities must clear the full threshold.
func (s *ScorerService) VisibleEntities(ctx context.Context) ([]domain.EntityWithScore, error) {
	entities, err := s.entityStore.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.EntityWithScore
	for i := range entities {
		e := entities[i]
		if e.Belief.CurrentScore < e.Belief.VisibilityThreshold() {
			continue
		}
		out = append(out, domain.EntityWithScore{
			CanonicalEntity: e,
			Score:           e.Belief.CurrentScore,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
