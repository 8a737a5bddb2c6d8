package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"go.uber.org/zap"
)

const (
	// How often the worker wakes up to check the rolling guard. The pass
	// itself runs at most once per DecayRunInterval.
	defaultDecayTickInterval = 1 * time.Hour

	// Minimum spacing between decay passes.
	DecayRunInterval = 24 * time.Hour

	// Score changes smaller than this are not written back.
	DecayWritebackThreshold = 0.05
)

type DecayResult struct {
	EntitiesExamined int  `json:"entities_examined"`
	EntitiesDecayed  int  `json:"entities_decayed"`
	Skipped          bool `json:"skipped"`
}

// DecayService periodically recomputes every entity's score so recency decay
// becomes visible without waiting for the next corroboration or feedback
// event. Decay never deletes entities; it only lowers scores, which the
// visibility threshold then filters.
type DecayService struct {
	entityStore domain.EntityStore
	stateStore  domain.StateStore
	logger      *zap.Logger

	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDecayService(es domain.EntityStore, ss domain.StateStore, logger *zap.Logger) *DecayService {
	return &DecayService{
		entityStore: es,
		stateStore:  ss,
		logger:      logger,
		interval:    defaultDecayTickInterval,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

func (s *DecayService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *DecayService) SetClock(now func() time.Time) { s.now = now }

func (s *DecayService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("decay worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.RunDecay(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("decay worker stopped")
				return
			}
		}
	}()
}

func (s *DecayService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunDecay executes one guarded decay pass. The rolling 24h guard lives in
// the persisted pipeline state, so restarts do not reset the clock.
func (s *DecayService) RunDecay(ctx context.Context) *DecayResult {
	result := &DecayResult{}
	now := s.now()

	state, err := s.stateStore.Get(ctx)
	if err != nil {
		s.logger.Error("failed to load pipeline state", zap.Error(err))
		result.Skipped = true
		return result
	}

	if state.LastDecayRun != nil && now.Sub(*state.LastDecayRun) < DecayRunInterval {
		result.Skipped = true
		return result
	}

	entities, err := s.entityStore.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list entities for decay", zap.Error(err))
		result.Skipped = true
		return result
	}

	for i := range entities {
		e := &entities[i]
		result.EntitiesExamined++

		newScore := ComputeScore(&e.Belief, now)
		if math.Abs(newScore-e.Belief.CurrentScore) < DecayWritebackThreshold {
			continue
		}

		e.Belief.CurrentScore = newScore
		e.Belief.LastCalculated = now
		if err := s.entityStore.UpdateBelief(ctx, e.ID, e.Belief); err != nil {
			s.logger.Warn("failed to persist decayed score",
				zap.String("entity_id", e.ID.String()),
				zap.Error(err))
			continue
		}
		result.EntitiesDecayed++
	}

	state.LastDecayRun = &now
	if err := s.stateStore.Save(ctx, state); err != nil {
		s.logger.Error("failed to record decay run", zap.Error(err))
	}

	if result.EntitiesDecayed > 0 {
		s.logger.Info("decay pass complete",
			zap.Int("entities_examined", result.EntitiesExamined),
			zap.Int("entities_decayed", result.EntitiesDecayed))
	}

	return result
}
