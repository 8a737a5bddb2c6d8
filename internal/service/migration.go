package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MigrationService upgrades a flat legacy fact corpus into the entity/score
// model. The upgrade runs at most once, guarded by the persisted schema
// version; re-entry is a silent no-op.
type MigrationService struct {
	legacyStore domain.LegacyStore
	entityStore domain.EntityStore
	stateStore  domain.StateStore
	logger      *zap.Logger

	now func() time.Time
}

func NewMigrationService(ls domain.LegacyStore, es domain.EntityStore, ss domain.StateStore, logger *zap.Logger) *MigrationService {
	return &MigrationService{
		legacyStore: ls,
		entityStore: es,
		stateStore:  ss,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *MigrationService) SetClock(now func() time.Time) { s.now = now }

// legacyCategoryTypes maps the old flat category strings onto entity types.
// Unknown categories fall through to classification by text.
var legacyCategoryTypes = map[string]domain.EntityType{
	"role":       domain.EntityTypeIdentity,
	"identity":   domain.EntityTypeIdentity,
	"work":       domain.EntityTypeCompany,
	"company":    domain.EntityTypeCompany,
	"project":    domain.EntityTypeProject,
	"skill":      domain.EntityTypeSkill,
	"interest":   domain.EntityTypePreference,
	"preference": domain.EntityTypePreference,
	"goal":       domain.EntityTypeGoal,
	"tool":       domain.EntityTypeTool,
}

// Run performs the one-time upgrade. It never touches entities that already
// exist: a legacy fact whose text collides with a live entity is skipped
// rather than overwritten.
func (s *MigrationService) Run(ctx context.Context) error {
	state, err := s.stateStore.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrStateNotFound) {
			return fmt.Errorf("load pipeline state: %w", err)
		}
		state = &domain.PipelineState{}
	}

	if state.SchemaVersion >= domain.CurrentSchemaVersion {
		return nil
	}

	if s.legacyStore == nil {
		return s.finish(ctx, state, 0)
	}

	facts, err := s.legacyStore.ListFacts(ctx)
	if err != nil {
		return fmt.Errorf("read legacy facts: %w", err)
	}

	existing, err := s.entityStore.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for i := range existing {
		taken[domain.NormalizeText(existing[i].CanonicalText)] = true
		for _, a := range existing[i].Aliases {
			taken[domain.NormalizeText(a)] = true
		}
	}

	migrated := 0
	for _, fact := range facts {
		text := strings.TrimSpace(fact.Text)
		if text == "" {
			continue
		}
		key := domain.NormalizeText(text)
		if taken[key] {
			continue
		}

		entityType, ok := legacyCategoryTypes[strings.ToLower(fact.Category)]
		if !ok {
			entityType = ClassifyEntityType(text)
		}

		now := s.now()
		entity := &domain.CanonicalEntity{
			ID:            uuid.New(),
			CanonicalText: text,
			Type:          entityType,
			FirstSeen:     fact.CreatedAt,
			LastSeen:      fact.CreatedAt,
			Belief: domain.BeliefScore{
				SupportCount:     1,
				LastCorroborated: fact.CreatedAt,
				// Legacy facts carry no attribution; treat them as implied.
				AttributionWeight: domain.AttributionUserImplied.Weight(),
				HalfLifeDays:      entityType.HalfLifeDays(),
				LastCalculated:    now,
			},
		}
		entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)

		if err := s.entityStore.Create(ctx, entity); err != nil {
			s.logger.Warn("failed to migrate legacy fact",
				zap.String("legacy_id", fact.ID.String()),
				zap.Error(err))
			continue
		}
		taken[key] = true
		migrated++
	}

	return s.finish(ctx, state, migrated)
}

func (s *MigrationService) finish(ctx context.Context, state *domain.PipelineState, migrated int) error {
	state.SchemaVersion = domain.CurrentSchemaVersion
	if err := s.stateStore.Save(ctx, state); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	s.logger.Info("schema migration complete",
		zap.Int("schema_version", state.SchemaVersion),
		zap.Int("facts_migrated", migrated))
	return nil
}
