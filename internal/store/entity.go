package store

import (
	"context"
	"errors"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntityStore struct {
	db *pgxpool.Pool
}

func NewEntityStore(db *pgxpool.Pool) *EntityStore {
	return &EntityStore{db: db}
}

const entityColumns = `id, canonical_text, entity_type, aliases, first_seen, last_seen, supporting_extraction_ids,
	current_score, support_count, last_corroborated, attribution_weight, external_corroboration,
	user_feedback_delta, half_life_days, stability_floor_active, interacted, last_calculated,
	created_at, updated_at`

func scanEntity(row pgx.Row, e *domain.CanonicalEntity) error {
	return row.Scan(
		&e.ID, &e.CanonicalText, &e.Type, &e.Aliases, &e.FirstSeen, &e.LastSeen, &e.SupportingExtractionIDs,
		&e.Belief.CurrentScore, &e.Belief.SupportCount, &e.Belief.LastCorroborated, &e.Belief.AttributionWeight,
		&e.Belief.ExternalCorroboration, &e.Belief.UserFeedbackDelta, &e.Belief.HalfLifeDays,
		&e.Belief.StabilityFloorActive, &e.Belief.Interacted, &e.Belief.LastCalculated,
		&e.CreatedAt, &e.UpdatedAt,
	)
}

func (s *EntityStore) Create(ctx context.Context, e *domain.CanonicalEntity) error {
	if e.Aliases == nil {
		e.Aliases = []string{}
	}
	if e.SupportingExtractionIDs == nil {
		e.SupportingExtractionIDs = []uuid.UUID{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO entities (id, canonical_text, entity_type, aliases, first_seen, last_seen, supporting_extraction_ids,
			current_score, support_count, last_corroborated, attribution_weight, external_corroboration,
			user_feedback_delta, half_life_days, stability_floor_active, interacted, last_calculated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING created_at, updated_at`,
		e.ID, e.CanonicalText, e.Type, e.Aliases, e.FirstSeen, e.LastSeen, e.SupportingExtractionIDs,
		e.Belief.CurrentScore, e.Belief.SupportCount, e.Belief.LastCorroborated, e.Belief.AttributionWeight,
		e.Belief.ExternalCorroboration, e.Belief.UserFeedbackDelta, e.Belief.HalfLifeDays,
		e.Belief.StabilityFloorActive, e.Belief.Interacted, e.Belief.LastCalculated,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (s *EntityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CanonicalEntity, error) {
	e := &domain.CanonicalEntity{}
	err := scanEntity(s.db.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1`, id), e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EntityStore) ListActive(ctx context.Context) ([]domain.CanonicalEntity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entityColumns+` FROM entities ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity
	for rows.Next() {
		var e domain.CanonicalEntity
		if err := scanEntity(rows, &e); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *EntityStore) Update(ctx context.Context, e *domain.CanonicalEntity) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities SET canonical_text = $2, entity_type = $3, aliases = $4, first_seen = $5, last_seen = $6,
			supporting_extraction_ids = $7, current_score = $8, support_count = $9, last_corroborated = $10,
			attribution_weight = $11, external_corroboration = $12, user_feedback_delta = $13,
			half_life_days = $14, stability_floor_active = $15, interacted = $16, last_calculated = $17,
			updated_at = NOW()
		 WHERE id = $1`,
		e.ID, e.CanonicalText, e.Type, e.Aliases, e.FirstSeen, e.LastSeen,
		e.SupportingExtractionIDs, e.Belief.CurrentScore, e.Belief.SupportCount, e.Belief.LastCorroborated,
		e.Belief.AttributionWeight, e.Belief.ExternalCorroboration, e.Belief.UserFeedbackDelta,
		e.Belief.HalfLifeDays, e.Belief.StabilityFloorActive, e.Belief.Interacted, e.Belief.LastCalculated,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (s *EntityStore) UpdateBelief(ctx context.Context, id uuid.UUID, b domain.BeliefScore) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities SET current_score = $2, support_count = $3, last_corroborated = $4,
			attribution_weight = $5, external_corroboration = $6, user_feedback_delta = $7,
			half_life_days = $8, stability_floor_active = $9, interacted = $10, last_calculated = $11,
			updated_at = NOW()
		 WHERE id = $1`,
		id, b.CurrentScore, b.SupportCount, b.LastCorroborated, b.AttributionWeight,
		b.ExternalCorroboration, b.UserFeedbackDelta, b.HalfLifeDays,
		b.StabilityFloorActive, b.Interacted, b.LastCalculated,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (s *EntityStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}
