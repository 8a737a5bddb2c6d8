package store

import (
	"context"
	"errors"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MergeStore backs the three merge-adjudication logs: pending co-occurrence
// counts, the suggestion queue, and the permanent decision record.
type MergeStore struct {
	db *pgxpool.Pool
}

func NewMergeStore(db *pgxpool.Pool) *MergeStore {
	return &MergeStore{db: db}
}

func (s *MergeStore) UpsertPending(ctx context.Context, p *domain.PendingAlias) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO pending_aliases (host_entity_id, candidate_entity_id, extraction_id, co_occurrence_count, first_seen)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (host_entity_id, candidate_entity_id)
		 DO UPDATE SET co_occurrence_count = pending_aliases.co_occurrence_count + 1`,
		p.HostEntityID, p.CandidateEntityID, p.ExtractionID, p.CoOccurrenceCount, p.FirstSeen,
	)
	return err
}

func (s *MergeStore) ListPending(ctx context.Context) ([]domain.PendingAlias, error) {
	rows, err := s.db.Query(ctx,
		`SELECT host_entity_id, candidate_entity_id, extraction_id, co_occurrence_count, first_seen
		 FROM pending_aliases ORDER BY first_seen`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []domain.PendingAlias
	for rows.Next() {
		var p domain.PendingAlias
		if err := rows.Scan(&p.HostEntityID, &p.CandidateEntityID, &p.ExtractionID, &p.CoOccurrenceCount, &p.FirstSeen); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *MergeStore) DeletePending(ctx context.Context, hostEntityID, candidateEntityID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM pending_aliases WHERE host_entity_id = $1 AND candidate_entity_id = $2`,
		hostEntityID, candidateEntityID)
	return err
}

func (s *MergeStore) DeletePendingForEntity(ctx context.Context, entityID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM pending_aliases WHERE host_entity_id = $1 OR candidate_entity_id = $1`, entityID)
	return err
}

func (s *MergeStore) CreateSuggestion(ctx context.Context, sug *domain.MergeSuggestion) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO merge_suggestions (id, entity_a_id, entity_b_id, reason, created_at, snoozed_until)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sug.ID, sug.EntityAID, sug.EntityBID, sug.Reason, sug.CreatedAt, sug.SnoozedUntil,
	)
	return err
}

func (s *MergeStore) GetSuggestion(ctx context.Context, id uuid.UUID) (*domain.MergeSuggestion, error) {
	sug := &domain.MergeSuggestion{}
	err := s.db.QueryRow(ctx,
		`SELECT id, entity_a_id, entity_b_id, reason, created_at, snoozed_until
		 FROM merge_suggestions WHERE id = $1`, id,
	).Scan(&sug.ID, &sug.EntityAID, &sug.EntityBID, &sug.Reason, &sug.CreatedAt, &sug.SnoozedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSuggestionNotFound
		}
		return nil, err
	}
	return sug, nil
}

func (s *MergeStore) ListSuggestions(ctx context.Context) ([]domain.MergeSuggestion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, entity_a_id, entity_b_id, reason, created_at, snoozed_until
		 FROM merge_suggestions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []domain.MergeSuggestion
	for rows.Next() {
		var sug domain.MergeSuggestion
		if err := rows.Scan(&sug.ID, &sug.EntityAID, &sug.EntityBID, &sug.Reason, &sug.CreatedAt, &sug.SnoozedUntil); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, sug)
	}
	return suggestions, rows.Err()
}

func (s *MergeStore) DeleteSuggestion(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM merge_suggestions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSuggestionNotFound
	}
	return nil
}

func (s *MergeStore) DeleteSuggestionsForEntity(ctx context.Context, entityID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM merge_suggestions WHERE entity_a_id = $1 OR entity_b_id = $1`, entityID)
	return err
}

func (s *MergeStore) SnoozeSuggestion(ctx context.Context, id uuid.UUID, until time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE merge_suggestions SET snoozed_until = $2 WHERE id = $1`, id, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSuggestionNotFound
	}
	return nil
}

func (s *MergeStore) CreateDecision(ctx context.Context, d *domain.MergeDecision) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO merge_decisions (id, survivor_entity_id, absorbed_entity_id, outcome, user_initiated, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.SurvivorEntityID, d.AbsorbedEntityID, d.Outcome, d.UserInitiated, d.DecidedAt,
	)
	return err
}

func (s *MergeStore) ListDecisions(ctx context.Context) ([]domain.MergeDecision, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, survivor_entity_id, absorbed_entity_id, outcome, user_initiated, decided_at
		 FROM merge_decisions ORDER BY decided_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []domain.MergeDecision
	for rows.Next() {
		var d domain.MergeDecision
		if err := rows.Scan(&d.ID, &d.SurvivorEntityID, &d.AbsorbedEntityID, &d.Outcome, &d.UserInitiated, &d.DecidedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
