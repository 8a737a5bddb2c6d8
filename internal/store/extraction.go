package store

import (
	"context"
	"errors"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExtractionStore struct {
	db *pgxpool.Pool
}

func NewExtractionStore(db *pgxpool.Pool) *ExtractionStore {
	return &ExtractionStore{db: db}
}

const extractionColumns = `id, text, entity_type, source_conversation_id, source_chunk_id,
	conversation_timestamp, extraction_timestamp, attribution, raw_confidence,
	entity_verified, is_active, canonical_entity_id`

func scanExtraction(row pgx.Row, x *domain.RawExtraction) error {
	return row.Scan(
		&x.ID, &x.Text, &x.Type, &x.SourceConversationID, &x.SourceChunkID,
		&x.ConversationTimestamp, &x.ExtractionTimestamp, &x.Attribution, &x.RawConfidence,
		&x.EntityVerified, &x.IsActive, &x.CanonicalEntityID,
	)
}

func (s *ExtractionStore) Create(ctx context.Context, x *domain.RawExtraction) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO extractions (id, text, entity_type, source_conversation_id, source_chunk_id,
			conversation_timestamp, extraction_timestamp, attribution, raw_confidence,
			entity_verified, is_active, canonical_entity_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		x.ID, x.Text, x.Type, x.SourceConversationID, x.SourceChunkID,
		x.ConversationTimestamp, x.ExtractionTimestamp, x.Attribution, x.RawConfidence,
		x.EntityVerified, x.IsActive, x.CanonicalEntityID,
	)
	return err
}

func (s *ExtractionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.RawExtraction, error) {
	x := &domain.RawExtraction{}
	err := scanExtraction(s.db.QueryRow(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE id = $1`, id), x)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, err
	}
	return x, nil
}

func (s *ExtractionStore) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.RawExtraction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+extractionColumns+` FROM extractions
		 WHERE source_conversation_id = $1 ORDER BY extraction_timestamp`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extractions []domain.RawExtraction
	for rows.Next() {
		var x domain.RawExtraction
		if err := scanExtraction(rows, &x); err != nil {
			return nil, err
		}
		extractions = append(extractions, x)
	}
	return extractions, rows.Err()
}

func (s *ExtractionStore) SetCanonicalEntity(ctx context.Context, id uuid.UUID, entityID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE extractions SET canonical_entity_id = $2 WHERE id = $1`, id, entityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExtractionNotFound
	}
	return nil
}

func (s *ExtractionStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE extractions SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExtractionNotFound
	}
	return nil
}
