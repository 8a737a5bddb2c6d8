package store

import (
	"context"
	"errors"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CitationStore struct {
	db *pgxpool.Pool
}

func NewCitationStore(db *pgxpool.Pool) *CitationStore {
	return &CitationStore{db: db}
}

const citationColumns = `id, url, domain, cited_in_conversation_id, related_entity_ids, cited_count, created_at`

func scanCitation(row pgx.Row, c *domain.CitationReference) error {
	return row.Scan(&c.ID, &c.URL, &c.Domain, &c.CitedInConversationID, &c.RelatedEntityIDs, &c.CitedCount, &c.CreatedAt)
}

func (s *CitationStore) Create(ctx context.Context, c *domain.CitationReference) error {
	if c.RelatedEntityIDs == nil {
		c.RelatedEntityIDs = []uuid.UUID{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO citations (id, url, domain, cited_in_conversation_id, related_entity_ids, cited_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.URL, c.Domain, c.CitedInConversationID, c.RelatedEntityIDs, c.CitedCount, c.CreatedAt,
	)
	return err
}

func (s *CitationStore) GetByURL(ctx context.Context, url string) (*domain.CitationReference, error) {
	c := &domain.CitationReference{}
	err := scanCitation(s.db.QueryRow(ctx,
		`SELECT `+citationColumns+` FROM citations WHERE url = $1`, url), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCitationNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CitationStore) ListAll(ctx context.Context) ([]domain.CitationReference, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+citationColumns+` FROM citations ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var citations []domain.CitationReference
	for rows.Next() {
		var c domain.CitationReference
		if err := scanCitation(rows, &c); err != nil {
			return nil, err
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

func (s *CitationStore) Update(ctx context.Context, c *domain.CitationReference) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE citations SET related_entity_ids = $2, cited_count = $3 WHERE id = $1`,
		c.ID, c.RelatedEntityIDs, c.CitedCount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCitationNotFound
	}
	return nil
}

func (s *CitationStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM citations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCitationNotFound
	}
	return nil
}
