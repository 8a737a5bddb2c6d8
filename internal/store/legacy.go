package store

import (
	"context"

	"github.com/distillkit/distill/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LegacyStore reads the flat pre-upgrade fact table, if one exists. Only the
// one-time migration consumes it.
type LegacyStore struct {
	db *pgxpool.Pool
}

func NewLegacyStore(db *pgxpool.Pool) *LegacyStore {
	return &LegacyStore{db: db}
}

func (s *LegacyStore) ListFacts(ctx context.Context) ([]domain.LegacyFact, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'legacy_facts')`,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, text, category, created_at FROM legacy_facts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.LegacyFact
	for rows.Next() {
		var f domain.LegacyFact
		if err := rows.Scan(&f.ID, &f.Text, &f.Category, &f.CreatedAt); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
