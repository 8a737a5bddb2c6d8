package store

import (
	"context"
	"errors"

	"github.com/distillkit/distill/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateStore persists the single pipeline-state row. Get returns a zero
// state rather than an error when the row has never been written.
type StateStore struct {
	db *pgxpool.Pool
}

func NewStateStore(db *pgxpool.Pool) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) Get(ctx context.Context) (*domain.PipelineState, error) {
	state := &domain.PipelineState{}
	err := s.db.QueryRow(ctx,
		`SELECT last_decay_run, schema_version FROM pipeline_state WHERE id = 1`,
	).Scan(&state.LastDecayRun, &state.SchemaVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.PipelineState{}, nil
		}
		return nil, err
	}
	return state, nil
}

func (s *StateStore) Save(ctx context.Context, state *domain.PipelineState) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO pipeline_state (id, last_decay_run, schema_version)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET last_decay_run = $1, schema_version = $2`,
		state.LastDecayRun, state.SchemaVersion,
	)
	return err
}
