package service

import (
	"context"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
)

// mockEntityStore implements domain.EntityStore for testing.
type mockEntityStore struct {
	entities  map[uuid.UUID]*domain.CanonicalEntity
	listCalls int
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{entities: make(map[uuid.UUID]*domain.CanonicalEntity)}
}

func (m *mockEntityStore) Create(ctx context.Context, e *domain.CanonicalEntity) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CanonicalEntity, error) {
	e, ok := m.entities[id]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntityStore) ListActive(ctx context.Context) ([]domain.CanonicalEntity, error) {
	m.listCalls++
	var out []domain.CanonicalEntity
	for _, e := range m.entities {
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockEntityStore) Update(ctx context.Context, e *domain.CanonicalEntity) error {
	if _, ok := m.entities[e.ID]; !ok {
		return domain.ErrEntityNotFound
	}
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityStore) UpdateBelief(ctx context.Context, id uuid.UUID, b domain.BeliefScore) error {
	e, ok := m.entities[id]
	if !ok {
		return domain.ErrEntityNotFound
	}
	e.Belief = b
	return nil
}

func (m *mockEntityStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.entities[id]; !ok {
		return domain.ErrEntityNotFound
	}
	delete(m.entities, id)
	return nil
}

// mockExtractionStore implements domain.ExtractionStore for testing.
type mockExtractionStore struct {
	extractions map[uuid.UUID]*domain.RawExtraction
}

func newMockExtractionStore() *mockExtractionStore {
	return &mockExtractionStore{extractions: make(map[uuid.UUID]*domain.RawExtraction)}
}

func (m *mockExtractionStore) Create(ctx context.Context, x *domain.RawExtraction) error {
	if x.ID == uuid.Nil {
		x.ID = uuid.New()
	}
	cp := *x
	m.extractions[x.ID] = &cp
	return nil
}

func (m *mockExtractionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.RawExtraction, error) {
	x, ok := m.extractions[id]
	if !ok {
		return nil, domain.ErrExtractionNotFound
	}
	cp := *x
	return &cp, nil
}

func (m *mockExtractionStore) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.RawExtraction, error) {
	var out []domain.RawExtraction
	for _, x := range m.extractions {
		if x.SourceConversationID == conversationID {
			out = append(out, *x)
		}
	}
	return out, nil
}

func (m *mockExtractionStore) SetCanonicalEntity(ctx context.Context, id uuid.UUID, entityID uuid.UUID) error {
	x, ok := m.extractions[id]
	if !ok {
		return domain.ErrExtractionNotFound
	}
	eid := entityID
	x.CanonicalEntityID = &eid
	return nil
}

func (m *mockExtractionStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	x, ok := m.extractions[id]
	if !ok {
		return domain.ErrExtractionNotFound
	}
	x.IsActive = false
	return nil
}

// mockMergeStore implements domain.MergeStore for testing.
type mockMergeStore struct {
	pending     map[[2]uuid.UUID]*domain.PendingAlias
	suggestions map[uuid.UUID]*domain.MergeSuggestion
	decisions   []domain.MergeDecision
}

func newMockMergeStore() *mockMergeStore {
	return &mockMergeStore{
		pending:     make(map[[2]uuid.UUID]*domain.PendingAlias),
		suggestions: make(map[uuid.UUID]*domain.MergeSuggestion),
	}
}

func (m *mockMergeStore) UpsertPending(ctx context.Context, p *domain.PendingAlias) error {
	key := [2]uuid.UUID{p.HostEntityID, p.CandidateEntityID}
	if existing, ok := m.pending[key]; ok {
		existing.CoOccurrenceCount++
		return nil
	}
	cp := *p
	m.pending[key] = &cp
	return nil
}

func (m *mockMergeStore) ListPending(ctx context.Context) ([]domain.PendingAlias, error) {
	var out []domain.PendingAlias
	for _, p := range m.pending {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockMergeStore) DeletePending(ctx context.Context, hostEntityID, candidateEntityID uuid.UUID) error {
	delete(m.pending, [2]uuid.UUID{hostEntityID, candidateEntityID})
	return nil
}

func (m *mockMergeStore) DeletePendingForEntity(ctx context.Context, entityID uuid.UUID) error {
	for key := range m.pending {
		if key[0] == entityID || key[1] == entityID {
			delete(m.pending, key)
		}
	}
	return nil
}

func (m *mockMergeStore) CreateSuggestion(ctx context.Context, s *domain.MergeSuggestion) error {
	cp := *s
	m.suggestions[s.ID] = &cp
	return nil
}

func (m *mockMergeStore) GetSuggestion(ctx context.Context, id uuid.UUID) (*domain.MergeSuggestion, error) {
	s, ok := m.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockMergeStore) ListSuggestions(ctx context.Context) ([]domain.MergeSuggestion, error) {
	var out []domain.MergeSuggestion
	for _, s := range m.suggestions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockMergeStore) DeleteSuggestion(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.suggestions[id]; !ok {
		return domain.ErrSuggestionNotFound
	}
	delete(m.suggestions, id)
	return nil
}

func (m *mockMergeStore) DeleteSuggestionsForEntity(ctx context.Context, entityID uuid.UUID) error {
	for id, s := range m.suggestions {
		if s.EntityAID == entityID || s.EntityBID == entityID {
			delete(m.suggestions, id)
		}
	}
	return nil
}

func (m *mockMergeStore) SnoozeSuggestion(ctx context.Context, id uuid.UUID, until time.Time) error {
	s, ok := m.suggestions[id]
	if !ok {
		return domain.ErrSuggestionNotFound
	}
	s.SnoozedUntil = &until
	return nil
}

func (m *mockMergeStore) CreateDecision(ctx context.Context, d *domain.MergeDecision) error {
	m.decisions = append(m.decisions, *d)
	return nil
}

func (m *mockMergeStore) ListDecisions(ctx context.Context) ([]domain.MergeDecision, error) {
	return append([]domain.MergeDecision(nil), m.decisions...), nil
}

// mockCitationStore implements domain.CitationStore for testing.
type mockCitationStore struct {
	citations map[uuid.UUID]*domain.CitationReference
}

func newMockCitationStore() *mockCitationStore {
	return &mockCitationStore{citations: make(map[uuid.UUID]*domain.CitationReference)}
}

func (m *mockCitationStore) Create(ctx context.Context, c *domain.CitationReference) error {
	cp := *c
	m.citations[c.ID] = &cp
	return nil
}

func (m *mockCitationStore) GetByURL(ctx context.Context, url string) (*domain.CitationReference, error) {
	for _, c := range m.citations {
		if c.URL == url {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCitationNotFound
}

func (m *mockCitationStore) ListAll(ctx context.Context) ([]domain.CitationReference, error) {
	var out []domain.CitationReference
	for _, c := range m.citations {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCitationStore) Update(ctx context.Context, c *domain.CitationReference) error {
	if _, ok := m.citations[c.ID]; !ok {
		return domain.ErrCitationNotFound
	}
	cp := *c
	m.citations[c.ID] = &cp
	return nil
}

func (m *mockCitationStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.citations[id]; !ok {
		return domain.ErrCitationNotFound
	}
	delete(m.citations, id)
	return nil
}

// mockStateStore implements domain.StateStore for testing.
type mockStateStore struct {
	state domain.PipelineState
}

func (m *mockStateStore) Get(ctx context.Context) (*domain.PipelineState, error) {
	cp := m.state
	return &cp, nil
}

func (m *mockStateStore) Save(ctx context.Context, s *domain.PipelineState) error {
	m.state = *s
	return nil
}

// mockLegacyStore implements domain.LegacyStore for testing.
type mockLegacyStore struct {
	facts []domain.LegacyFact
}

func (m *mockLegacyStore) ListFacts(ctx context.Context) ([]domain.LegacyFact, error) {
	return m.facts, nil
}
