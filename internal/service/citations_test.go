package service

import (
	"context"
	"testing"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestCitationService() (*CitationService, *mockCitationStore, *mockEntityStore) {
	cs := newMockCitationStore()
	es := newMockEntityStore()
	svc := NewCitationService(cs, es, zap.NewNop())
	svc.SetClock(func() time.Time { return scoreNow })
	return svc, cs, es
}

func TestDomainBoost(t *testing.T) {
	tests := []struct {
		domain string
		want   float64
	}{
		{"wikipedia.org", 0.10},
		{"en.wikipedia.org", 0.10},
		{"www.github.com", 0.08},
		{"randomblog.example", 0.02},
	}

	for _, tt := range tests {
		if got := DomainBoost(tt.domain); got != tt.want {
			t.Errorf("DomainBoost(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}

func TestRecordRejectsInvalidURL(t *testing.T) {
	svc, _, _ := newTestCitationService()
	if _, err := svc.Record(context.Background(), "not a url", uuid.New(), nil); err == nil {
		t.Fatal("expected error for unparseable url")
	}
}

func TestRecordCollapsesSameURL(t *testing.T) {
	svc, cs, _ := newTestCitationService()
	conv := uuid.New()
	entityA, entityB := uuid.New(), uuid.New()

	first, err := svc.Record(context.Background(), "https://arxiv.org/abs/1234.5678", conv, []uuid.UUID{entityA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Record(context.Background(), "https://arxiv.org/abs/1234.5678", conv, []uuid.UUID{entityA, entityB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("same url must update the existing record, not create a new one")
	}
	if second.CitedCount != 2 {
		t.Errorf("cited count = %d, want 2", second.CitedCount)
	}
	if len(second.RelatedEntityIDs) != 2 {
		t.Errorf("related set should union without duplicates, got %v", second.RelatedEntityIDs)
	}

	all, _ := cs.ListAll(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected a single citation record, got %d", len(all))
	}
}

func TestRecordBoostsRelatedEntities(t *testing.T) {
	svc, _, es := newTestCitationService()

	entity := &domain.CanonicalEntity{ID: uuid.New(), CanonicalText: "researches belief revision", Type: domain.EntityTypeDomain}
	entity.Belief = beliefAt(2, 0, 365)
	if err := es.Create(context.Background(), entity); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Record(context.Background(), "https://arxiv.org/abs/1234.5678", uuid.New(), []uuid.UUID{entity.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := es.GetByID(context.Background(), entity.ID)
	if got.Belief.ExternalCorroboration != 0.10 {
		t.Errorf("corroboration = %v, want 0.10", got.Belief.ExternalCorroboration)
	}
}

func TestCorroborationCapped(t *testing.T) {
	svc, _, es := newTestCitationService()

	entity := &domain.CanonicalEntity{ID: uuid.New(), CanonicalText: "researches belief revision", Type: domain.EntityTypeDomain}
	entity.Belief = beliefAt(2, 0, 365)
	if err := es.Create(context.Background(), entity); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.Record(context.Background(), "https://arxiv.org/abs/1234.5678", uuid.New(), []uuid.UUID{entity.ID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, _ := es.GetByID(context.Background(), entity.ID)
	if got.Belief.ExternalCorroboration != domain.MaxExternalCorroboration {
		t.Errorf("corroboration = %v, want capped at %v", got.Belief.ExternalCorroboration, domain.MaxExternalCorroboration)
	}
}

func TestRecordSkipsUnknownEntities(t *testing.T) {
	svc, cs, _ := newTestCitationService()

	// The citation itself must still be recorded.
	if _, err := svc.Record(context.Background(), "https://github.com/some/repo", uuid.New(), []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := cs.ListAll(context.Background())
	if len(all) != 1 {
		t.Errorf("citation should persist despite unknown entity, got %d records", len(all))
	}
}

func TestReconcileAllMergesDuplicates(t *testing.T) {
	svc, cs, _ := newTestCitationService()
	entityA, entityB := uuid.New(), uuid.New()

	dupes := []*domain.CitationReference{
		{ID: uuid.New(), URL: "https://nature.com/article", Domain: "nature.com", CitedCount: 2, RelatedEntityIDs: []uuid.UUID{entityA}},
		{ID: uuid.New(), URL: "https://nature.com/article", Domain: "nature.com", CitedCount: 3, RelatedEntityIDs: []uuid.UUID{entityA, entityB}},
		{ID: uuid.New(), URL: "https://nature.com/other", Domain: "nature.com", CitedCount: 1},
	}
	for _, c := range dupes {
		if err := cs.Create(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.ReconcileAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, _ := cs.ListAll(context.Background())
	if len(all) != 2 {
		t.Fatalf("expected 2 records after dedup, got %d", len(all))
	}
	for _, c := range all {
		if c.URL == "https://nature.com/article" {
			if c.CitedCount != 5 {
				t.Errorf("merged count = %d, want 5", c.CitedCount)
			}
			if len(c.RelatedEntityIDs) != 2 {
				t.Errorf("merged related set = %v, want both entities", c.RelatedEntityIDs)
			}
		}
	}
}
