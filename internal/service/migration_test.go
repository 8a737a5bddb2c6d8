package service

import (
	"context"
	"testing"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestMigration(ls domain.LegacyStore) (*MigrationService, *mockEntityStore, *mockStateStore) {
	es := newMockEntityStore()
	ss := &mockStateStore{}
	svc := NewMigrationService(ls, es, ss, zap.NewNop())
	svc.SetClock(func() time.Time { return scoreNow })
	return svc, es, ss
}

func legacyFact(text, category string) domain.LegacyFact {
	return domain.LegacyFact{
		ID:        uuid.New(),
		Text:      text,
		Category:  category,
		CreatedAt: scoreNow.AddDate(0, -1, 0),
	}
}

func TestMigrationRunsOnce(t *testing.T) {
	ls := &mockLegacyStore{facts: []domain.LegacyFact{
		legacyFact("senior backend engineer", "role"),
		legacyFact("learning rust", "goal"),
	}}
	svc, es, ss := newTestMigration(ls)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entities, _ := es.ListActive(context.Background())
	if len(entities) != 2 {
		t.Fatalf("expected 2 migrated entities, got %d", len(entities))
	}
	state, _ := ss.Get(context.Background())
	if state.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", state.SchemaVersion, domain.CurrentSchemaVersion)
	}

	// Re-entry must be a silent no-op, not a duplicate import.
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("re-entry should be silent: %v", err)
	}
	entities, _ = es.ListActive(context.Background())
	if len(entities) != 2 {
		t.Errorf("re-entry duplicated entities: got %d", len(entities))
	}
}

func TestMigrationCategoryMapping(t *testing.T) {
	ls := &mockLegacyStore{facts: []domain.LegacyFact{
		legacyFact("senior backend engineer", "role"),
		legacyFact("initech", "work"),
		legacyFact("enjoys bouldering", "interest"),
		legacyFact("loves spicy ramen", "mystery-category"),
	}}
	svc, es, _ := newTestMigration(ls)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]domain.EntityType{
		"senior backend engineer": domain.EntityTypeIdentity,
		"initech":                 domain.EntityTypeCompany,
		"enjoys bouldering":       domain.EntityTypePreference,
		// Unknown category falls through to text classification.
		"loves spicy ramen": domain.EntityTypePreference,
	}
	entities, _ := es.ListActive(context.Background())
	for _, e := range entities {
		if e.Type != want[e.CanonicalText] {
			t.Errorf("%q migrated as %s, want %s", e.CanonicalText, e.Type, want[e.CanonicalText])
		}
	}
}

func TestMigrationSkipsCollidingFacts(t *testing.T) {
	ls := &mockLegacyStore{facts: []domain.LegacyFact{
		legacyFact("Enjoys Bouldering", "interest"),
	}}
	svc, es, _ := newTestMigration(ls)

	existing := &domain.CanonicalEntity{
		ID:            uuid.New(),
		CanonicalText: "enjoys bouldering",
		Type:          domain.EntityTypePreference,
		Belief:        beliefAt(3, 0, 180),
	}
	if err := es.Create(context.Background(), existing); err != nil {
		t.Fatal(err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entities, _ := es.ListActive(context.Background())
	if len(entities) != 1 {
		t.Fatalf("colliding fact should be skipped, got %d entities", len(entities))
	}
	got, _ := es.GetByID(context.Background(), existing.ID)
	if got.Belief.SupportCount != 3 {
		t.Errorf("existing entity must be untouched, support = %d", got.Belief.SupportCount)
	}
}

func TestMigrationWithoutLegacyStore(t *testing.T) {
	svc, es, ss := newTestMigration(nil)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entities, _ := es.ListActive(context.Background()); len(entities) != 0 {
		t.Errorf("no legacy store should migrate nothing, got %d", len(entities))
	}
	state, _ := ss.Get(context.Background())
	if state.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("version must still advance, got %d", state.SchemaVersion)
	}
}

func TestMigrationSkipsEmptyFacts(t *testing.T) {
	ls := &mockLegacyStore{facts: []domain.LegacyFact{
		legacyFact("   ", "interest"),
		legacyFact("enjoys bouldering", "interest"),
	}}
	svc, es, _ := newTestMigration(ls)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entities, _ := es.ListActive(context.Background()); len(entities) != 1 {
		t.Errorf("blank fact should be skipped, got %d entities", len(entities))
	}
}
