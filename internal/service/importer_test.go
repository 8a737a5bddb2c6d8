package service

import (
	"context"
	"testing"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/llm"
	"go.uber.org/zap"
)

func newTestImporter(primary, fallback domain.ExtractionClient) (*ImporterService, *mockEntityStore, *mockExtractionStore) {
	es := newMockEntityStore()
	xs := newMockExtractionStore()
	ms := newMockMergeStore()

	chunker := NewChunkerService(zap.NewNop())
	chunker.SetClock(func() time.Time { return scoreNow })
	extractor := NewExtractorService(primary, fallback, nil, zap.NewNop())
	reconciler := NewReconcilerService(es, xs, ms, zap.NewNop())
	reconciler.SetClock(func() time.Time { return scoreNow })

	imp := NewImporterService(chunker, extractor, NewFilterService(zap.NewNop()), reconciler, xs, zap.NewNop())
	imp.SetClock(func() time.Time { return scoreNow })
	return imp, es, xs
}

func TestImportEndToEnd(t *testing.T) {
	primary := llm.NewMockClient()
	primary.ExtractResponse = []domain.RawCandidate{
		{Text: "works as a backend engineer", Attribution: domain.AttributionUserExplicit, Confidence: 0.9},
	}
	imp, es, xs := newTestImporter(primary, llm.NewMockClient())

	result, err := imp.Import(context.Background(), []ImportItem{
		{Text: "User: I work as a backend engineer at Initech."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(result.Conversations))
	}
	conv := result.Conversations[0]
	if conv.ChunkCount != 1 || conv.Extractions != 1 || !conv.Enriched {
		t.Errorf("unexpected conversation result: %+v", conv)
	}
	if !result.Enriched {
		t.Errorf("batch with extractions must be enriched")
	}
	if result.Reconcile == nil || result.Reconcile.EntitiesCreated != 1 {
		t.Fatalf("expected 1 created entity, got %+v", result.Reconcile)
	}

	entities, _ := es.ListActive(context.Background())
	if len(entities) != 1 {
		t.Fatalf("entity count = %d, want 1", len(entities))
	}
	if len(entities[0].SupportingExtractionIDs) != 1 {
		t.Fatalf("expected 1 supporting extraction")
	}
	x, err := xs.GetByID(context.Background(), entities[0].SupportingExtractionIDs[0])
	if err != nil {
		t.Fatalf("supporting extraction not persisted: %v", err)
	}
	if !x.IsActive || x.CanonicalEntityID == nil || *x.CanonicalEntityID != entities[0].ID {
		t.Errorf("extraction not linked back to its entity: %+v", x)
	}
}

func TestImportReimportIsIdempotent(t *testing.T) {
	primary := llm.NewMockClient()
	primary.ExtractResponse = []domain.RawCandidate{
		{Text: "works as a backend engineer", Attribution: domain.AttributionUserExplicit, Confidence: 0.9},
	}
	imp, es, _ := newTestImporter(primary, llm.NewMockClient())

	items := []ImportItem{{Text: "User: I work as a backend engineer at Initech."}}
	if _, err := imp.Import(context.Background(), items); err != nil {
		t.Fatal(err)
	}
	if _, err := imp.Import(context.Background(), items); err != nil {
		t.Fatal(err)
	}

	entities, _ := es.ListActive(context.Background())
	if len(entities) != 1 {
		t.Fatalf("re-import created duplicates: %d entities", len(entities))
	}
	if entities[0].Belief.SupportCount != 2 {
		t.Errorf("support count = %d, want 2", entities[0].Belief.SupportCount)
	}
}

func TestImportCancelledContext(t *testing.T) {
	imp, _, xs := newTestImporter(llm.NewMockClient(), llm.NewMockClient())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := imp.Import(ctx, []ImportItem{{Text: "User: hello there."}})
	if err != nil {
		t.Fatalf("cancellation is not an error: %v", err)
	}
	if !result.Cancelled {
		t.Errorf("result should be marked cancelled")
	}
	if len(result.Conversations) != 0 {
		t.Errorf("no conversation should be processed after cancel, got %d", len(result.Conversations))
	}
	if len(xs.extractions) != 0 {
		t.Errorf("nothing should be persisted, got %d extractions", len(xs.extractions))
	}
}

func TestImportNothingExtractable(t *testing.T) {
	// Both ladder rungs return nothing.
	imp, es, _ := newTestImporter(llm.NewMockClient(), llm.NewMockClient())

	result, err := imp.Import(context.Background(), []ImportItem{{Text: "User: ok.\nAssistant: ok."}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Enriched {
		t.Errorf("batch without extractions must not be enriched")
	}
	if entities, _ := es.ListActive(context.Background()); len(entities) != 0 {
		t.Errorf("no entities expected, got %d", len(entities))
	}
}

func TestImportIsolatesBadConversation(t *testing.T) {
	calls := 0
	primary := llm.NewMockClient()
	primary.ExtractFunc = func(ctx context.Context, chunk domain.Chunk, primingTopics []string) ([]domain.RawCandidate, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return []domain.RawCandidate{
			{Text: "enjoys hiking on weekends", Attribution: domain.AttributionUserExplicit, Confidence: 0.8},
		}, nil
	}
	fallback := llm.NewMockClient()
	fallback.ExtractError = context.DeadlineExceeded

	imp, es, _ := newTestImporter(primary, fallback)

	result, err := imp.Import(context.Background(), []ImportItem{
		{Text: "User: first conversation text here."},
		{Text: "User: I really enjoy hiking on weekends."},
	})
	if err != nil {
		t.Fatalf("one failing conversation must not abort the batch: %v", err)
	}
	if len(result.Conversations) != 2 {
		t.Fatalf("expected 2 conversation results, got %d", len(result.Conversations))
	}
	if result.Conversations[0].Enriched {
		t.Errorf("failed conversation should not be enriched")
	}
	if !result.Conversations[1].Enriched || !result.Enriched {
		t.Errorf("surviving conversation should enrich the batch")
	}
	if entities, _ := es.ListActive(context.Background()); len(entities) != 1 {
		t.Errorf("entity count = %d, want 1", len(entities))
	}
}
