package service

import (
	"context"
	"sync"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chunks of one conversation extracted concurrently.
const defaultExtractionWorkers = 4

// ImportItem is one pasted or uploaded conversation.
type ImportItem struct {
	Text         string          `json:"text"`
	PlatformHint domain.Platform `json:"platform_hint,omitempty"`
}

// ConversationResult reports one conversation's outcome inside a batch.
type ConversationResult struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Platform       domain.Platform `json:"platform"`
	ChunkCount     int             `json:"chunk_count"`
	Extractions    int             `json:"extractions"`
	Enriched       bool            `json:"enriched"`
	Error          string          `json:"error,omitempty"`
}

// ImportResult aggregates a whole batch. Enriched is false only when the
// entire batch produced no usable signal after the full fallback ladder.
type ImportResult struct {
	Conversations []ConversationResult `json:"conversations"`
	Reconcile     *ReconcileResult     `json:"reconcile,omitempty"`
	Enriched      bool                 `json:"enriched"`
	Cancelled     bool                 `json:"cancelled"`
}

// ImporterService runs the pipeline end to end: chunk, extract, filter,
// persist, reconcile. Extraction fans out across chunks; reconciliation is
// serialized because the entity set is a single-writer resource.
type ImporterService struct {
	chunker         *ChunkerService
	extractor       *ExtractorService
	filter          *FilterService
	reconciler      *ReconcilerService
	extractionStore domain.ExtractionStore
	logger          *zap.Logger

	Workers int
	now     func() time.Time

	reconcileMu sync.Mutex
}

func NewImporterService(
	chunker *ChunkerService,
	extractor *ExtractorService,
	filter *FilterService,
	reconciler *ReconcilerService,
	extractionStore domain.ExtractionStore,
	logger *zap.Logger,
) *ImporterService {
	return &ImporterService{
		chunker:         chunker,
		extractor:       extractor,
		filter:          filter,
		reconciler:      reconciler,
		extractionStore: extractionStore,
		logger:          logger,
		Workers:         defaultExtractionWorkers,
		now:             time.Now,
	}
}

func (s *ImporterService) SetClock(now func() time.Time) { s.now = now }

// Import processes a batch of conversations. Failures are isolated per
// conversation: one bad conversation degrades the result instead of aborting
// the batch. Cancellation stops scheduling further conversations but keeps
// everything already reconciled; re-importing the same text later is
// idempotent at the reconciliation tier.
func (s *ImporterService) Import(ctx context.Context, items []ImportItem) (*ImportResult, error) {
	result := &ImportResult{}
	var batch []domain.RawExtraction

	for _, item := range items {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		convResult, extractions := s.importConversation(ctx, item)
		result.Conversations = append(result.Conversations, convResult)
		batch = append(batch, extractions...)
	}

	if len(batch) > 0 {
		s.reconcileMu.Lock()
		rec, err := s.reconciler.Reconcile(ctx, batch)
		s.reconcileMu.Unlock()
		if err != nil {
			// Extractions are already persisted; surface the error with the
			// partial result preserved.
			result.Reconcile = rec
			result.Enriched = rec != nil && (rec.EntitiesCreated > 0 || rec.EntitiesLinked > 0)
			return result, err
		}
		result.Reconcile = rec
	}

	for _, c := range result.Conversations {
		if c.Enriched {
			result.Enriched = true
			break
		}
	}
	return result, nil
}

func (s *ImporterService) importConversation(ctx context.Context, item ImportItem) (ConversationResult, []domain.RawExtraction) {
	conv := s.chunker.Process(item.Text, item.PlatformHint)
	convResult := ConversationResult{
		ConversationID: conv.ID,
		Platform:       conv.Platform,
		ChunkCount:     len(conv.Chunks),
	}

	filtered := s.extractChunks(ctx, conv)
	filtered = s.filter.Dedup(filtered)

	conversationTime := conv.ImportedAt
	if conv.ContentDate != nil {
		conversationTime = *conv.ContentDate
	}

	var extractions []domain.RawExtraction
	for _, fc := range filtered {
		x := domain.RawExtraction{
			ID:                    uuid.New(),
			Text:                  fc.Text,
			Type:                  fc.TypeHint,
			SourceConversationID:  conv.ID,
			SourceChunkID:         fc.SourceChunkID,
			ConversationTimestamp: conversationTime,
			ExtractionTimestamp:   s.now(),
			Attribution:           fc.Attribution,
			RawConfidence:         fc.Confidence,
			EntityVerified:        fc.Verified,
			IsActive:              true,
		}
		if err := s.extractionStore.Create(ctx, &x); err != nil {
			s.logger.Warn("failed to persist extraction",
				zap.String("conversation_id", conv.ID.String()),
				zap.Error(err))
			convResult.Error = err.Error()
			continue
		}
		extractions = append(extractions, x)
	}

	convResult.Extractions = len(extractions)
	convResult.Enriched = len(extractions) > 0

	s.logger.Info("conversation imported",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("platform", string(conv.Platform)),
		zap.Int("chunks", len(conv.Chunks)),
		zap.Int("extractions", len(extractions)))

	return convResult, extractions
}

// extractChunks fans extraction out across the conversation's chunks. The
// work is read-only against the corpus, so chunks can run in parallel; a
// chunk whose extraction fails on both ladder rungs just contributes nothing.
func (s *ImporterService) extractChunks(ctx context.Context, conv *domain.Conversation) []FilteredCandidate {
	workers := s.Workers
	if workers <= 0 {
		workers = defaultExtractionWorkers
	}

	perChunk := make([][]FilteredCandidate, len(conv.Chunks))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range conv.Chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			chunk := conv.Chunks[i]
			candidates, err := s.extractor.Extract(ctx, chunk, conv.PrimingTopics)
			if err != nil {
				s.logger.Warn("chunk extraction failed",
					zap.String("chunk_id", chunk.ID),
					zap.Error(err))
				return
			}
			perChunk[i] = s.filter.Filter(candidates, chunk)
		}(i)
	}
	wg.Wait()

	var all []FilteredCandidate
	for _, fc := range perChunk {
		all = append(all, fc...)
	}
	return all
}
