package service

import (
	"context"
	"errors"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultExtractionTimeout = 30 * time.Second

// ExtractorService drives the inference boundary for one chunk: it paces and
// races the primary provider against the timeout, and walks the fallback
// ladder down to the heuristic provider, which never fails.
type ExtractorService struct {
	primary  domain.ExtractionClient
	fallback domain.ExtractionClient
	limiter  *rate.Limiter
	logger   *zap.Logger

	Timeout time.Duration
}

// NewExtractorService wires the ladder. primary may be nil (capability absent
// or disabled); fallback must never be nil. limiter may be nil to disable
// pacing.
func NewExtractorService(primary, fallback domain.ExtractionClient, limiter *rate.Limiter, logger *zap.Logger) *ExtractorService {
	return &ExtractorService{
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		logger:   logger,
		Timeout:  DefaultExtractionTimeout,
	}
}

// Extract returns candidates for the chunk. A primary failure or an empty
// primary result falls through to the heuristic provider; only a failure of
// both surfaces an error, and the heuristic provider never fails.
func (s *ExtractorService) Extract(ctx context.Context, chunk domain.Chunk, primingTopics []string) ([]domain.RawCandidate, error) {
	candidates, err := s.callPrimary(ctx, chunk, primingTopics)
	if err == nil && len(candidates) > 0 {
		return candidates, nil
	}

	if err != nil {
		s.logger.Warn("primary extraction failed, using fallback",
			zap.String("chunk_id", chunk.ID),
			zap.Error(err))
	} else {
		s.logger.Debug("primary extraction returned nothing, using fallback",
			zap.String("chunk_id", chunk.ID))
	}

	return s.fallback.ExtractFacts(ctx, chunk, primingTopics)
}

type extractResult struct {
	candidates []domain.RawCandidate
	err        error
}

// callPrimary races the provider call against the timeout. The loser is
// cancelled; exceeding the bound surfaces ErrExtractionTimeout with no retry
// at this layer.
func (s *ExtractorService) callPrimary(ctx context.Context, chunk domain.Chunk, primingTopics []string) ([]domain.RawCandidate, error) {
	if s.primary == nil {
		return nil, domain.ErrExtractionUnavailable
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, domain.ErrExtractionUnavailable
		}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan extractResult, 1)
	go func() {
		candidates, err := s.primary.ExtractFacts(callCtx, chunk, primingTopics)
		resultCh <- extractResult{candidates, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, domain.ErrExtractionTimeout
			}
			return nil, res.err
		}
		return res.candidates, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrExtractionTimeout
		}
		return nil, callCtx.Err()
	}
}
