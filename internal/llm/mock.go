package llm

import (
	"context"

	"github.com/distillkit/distill/internal/domain"
)

// MockClient is a configurable extraction client for testing. Set the
// response fields to control what it returns.
type MockClient struct {
	ExtractResponse []domain.RawCandidate
	ExtractError    error

	// Optional per-call behavior; takes precedence over the fixed fields.
	ExtractFunc func(ctx context.Context, chunk domain.Chunk, primingTopics []string) ([]domain.RawCandidate, error)

	// Call tracking for assertions
	ExtractCalls []domain.Chunk
}

func NewMockClient() *MockClient {
	return &MockClient{
		ExtractResponse: []domain.RawCandidate{},
	}
}

func (c *MockClient) ExtractFacts(ctx context.Context, chunk domain.Chunk, primingTopics []string) ([]domain.RawCandidate, error) {
	c.ExtractCalls = append(c.ExtractCalls, chunk)
	if c.ExtractFunc != nil {
		return c.ExtractFunc(ctx, chunk, primingTopics)
	}
	if c.ExtractError != nil {
		return nil, c.ExtractError
	}
	return c.ExtractResponse, nil
}

// Reset clears recorded calls and responses.
func (c *MockClient) Reset() {
	c.ExtractResponse = []domain.RawCandidate{}
	c.ExtractError = nil
	c.ExtractFunc = nil
	c.ExtractCalls = nil
}
