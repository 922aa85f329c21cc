package vectorsearch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("vector search is not configured")

// Query is a free-text similarity search with an optional metadata filter.
type Query struct {
	Text   string         `json:"query"`
	TopK   int            `json:"top_k,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
}

// Hit is one scored passage, labelled by Classify.
type Hit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Source   string         `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Classification
}

// Searcher finds passages similar to a query.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// FallbackSearcher queries primary and answers from fallback when primary
// fails or is absent.
type FallbackSearcher struct {
	primary  Searcher
	fallback Searcher
	logger   *zap.Logger
}

func NewFallbackSearcher(primary, fallback Searcher, logger *zap.Logger) *FallbackSearcher {
	return &FallbackSearcher{primary: primary, fallback: fallback, logger: logger}
}

func (s *FallbackSearcher) Search(ctx context.Context, q Query) ([]Hit, error) {
	if s.primary != nil {
		hits, err := s.primary.Search(ctx, q)
		if err == nil {
			return hits, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Vector search failed, using local corpus", zap.Error(err))
	}
	return s.fallback.Search(ctx, q)
}

// Primary reports whether a remote index is wired.
func (s *FallbackSearcher) Primary() bool { return s.primary != nil }

func matchesFilter(meta map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		if got, ok := meta[k]; !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
