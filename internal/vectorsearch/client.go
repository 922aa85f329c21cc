package vectorsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const apiVersion = "2025-01"

// Client queries a hosted index with integrated embedding through its
// records search endpoint.
type Client struct {
	httpClient *resty.Client
	namespace  string
	topK       int
	logger     *zap.Logger
}

type searchRequest struct {
	Query  searchQuery `json:"query"`
	Fields []string    `json:"fields,omitempty"`
}

type searchQuery struct {
	Inputs map[string]string `json:"inputs"`
	TopK   int               `json:"top_k"`
	Filter map[string]any    `json:"filter,omitempty"`
}

type searchResponse struct {
	Result struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Fields map[string]any `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient returns ErrNotConfigured when key or host is missing.
func NewClient(cfg config.VectorConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	host := cfg.IndexHost
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(host, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Api-Key", cfg.APIKey).
		SetHeader("X-Pinecone-API-Version", apiVersion).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Client{httpClient: httpClient, namespace: cfg.Namespace, topK: topK, logger: logger}, nil
}

func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty query")
	}
	topK := q.TopK
	if topK <= 0 {
		topK = c.topK
	}
	req := searchRequest{
		Query: searchQuery{
			Inputs: map[string]string{"text": q.Text},
			TopK:   topK,
			Filter: q.Filter,
		},
	}

	var result searchResponse
	var failure apiError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("namespace", c.namespace).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/records/namespaces/{namespace}/search")
	if err != nil {
		return nil, fmt.Errorf("failed to call vector index: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("vector index error: %s (status: %d)", msg, resp.StatusCode())
	}

	hits := make([]Hit, 0, len(result.Result.Hits))
	for _, h := range result.Result.Hits {
		text := firstString(h.Fields, "text", "chunk_text", "content")
		hit := Hit{
			ID:             h.ID,
			Score:          h.Score,
			Text:           text,
			Source:         firstString(h.Fields, "source", "document"),
			Metadata:       h.Fields,
			Classification: Classify(text),
		}
		hits = append(hits, hit)
	}
	c.logger.Debug("Vector search completed",
		zap.Int("hits", len(hits)),
		zap.Int("top_k", topK),
	)
	return hits, nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
