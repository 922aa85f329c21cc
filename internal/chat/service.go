package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/vectorsearch"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("invalid chat request")

// ErrStreamAborted wraps a failure to hand a chunk to the stream consumer.
var ErrStreamAborted = errors.New("chat stream aborted")

// maxHistory bounds the turns forwarded to the model.
const maxHistory = 20

type Request struct {
	ConversationID  string    `json:"conversation_id,omitempty"`
	Messages        []Message `json:"messages"`
	UseVectorSearch bool      `json:"use_vector_search,omitempty"`
	PatientID       string    `json:"patient_id,omitempty"`
}

// Validate requires a non-empty history of known roles ending with a user
// turn.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser || strings.TrimSpace(last.Content) == "" {
		return fmt.Errorf("%w: last message must be a non-empty user turn", ErrInvalidRequest)
	}
	return nil
}

func (r Request) question() string {
	return r.Messages[len(r.Messages)-1].Content
}

type Reply struct {
	ConversationID string             `json:"conversation_id"`
	Text           string             `json:"text"`
	Blocks         []Block            `json:"blocks"`
	References     []vectorsearch.Hit `json:"references,omitempty"`
	Fallback       bool               `json:"fallback"`
}

// Service answers chat requests from the cached dashboard data.
type Service struct {
	cache    *cache.Cache
	llm      Completer
	searcher vectorsearch.Searcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service. llm and searcher may be nil.
func NewService(c *cache.Cache, llm Completer, searcher vectorsearch.Searcher, logger *zap.Logger) *Service {
	return &Service{cache: c, llm: llm, searcher: searcher, logger: logger, now: time.Now}
}

// Respond returns a complete structured reply.
func (s *Service) Respond(ctx context.Context, req Request) (*Reply, error) {
	return s.Stream(ctx, req, nil)
}

// Stream forwards model output to onChunk as it arrives and returns the
// parsed reply once the model is done. When the model is unavailable the
// fallback summary is sent as a single chunk. onChunk may be nil.
func (s *Service) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reply := &Reply{ConversationID: req.ConversationID}
	if reply.ConversationID == "" {
		reply.ConversationID = uuid.NewString()
	}

	snap, err := s.cache.Get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Chat is answering without dashboard data", zap.Error(err))
		snap = nil
	}

	if req.UseVectorSearch && s.searcher != nil {
		hits, err := s.searcher.Search(ctx, vectorsearch.Query{Text: req.question()})
		if err != nil {
			s.logger.Warn("Reference search failed", zap.Error(err))
		}
		reply.References = hits
	}

	text, err := s.complete(ctx, snap, req, reply.References, onChunk)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrStreamAborted) {
			return nil, err
		}
		if !errors.Is(err, ErrNotConfigured) {
			s.logger.Warn("LLM unavailable, answering with summary", zap.Error(err))
		}
		var stats *domain.DashboardStats
		if snap != nil {
			stats = &snap.Stats
		}
		reply.Fallback = true
		reply.Text = FallbackSummary(stats)
		reply.Blocks = fallbackBlocks(stats)
		if onChunk != nil {
			if err := onChunk(reply.Text); err != nil {
				return nil, err
			}
		}
		return reply, nil
	}

	reply.Text, reply.Blocks = ParseTagged(text)
	if reply.Blocks == nil {
		reply.Blocks = []Block{}
	}
	return reply, nil
}

func (s *Service) complete(ctx context.Context, snap *cache.Snapshot, req Request, refs []vectorsearch.Hit, onChunk func(string) error) (string, error) {
	if s.llm == nil {
		return "", ErrNotConfigured
	}
	history := req.Messages
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	messages := withContext(BuildContext(s.now(), snap, req.PatientID, refs), history)

	if onChunk == nil {
		return s.llm.Complete(ctx, messages)
	}
	var (
		full    strings.Builder
		sent    bool
		sinkErr error
	)
	err := s.llm.Stream(ctx, messages, func(chunk string) error {
		full.WriteString(chunk)
		if sinkErr = onChunk(chunk); sinkErr != nil {
			return sinkErr
		}
		sent = true
		return nil
	})
	if sinkErr != nil {
		return "", fmt.Errorf("%w: %w", ErrStreamAborted, sinkErr)
	}
	if err != nil && sent {
		// part of the answer already reached the client; no fallback
		s.logger.Warn("LLM stream ended early", zap.Error(err))
		return full.String(), nil
	}
	return full.String(), err
}
