package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/xxxsen/licitarag/internal/metadata"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/rag"
)

type ChatService struct {
	engine           *rag.Engine
	meta             *metadata.Extractor
	defaultTopK      int
	defaultMaxTokens int
}

func NewChatService(engine *rag.Engine, meta *metadata.Extractor, topK, maxTokens int) *ChatService {
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = rag.DefaultMaxTokens
	}
	return &ChatService{engine: engine, meta: meta, defaultTopK: topK, defaultMaxTokens: maxTokens}
}

func (s *ChatService) Ask(ctx context.Context, id, question string, k, maxTokens int) (*rag.Answer, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(question) == "" {
		return nil, appErr.ErrInvalid
	}
	if k <= 0 {
		k = s.defaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = s.defaultMaxTokens
	}
	return s.engine.Answer(ctx, id, question, k, maxTokens)
}

// BiddingInfo extracts the bidding checklist from an ingested document and
// adds the municipality and item count found at ingest.
func (s *ChatService) BiddingInfo(ctx context.Context, id string) (map[string]interface{}, error) {
	entry, err := s.engine.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.meta.BiddingInfo(ctx, entry.Content)
	if err != nil {
		return nil, err
	}
	info["municipio"] = entry.Metadata["municipality"]
	count, _ := strconv.Atoi(entry.Metadata["item_count"])
	info["number_itens"] = count
	return info, nil
}
