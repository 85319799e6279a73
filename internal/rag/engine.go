// Package rag answers questions about ingested documents using the chunks
// closest to the question as context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/chunker"
	"github.com/xxxsen/licitarag/internal/filestore"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

const (
	DefaultConcurrency = 10
	DefaultTopK        = 1
	DefaultMaxTokens   = 500

	systemPrompt = "se comporte como um agente em uma empresa de licitacoes para medicamentos hospitalares e responda as seguintes perguntas com a maior precisao:"
)

type Options struct {
	Concurrency      int
	MaxContextTokens int
	RestoreOnMiss    bool
}

type ContextItem struct {
	Index      int     `json:"index"`
	Similarity float32 `json:"similarity"`
	Text       string  `json:"text"`
}

type Answer struct {
	Response string        `json:"response"`
	Context  []ContextItem `json:"context"`
}

type Engine struct {
	chunker   *chunker.Chunker
	embedder  ai.IEmbedder
	completer ai.ICompleter
	store     *DocumentStore
	blobs     filestore.Store
	opts      Options
	tokenizer func() (tokenizer, error)
}

// NewEngine wires the engine. blobs may be nil, in which case no snapshot
// is written or restored.
func NewEngine(ch *chunker.Chunker, embedder ai.IEmbedder, completer ai.ICompleter, store *DocumentStore, blobs filestore.Store, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Engine{
		chunker:   ch,
		embedder:  embedder,
		completer: completer,
		store:     store,
		blobs:     blobs,
		opts:      opts,
		tokenizer: loadTokenizer,
	}
}

func (e *Engine) Store() *DocumentStore {
	return e.store
}

// Ingest chunks content, embeds every chunk and stores the entry under id.
// Any chunk failure fails the whole document and nothing is stored.
func (e *Engine) Ingest(ctx context.Context, id string, content string, metadata map[string]string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("document %s is empty: %w", id, appErr.ErrInvalid)
	}
	if err := e.store.Reserve(id); err != nil {
		return err
	}
	stored := false
	defer func() {
		if !stored {
			e.store.Release(id)
		}
	}()

	chunks := e.chunker.Split(ctx, content)
	embeddings, err := e.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", id, err)
	}
	entry, err := newEntry(id, chunks, embeddings, content, metadata)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", id, err)
	}
	if err := e.store.Put(entry); err != nil {
		return err
	}
	stored = true
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", id))
	logger.Info("document ingested", zap.Int("chunks", len(chunks)), zap.Int("dim", entry.Index.Dim()))

	if e.blobs != nil {
		if err := saveSnapshot(ctx, e.blobs, entry); err != nil {
			logger.Warn("save snapshot failed", zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	// One document, one vector space.
	g, gctx := errgroup.WithContext(ai.PinEmbedder(ctx))
	g.SetLimit(e.opts.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, chunk, ai.TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup returns the entry for id, restoring it from its snapshot when
// that is enabled.
func (e *Engine) Lookup(ctx context.Context, id string) (*Entry, error) {
	entry, err := e.store.Get(id)
	if err == nil {
		return entry, nil
	}
	if !appErr.IsNotFound(err) || !e.opts.RestoreOnMiss || e.blobs == nil {
		return nil, err
	}
	return e.restore(ctx, id)
}

func (e *Engine) restore(ctx context.Context, id string) (*Entry, error) {
	if err := e.store.Reserve(id); err != nil {
		if entry, gerr := e.store.Get(id); gerr == nil {
			return entry, nil
		}
		return nil, fmt.Errorf("document %s: %w", id, appErr.ErrNotFound)
	}
	entry, err := loadSnapshot(ctx, e.blobs, id)
	if err != nil {
		e.store.Release(id)
		if appErr.IsNotFound(err) {
			return nil, fmt.Errorf("document %s: %w", id, appErr.ErrNotFound)
		}
		return nil, err
	}
	if err := e.store.Put(entry); err != nil {
		e.store.Release(id)
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document restored from snapshot", zap.String("document_id", id), zap.Int("chunks", len(entry.Chunks)))
	return entry, nil
}

// Search returns the k chunks closest to question, best first.
func (e *Engine) Search(ctx context.Context, id string, question string, k int) ([]ContextItem, error) {
	entry, err := e.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := e.embedder.Embed(ctx, question, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	hits, err := entry.Index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	items := make([]ContextItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, ContextItem{Index: h.Index, Similarity: h.Score, Text: entry.Chunks[h.Index]})
	}
	return items, nil
}

// Answer retrieves context for question and asks the completer with one
// system persona message and one user message.
func (e *Engine) Answer(ctx context.Context, id string, question string, k int, maxTokens int) (*Answer, error) {
	items, err := e.Search(ctx, id, question, k)
	if err != nil {
		return nil, err
	}
	if e.opts.MaxContextTokens > 0 {
		tk, err := e.tokenizer()
		if err != nil {
			logutil.GetLogger(ctx).Warn("tokenizer unavailable, context not trimmed", zap.Error(err))
		} else {
			items = trimToBudget(tk, items, e.opts.MaxContextTokens)
		}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: BuildUserPrompt(question, items)},
	}
	text, err := e.completer.Complete(ctx, messages, maxTokens)
	if err != nil {
		return nil, err
	}
	return &Answer{Response: text, Context: items}, nil
}

func formatContextItem(item ContextItem) string {
	return fmt.Sprintf("[Similarity: %.4f]\n%s\n\n", item.Similarity, item.Text)
}

func BuildUserPrompt(question string, items []ContextItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(formatContextItem(item))
	}
	return fmt.Sprintf("Context from knowledge base:\n%s\n\nUser query: %s", sb.String(), question)
}
