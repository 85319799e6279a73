package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type CompleterEntry struct {
	Name      string
	Completer ICompleter
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupCompleter struct {
	items []CompleterEntry
}

// NewGroupCompleter tries each completer in order until one succeeds.
func NewGroupCompleter(items []CompleterEntry) ICompleter {
	if len(items) == 0 {
		return nil
	}
	return &groupCompleter{items: items}
}

func (g *groupCompleter) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Completer == nil {
			continue
		}
		res, err := item.Completer.Complete(ctx, messages, maxTokens)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("completer failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("completer not configured")
	}
	return "", lastErr
}

type groupEmbedder struct {
	items []EmbedderEntry
}

// NewGroupEmbedder tries each embedder in order until one succeeds. Members
// should serve the same embedding model; use PinEmbedder when a batch of
// vectors must come from one member.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

type embedderPin struct {
	mu  sync.Mutex
	idx int
}

type embedderPinKey struct{}

// PinEmbedder marks ctx so every group embedder call made with it uses the
// member that served the first successful call. Later failures of that
// member are returned instead of failing over, so one batch never mixes
// vector spaces.
func PinEmbedder(ctx context.Context) context.Context {
	return context.WithValue(ctx, embedderPinKey{}, &embedderPin{idx: -1})
}

func pinFromContext(ctx context.Context) *embedderPin {
	p, _ := ctx.Value(embedderPinKey{}).(*embedderPin)
	return p
}

func (p *embedderPin) get() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// claim pins idx unless another member is already pinned, and returns the
// pinned member.
func (p *embedderPin) claim(idx int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx < 0 {
		p.idx = idx
	}
	return p.idx
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	pin := pinFromContext(ctx)
	if pin != nil {
		if idx := pin.get(); idx >= 0 {
			return g.items[idx].Embedder.Embed(ctx, text, taskType)
		}
	}
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			if pin != nil {
				if pinned := pin.claim(i); pinned != i {
					return g.items[pinned].Embedder.Embed(ctx, text, taskType)
				}
			}
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

// ModelName identifies the vector space for cache keys: every member's
// entry name together with the model it embeds with.
func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		name := item.Name
		if model := item.Embedder.ModelName(); model != "" {
			if name != "" {
				name += ":"
			}
			name += model
		}
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, "|")
}
