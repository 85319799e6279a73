package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

type ManagerConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Manager guards provider calls with a timeout and a shared rate limit and
// reports every provider failure as ErrExternalProvider.
type Manager struct {
	completer ICompleter
	embedder  IEmbedder
	limiter   *rate.Limiter
	cfg       ManagerConfig
}

func NewManager(completer ICompleter, embedder IEmbedder, cfg ManagerConfig) *Manager {
	m := &Manager{
		completer: completer,
		embedder:  embedder,
		cfg:       cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return m
}

func (m *Manager) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if m.completer == nil {
		return "", fmt.Errorf("completer not configured: %w", appErr.ErrExternalProvider)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	resp, err := m.completer.Complete(ctx, messages, maxTokens)
	if err != nil {
		return "", fmt.Errorf("complete: %w: %w", err, appErr.ErrExternalProvider)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response: %w", appErr.ErrExternalProvider)
	}
	return text, nil
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured: %w", appErr.ErrExternalProvider)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	vec, err := m.embedder.Embed(ctx, text, taskType)
	if err != nil {
		return nil, fmt.Errorf("embed: %w: %w", err, appErr.ErrExternalProvider)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty embedding: %w", appErr.ErrExternalProvider)
	}
	return vec, nil
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, m.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (m *Manager) wait(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w: %w", err, appErr.ErrExternalProvider)
	}
	return nil
}
