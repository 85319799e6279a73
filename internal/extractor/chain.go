package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/model"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

// DefaultFallbackOrder is tried when the document's municipality is unknown.
var DefaultFallbackOrder = []string{"itumbiara", "padre bernardo", "morrinhos", "frutal"}

type Strategy struct {
	Name      string
	Extractor IExtractor
}

// AcceptFunc decides whether a strategy's output ends the chain.
type AcceptFunc func(t *model.Table) bool

// RequireRows accepts only tables with at least one row.
func RequireRows(t *model.Table) bool {
	return t.Len() > 0
}

type ChainResult struct {
	Used  string
	Tried []string
	Table *model.Table
}

// Chain runs strategies in declared order and stops at the first accepted
// result. It is the caller's fallback policy; the Dispatcher never guesses.
type Chain struct {
	strategies []Strategy
	accept     AcceptFunc
}

func NewChain(strategies []Strategy, accept AcceptFunc) *Chain {
	if accept == nil {
		accept = RequireRows
	}
	return &Chain{strategies: strategies, accept: accept}
}

// NewFallbackChain resolves each name through the dispatcher. Unknown names
// are an error so a bad config fails at startup.
func NewFallbackChain(d *Dispatcher, names []string, accept AcceptFunc) (*Chain, error) {
	if len(names) == 0 {
		names = DefaultFallbackOrder
	}
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		_, ex, err := d.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("fallback strategy: %w", err)
		}
		strategies = append(strategies, Strategy{Name: name, Extractor: ex})
	}
	return NewChain(strategies, accept), nil
}

func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name)
	}
	return names
}

func (c *Chain) Run(ctx context.Context, content string) (*ChainResult, error) {
	res := &ChainResult{}
	var errs []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Tried = append(res.Tried, s.Name)
		t, err := s.Extractor.Extract(content)
		if err != nil {
			logutil.GetLogger(ctx).Warn("fallback extractor failed", zap.String("name", s.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		if !c.accept(t) {
			logutil.GetLogger(ctx).Warn("fallback extractor rejected", zap.String("name", s.Name), zap.Int("rows", t.Len()))
			errs = append(errs, fmt.Errorf("%s: no rows", s.Name))
			continue
		}
		res.Used = s.Name
		res.Table = t
		return res, nil
	}
	cause := fmt.Errorf("tried %s: %w", strings.Join(res.Tried, ", "), appErr.ErrExtractionFailed)
	if len(errs) > 0 {
		cause = fmt.Errorf("%w: %w", cause, errors.Join(errs...))
	}
	return res, cause
}
