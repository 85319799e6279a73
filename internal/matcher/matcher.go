// Package matcher annotates extracted rows with the closest catalog product.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/model"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

const (
	NotFound         = "not_found"
	Failed           = "error"
	DefaultThreshold = 0.5
	DefaultColumn    = "Produto_base_db"

	descriptionMarker = "DESCRI"
)

var ErrNoCatalog = errors.New("product catalog not loaded")

type Match struct {
	Name       string  `json:"name"`
	Similarity float32 `json:"similarity"`
}

type Stats struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
}

type Matcher struct {
	embedder     ai.IEmbedder
	holder       *Holder
	outputColumn string
}

func New(embedder ai.IEmbedder, holder *Holder, outputColumn string) *Matcher {
	if outputColumn == "" {
		outputColumn = DefaultColumn
	}
	return &Matcher{embedder: embedder, holder: holder, outputColumn: outputColumn}
}

func (m *Matcher) Ready() bool {
	return m.holder != nil && m.holder.Get() != nil
}

func (m *Matcher) OutputColumn() string {
	return m.outputColumn
}

func (m *Matcher) SimilarityColumn() string {
	return m.outputColumn + "_similarity"
}

// MatchRow finds the closest product. A similarity at or below threshold
// yields NotFound as the name, with the raw similarity kept.
func (m *Matcher) MatchRow(ctx context.Context, description string, threshold float64) (Match, error) {
	catalog := m.holder.Get()
	if catalog == nil {
		return Match{}, ErrNoCatalog
	}
	vec, err := m.embedder.Embed(ctx, description, ai.TaskSemanticSimilarity)
	if err != nil {
		return Match{}, err
	}
	best, err := catalog.Best(vec)
	if err != nil {
		return Match{}, err
	}
	// Compare in float32, the precision the score was computed in.
	if best.Similarity <= float32(threshold) {
		return Match{Name: NotFound, Similarity: best.Similarity}, nil
	}
	return best, nil
}

// MatchTable returns a copy of t with the match name and similarity columns
// appended. Rows are processed in order; a failing row gets the Failed
// sentinel and the rest of the table still runs.
func (m *Matcher) MatchTable(ctx context.Context, t *model.Table, column string, threshold float64) (*model.Table, Stats) {
	if t == nil {
		return model.NewTable(m.outputColumn, m.SimilarityColumn()), Stats{}
	}
	out := t.Clone()
	out.AddColumn(m.outputColumn)
	out.AddColumn(m.SimilarityColumn())
	stats := Stats{Total: len(out.Rows)}
	logger := logutil.GetLogger(ctx).With(zap.String("column", column))
	for i, row := range out.Rows {
		desc, ok := row[column]
		if !ok {
			logger.Warn("row missing description column", zap.Int("row", i), zap.Error(appErr.ErrSchemaMismatch))
			m.setResult(row, Failed, 0)
			stats.Failed++
			continue
		}
		match, err := m.MatchRow(ctx, desc, threshold)
		if err != nil {
			logger.Warn("match row failed", zap.Int("row", i), zap.Error(err))
			m.setResult(row, Failed, 0)
			stats.Failed++
			continue
		}
		logger.Debug("row matched", zap.Int("row", i), zap.String("name", match.Name), zap.Float32("similarity", match.Similarity))
		m.setResult(row, match.Name, match.Similarity)
		if match.Name != NotFound {
			stats.Matched++
		}
	}
	logger.Info("table matched", zap.Int("rows", stats.Total), zap.Int("matched", stats.Matched), zap.Int("failed", stats.Failed))
	return out, stats
}

func (m *Matcher) setResult(row model.Row, name string, sim float32) {
	row[m.outputColumn] = name
	row[m.SimilarityColumn()] = strconv.FormatFloat(float64(sim), 'f', -1, 32)
}

// FindDescriptionColumn returns the first column whose name contains
// "DESCRI", case-insensitively.
func FindDescriptionColumn(t *model.Table) (string, error) {
	for _, c := range t.Columns {
		if strings.Contains(strings.ToUpper(c), descriptionMarker) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no description column in %v: %w", t.Columns, appErr.ErrSchemaMismatch)
}
