package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/licitarag/internal/config"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/model"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

type mapEmbedder struct {
	vectors map[string][]float32
	fail    map[string]bool
	calls   atomic.Int32
}

func (m *mapEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	m.calls.Add(1)
	if m.fail[text] {
		return nil, fmt.Errorf("provider down: %w", appErr.ErrExternalProvider)
	}
	v, ok := m.vectors[text]
	if !ok {
		return []float32{0, 0, 0, 1}, nil
	}
	return v, nil
}

func (m *mapEmbedder) ModelName() string { return "stub" }

func testCatalog(t *testing.T) *Catalog {
	c, err := NewCatalog(
		[]string{"DIPIRONA 500MG", "PARACETAMOL 750MG", "SORO FISIOLOGICO"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}},
	)
	require.NoError(t, err)
	return c
}

func TestMatchRowThresholdIsStrict(t *testing.T) {
	// Query vectors {s, 0, 0, sqrt(1-s*s)} score exactly float32(s) against {1, 0, 0, 0}.
	emb := &mapEmbedder{vectors: map[string][]float32{
		"score 0.49": {0.49, 0, 0, 0.87172246},
		"score 0.50": {0.5, 0, 0, 0.8660254},
		"score 0.51": {0.51, 0, 0, 0.8601744},
		"score 0.30": {0.3, 0, 0, 0.9539392},
	}}
	m := New(emb, NewHolder(testCatalog(t)), "")
	ctx := context.Background()

	tests := []struct {
		desc      string
		threshold float64
		want      string
		sim       float32
	}{
		{desc: "score 0.49", threshold: 0.5, want: NotFound, sim: 0.49},
		{desc: "score 0.50", threshold: 0.5, want: NotFound, sim: 0.5},
		{desc: "score 0.51", threshold: 0.5, want: "DIPIRONA 500MG", sim: 0.51},
		{desc: "score 0.30", threshold: 0.3, want: NotFound, sim: 0.3},
		{desc: "score 0.30", threshold: 0.29, want: "DIPIRONA 500MG", sim: 0.3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/threshold %.2f", tt.desc, tt.threshold), func(t *testing.T) {
			got, err := m.MatchRow(ctx, tt.desc, tt.threshold)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Name)
			require.InDelta(t, tt.sim, got.Similarity, 1e-6)
		})
	}
}

func TestMatchTableNilTable(t *testing.T) {
	m := New(&mapEmbedder{}, NewHolder(testCatalog(t)), "")
	out, stats := m.MatchTable(context.Background(), nil, "DESCRIÇÃO", 0.5)
	require.NotNil(t, out)
	require.Equal(t, 0, out.Len())
	require.Equal(t, []string{DefaultColumn, DefaultColumn + "_similarity"}, out.Columns)
	require.Equal(t, Stats{}, stats)
}

func TestMatchRowWithoutCatalog(t *testing.T) {
	m := New(&mapEmbedder{}, NewHolder(nil), "")
	require.False(t, m.Ready())
	_, err := m.MatchRow(context.Background(), "x", 0.5)
	require.ErrorIs(t, err, ErrNoCatalog)
}

func TestMatchTableKeepsGoingAfterRowFailure(t *testing.T) {
	emb := &mapEmbedder{
		vectors: map[string][]float32{
			"dipirona":    {1, 0.1, 0, 0},
			"paracetamol": {0, 1, 0, 0},
			"soro":        {0, 0, 2, 0},
			"luva":        {0, 0, 0, 1},
		},
		fail: map[string]bool{"quebrado": true},
	}
	m := New(emb, NewHolder(testCatalog(t)), "")

	src := model.NewTable("ITEM", "DESCRIÇÃO")
	for i, d := range []string{"dipirona", "paracetamol", "quebrado", "soro", "luva"} {
		src.Append(model.Row{"ITEM": fmt.Sprint(i + 1), "DESCRIÇÃO": d})
	}

	out, stats := m.MatchTable(context.Background(), src, "DESCRIÇÃO", 0.5)
	require.Equal(t, Stats{Total: 5, Matched: 3, Failed: 1}, stats)
	require.Equal(t, []string{"ITEM", "DESCRIÇÃO", "Produto_base_db", "Produto_base_db_similarity"}, out.Columns)

	names := make([]string, 0, out.Len())
	for _, r := range out.Rows {
		names = append(names, r["Produto_base_db"])
	}
	require.Equal(t, []string{"DIPIRONA 500MG", "PARACETAMOL 750MG", Failed, "SORO FISIOLOGICO", NotFound}, names)
	require.Equal(t, "1", out.Rows[1]["Produto_base_db_similarity"])
	require.Equal(t, "0", out.Rows[2]["Produto_base_db_similarity"])
	require.Equal(t, "0", out.Rows[4]["Produto_base_db_similarity"])

	// source table untouched
	require.Len(t, src.Columns, 2)
	_, ok := src.Rows[0]["Produto_base_db"]
	require.False(t, ok)
}

func TestMatchTableMissingColumn(t *testing.T) {
	m := New(&mapEmbedder{}, NewHolder(testCatalog(t)), "Produto")
	src := model.NewTable("ITEM")
	src.Append(model.Row{"ITEM": "1"})
	out, stats := m.MatchTable(context.Background(), src, "DESCRIÇÃO", 0.5)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, Failed, out.Rows[0]["Produto"])
}

func TestFindDescriptionColumn(t *testing.T) {
	col, err := FindDescriptionColumn(model.NewTable("ITEM", "Descrição do Produto", "UNID"))
	require.NoError(t, err)
	require.Equal(t, "Descrição do Produto", col)

	_, err = FindDescriptionColumn(model.NewTable("ITEM", "UNID"))
	require.True(t, errors.Is(err, appErr.ErrSchemaMismatch))
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog([]string{"a", "b"}, [][]float32{{1, 0}})
	require.Error(t, err)
	_, err = NewCatalog(nil, nil)
	require.Error(t, err)
}

func TestParseNamesSkipsBlankLines(t *testing.T) {
	names := ParseNames([]byte("DIPIRONA\r\n\n  \nSORO\n"))
	require.Equal(t, []string{"DIPIRONA", "SORO"}, names)
}

func TestBuildSaveLoadCatalog(t *testing.T) {
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	ctx := context.Background()

	names := []string{"DIPIRONA 500MG", "PARACETAMOL 750MG", "SORO FISIOLOGICO"}
	emb := &mapEmbedder{vectors: map[string][]float32{
		"DIPIRONA 500MG":    {1, 0, 0, 0},
		"PARACETAMOL 750MG": {0, 1, 0, 0},
		"SORO FISIOLOGICO":  {0, 0, 1, 0},
	}}
	matrix, err := BuildCatalog(ctx, emb, names, 2)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 1, 0, 0}, matrix[1])
	require.Equal(t, int32(3), emb.calls.Load())

	require.NoError(t, SaveCatalog(ctx, store, "catalog_names.txt", "catalog_embeddings.gob", names, matrix))
	c, err := LoadCatalog(ctx, store, "catalog_names.txt", "catalog_embeddings.gob")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, 4, c.Dim())

	best, err := c.Best([]float32{0, 0, 3, 0})
	require.NoError(t, err)
	require.Equal(t, "SORO FISIOLOGICO", best.Name)
}

func TestBuildCatalogFailsFast(t *testing.T) {
	emb := &mapEmbedder{fail: map[string]bool{"b": true}}
	_, err := BuildCatalog(context.Background(), emb, []string{"a", "b", "c"}, 1)
	require.ErrorIs(t, err, appErr.ErrExternalProvider)
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil)
	require.Nil(t, h.Get())
	c := testCatalog(t)
	h.Set(c)
	require.Same(t, c, h.Get())
}
