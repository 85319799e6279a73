package matcher

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/filestore"
	"github.com/xxxsen/licitarag/internal/vectorindex"
)

// Catalog is an immutable snapshot of the known products. Row i of the
// index belongs to names[i].
type Catalog struct {
	names []string
	index *vectorindex.Index
}

func NewCatalog(names []string, vectors [][]float32) (*Catalog, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}
	if len(names) != len(vectors) {
		return nil, fmt.Errorf("catalog has %d names but %d embeddings", len(names), len(vectors))
	}
	idx, err := vectorindex.FromMatrix(vectors)
	if err != nil {
		return nil, fmt.Errorf("build catalog index: %w", err)
	}
	return &Catalog{names: append([]string(nil), names...), index: idx}, nil
}

func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) Dim() int {
	return c.index.Dim()
}

// Best returns the closest product to query.
func (c *Catalog) Best(query []float32) (Match, error) {
	hits, err := c.index.Search(query, 1)
	if err != nil {
		return Match{}, err
	}
	if len(hits) == 0 {
		return Match{}, fmt.Errorf("catalog is empty")
	}
	return Match{Name: c.names[hits[0].Index], Similarity: hits[0].Score}, nil
}

// ParseNames splits a newline separated name list, skipping blank lines.
func ParseNames(data []byte) []string {
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}

func EncodeMatrix(m [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeMatrix(data []byte) ([][]float32, error) {
	var m [][]float32
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadCatalog reads the names and embeddings blobs from the store.
func LoadCatalog(ctx context.Context, store filestore.Store, namesKey, embeddingsKey string) (*Catalog, error) {
	rawNames, err := filestore.ReadAll(ctx, store, namesKey)
	if err != nil {
		return nil, fmt.Errorf("read catalog names: %w", err)
	}
	rawMatrix, err := filestore.ReadAll(ctx, store, embeddingsKey)
	if err != nil {
		return nil, fmt.Errorf("read catalog embeddings: %w", err)
	}
	matrix, err := DecodeMatrix(rawMatrix)
	if err != nil {
		return nil, fmt.Errorf("decode catalog embeddings: %w", err)
	}
	return NewCatalog(ParseNames(rawNames), matrix)
}

// BuildCatalog embeds every name with at most concurrency calls in flight
// and returns the matrix aligned with names.
func BuildCatalog(ctx context.Context, embedder ai.IEmbedder, names []string, concurrency int) ([][]float32, error) {
	if concurrency <= 0 {
		concurrency = 10
	}
	matrix := make([][]float32, len(names))
	g, gctx := errgroup.WithContext(ai.PinEmbedder(ctx))
	g.SetLimit(concurrency)
	for i, name := range names {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, name, ai.TaskSemanticSimilarity)
			if err != nil {
				return fmt.Errorf("embed product %d (%s): %w", i, name, err)
			}
			matrix[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("catalog embedded", zap.Int("products", len(names)))
	return matrix, nil
}

// SaveCatalog writes both blobs.
func SaveCatalog(ctx context.Context, store filestore.Store, namesKey, embeddingsKey string, names []string, matrix [][]float32) error {
	data, err := EncodeMatrix(matrix)
	if err != nil {
		return fmt.Errorf("encode catalog embeddings: %w", err)
	}
	if err := filestore.SaveBytes(ctx, store, embeddingsKey, data); err != nil {
		return fmt.Errorf("save catalog embeddings: %w", err)
	}
	if err := filestore.SaveBytes(ctx, store, namesKey, []byte(strings.Join(names, "\n")+"\n")); err != nil {
		return fmt.Errorf("save catalog names: %w", err)
	}
	return nil
}

// Holder publishes catalog snapshots. Readers always see a complete one.
type Holder struct {
	p atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	if c != nil {
		h.p.Store(c)
	}
	return h
}

func (h *Holder) Get() *Catalog {
	return h.p.Load()
}

func (h *Holder) Set(c *Catalog) {
	h.p.Store(c)
}
