package chunker

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

const maxSplitHeadingLevel = 3

type Config struct {
	ChunkSize            int
	ChunkOverlap         int
	FallbackChunkSize    int
	FallbackChunkOverlap int
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:            1024,
		ChunkOverlap:         200,
		FallbackChunkSize:    512,
		FallbackChunkOverlap: 60,
	}
}

type Chunker struct {
	cfg        Config
	structural func(content string) ([]string, error)
}

func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = clampOverlap(def.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.FallbackChunkSize <= 0 {
		cfg.FallbackChunkSize = def.FallbackChunkSize
	}
	if cfg.FallbackChunkOverlap < 0 || cfg.FallbackChunkOverlap >= cfg.FallbackChunkSize {
		cfg.FallbackChunkOverlap = clampOverlap(def.FallbackChunkOverlap, cfg.FallbackChunkSize)
	}
	return &Chunker{cfg: cfg, structural: splitHeaderSections}
}

func clampOverlap(overlap, size int) int {
	if overlap < size {
		return overlap
	}
	return size / 5
}

// Split cuts content into overlapping windows in reading order. Header
// sections are windowed one by one. When the header split fails the whole
// content is windowed with the smaller fallback size.
func (c *Chunker) Split(ctx context.Context, content string) []string {
	if content == "" {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	chunks, err := c.splitStructured(content)
	if err != nil {
		logger.Warn("structural split failed, using fallback windows",
			zap.Int("size", len(content)),
			zap.Error(err),
		)
		chunks = window(content, c.cfg.FallbackChunkSize, c.cfg.FallbackChunkOverlap)
	}
	if len(chunks) == 0 {
		chunks = []string{content}
	}
	logger.Debug("content split", zap.Int("size", len(content)), zap.Int("chunks", len(chunks)))
	return chunks
}

func (c *Chunker) splitStructured(content string) ([]string, error) {
	sections, err := c.structural(content)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, section := range sections {
		out = append(out, window(section, c.cfg.ChunkSize, c.cfg.ChunkOverlap)...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no text outside headers: %w", appErr.ErrMalformedInput)
	}
	return out, nil
}

func window(content string, size, overlap int) []string {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	parts, err := splitter.SplitText(content)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitHeaderSections returns the text between ATX headings of level 1 to 3.
// Heading lines themselves are dropped.
func splitHeaderSections(content string) (sections []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			sections = nil
			err = fmt.Errorf("parse markdown: %v: %w", r, appErr.ErrMalformedInput)
		}
	}()
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	type span struct{ start, end int }
	var headings []span
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		h, ok := node.(*ast.Heading)
		if !ok || h.Level > maxSplitHeadingLevel || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		start := bytes.LastIndexByte(source[:seg.Start], '\n') + 1
		if !isATXHeadingLine(source[start:seg.Start]) {
			continue
		}
		end := len(source)
		if nl := bytes.IndexByte(source[seg.Stop:], '\n'); nl >= 0 {
			end = seg.Stop + nl + 1
		}
		headings = append(headings, span{start: start, end: end})
	}

	prev := 0
	for _, h := range headings {
		if body := strings.TrimSpace(string(source[prev:h.start])); body != "" {
			sections = append(sections, body)
		}
		prev = h.end
	}
	if body := strings.TrimSpace(string(source[prev:])); body != "" {
		sections = append(sections, body)
	}
	return sections, nil
}

func isATXHeadingLine(prefix []byte) bool {
	trimmed := bytes.TrimLeft(prefix, " ")
	return len(prefix)-len(trimmed) <= 3 && bytes.HasPrefix(trimmed, []byte("#"))
}
