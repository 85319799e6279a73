package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplit_HeaderSections(t *testing.T) {
	c := New(DefaultConfig())
	content := "intro line\n# Objeto\nalpha text\n## Prazo\nbeta text\n#### Detalhe\ngamma text"

	chunks := c.Split(context.Background(), content)
	require.Len(t, chunks, 3)
	require.Equal(t, "intro line", chunks[0])
	require.Equal(t, "alpha text", chunks[1])
	require.Contains(t, chunks[2], "beta text")
	require.Contains(t, chunks[2], "gamma text")
}

func TestSplit_CodeFenceIsNotHeader(t *testing.T) {
	c := New(DefaultConfig())
	content := "# Title\nbefore\n```\n# not a header\n```\nafter"

	chunks := c.Split(context.Background(), content)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0], "# not a header")
	require.Contains(t, chunks[0], "after")
}

func TestSplit_WindowsLongSections(t *testing.T) {
	c := New(DefaultConfig())
	words := make([]string, 0, 800)
	for i := 0; i < 800; i++ {
		words = append(words, "medicamento")
	}
	content := "# Itens\n" + strings.Join(words, " ")

	chunks := c.Split(context.Background(), content)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(ch), 1024)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(DefaultConfig())
	content := strings.Repeat("# A\nlorem ipsum dolor sit amet\n\n## B\nconsectetur adipiscing elit\n", 50)

	first := c.Split(context.Background(), content)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, c.Split(context.Background(), content))
	}
}

func TestSplit_FallbackOnStructuralFailure(t *testing.T) {
	c := New(DefaultConfig())
	c.structural = func(string) ([]string, error) {
		return nil, errors.New("boom")
	}
	content := strings.Repeat("palavra ", 300)

	chunks := c.Split(context.Background(), content)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(ch), 512)
	}
}

func TestSplit_NeverEmptyForNonEmptyInput(t *testing.T) {
	c := New(DefaultConfig())
	require.NotEmpty(t, c.Split(context.Background(), "# Only a heading"))
	require.Equal(t, []string{"   "}, c.Split(context.Background(), "   "))
	require.Empty(t, c.Split(context.Background(), ""))
}

func TestNew_FixesInvalidConfig(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 200})
	require.Equal(t, 100, c.cfg.ChunkSize)
	require.Equal(t, 20, c.cfg.ChunkOverlap)
	require.Equal(t, 512, c.cfg.FallbackChunkSize)
	require.Equal(t, 60, c.cfg.FallbackChunkOverlap)
}
