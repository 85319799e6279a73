package extractor

import (
	"fmt"
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

var cavalcanteColumns = []string{"Item", "Descrição", "Quant", "Unid", "Processo Número"}

// minCavalcanteMatches guards against the row pattern latching onto stray
// numbers in prose; fewer matches than this yields an empty table.
const minCavalcanteMatches = 5

// cavalcanteExtractor reads multi-line records: item number, a description
// that may wrap, then quantity and a 2-3 letter unit closing the line.
type cavalcanteExtractor struct{}

func (cavalcanteExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(cavalcanteColumns...)
	processo := ""
	if m := cavalcanteHeader.FindStringSubmatch(content); m != nil {
		processo = m[1]
	}
	matches := cavalcanteRow.FindAllStringSubmatch(content, -1)
	if len(matches) < minCavalcanteMatches {
		return t, nil
	}
	for _, m := range matches {
		item, err := normalizeInt(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse item %q: %w", m[1], err)
		}
		qty, err := normalizeInt(m[3])
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", m[3], err)
		}
		t.Append(model.Row{
			"Item":            item,
			"Descrição":       strings.ReplaceAll(strings.TrimSpace(m[2]), "\n", " "),
			"Quant":           qty,
			"Unid":            strings.TrimSpace(m[4]),
			"Processo Número": processo,
		})
	}
	return t, nil
}
