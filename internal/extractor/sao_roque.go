package extractor

import (
	"fmt"
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

var saoRoqueColumns = []string{"Item", "Qtde", "UN", "Descrição", "Valor Médio Unitário", "Valor Médio Total", "Pregão Número"}

// saoRoqueExtractor tries the strict row pattern, then a looser one, then a
// whitespace split of lines starting with two numbers. Any of them may find
// nothing.
type saoRoqueExtractor struct{}

func (saoRoqueExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(saoRoqueColumns...)
	pregao := ""
	if m := saoRoqueHeader.FindStringSubmatch(content); m != nil {
		pregao = m[1]
	}
	matches := saoRoqueRow.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		matches = saoRoqueAltRow.FindAllStringSubmatch(content, -1)
	}
	if len(matches) == 0 {
		return saoRoqueByLines(t, content, pregao)
	}
	for _, m := range matches {
		item, err := normalizeInt(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse item %q: %w", m[1], err)
		}
		t.Append(model.Row{
			"Item":                 item,
			"Qtde":                 strings.ReplaceAll(m[2], ".", ""),
			"UN":                   m[3],
			"Descrição":            strings.TrimSpace(m[4]),
			"Valor Médio Unitário": m[5],
			"Valor Médio Total":    m[6],
			"Pregão Número":        pregao,
		})
	}
	return t, nil
}

func saoRoqueByLines(t *model.Table, content, pregao string) (*model.Table, error) {
	for _, line := range strings.Split(content, "\n") {
		if !saoRoqueLine.MatchString(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 6 {
			continue
		}
		item, err := normalizeInt(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parse item %q: %w", parts[0], err)
		}
		t.Append(model.Row{
			"Item":                 item,
			"Qtde":                 strings.ReplaceAll(parts[1], ".", ""),
			"UN":                   parts[2],
			"Descrição":            strings.Join(parts[3:len(parts)-2], " "),
			"Valor Médio Unitário": parts[len(parts)-2],
			"Valor Médio Total":    parts[len(parts)-1],
			"Pregão Número":        pregao,
		})
	}
	return t, nil
}
