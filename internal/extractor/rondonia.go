package extractor

import (
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

// rondoniaExtractor covers Presidente Médici editais.
type rondoniaExtractor struct{}

func (rondoniaExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(standardColumns...)
	for _, m := range rondoniaRow.FindAllStringSubmatch(content, -1) {
		t.Append(model.Row{
			ColItem:       strings.TrimSpace(m[1]),
			ColDescricao:  strings.TrimSpace(m[2]),
			ColQuantidade: strings.TrimSpace(m[3]),
			ColUnidade:    strings.TrimSpace(m[4]),
			ColValorUnit:  strings.TrimSpace(m[5]),
			ColValorTotal: strings.TrimSpace(m[6]),
		})
	}
	return t, nil
}
