package extractor

import (
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

// padreBernardoExtractor matches single-line records starting with a five
// digit item code. The layout carries no prices.
type padreBernardoExtractor struct{}

func (padreBernardoExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(standardColumns...)
	for _, m := range padreBernardoRow.FindAllStringSubmatch(content, -1) {
		t.Append(model.Row{
			ColItem:       strings.TrimSpace(m[1]),
			ColDescricao:  strings.TrimSpace(m[4]),
			ColQuantidade: strings.TrimSpace(m[2]),
			ColUnidade:    strings.TrimSpace(m[3]),
			ColValorUnit:  "",
			ColValorTotal: "",
		})
	}
	return t, nil
}
