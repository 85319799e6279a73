package extractor

import (
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

type frutalExtractor struct{}

func (frutalExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(standardColumns...)
	for _, m := range frutalRow.FindAllStringSubmatch(content, -1) {
		t.Append(model.Row{
			ColItem:       strings.TrimSpace(m[1]),
			ColDescricao:  strings.TrimSpace(m[4]),
			ColQuantidade: strings.TrimSpace(m[2]),
			ColUnidade:    strings.TrimSpace(m[5]),
			ColValorUnit:  strings.TrimSpace(m[3]),
			ColValorTotal: strings.TrimSpace(m[6]),
		})
	}
	return t, nil
}
