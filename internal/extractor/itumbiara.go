package extractor

import (
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

// itumbiaraExtractor reads records laid out one field per line: a line with
// only the item number, then description, unit, quantity, unit price and
// total price.
type itumbiaraExtractor struct{}

func (itumbiaraExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(standardColumns...)
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !itumbiaraItemLine.MatchString(line) {
			continue
		}
		item := line
		i++
		if i >= len(lines) {
			break
		}
		desc := strings.TrimSpace(lines[i])
		i++
		if i+3 >= len(lines) {
			continue
		}
		unit := strings.TrimSpace(lines[i])
		qty := strings.TrimSpace(lines[i+1])
		unitPrice := stripCurrency(lines[i+2])
		totalPrice := stripCurrency(lines[i+3])
		i += 3
		t.Append(model.Row{
			ColItem:       item,
			ColDescricao:  desc,
			ColQuantidade: qty,
			ColUnidade:    unit,
			ColValorUnit:  unitPrice,
			ColValorTotal: totalPrice,
		})
	}
	return t, nil
}
