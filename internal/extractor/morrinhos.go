package extractor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
)

var morrinhosColumns = []string{"Item", "Código", "Categoria", "Quantidade", "Medida", "Descrição", "Valor Unitário", "Valor Total"}

type category struct {
	code int
	name string
}

// morrinhosExtractor reads rows of item, code, quantity, measure,
// description and two prices, and labels each row with the category whose
// code range holds the item code. Once set, a category sticks until another
// range matches.
type morrinhosExtractor struct {
	categoryRange int
}

func (e morrinhosExtractor) Extract(content string) (*model.Table, error) {
	t := model.NewTable(morrinhosColumns...)
	categories := parseCategories(content)
	current := ""
	for _, m := range morrinhosRow.FindAllStringSubmatch(content, -1) {
		code, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("parse item code %q: %w", m[2], err)
		}
		for _, c := range categories {
			if code >= c.code && code < c.code+e.categoryRange {
				current = c.name
				break
			}
		}
		item, err := normalizeInt(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse item %q: %w", m[1], err)
		}
		qty, err := normalizeInt(m[3])
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", m[3], err)
		}
		t.Append(model.Row{
			"Item":           item,
			"Código":         m[2],
			"Categoria":      current,
			"Quantidade":     qty,
			"Medida":         m[4],
			"Descrição":      strings.TrimSpace(m[5]),
			"Valor Unitário": m[6],
			"Valor Total":    m[7],
		})
	}
	return t, nil
}

// parseCategories keeps first-seen order; a repeated code renames the
// category in place.
func parseCategories(content string) []category {
	var out []category
	pos := make(map[string]int)
	for _, m := range morrinhosCategory.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[2])
		if i, ok := pos[m[1]]; ok {
			out[i].name = name
			continue
		}
		code, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pos[m[1]] = len(out)
		out = append(out, category{code: code, name: name})
	}
	return out
}
