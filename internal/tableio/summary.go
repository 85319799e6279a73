package tableio

import (
	"sort"
	"strings"

	"github.com/xxxsen/licitarag/internal/model"
	"github.com/xxxsen/licitarag/internal/pkg/brnum"
)

const topItemCount = 3

var (
	unitPriceColumns   = []string{"VALOR_UNITARIO", "Valor Unitário", "Valor Médio Unitário"}
	totalPriceColumns  = []string{"VALOR_TOTAL", "Valor Total", "Valor Médio Total"}
	itemColumns        = []string{"ITEM", "Item"}
	descriptionColumns = []string{"DESCRIÇÃO", "Descrição"}
	unitColumns        = []string{"UNIDADE", "Unid", "UN", "Medida"}
)

type PricedItem struct {
	Item        string  `json:"item"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Items    int     `json:"items"`
	Total    float64 `json:"total"`
}

// Summary is the analysis of an extracted table. Totals only count cells
// that parse as Brazilian numbers.
type Summary struct {
	RowCount     int             `json:"row_count"`
	TotalValue   float64         `json:"total_value"`
	HasTotal     bool            `json:"has_total"`
	TopPriced    []PricedItem    `json:"top_priced,omitempty"`
	ByCategory   []CategoryTotal `json:"by_category,omitempty"`
	UnitCounts   map[string]int  `json:"unit_counts,omitempty"`
	SkippedCells int             `json:"skipped_cells"`
}

func Summarize(t *model.Table) *Summary {
	s := &Summary{RowCount: t.Len()}
	if s.RowCount == 0 {
		return s
	}
	totalCol := firstColumn(t, totalPriceColumns)
	unitCol := firstColumn(t, unitPriceColumns)
	itemCol := firstColumn(t, itemColumns)
	descCol := firstColumn(t, descriptionColumns)
	measureCol := firstColumn(t, unitColumns)

	categories := make(map[string]*CategoryTotal)
	var order []string
	var priced []PricedItem
	for _, row := range t.Rows {
		var rowTotal float64
		if totalCol != "" {
			if v, err := brnum.Parse(row[totalCol]); err == nil {
				rowTotal = v
				s.TotalValue += v
				s.HasTotal = true
			} else {
				s.SkippedCells++
			}
		}
		if unitCol != "" {
			if v, err := brnum.Parse(row[unitCol]); err == nil {
				priced = append(priced, PricedItem{Item: row[itemCol], Description: row[descCol], UnitPrice: v})
			}
		}
		if measureCol != "" {
			if u := strings.TrimSpace(row[measureCol]); u != "" {
				if s.UnitCounts == nil {
					s.UnitCounts = make(map[string]int)
				}
				s.UnitCounts[u]++
			}
		}
		if t.HasColumn("Categoria") {
			name := row["Categoria"]
			ct, ok := categories[name]
			if !ok {
				ct = &CategoryTotal{Category: name}
				categories[name] = ct
				order = append(order, name)
			}
			ct.Items++
			ct.Total += rowTotal
		}
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].UnitPrice > priced[j].UnitPrice
	})
	if len(priced) > topItemCount {
		priced = priced[:topItemCount]
	}
	s.TopPriced = priced
	for _, name := range order {
		s.ByCategory = append(s.ByCategory, *categories[name])
	}
	return s
}

func firstColumn(t *model.Table, candidates []string) string {
	for _, c := range candidates {
		if t.HasColumn(c) {
			return c
		}
	}
	return ""
}

func isMoneyColumn(col string) bool {
	for _, c := range unitPriceColumns {
		if c == col {
			return true
		}
	}
	for _, c := range totalPriceColumns {
		if c == col {
			return true
		}
	}
	return false
}
