package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// wordClass is the body of a unicode \w; RE2's \w is ASCII only.
const (
	wordClass = `\p{L}\p{N}_`
	word      = `[` + wordClass + `]`
)

var (
	itumbiaraItemLine = regexp.MustCompile(`^\s*\d+\s*$`)
	padreBernardoRow  = regexp.MustCompile(`(\d{5})\s+([0-9.,]+)\s+([A-Z]+)\s+([^\n]+)`)
	frutalRow         = regexp.MustCompile(`(\d+)\s+([0-9.]+)\s+R\$([0-9,.]+)\s+([^\n]+)\s+([A-Z]+)\s+R\$([0-9,.]+)`)
	morrinhosRow      = regexp.MustCompile(`(\d+)\s+(\d+)\s+(\d+)\s+(` + word + `+)\s+([` + wordClass + `\s(),.\-:;/]+?)(?:\s+R\$\s+)([\d.,]+)(?:\s+R\$\s+)([\d.,]+)`)
	morrinhosCategory = regexp.MustCompile(`(\d+)\s+-\s+([` + wordClass + `\s,]+)`)
	saoRoqueHeader    = regexp.MustCompile(`Pregão Eletrônico nº (\d+/\d+)`)
	saoRoqueRow       = regexp.MustCompile(`(\d+)\s+(\d+\.?\d*)\s+(` + word + `+)\s+([` + wordClass + `\s(),.\-:;/]+?)(?:\s+(\d+,\d+))(?:\s+(\d+\.\d+,\d+))`)
	saoRoqueAltRow    = regexp.MustCompile(`(\d+)\s+(\d+[.,]?\d*)\s+(` + word + `+)\s+([` + wordClass + `\s(),.\-:;/]+?)(?:\s+(\d+[,.]\d+))(?:\s+(\d+[.,]\d+[,.]\d+))`)
	saoRoqueLine      = regexp.MustCompile(`^\s*\d+\s+\d+`)
	cavalcanteHeader  = regexp.MustCompile(`Processo Administrativo nº (\d+/\d+)`)
	cavalcanteRow     = regexp.MustCompile(`(?m)(\d+)\s*\n?([\s\S]*?)\s*(\d+)\s*\n?\s*([A-Z]{2,3})$`)
	rondoniaRow       = regexp.MustCompile(`(\d+)\s+([^R\n]+)\s+(\d+)\s+([A-Z]+)\s+R\$\s*([0-9,.]+)\s+R\$\s*([0-9,.]+)`)
)

// Column names of the layouts that share the generic schema.
const (
	ColItem       = "ITEM"
	ColDescricao  = "DESCRIÇÃO"
	ColQuantidade = "QUANTIDADE"
	ColUnidade    = "UNIDADE"
	ColValorUnit  = "VALOR_UNITARIO"
	ColValorTotal = "VALOR_TOTAL"
)

var standardColumns = []string{ColItem, ColDescricao, ColQuantidade, ColUnidade, ColValorUnit, ColValorTotal}

// normalizeInt renders a matched digit run the way an integer column prints
// it, so "001" becomes "1". Runs of any length are kept as text.
func normalizeInt(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty integer")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid integer %q", s)
		}
	}
	if n := strings.TrimLeft(s, "0"); n != "" {
		return n, nil
	}
	return "0", nil
}

func stripCurrency(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(s), "R$", ""))
}
