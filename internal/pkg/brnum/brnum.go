// Package brnum parses numbers written in the Brazilian locale, where "."
// groups thousands and "," separates decimals.
package brnum

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Either grouped thousands ("1.234,56") or a bare digit run ("1234,56").
var localeRe = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*(,\d+)?$|^-?\d+(,\d+)?$`)

func Parse(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, fmt.Errorf("empty number")
	}
	if !localeRe.MatchString(clean) {
		return 0, fmt.Errorf("parse %q: not a pt-BR number", s)
	}
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}

// ParseOr returns def when s cannot be parsed.
func ParseOr(s string, def float64) float64 {
	v, err := Parse(s)
	if err != nil {
		return def
	}
	return v
}
