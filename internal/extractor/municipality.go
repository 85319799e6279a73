package extractor

import (
	"fmt"
	"strings"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/pkg/textnorm"
)

type Municipality string

const (
	Itumbiara     Municipality = "itumbiara"
	PadreBernardo Municipality = "padre_bernardo"
	Frutal        Municipality = "frutal"
	Morrinhos     Municipality = "morrinhos"
	SaoRoque      Municipality = "sao_roque"
	Cavalcante    Municipality = "cavalcante"
	Rondonia      Municipality = "rondonia"
)

type alias struct {
	needles []string
	target  Municipality
}

// aliases are checked in order; the first needle contained in the folded
// hint wins.
var aliases = []alias{
	{needles: []string{"cavalcante"}, target: Cavalcante},
	{needles: []string{"itumbiara"}, target: Itumbiara},
	{needles: []string{"morrinhos"}, target: Morrinhos},
	{needles: []string{"padre bernardo", "padre_bernardo"}, target: PadreBernardo},
	{needles: []string{"frutal"}, target: Frutal},
	{needles: []string{"rondonia", "presidente medici", "presidente_medici"}, target: Rondonia},
	{needles: []string{"saoroque", "sao roque", "sao_roque"}, target: SaoRoque},
}

// All lists the supported municipalities.
func All() []Municipality {
	return []Municipality{Itumbiara, PadreBernardo, Frutal, Morrinhos, SaoRoque, Cavalcante, Rondonia}
}

// Resolve maps a free-form hint such as "Prefeitura de São Roque" to a
// municipality. Matching is a case and accent insensitive substring test.
func Resolve(hint string) (Municipality, error) {
	folded := textnorm.Fold(hint)
	if folded != "" {
		for _, a := range aliases {
			for _, n := range a.needles {
				if strings.Contains(folded, n) {
					return a.target, nil
				}
			}
		}
	}
	return "", fmt.Errorf("municipality %q: %w", hint, appErr.ErrUnrecognizedMunicipality)
}
