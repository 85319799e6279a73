// Package extractor turns the OCR text of an edital into a table of line
// items, with one pattern set per municipality layout.
package extractor

import (
	"fmt"

	"github.com/xxxsen/licitarag/internal/model"
)

// IExtractor converts document text into rows. Zero matches is an empty
// table, not an error.
type IExtractor interface {
	Extract(content string) (*model.Table, error)
}

const defaultCategoryRange = 10000

type Config struct {
	// MorrinhosCategoryRange is the width of the item code range a category
	// code covers in Morrinhos documents.
	MorrinhosCategoryRange int `json:"morrinhos_category_range" yaml:"morrinhos_category_range"`
}

type Dispatcher struct {
	cfg Config
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.MorrinhosCategoryRange <= 0 {
		cfg.MorrinhosCategoryRange = defaultCategoryRange
	}
	return &Dispatcher{cfg: cfg}
}

// For returns the strategy of one municipality.
func (d *Dispatcher) For(m Municipality) (IExtractor, error) {
	switch m {
	case Itumbiara:
		return itumbiaraExtractor{}, nil
	case PadreBernardo:
		return padreBernardoExtractor{}, nil
	case Frutal:
		return frutalExtractor{}, nil
	case Morrinhos:
		return morrinhosExtractor{categoryRange: d.cfg.MorrinhosCategoryRange}, nil
	case SaoRoque:
		return saoRoqueExtractor{}, nil
	case Cavalcante:
		return cavalcanteExtractor{}, nil
	case Rondonia:
		return rondoniaExtractor{}, nil
	}
	return nil, fmt.Errorf("no extractor for %q", string(m))
}

// Resolve finds the strategy for a hint. It never guesses: an unknown hint
// is ErrUnrecognizedMunicipality.
func (d *Dispatcher) Resolve(hint string) (Municipality, IExtractor, error) {
	m, err := Resolve(hint)
	if err != nil {
		return "", nil, err
	}
	ex, err := d.For(m)
	if err != nil {
		return "", nil, err
	}
	return m, ex, nil
}

func (d *Dispatcher) Dispatch(hint string, content string) (*model.Table, error) {
	m, ex, err := d.Resolve(hint)
	if err != nil {
		return nil, err
	}
	t, err := ex.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", m, err)
	}
	return t, nil
}
