package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const contextEncoding = "cl100k_base"

type tokenizer interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

var (
	defaultTokenizerOnce sync.Once
	defaultTokenizer     tokenizer
	defaultTokenizerErr  error
)

func loadTokenizer() (tokenizer, error) {
	defaultTokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(contextEncoding)
		if err != nil {
			defaultTokenizerErr = err
			return
		}
		defaultTokenizer = enc
	})
	return defaultTokenizer, defaultTokenizerErr
}

// trimToBudget keeps whole items in order while they fit in budget tokens.
// The first item, header included, is cut to the budget when it alone is
// too long, so a non-empty list never comes back empty.
func trimToBudget(tk tokenizer, items []ContextItem, budget int) []ContextItem {
	if budget <= 0 || len(items) == 0 {
		return items
	}
	used := 0
	for i, item := range items {
		n := len(tk.Encode(formatContextItem(item), nil, nil))
		if used+n <= budget {
			used += n
			continue
		}
		if i > 0 {
			return items[:i]
		}
		// The similarity header counts against the budget too.
		header := len(tk.Encode(formatContextItem(ContextItem{Similarity: item.Similarity}), nil, nil))
		room := budget - header
		if room < 0 {
			room = 0
		}
		toks := tk.Encode(item.Text, nil, nil)
		if len(toks) > room {
			toks = toks[:room]
		}
		first := item
		first.Text = tk.Decode(toks)
		return []ContextItem{first}
	}
	return items
}
