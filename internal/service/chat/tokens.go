package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/omnimind/internal/core"
)

// TokenCounter estimates how many tokens a text costs in the prompt.
type TokenCounter func(text string) int

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// DefaultTokenCounter counts with the cl100k_base encoding. When the
// encoding cannot be loaded it falls back to a bytes/4 estimate, which
// overshoots rarely enough for a trim heuristic.
func DefaultTokenCounter(text string) int {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenizer = enc
		}
	})
	if tokenizer == nil {
		return len(text) / 4
	}
	return len(tokenizer.Encode(text, nil, nil))
}

// trimToBudget drops the oldest turns until the remainder fits the
// token budget. The newest turn always survives, even when it alone is
// over budget.
func trimToBudget(turns []core.Turn, budget int, count TokenCounter) []core.Turn {
	if len(turns) == 0 || budget <= 0 {
		return turns
	}

	total := 0
	for _, t := range turns {
		total += count(t.Content)
	}

	start := 0
	for total > budget && start < len(turns)-1 {
		total -= count(turns[start].Content)
		start++
	}
	return turns[start:]
}
