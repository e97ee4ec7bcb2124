// Package tokencount counts tokens for reasoning-service prompts.
//
// It wraps tiktoken-go so conversation history embedded in prompts can
// be budgeted instead of growing without bound over a long interview.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting with cached encodings.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	key := normalizeModel(model)

	c.mu.RLock()
	enc, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[key]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		// cl100k_base approximates most modern chat models well enough
		// for budgeting purposes.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.cache[key] = enc
	return enc, nil
}

// normalizeModel maps provider-prefixed model IDs (e.g.
// "openai/gpt-4o-mini" or "meta-llama/llama-3.1-8b:free") onto a
// tiktoken-known family.
func normalizeModel(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// Count returns the token count of text under the given model's
// encoding. Counting failures report zero tokens; budgeting then errs
// toward keeping text, which is the safe direction.
func (c *Counter) Count(model, text string) int {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// FitTurns keeps as many of the most recent formatted turns as fit the
// token budget, preserving their original order. The newest turns carry
// the contradiction-detection signal, so the oldest are dropped first.
func (c *Counter) FitTurns(model string, turns []string, budget int) []string {
	if budget <= 0 {
		return turns
	}
	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		n := c.Count(model, turns[i])
		if total+n > budget {
			break
		}
		total += n
		start = i
	}
	return turns[start:]
}
