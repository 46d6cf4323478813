package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter measures text against the context budget. It uses the
// cl100k_base encoding when the BPE data is available and falls back to
// the usual four-characters-per-token estimate when it is not, so budget
// trimming keeps working offline.
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (c *tokenCounter) Count(text string) int {
	c.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			c.enc = enc
		}
	})
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}
