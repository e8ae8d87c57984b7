package events

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token count of a text when the provider did
// not report usage.
type TokenCounter interface {
	Count(text string) (int, error)
}

// NewTiktokenCounter returns a TokenCounter backed by the cl100k_base BPE.
// The encoding is loaded lazily on first use; the estimate is approximate
// for non-OpenAI vocabularies but close enough for cost accounting.
func NewTiktokenCounter() TokenCounter {
	return &tiktokenCounter{}
}

type tiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func (c *tiktokenCounter) Count(text string) (int, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	if c.err != nil {
		return 0, c.err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}
