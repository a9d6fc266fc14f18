package llm

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResponseCache keeps raw model text for identical prompts so a re-run stage
// does not pay for calls that already succeeded.
type ResponseCache struct {
	entries *lru.Cache[string, string]
}

// NewResponseCache returns nil when size is not positive; a nil cache is a no-op.
func NewResponseCache(size int) (*ResponseCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{entries: entries}, nil
}

func cacheKey(model, system, user string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ResponseCache) get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.entries.Get(key)
}

func (c *ResponseCache) put(key, text string) {
	if c == nil {
		return
	}
	c.entries.Add(key, text)
}

func (c *ResponseCache) remove(key string) {
	if c == nil {
		return
	}
	c.entries.Remove(key)
}

// Len reports the number of cached responses.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
