package api

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"ytmeta-go/pkg/logger"
)

// Key is one API credential together with its position in the pool.
type Key struct {
	Index int
	Token string
}

// String never exposes the token.
func (k Key) String() string {
	return fmt.Sprintf("#%d(%s)", k.Index+1, logger.MaskToken(k.Token))
}

// KeyPool hands out API keys in a stable rotation order and remembers which
// ones ran out of quota. Exhaustion is permanent for the life of the pool.
type KeyPool struct {
	keys []Key

	mu        sync.RWMutex
	exhausted []bool
	live      int

	current int64
}

// NewKeyPool builds a pool from raw tokens. Blank tokens are dropped and
// duplicates are kept once, in first-seen order.
func NewKeyPool(tokens []string) *KeyPool {
	seen := make(map[string]bool, len(tokens))
	keys := make([]Key, 0, len(tokens))
	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		keys = append(keys, Key{Index: len(keys), Token: token})
	}

	return &KeyPool{
		keys:      keys,
		exhausted: make([]bool, len(keys)),
		live:      len(keys),
		current:   -1, // first Next returns index 0
	}
}

// Next returns the next non-exhausted key in round-robin order.
func (p *KeyPool) Next() (Key, error) {
	n := int64(len(p.keys))
	if n == 0 {
		return Key{}, ErrPoolExhausted
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.live == 0 {
		return Key{}, ErrPoolExhausted
	}

	for i := int64(0); i < n; i++ {
		next := atomic.AddInt64(&p.current, 1)
		index := ((next % n) + n) % n
		if !p.exhausted[index] {
			return p.keys[index], nil
		}
	}
	return Key{}, ErrPoolExhausted
}

// Current returns the first live key in rotation order. Callers that retry
// one entity across keys start here so healthy keys are drained in order.
func (p *KeyPool) Current() (Key, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for i, k := range p.keys {
		if !p.exhausted[i] {
			return k, nil
		}
	}
	return Key{}, ErrPoolExhausted
}

// MarkExhausted retires k for the rest of the run. It reports true only for
// the call that actually flipped the flag.
func (p *KeyPool) MarkExhausted(k Key) bool {
	if k.Index < 0 || k.Index >= len(p.keys) || p.keys[k.Index].Token != k.Token {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exhausted[k.Index] {
		return false
	}
	p.exhausted[k.Index] = true
	p.live--
	return true
}

func (p *KeyPool) IsExhausted(k Key) bool {
	if k.Index < 0 || k.Index >= len(p.keys) {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exhausted[k.Index]
}

// Live returns the usable keys in rotation order.
func (p *KeyPool) Live() []Key {
	return p.filter(false)
}

// Exhausted returns the retired keys in rotation order.
func (p *KeyPool) Exhausted() []Key {
	return p.filter(true)
}

func (p *KeyPool) filter(exhausted bool) []Key {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Key
	for i, k := range p.keys {
		if p.exhausted[i] == exhausted {
			out = append(out, k)
		}
	}
	return out
}

// LiveCount is the number of keys not yet exhausted.
func (p *KeyPool) LiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live
}

func (p *KeyPool) Size() int {
	return len(p.keys)
}

func (p *KeyPool) IsEmpty() bool {
	return len(p.keys) == 0
}
