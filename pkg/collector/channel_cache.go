package collector

import (
	"sync"

	"ytmeta-go/pkg/model"
)

// ChannelCache tracks channel detail fetches during one run. A claimed id
// holds no record until Store is called; a stored record outlives the
// attempt that fetched it.
type ChannelCache struct {
	mu      sync.Mutex
	entries map[string]*model.Record
}

func NewChannelCache() *ChannelCache {
	return &ChannelCache{entries: make(map[string]*model.Record)}
}

// Claim marks id as taken and reports whether the caller won it. Exactly
// one concurrent caller gets true for a given id.
func (cc *ChannelCache) Claim(id string) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, ok := cc.entries[id]; ok {
		return false
	}
	cc.entries[id] = nil
	return true
}

// Store keeps the fetched record for a claimed id.
func (cc *ChannelCache) Store(id string, rec *model.Record) {
	cc.mu.Lock()
	cc.entries[id] = rec
	cc.mu.Unlock()
}

// Get returns the stored record of id, if one was fetched.
func (cc *ChannelCache) Get(id string) (*model.Record, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	rec := cc.entries[id]
	return rec, rec != nil
}

// Release gives a claim back so a later attempt can fetch the channel.
func (cc *ChannelCache) Release(id string) {
	cc.mu.Lock()
	delete(cc.entries, id)
	cc.mu.Unlock()
}

func (cc *ChannelCache) Has(id string) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, ok := cc.entries[id]
	return ok
}

func (cc *ChannelCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.entries)
}
