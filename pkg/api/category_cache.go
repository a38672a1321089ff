package api

import (
	"context"
	"sync"
)

// CategoryCache resolves category ids to names. The id→name table is
// loaded at most once successfully per run and shared by all keys.
type CategoryCache struct {
	region string

	mu     sync.Mutex
	names  map[string]string
	loaded bool
}

func NewCategoryCache(region string) *CategoryCache {
	if region == "" {
		region = "US"
	}
	return &CategoryCache{region: region}
}

// Name returns the category name for id, calling load on first use. A
// failed load is not cached. Unknown ids map to "Unknown".
func (cc *CategoryCache) Name(ctx context.Context, id string, load func(context.Context, string) (map[string]string, error)) (string, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if !cc.loaded {
		names, err := load(ctx, cc.region)
		if err != nil {
			return "", err
		}
		cc.names = names
		cc.loaded = true
	}

	if name, ok := cc.names[id]; ok && name != "" {
		return name, nil
	}
	return defaultString, nil
}
