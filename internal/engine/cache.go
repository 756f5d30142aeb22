package engine

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/easeaico/agent-social/internal/types"
)

// threadCache shares fetched threads between agents within one pass.
type threadCache struct {
	storage Storage
	cache   *lru.Cache[int64, types.Thread]
}

func newThreadCache(storage Storage, size int) (*threadCache, error) {
	cache, err := lru.New[int64, types.Thread](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread cache: %w", err)
	}
	return &threadCache{storage: storage, cache: cache}, nil
}

// get returns the thread of post. A thread the storage does not know is
// treated as the bare post.
func (c *threadCache) get(ctx context.Context, post types.Post) (types.Thread, error) {
	if t, ok := c.cache.Get(post.ID); ok {
		return t, nil
	}
	t, err := c.storage.FetchThread(ctx, post.ID)
	if err != nil {
		if !isNotFound(err) {
			return types.Thread{}, fmt.Errorf("failed to fetch thread %d: %w", post.ID, err)
		}
		t = types.Thread{Post: post}
	}
	c.cache.Add(post.ID, t)
	return t, nil
}
