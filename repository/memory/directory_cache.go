package memory

import (
	"context"
	"sync"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

// DirectoryCache is a process-local DirectoryCache. The mutex only protects the map;
// callers get no ordering guarantees between Set and Invalidate.
type DirectoryCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.Person
}

func NewDirectoryCache() *DirectoryCache {
	return &DirectoryCache{entries: make(map[string][]domain.Person)}
}

func (c *DirectoryCache) Get(_ context.Context, key string) ([]domain.Person, bool, error) {
	c.mu.RLock()
	people, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return clonePeople(people), true, nil
}

func (c *DirectoryCache) Set(_ context.Context, key string, people []domain.Person) error {
	c.mu.Lock()
	c.entries[key] = clonePeople(people)
	c.mu.Unlock()
	return nil
}

func (c *DirectoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func clonePeople(people []domain.Person) []domain.Person {
	out := make([]domain.Person, len(people))
	for i := range people {
		out[i] = *people[i].Clone()
	}
	return out
}

var _ repository.DirectoryCache = (*DirectoryCache)(nil)
