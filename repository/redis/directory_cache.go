package redis

import (
	"context"
	"errors"

	redislib "github.com/redis/go-redis/v9"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

type directoryCache struct {
	client redislib.UniversalClient
	prefix string
}

// NewDirectoryCache stores member lists as JSON under "<prefix><key>" without expiry;
// entries live until they are invalidated.
func NewDirectoryCache(client redislib.UniversalClient, prefix string) repository.DirectoryCache {
	return &directoryCache{client: client, prefix: prefix}
}

func (c *directoryCache) Get(ctx context.Context, key string) ([]domain.Person, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var people []domain.Person
	if err := json.Unmarshal(raw, &people); err != nil {
		return nil, false, err
	}
	return people, true, nil
}

func (c *directoryCache) Set(ctx context.Context, key string, people []domain.Person) error {
	if people == nil {
		people = []domain.Person{}
	}
	payload, err := json.Marshal(people)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, payload, 0).Err()
}

func (c *directoryCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
