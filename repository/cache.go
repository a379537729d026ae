package repository

import (
	"context"

	"github.com/ofa-alumni/ofatechdotorg/domain"
)

// ActiveMembersKey names the single directory slot.
const ActiveMembersKey = "directory:active_members"

// DirectoryCache is a best-effort key/value store for precomputed member lists.
type DirectoryCache interface {
	Get(ctx context.Context, key string) ([]domain.Person, bool, error)
	Set(ctx context.Context, key string, people []domain.Person) error
	Invalidate(ctx context.Context, key string) error
}
