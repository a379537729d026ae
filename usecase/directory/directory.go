package directory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

// UseCase answers directory reads and owns the active-members cache slot.
type UseCase struct {
	people repository.PersonRepository
	cache  repository.DirectoryCache
	logger *zap.Logger
}

func New(people repository.PersonRepository, cache repository.DirectoryCache, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		people: people,
		cache:  cache,
		logger: logger,
	}
}

// GetActiveSorted returns the cached member list, computing and storing it on a miss.
// Cache failures are logged and never fail the read.
func (uc *UseCase) GetActiveSorted(ctx context.Context) ([]domain.Person, error) {
	if uc.cache != nil {
		people, ok, err := uc.cache.Get(ctx, repository.ActiveMembersKey)
		switch {
		case err != nil:
			uc.logger.Warn("directory cache read failed", zap.Error(err))
		case ok:
			return people, nil
		}
	}

	people, err := uc.ComputeActiveSorted(ctx)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, repository.ActiveMembersKey, people); err != nil {
			uc.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return people, nil
}

// ComputeActiveSorted reads active persons from the store, ordered by last name.
// Equal last names keep the order the store returned them in.
func (uc *UseCase) ComputeActiveSorted(ctx context.Context) ([]domain.Person, error) {
	active := true
	people, err := uc.people.List(ctx, repository.PersonFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(people, func(i, j int) bool {
		return people[i].SortKey() < people[j].SortKey()
	})
	return people, nil
}

// Invalidate drops the cached member list.
func (uc *UseCase) Invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, repository.ActiveMembersKey); err != nil {
		uc.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}

// Get loads a single active member.
func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Person, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPersonNotFound
	}
	person, err := uc.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// inactive people are not part of the directory
	if !person.Active {
		return nil, domain.ErrPersonNotFound
	}
	return person, nil
}
