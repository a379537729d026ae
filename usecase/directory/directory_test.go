package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
	"github.com/ofa-alumni/ofatechdotorg/repository/memory"
)

func newFixture(t *testing.T) (*UseCase, repository.PersonRepository, *memory.DirectoryCache) {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	people := memory.NewPersonRepository(store)
	cache := memory.NewDirectoryCache()
	return New(people, cache, nil), people, cache
}

func addMember(t *testing.T, people repository.PersonRepository, id, first, last string) *domain.Person {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := domain.NewPerson(id, "identity-"+id, nil, now)
	p.ApplyProfile(domain.Profile{
		FirstName: domain.OptionalString(first),
		LastName:  domain.OptionalString(last),
	}, now)
	created, err := people.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestComputeActiveSorted_StableByLastName(t *testing.T) {
	uc, people, _ := newFixture(t)
	ctx := context.Background()

	addMember(t, people, "00000000-0000-0000-0000-000000000001", "Ji", "Park")
	addMember(t, people, "00000000-0000-0000-0000-000000000002", "Ansel", "Adams")
	addMember(t, people, "00000000-0000-0000-0000-000000000003", "Min", "Park")
	addMember(t, people, "00000000-0000-0000-0000-000000000004", "", "Nobody")

	got, err := uc.ComputeActiveSorted(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Adams", *got[0].LastName)
	assert.Equal(t, "Ji", *got[1].FirstName)
	assert.Equal(t, "Min", *got[2].FirstName)
}

func TestGetActiveSorted_ServesFromCache(t *testing.T) {
	uc, people, cache := newFixture(t)
	ctx := context.Background()

	addMember(t, people, "00000000-0000-0000-0000-000000000001", "Grace", "Hopper")

	first, err := uc.GetActiveSorted(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	cached, ok, err := cache.Get(ctx, repository.ActiveMembersKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	// a new member stays invisible until the slot is invalidated
	addMember(t, people, "00000000-0000-0000-0000-000000000002", "Alan", "Turing")
	second, err := uc.GetActiveSorted(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	uc.Invalidate(ctx)
	third, err := uc.GetActiveSorted(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]domain.Person, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, []domain.Person) error {
	return errors.New("cache down")
}

func (failingCache) Invalidate(context.Context, string) error {
	return errors.New("cache down")
}

func TestGetActiveSorted_CacheFailuresFallBackToStore(t *testing.T) {
	store, err := memory.NewStore()
	require.NoError(t, err)
	people := memory.NewPersonRepository(store)
	uc := New(people, failingCache{}, nil)

	addMember(t, people, "00000000-0000-0000-0000-000000000001", "Grace", "Hopper")

	got, err := uc.GetActiveSorted(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	uc.Invalidate(context.Background())
}

func TestGet(t *testing.T) {
	uc, people, _ := newFixture(t)
	ctx := context.Background()
	p := addMember(t, people, "00000000-0000-0000-0000-000000000001", "Grace", "Hopper")

	got, err := uc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", got.FullName())

	_, err = uc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrPersonNotFound)

	_, err = uc.Get(ctx, "00000000-0000-0000-0000-0000000000ff")
	assert.ErrorIs(t, err, domain.ErrPersonNotFound)

	pending := domain.NewPerson("00000000-0000-0000-0000-000000000002", "identity-pending", nil, time.Now())
	_, err = people.Create(ctx, pending)
	require.NoError(t, err)
	_, err = uc.Get(ctx, pending.ID)
	assert.ErrorIs(t, err, domain.ErrPersonNotFound)
}
