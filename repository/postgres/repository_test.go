package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

// These tests need a disposable database: DATABASE_URL=postgres://... go test ./repository/postgres
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	files, err := filepath.Glob(filepath.Join("..", "..", "assets", "migrations", "*.up.sql"))
	require.NoError(t, err)
	sort.Strings(files)
	for _, f := range files {
		sql, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, f)
	}
	_, err = pool.Exec(ctx, "TRUNCATE persons, invitations")
	require.NoError(t, err)
	return pool
}

func TestPersonRepository_RoundTrip(t *testing.T) {
	pool := newPool(t)
	repo := NewPersonRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := domain.NewPerson("", "idp|ada", domain.OptionalString("Ada@Example.com"), now)
	created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, domain.NewPerson("", "idp|ada", nil, now))
	assert.ErrorIs(t, err, domain.ErrPersonExists)

	created.ApplyProfile(domain.Profile{
		FirstName: domain.OptionalString("Ada"),
		LastName:  domain.OptionalString("Lovelace"),
		Email:     domain.OptionalString("Ada@Example.com"),
	}, now.Add(time.Minute))
	require.NoError(t, repo.Update(ctx, created))

	loaded, err := repo.GetByIdentity(ctx, "idp|ada")
	require.NoError(t, err)
	assert.True(t, loaded.Active)
	assert.Equal(t, "Lovelace", domain.StringValue(loaded.LastName))
	assert.Equal(t, domain.GravatarURL("ada@example.com"), domain.StringValue(loaded.GravatarURL))

	yes := true
	active, err := repo.List(ctx, repository.PersonFilter{Active: &yes})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	byEmail, err := repo.List(ctx, repository.PersonFilter{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrPersonNotFound)
}

func TestInvitationRepository_ConcurrentClaims(t *testing.T) {
	pool := newPool(t)
	invitations := NewInvitationRepository(pool)
	people := NewPersonRepository(pool)
	ctx := context.Background()

	inv, created, err := invitations.CreateUnique(ctx, &domain.Invitation{InviterIdentity: "root", InvitedEmail: "Bob@Example.com"}, false)
	require.NoError(t, err)
	require.True(t, created)

	dup, created, err := invitations.CreateUnique(ctx, &domain.Invitation{InviterIdentity: "root", InvitedEmail: "bob@example.com"}, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, inv.ID, dup.ID)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			person := domain.NewPerson("", fmt.Sprintf("claimer-%d", i), domain.OptionalString(inv.InvitedEmail), time.Now())
			_, err := invitations.Claim(ctx, inv.ID, time.Now(), person)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvitationInvalid)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	all, err := people.List(ctx, repository.PersonFilter{Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	stored, err := invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClaimed())

	fresh, created, err := invitations.CreateUnique(ctx, &domain.Invitation{InviterIdentity: "root", InvitedEmail: "bob@example.com"}, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, inv.ID, fresh.ID)
}
