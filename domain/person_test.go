package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProfile_ActiveRequiresBothNames(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPerson("id", "identity", nil, now)
	require.False(t, p.Active)

	assert.False(t, p.ApplyProfile(Profile{FirstName: OptionalString("Ada")}, now))
	assert.False(t, p.Active)

	assert.True(t, p.ApplyProfile(Profile{FirstName: OptionalString("Ada"), LastName: OptionalString("Lovelace")}, now))
	assert.True(t, p.Active)

	assert.True(t, p.ApplyProfile(Profile{FirstName: OptionalString("Ada"), LastName: OptionalString("   ")}, now))
	assert.False(t, p.Active)
	assert.Nil(t, p.LastName)
}

func TestApplyProfile_GravatarFollowsEmail(t *testing.T) {
	now := time.Now()
	p := NewPerson("id", "identity", OptionalString("  Ada@Example.COM "), now)
	require.NotNil(t, p.GravatarURL)
	// md5("ada@example.com")
	assert.Equal(t, "https://www.gravatar.com/avatar/3e3417d7ef77d5932a6734b916515ed5", *p.GravatarURL)
	assert.Equal(t, GravatarURL("ada@example.com"), *p.GravatarURL)

	p.ApplyProfile(Profile{Email: OptionalString("other@example.com")}, now)
	assert.Equal(t, GravatarURL("other@example.com"), StringValue(p.GravatarURL))

	p.ApplyProfile(Profile{}, now)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.GravatarURL)
}

func TestApplyProfile_TouchesUpdatedOnly(t *testing.T) {
	added := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := added.Add(time.Hour)
	p := NewPerson("id", "identity", nil, added)

	p.ApplyProfile(Profile{Twitter: OptionalString("ada")}, later)
	assert.Equal(t, added, p.Added)
	assert.Equal(t, later, p.Updated)
}

func TestClone_IsDeep(t *testing.T) {
	p := NewPerson("id", "identity", OptionalString("a@b.c"), time.Now())
	p.ApplyProfile(Profile{FirstName: OptionalString("Ada"), LastName: OptionalString("Lovelace")}, time.Now())

	c := p.Clone()
	*c.FirstName = "Grace"
	assert.Equal(t, "Ada", *p.FirstName)
	assert.Equal(t, "Ada Lovelace", p.FullName())
	assert.Equal(t, "Lovelace", p.SortKey())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", NormalizeEmail("  Bob@Example.COM\n"))
}

func TestErrorIs_MatchesWrappedSentinels(t *testing.T) {
	err := WrapError(ErrCodeNotFound, ErrPersonNotFound.Message, assert.AnError)
	assert.ErrorIs(t, err, ErrPersonNotFound)
	assert.NotErrorIs(t, err, ErrInvitationNotFound)
	assert.True(t, IsDomainError(err, ErrCodeNotFound))
}
