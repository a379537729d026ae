package repository

import (
	"context"
	"time"

	"github.com/ofa-alumni/ofatechdotorg/domain"
)

type InvitationFilter struct {
	InviterIdentity string
	Email           string
	Limit           int
	Offset          int
}

type InvitationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	// FindByEmail returns the oldest invitation for the address. With pendingOnly set,
	// claimed invitations are ignored.
	FindByEmail(ctx context.Context, email string, pendingOnly bool) (*domain.Invitation, error)
	List(ctx context.Context, filter InvitationFilter) ([]domain.Invitation, error)
	// CreateUnique stores invitation unless FindByEmail would return a row, in which case
	// that row is returned with created=false. Check and insert are atomic.
	CreateUnique(ctx context.Context, invitation *domain.Invitation, pendingOnly bool) (*domain.Invitation, bool, error)
	// Claim sets claimed_at only if it is unset and stores person in the same transaction.
	// Missing, malformed or already claimed invitations yield domain.ErrInvitationInvalid.
	Claim(ctx context.Context, id string, claimedAt time.Time, person *domain.Person) (*domain.Invitation, error)
}
