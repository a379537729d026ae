package services

import (
	"context"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/outbox"
	"github.com/ofa-alumni/ofatechdotorg/usecase"
)

// OutboxBridge lets use cases park mails without knowing about bbolt.
type OutboxBridge struct {
	store *outbox.Store
}

func NewOutboxBridge(store *outbox.Store) *OutboxBridge {
	return &OutboxBridge{store: store}
}

func (b *OutboxBridge) EnqueueInvitation(ctx context.Context, invitationID, to, claimLink string) error {
	if b == nil || b.store == nil {
		return domain.ErrNotificationFailed
	}
	if to == "" || claimLink == "" {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.store.Enqueue(outbox.Item{
		InvitationID: invitationID,
		To:           to,
		ClaimLink:    claimLink,
	})
}

var _ usecase.MailOutbox = (*OutboxBridge)(nil)
