package usecase

import (
	"context"
)

// MailOutbox parks invitation mails that could not be delivered so a background
// processor can retry them later.
type MailOutbox interface {
	EnqueueInvitation(ctx context.Context, invitationID, to, claimLink string) error
}
