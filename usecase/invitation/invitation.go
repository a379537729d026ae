package invitation

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/notify"
	"github.com/ofa-alumni/ofatechdotorg/repository"
	"github.com/ofa-alumni/ofatechdotorg/usecase"
)

// ClaimPath is the route a claim link points at.
const ClaimPath = "/invitations/claim"

type Config struct {
	// BaseURL is the public origin claim links are built from.
	BaseURL string
	// ReinviteAfterClaim limits the uniqueness check to pending invitations.
	ReinviteAfterClaim bool
	// BootstrapToken, when set, may be claimed by an identity that has no Person yet.
	BootstrapToken string
}

// CreateResult reports the invitation for the address and whether this call created it.
type CreateResult struct {
	Invitation *domain.Invitation
	Created    bool
}

type UseCase struct {
	invitations repository.InvitationRepository
	people      repository.PersonRepository
	sender      notify.Sender
	outbox      usecase.MailOutbox
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
}

func New(
	invitations repository.InvitationRepository,
	people repository.PersonRepository,
	sender notify.Sender,
	outbox usecase.MailOutbox,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &UseCase{
		invitations: invitations,
		people:      people,
		sender:      sender,
		outbox:      outbox,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Create invites email on behalf of inviter. An existing invitation for the address
// is returned unchanged with Created=false.
func (uc *UseCase) Create(ctx context.Context, inviter *domain.Person, email string) (CreateResult, error) {
	if inviter == nil {
		return CreateResult{}, domain.ErrUnauthenticated
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return CreateResult{}, domain.ErrInvalidPayload
	}

	candidate := &domain.Invitation{
		ID:              uuid.NewString(),
		InviterIdentity: inviter.Identity,
		InvitedEmail:    email,
		CreatedAt:       uc.now(),
	}
	inv, created, err := uc.invitations.CreateUnique(ctx, candidate, uc.cfg.ReinviteAfterClaim)
	if err != nil {
		return CreateResult{}, err
	}

	log := uc.logger.With(zap.String("invitation_id", inv.ID))
	if !created {
		log.Info("invitation already exists")
		return CreateResult{Invitation: inv}, nil
	}
	log.Info("invitation created")

	uc.deliver(ctx, log, inv)
	return CreateResult{Invitation: inv, Created: true}, nil
}

func (uc *UseCase) deliver(ctx context.Context, log *zap.Logger, inv *domain.Invitation) {
	if _, err := mail.ParseAddress(inv.InvitedEmail); err != nil {
		log.Warn("invitation not sent",
			zap.Error(domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidEmail.Message, err)))
		return
	}
	if uc.sender == nil {
		return
	}

	link := uc.ClaimLink(inv.ID)
	err := uc.sender.SendInvitation(ctx, inv.InvitedEmail, link)
	if err == nil {
		return
	}
	log.Warn("invitation mail failed",
		zap.Error(domain.WrapError(domain.ErrCodeUnavailable, domain.ErrNotificationFailed.Message, err)))

	if uc.outbox == nil {
		return
	}
	if err := uc.outbox.EnqueueInvitation(ctx, inv.ID, inv.InvitedEmail, link); err != nil {
		log.Error("failed to queue invitation mail", zap.Error(err))
	}
}

// Lookup returns the invitation with the given id.
func (uc *UseCase) Lookup(ctx context.Context, id string) (*domain.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationNotFound
	}
	return uc.invitations.GetByID(ctx, id)
}

// Claim consumes the invitation and creates the claimer's Person from it. Unknown,
// malformed and already claimed ids all fail with domain.ErrInvitationInvalid.
func (uc *UseCase) Claim(ctx context.Context, id string, claimer domain.Identity) (*domain.Person, error) {
	if claimer.IsZero() {
		return nil, domain.ErrUnauthenticated
	}
	if uc.isBootstrapToken(id) {
		return uc.claimBootstrap(ctx, claimer)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationInvalid
	}

	if _, err := uc.people.GetByIdentity(ctx, claimer.Token); err == nil {
		return nil, domain.ErrPersonExists
	} else if !errors.Is(err, domain.ErrPersonNotFound) {
		return nil, err
	}

	now := uc.now()
	inv, err := uc.invitations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return nil, domain.ErrInvitationInvalid
		}
		return nil, err
	}
	if inv.IsClaimed() {
		return nil, domain.ErrInvitationInvalid
	}

	email := inv.InvitedEmail
	person := domain.NewPerson(uuid.NewString(), claimer.Token, &email, now)
	if _, err := uc.invitations.Claim(ctx, id, now, person); err != nil {
		return nil, err
	}

	uc.logger.Info("invitation claimed",
		zap.String("invitation_id", id),
		zap.String("person_id", person.ID))
	return person, nil
}

func (uc *UseCase) isBootstrapToken(id string) bool {
	token := uc.cfg.BootstrapToken
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(id), []byte(token)) == 1
}

func (uc *UseCase) claimBootstrap(ctx context.Context, claimer domain.Identity) (*domain.Person, error) {
	if _, err := uc.people.GetByIdentity(ctx, claimer.Token); err == nil {
		return nil, domain.ErrInvitationInvalid
	} else if !errors.Is(err, domain.ErrPersonNotFound) {
		return nil, err
	}

	person := domain.NewPerson(uuid.NewString(), claimer.Token, domain.OptionalString(claimer.Email), uc.now())
	created, err := uc.people.Create(ctx, person)
	if err != nil {
		if errors.Is(err, domain.ErrPersonExists) {
			return nil, domain.ErrInvitationInvalid
		}
		return nil, err
	}
	uc.logger.Info("bootstrap person created", zap.String("person_id", created.ID))
	return created, nil
}

// ListByInviter returns the invitations sent by the given identity.
func (uc *UseCase) ListByInviter(ctx context.Context, inviter string) ([]domain.Invitation, error) {
	if inviter == "" {
		return nil, domain.ErrUnauthenticated
	}
	return uc.invitations.List(ctx, repository.InvitationFilter{InviterIdentity: inviter})
}

// ClaimLink builds the absolute link sent to the invitee.
func (uc *UseCase) ClaimLink(id string) string {
	return uc.cfg.BaseURL + ClaimPath + "?key=" + url.QueryEscape(id)
}
