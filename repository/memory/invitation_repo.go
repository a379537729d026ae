package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	hcmemdb "github.com/hashicorp/go-memdb"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

type invitationRepository struct {
	store *Store
}

// NewInvitationRepository returns a go-memdb backed InvitationRepository.
func NewInvitationRepository(store *Store) repository.InvitationRepository {
	return &invitationRepository{store: store}
}

func (r *invitationRepository) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationNotFound
	}
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableInvitation, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrInvitationNotFound
	}
	return raw.(*invitationRecord).Invitation.Clone(), nil
}

func (r *invitationRepository) FindByEmail(_ context.Context, email string, pendingOnly bool) (*domain.Invitation, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()
	return findByEmail(txn, domain.NormalizeEmail(email), pendingOnly)
}

func (r *invitationRepository) List(_ context.Context, filter repository.InvitationFilter) ([]domain.Invitation, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	var (
		it  hcmemdb.ResultIterator
		err error
	)
	switch {
	case filter.InviterIdentity != "":
		it, err = txn.Get(tableInvitation, indexInviter, filter.InviterIdentity)
	case filter.Email != "":
		it, err = txn.Get(tableInvitation, indexEmail, domain.NormalizeEmail(filter.Email))
	default:
		it, err = txn.Get(tableInvitation, indexID)
	}
	if err != nil {
		return nil, err
	}

	var (
		out     []domain.Invitation
		skipped int
	)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(*invitationRecord)
		if filter.Email != "" && rec.Email != domain.NormalizeEmail(filter.Email) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *rec.Invitation.Clone())
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *invitationRepository) CreateUnique(_ context.Context, invitation *domain.Invitation, pendingOnly bool) (*domain.Invitation, bool, error) {
	if invitation == nil || invitation.InvitedEmail == "" {
		return nil, false, domain.ErrInvalidPayload
	}
	invitation.InvitedEmail = domain.NormalizeEmail(invitation.InvitedEmail)
	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	existing, err := findByEmail(txn, invitation.InvitedEmail, pendingOnly)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrInvitationNotFound):
		return nil, false, err
	}

	if err := txn.Insert(tableInvitation, newInvitationRecord(invitation)); err != nil {
		return nil, false, err
	}
	txn.Commit()
	return invitation, true, nil
}

func (r *invitationRepository) Claim(_ context.Context, id string, claimedAt time.Time, person *domain.Person) (*domain.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationInvalid
	}
	if person == nil || person.Identity == "" {
		return nil, domain.ErrInvalidPayload
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableInvitation, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrInvitationInvalid
	}
	invitation := raw.(*invitationRecord).Invitation.Clone()
	if invitation.IsClaimed() {
		return nil, domain.ErrInvitationInvalid
	}

	invitation.ClaimedAt = &claimedAt
	if err := txn.Insert(tableInvitation, newInvitationRecord(invitation)); err != nil {
		return nil, err
	}

	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	if err := insertPerson(txn, person); err != nil {
		return nil, err
	}

	txn.Commit()
	return invitation, nil
}

func findByEmail(txn *hcmemdb.Txn, email string, pendingOnly bool) (*domain.Invitation, error) {
	it, err := txn.Get(tableInvitation, indexEmail, email)
	if err != nil {
		return nil, err
	}
	var found *domain.Invitation
	for raw := it.Next(); raw != nil; raw = it.Next() {
		inv := raw.(*invitationRecord).Invitation
		if pendingOnly && inv.IsClaimed() {
			continue
		}
		if found == nil || inv.CreatedAt.Before(found.CreatedAt) {
			found = inv
		}
	}
	if found == nil {
		return nil, domain.ErrInvitationNotFound
	}
	return found.Clone(), nil
}
