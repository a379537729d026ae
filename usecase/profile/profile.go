package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

// DirectoryInvalidator is the part of the directory use case that profile edits need.
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context)
}

type UseCase struct {
	people    repository.PersonRepository
	directory DirectoryInvalidator
	logger    *zap.Logger
	now       func() time.Time
}

func New(people repository.PersonRepository, directory DirectoryInvalidator, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		people:    people,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// GetProfile returns the Person owned by identity.
func (uc *UseCase) GetProfile(ctx context.Context, identity string) (*domain.Person, error) {
	if identity == "" {
		return nil, domain.ErrUnauthenticated
	}
	return uc.people.GetByIdentity(ctx, identity)
}

// EnsurePerson resolves the Person for identity, creating an empty one for admins.
// Non-admins without a Person get domain.ErrPersonNotFound.
func (uc *UseCase) EnsurePerson(ctx context.Context, identity domain.Identity) (*domain.Person, bool, error) {
	person, err := uc.GetProfile(ctx, identity.Token)
	if err == nil {
		return person, false, nil
	}
	if !errors.Is(err, domain.ErrPersonNotFound) || !identity.Admin {
		return nil, false, err
	}

	person = domain.NewPerson(uuid.NewString(), identity.Token, domain.OptionalString(identity.Email), uc.now())
	created, err := uc.people.Create(ctx, person)
	if errors.Is(err, domain.ErrPersonExists) {
		// lost a race with a concurrent request for the same identity
		person, err = uc.people.GetByIdentity(ctx, identity.Token)
		return person, false, err
	}
	if err != nil {
		return nil, false, err
	}
	uc.logger.Info("admin enrolled", zap.String("person_id", created.ID))
	return created, true, nil
}

// UpdateProfile overwrites the editable fields of the identity's Person and drops the
// cached directory when the active flag flipped.
func (uc *UseCase) UpdateProfile(ctx context.Context, identity string, profile domain.Profile) (*domain.Person, error) {
	person, err := uc.GetProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	flipped := person.ApplyProfile(profile, uc.now())
	if err := uc.people.Update(ctx, person); err != nil {
		return nil, err
	}

	if flipped && uc.directory != nil {
		uc.logger.Debug("active flag changed, invalidating directory",
			zap.String("person_id", person.ID),
			zap.Bool("active", person.Active))
		uc.directory.Invalidate(ctx)
	}
	return person, nil
}
