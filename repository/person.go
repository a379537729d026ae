package repository

import (
	"context"

	"github.com/ofa-alumni/ofatechdotorg/domain"
)

// PersonFilter selects persons by equality on indexed fields. Zero values do not filter.
type PersonFilter struct {
	Active *bool
	Email  string
}

type PersonRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	GetByIdentity(ctx context.Context, identity string) (*domain.Person, error)
	List(ctx context.Context, filter PersonFilter) ([]domain.Person, error)
	Create(ctx context.Context, person *domain.Person) (*domain.Person, error)
	Update(ctx context.Context, person *domain.Person) error
}
