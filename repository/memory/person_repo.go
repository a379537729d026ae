package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	hcmemdb "github.com/hashicorp/go-memdb"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

type personRepository struct {
	store *Store
}

// NewPersonRepository returns a go-memdb backed PersonRepository.
func NewPersonRepository(store *Store) repository.PersonRepository {
	return &personRepository{store: store}
}

func (r *personRepository) GetByID(_ context.Context, id string) (*domain.Person, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPersonNotFound
	}
	txn := r.store.db.Txn(false)
	defer txn.Abort()
	return firstPerson(txn, indexID, id)
}

func (r *personRepository) GetByIdentity(_ context.Context, identity string) (*domain.Person, error) {
	if identity == "" {
		return nil, domain.ErrPersonNotFound
	}
	txn := r.store.db.Txn(false)
	defer txn.Abort()
	return firstPerson(txn, indexIdentity, identity)
}

func (r *personRepository) List(_ context.Context, filter repository.PersonFilter) ([]domain.Person, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	var (
		it  hcmemdb.ResultIterator
		err error
	)
	switch {
	case filter.Email != "":
		it, err = txn.Get(tablePerson, indexEmail, filter.Email)
	case filter.Active != nil:
		it, err = txn.Get(tablePerson, indexActive, *filter.Active)
	default:
		it, err = txn.Get(tablePerson, indexID)
	}
	if err != nil {
		return nil, err
	}

	var people []domain.Person
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(*personRecord)
		if filter.Active != nil && rec.Active != *filter.Active {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(rec.Email, filter.Email) {
			continue
		}
		people = append(people, *rec.Person.Clone())
	}
	return people, nil
}

func (r *personRepository) Create(_ context.Context, person *domain.Person) (*domain.Person, error) {
	if person == nil || person.Identity == "" {
		return nil, domain.ErrInvalidPayload
	}
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	if person.Added.IsZero() {
		person.Touch(time.Now())
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	if err := insertPerson(txn, person); err != nil {
		return nil, err
	}
	txn.Commit()
	return person, nil
}

func (r *personRepository) Update(_ context.Context, person *domain.Person) error {
	if person == nil || person.ID == "" {
		return domain.ErrInvalidPayload
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	current, err := firstPerson(txn, indexID, person.ID)
	if err != nil {
		return err
	}
	// identity and creation time are immutable
	person.Identity = current.Identity
	person.Added = current.Added
	if person.Updated.IsZero() {
		person.Updated = time.Now()
	}

	if err := txn.Insert(tablePerson, newPersonRecord(person)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func firstPerson(txn *hcmemdb.Txn, index, value string) (*domain.Person, error) {
	raw, err := txn.First(tablePerson, index, value)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrPersonNotFound
	}
	return raw.(*personRecord).Person.Clone(), nil
}

func insertPerson(txn *hcmemdb.Txn, person *domain.Person) error {
	existing, err := txn.First(tablePerson, indexIdentity, person.Identity)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrPersonExists
	}
	return txn.Insert(tablePerson, newPersonRecord(person))
}
