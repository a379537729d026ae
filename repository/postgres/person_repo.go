package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

var personColumns = []any{
	"id", "identity", "first_name", "last_name", "email", "phone_number", "address",
	"twitter", "github", "linkedin", "facebook", "gravatar_url", "active", "added", "updated",
}

const personSelect = `
	SELECT id, identity, first_name, last_name, email, phone_number, address,
		twitter, github, linkedin, facebook, gravatar_url, active, added, updated
	FROM persons
`

type personRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository instantiates a Postgres-backed person repository.
func NewPersonRepository(pool *pgxpool.Pool) repository.PersonRepository {
	return &personRepository{pool: pool}
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPersonNotFound
	}
	return scanPerson(r.pool.QueryRow(ctx, personSelect+`WHERE id = $1`, id))
}

func (r *personRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Person, error) {
	if identity == "" {
		return nil, domain.ErrPersonNotFound
	}
	return scanPerson(r.pool.QueryRow(ctx, personSelect+`WHERE identity = $1`, identity))
}

func (r *personRepository) List(ctx context.Context, filter repository.PersonFilter) ([]domain.Person, error) {
	ds := dialect().
		From(tablePersons).
		Select(personColumns...).
		Order(goqu.I("added").Asc(), goqu.I("id").Asc())

	if filter.Active != nil {
		ds = ds.Where(goqu.Ex{"active": *filter.Active})
	}
	if filter.Email != "" {
		ds = ds.Where(goqu.Func("lower", goqu.I("email")).Eq(strings.ToLower(filter.Email)))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []domain.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, *person)
	}
	return people, rows.Err()
}

func (r *personRepository) Create(ctx context.Context, person *domain.Person) (*domain.Person, error) {
	if err := insertPerson(ctx, r.pool, person); err != nil {
		return nil, err
	}
	return person, nil
}

func (r *personRepository) Update(ctx context.Context, person *domain.Person) error {
	if person == nil || person.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE persons
	SET first_name = $2,
		last_name = $3,
		email = $4,
		phone_number = $5,
		address = $6,
		twitter = $7,
		github = $8,
		linkedin = $9,
		facebook = $10,
		gravatar_url = $11,
		active = $12,
		updated = COALESCE($13, NOW())
	WHERE id = $1
	RETURNING identity, added, updated
	`

	if err := r.pool.QueryRow(ctx, query,
		person.ID,
		person.FirstName,
		person.LastName,
		person.Email,
		person.PhoneNumber,
		person.Address,
		person.Twitter,
		person.GitHub,
		person.LinkedIn,
		person.Facebook,
		person.GravatarURL,
		person.Active,
		nullTime(person.Updated),
	).Scan(&person.Identity, &person.Added, &person.Updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPersonNotFound
		}
		return err
	}
	return nil
}

func insertPerson(ctx context.Context, q querier, person *domain.Person) error {
	if person == nil || person.Identity == "" {
		return domain.ErrInvalidPayload
	}
	if person.ID == "" {
		person.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO persons (id, identity, first_name, last_name, email, phone_number, address,
		twitter, github, linkedin, facebook, gravatar_url, active, added, updated)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()), COALESCE($15, NOW()))
	RETURNING added, updated
	`

	if err := q.QueryRow(ctx, query,
		person.ID,
		person.Identity,
		person.FirstName,
		person.LastName,
		person.Email,
		person.PhoneNumber,
		person.Address,
		person.Twitter,
		person.GitHub,
		person.LinkedIn,
		person.Facebook,
		person.GravatarURL,
		person.Active,
		nullTime(person.Added),
		nullTime(person.Updated),
	).Scan(&person.Added, &person.Updated); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPersonExists
		}
		return err
	}
	return nil
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	var p domain.Person
	if err := row.Scan(
		&p.ID,
		&p.Identity,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.PhoneNumber,
		&p.Address,
		&p.Twitter,
		&p.GitHub,
		&p.LinkedIn,
		&p.Facebook,
		&p.GravatarURL,
		&p.Active,
		&p.Added,
		&p.Updated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, err
	}
	return &p, nil
}
