package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

var invitationColumns = []any{"id", "inviter_identity", "invited_email", "created_at", "claimed_at"}

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository returns a Postgres-backed implementation of InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) repository.InvitationRepository {
	return &invitationRepository{pool: pool}
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationNotFound
	}
	const query = `
	SELECT id, inviter_identity, invited_email, created_at, claimed_at
	FROM invitations
	WHERE id = $1
	`
	return scanInvitation(r.pool.QueryRow(ctx, query, id))
}

func (r *invitationRepository) FindByEmail(ctx context.Context, email string, pendingOnly bool) (*domain.Invitation, error) {
	return findInvitationByEmail(ctx, r.pool, domain.NormalizeEmail(email), pendingOnly)
}

func (r *invitationRepository) List(ctx context.Context, filter repository.InvitationFilter) ([]domain.Invitation, error) {
	ds := dialect().
		From(tableInvitations).
		Select(invitationColumns...).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(clampLimit(filter.Limit))).
		Offset(uint(max(filter.Offset, 0)))

	if filter.InviterIdentity != "" {
		ds = ds.Where(goqu.Ex{"inviter_identity": filter.InviterIdentity})
	}
	if filter.Email != "" {
		ds = ds.Where(goqu.Ex{"invited_email": domain.NormalizeEmail(filter.Email)})
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

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (r *invitationRepository) CreateUnique(ctx context.Context, invitation *domain.Invitation, pendingOnly bool) (*domain.Invitation, bool, error) {
	if invitation == nil || invitation.InvitedEmail == "" {
		return nil, false, domain.ErrInvalidPayload
	}
	invitation.InvitedEmail = domain.NormalizeEmail(invitation.InvitedEmail)
	if invitation.ID == "" {
		invitation.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// serialises concurrent creates for the same address until commit
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, invitation.InvitedEmail); err != nil {
		return nil, false, err
	}

	existing, err := findInvitationByEmail(ctx, tx, invitation.InvitedEmail, pendingOnly)
	switch {
	case err == nil:
		return existing, false, tx.Commit(ctx)
	case !errors.Is(err, domain.ErrInvitationNotFound):
		return nil, false, err
	}

	const query = `
	INSERT INTO invitations (id, inviter_identity, invited_email, created_at)
	VALUES ($1, $2, $3, COALESCE($4, NOW()))
	RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query,
		invitation.ID,
		invitation.InviterIdentity,
		invitation.InvitedEmail,
		nullTime(invitation.CreatedAt),
	).Scan(&invitation.CreatedAt); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return invitation, true, nil
}

func (r *invitationRepository) Claim(ctx context.Context, id string, claimedAt time.Time, person *domain.Person) (*domain.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvitationInvalid
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
	UPDATE invitations
	SET claimed_at = $2
	WHERE id = $1 AND claimed_at IS NULL
	RETURNING id, inviter_identity, invited_email, created_at, claimed_at
	`
	invitation, err := scanInvitation(tx.QueryRow(ctx, query, id, claimedAt))
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return nil, domain.ErrInvitationInvalid
		}
		return nil, err
	}

	if err := insertPerson(ctx, tx, person); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return invitation, nil
}

func findInvitationByEmail(ctx context.Context, q querier, email string, pendingOnly bool) (*domain.Invitation, error) {
	const query = `
	SELECT id, inviter_identity, invited_email, created_at, claimed_at
	FROM invitations
	WHERE invited_email = $1
	  AND (NOT $2 OR claimed_at IS NULL)
	ORDER BY created_at ASC
	LIMIT 1
	`
	return scanInvitation(q.QueryRow(ctx, query, email, pendingOnly))
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	if err := row.Scan(
		&inv.ID,
		&inv.InviterIdentity,
		&inv.InvitedEmail,
		&inv.CreatedAt,
		&inv.ClaimedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}
