package memory

import (
	"context"
	"time"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

type sessionRepository struct {
	store *Store
	ttl   time.Duration
}

// NewSessionRepository keeps sessions in the in-memory database. Expiry is checked by
// the caller, matching the Redis implementation's contract.
func NewSessionRepository(store *Store, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{store: store, ttl: ttl}
}

func (r *sessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableSession, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrSessionNotFound
	}
	session := raw.(*sessionRecord).Session
	return &session, nil
}

func (r *sessionRepository) Save(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.ExpiresAt.Before(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableSession, &sessionRecord{ID: session.ID, Session: *session}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *sessionRepository) Delete(_ context.Context, id string) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableSession, indexID, id); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *sessionRepository) Extend(_ context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableSession, indexID, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return domain.ErrSessionNotFound
	}
	session := raw.(*sessionRecord).Session
	session.ExpiresAt = time.Now().Add(duration)
	if err := txn.Insert(tableSession, &sessionRecord{ID: id, Session: session}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
