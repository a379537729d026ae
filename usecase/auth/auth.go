package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/repository"
)

// UseCase manages the server-side sessions opened for verified identities.
type UseCase struct {
	sessions repository.SessionRepository
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func New(sessions repository.SessionRepository, ttl time.Duration, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UseCase{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// TTL is the lifetime of freshly opened sessions.
func (uc *UseCase) TTL() time.Duration {
	return uc.ttl
}

func (uc *UseCase) OpenSession(ctx context.Context, identity domain.Identity) (*domain.Session, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthenticated
	}

	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Identity:  identity.Token,
		Email:     identity.Email,
		Admin:     identity.Admin,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.ttl),
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	uc.logger.Debug("session opened", zap.String("session_id", session.ID))
	return session, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Resolve maps a session cookie value to its identity. Unknown or expired sessions
// resolve to the zero identity.
func (uc *UseCase) Resolve(ctx context.Context, sessionID string) (domain.Identity, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Identity{}, nil
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return session.Principal(), nil
}

func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(uc.ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = uc.now().Add(uc.ttl)
	return session, nil
}

func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return uc.sessions.Delete(ctx, sessionID)
}
