package domain

import "time"

// Identity is the authenticated external user as reported by the identity provider.
type Identity struct {
	Token string `json:"token"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
}

// IsZero reports whether no identity was resolved.
func (i Identity) IsZero() bool {
	return i.Token == ""
}

// Session binds an opaque cookie value to a verified identity.
type Session struct {
	ID        string            `json:"id"`
	Identity  string            `json:"identity"`
	Email     string            `json:"email,omitempty"`
	Admin     bool              `json:"admin"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// Principal returns the identity the session was opened for.
func (s *Session) Principal() Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{Token: s.Identity, Email: s.Email, Admin: s.Admin}
}
