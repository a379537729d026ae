package domain

import (
	"strings"
	"time"
)

// Invitation represents a pending or claimed invite sent by a member to an e-mail address.
type Invitation struct {
	ID              string     `json:"id"`
	InviterIdentity string     `json:"inviter_identity"`
	InvitedEmail    string     `json:"invited_email"`
	CreatedAt       time.Time  `json:"created_at"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
}

// IsClaimed reports whether the invitation reached its terminal state.
func (i *Invitation) IsClaimed() bool {
	return i != nil && i.ClaimedAt != nil
}

// Clone returns a copy that does not share the claimed timestamp pointer.
func (i *Invitation) Clone() *Invitation {
	if i == nil {
		return nil
	}
	c := *i
	if i.ClaimedAt != nil {
		at := *i.ClaimedAt
		c.ClaimedAt = &at
	}
	return &c
}

// NormalizeEmail is the canonical form used to store and look up invited addresses.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
