package memory

import (
	"github.com/ofa-alumni/ofatechdotorg/domain"
)

// Records keep the indexed columns flat and hold private copies of the domain values,
// so nothing a caller does to a returned struct leaks back into the database.

type personRecord struct {
	ID       string
	Identity string
	Email    string
	Active   bool
	Person   *domain.Person
}

func newPersonRecord(p *domain.Person) *personRecord {
	c := p.Clone()
	return &personRecord{
		ID:       c.ID,
		Identity: c.Identity,
		Email:    domain.StringValue(c.Email),
		Active:   c.Active,
		Person:   c,
	}
}

type invitationRecord struct {
	ID         string
	Email      string
	Inviter    string
	Invitation *domain.Invitation
}

func newInvitationRecord(i *domain.Invitation) *invitationRecord {
	c := i.Clone()
	return &invitationRecord{
		ID:         c.ID,
		Email:      c.InvitedEmail,
		Inviter:    c.InviterIdentity,
		Invitation: c,
	}
}

type sessionRecord struct {
	ID      string
	Session domain.Session
}
