package transport

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ofa-alumni/ofatechdotorg/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// Bytes encodes the envelope, falling back to an empty object.
func (e Envelope) Bytes() []byte {
	out, err := json.Marshal(e)
	if err != nil {
		return []byte("{}")
	}
	return out
}

func (e Envelope) String() string {
	return string(e.Bytes())
}

// PersonView is a member as shown to other members. The identity token never leaves
// the server.
type PersonView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
	Email       *string   `json:"email,omitempty"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Twitter     *string   `json:"twitter,omitempty"`
	GitHub      *string   `json:"github,omitempty"`
	LinkedIn    *string   `json:"linkedin,omitempty"`
	Facebook    *string   `json:"facebook,omitempty"`
	GravatarURL *string   `json:"gravatar_url,omitempty"`
	Active      bool      `json:"active"`
	VCardURL    string    `json:"vcard_url"`
	Added       time.Time `json:"added"`
	Updated     time.Time `json:"updated"`
}

func NewPersonView(p *domain.Person) PersonView {
	return PersonView{
		ID:          p.ID,
		Name:        p.FullName(),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		PhoneNumber: p.PhoneNumber,
		Address:     p.Address,
		Twitter:     p.Twitter,
		GitHub:      p.GitHub,
		LinkedIn:    p.LinkedIn,
		Facebook:    p.Facebook,
		GravatarURL: p.GravatarURL,
		Active:      p.Active,
		VCardURL:    "/people/" + p.ID + "/vcard",
		Added:       p.Added,
		Updated:     p.Updated,
	}
}

func NewPersonViews(people []domain.Person) []PersonView {
	out := make([]PersonView, 0, len(people))
	for i := range people {
		out = append(out, NewPersonView(&people[i]))
	}
	return out
}

type InvitationView struct {
	ID           string     `json:"id"`
	InvitedEmail string     `json:"invited_email"`
	CreatedAt    time.Time  `json:"created_at"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	Claimed      bool       `json:"claimed"`
}

func NewInvitationView(inv *domain.Invitation) InvitationView {
	return InvitationView{
		ID:           inv.ID,
		InvitedEmail: inv.InvitedEmail,
		CreatedAt:    inv.CreatedAt,
		ClaimedAt:    inv.ClaimedAt,
		Claimed:      inv.IsClaimed(),
	}
}

func NewInvitationViews(invitations []domain.Invitation) []InvitationView {
	out := make([]InvitationView, 0, len(invitations))
	for i := range invitations {
		out = append(out, NewInvitationView(&invitations[i]))
	}
	return out
}
