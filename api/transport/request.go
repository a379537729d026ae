package transport

import (
	"github.com/ofa-alumni/ofatechdotorg/domain"
)

// ProfileUpdateRequest replaces every editable field; omitted or blank fields are cleared.
type ProfileUpdateRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Twitter     string `json:"twitter"`
	GitHub      string `json:"github"`
	LinkedIn    string `json:"linkedin"`
	Facebook    string `json:"facebook"`
}

// FromForm fills the request from a form lookup.
func (r *ProfileUpdateRequest) FromForm(value func(key string) string) {
	r.FirstName = value("first_name")
	r.LastName = value("last_name")
	r.Email = value("email")
	r.PhoneNumber = value("phone_number")
	r.Address = value("address")
	r.Twitter = value("twitter")
	r.GitHub = value("github")
	r.LinkedIn = value("linkedin")
	r.Facebook = value("facebook")
}

func (r ProfileUpdateRequest) Profile() domain.Profile {
	return domain.Profile{
		FirstName:   domain.OptionalString(r.FirstName),
		LastName:    domain.OptionalString(r.LastName),
		Email:       domain.OptionalString(r.Email),
		PhoneNumber: domain.OptionalString(r.PhoneNumber),
		Address:     domain.OptionalString(r.Address),
		Twitter:     domain.OptionalString(r.Twitter),
		GitHub:      domain.OptionalString(r.GitHub),
		LinkedIn:    domain.OptionalString(r.LinkedIn),
		Facebook:    domain.OptionalString(r.Facebook),
	}
}

type InvitationRequest struct {
	Email string `json:"email"`
}
