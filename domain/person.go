package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

const gravatarBaseURL = "https://www.gravatar.com/avatar/"

// Person represents one directory member owned by exactly one external identity.
type Person struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
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
	Added       time.Time `json:"added"`
	Updated     time.Time `json:"updated"`
}

// Profile carries the user-editable part of a Person. Nil means unset.
type Profile struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Address     *string
	Twitter     *string
	GitHub      *string
	LinkedIn    *string
	Facebook    *string
}

// NewPerson builds a bare, inactive Person for the given identity.
func NewPerson(id, identity string, email *string, now time.Time) *Person {
	p := &Person{
		ID:       id,
		Identity: identity,
		Email:    normalizeOptional(email),
		Added:    now,
		Updated:  now,
	}
	p.refreshDerived()
	return p
}

// ApplyProfile overwrites every profile field, recomputes the derived fields and
// reports whether the active flag changed.
func (p *Person) ApplyProfile(profile Profile, now time.Time) bool {
	if p == nil {
		return false
	}
	wasActive := p.Active

	p.FirstName = normalizeOptional(profile.FirstName)
	p.LastName = normalizeOptional(profile.LastName)
	p.Email = normalizeOptional(profile.Email)
	p.PhoneNumber = normalizeOptional(profile.PhoneNumber)
	p.Address = normalizeOptional(profile.Address)
	p.Twitter = normalizeOptional(profile.Twitter)
	p.GitHub = normalizeOptional(profile.GitHub)
	p.LinkedIn = normalizeOptional(profile.LinkedIn)
	p.Facebook = normalizeOptional(profile.Facebook)

	p.refreshDerived()
	p.Touch(now)

	return wasActive != p.Active
}

// Touch records a mutation.
func (p *Person) Touch(now time.Time) {
	if p == nil {
		return
	}
	if now.IsZero() {
		now = time.Now()
	}
	p.Updated = now
	if p.Added.IsZero() {
		p.Added = now
	}
}

// FullName joins the set name parts with a single space.
func (p *Person) FullName() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if p.FirstName != nil {
		parts = append(parts, *p.FirstName)
	}
	if p.LastName != nil {
		parts = append(parts, *p.LastName)
	}
	return strings.Join(parts, " ")
}

// SortKey is the value the directory orders members by.
func (p *Person) SortKey() string {
	return StringValue(p.LastName)
}

// Clone returns a deep copy so stored records never share pointers with callers.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	c := *p
	c.FirstName = cloneString(p.FirstName)
	c.LastName = cloneString(p.LastName)
	c.Email = cloneString(p.Email)
	c.PhoneNumber = cloneString(p.PhoneNumber)
	c.Address = cloneString(p.Address)
	c.Twitter = cloneString(p.Twitter)
	c.GitHub = cloneString(p.GitHub)
	c.LinkedIn = cloneString(p.LinkedIn)
	c.Facebook = cloneString(p.Facebook)
	c.GravatarURL = cloneString(p.GravatarURL)
	return &c
}

func (p *Person) refreshDerived() {
	p.Active = p.FirstName != nil && p.LastName != nil
	if p.Email == nil {
		p.GravatarURL = nil
		return
	}
	url := GravatarURL(*p.Email)
	p.GravatarURL = &url
}

// GravatarURL derives the avatar address from the lowercased, trimmed e-mail.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarBaseURL + hex.EncodeToString(sum[:])
}

// OptionalString converts form input into an optional value: blank input is unset.
func OptionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// StringValue dereferences an optional value, returning "" when unset.
func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	return OptionalString(*value)
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
