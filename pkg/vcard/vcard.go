// Package vcard renders directory members as vCard 3.0 cards.
package vcard

import (
	"io"
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/pkg/slug"
)

const (
	ContentType      = "text/x-vcard"
	version          = "3.0"
	fallbackFileName = "member"
)

var socialBases = []struct {
	get  func(p *domain.Person) *string
	base string
}{
	{func(p *domain.Person) *string { return p.Twitter }, "https://twitter.com/"},
	{func(p *domain.Person) *string { return p.GitHub }, "https://github.com/"},
	{func(p *domain.Person) *string { return p.LinkedIn }, "https://www.linkedin.com/in/"},
	{func(p *domain.Person) *string { return p.Facebook }, "https://www.facebook.com/"},
}

// Card builds the vCard for one person.
func Card(p *domain.Person) govcard.Card {
	card := make(govcard.Card)
	card.SetValue(govcard.FieldVersion, version)
	card.SetValue(govcard.FieldUID, p.ID)
	card.SetValue(govcard.FieldFormattedName, p.FullName())
	card.AddName(&govcard.Name{
		FamilyName: domain.StringValue(p.LastName),
		GivenName:  domain.StringValue(p.FirstName),
	})

	if p.Email != nil {
		card.Add(govcard.FieldEmail, &govcard.Field{
			Value:  *p.Email,
			Params: govcard.Params{govcard.ParamType: {"INTERNET"}},
		})
	}
	if p.PhoneNumber != nil {
		card.Add(govcard.FieldTelephone, &govcard.Field{
			Value:  *p.PhoneNumber,
			Params: govcard.Params{govcard.ParamType: {"CELL"}},
		})
	}
	if p.Address != nil {
		card.AddAddress(&govcard.Address{StreetAddress: *p.Address})
	}
	for _, s := range socialBases {
		if v := s.get(p); v != nil {
			card.AddValue(govcard.FieldURL, profileURL(s.base, *v))
		}
	}
	if p.GravatarURL != nil {
		card.Add(govcard.FieldPhoto, &govcard.Field{
			Value:  *p.GravatarURL,
			Params: govcard.Params{"VALUE": {"URL"}},
		})
	}
	if !p.Updated.IsZero() {
		card.SetValue(govcard.FieldRevision, p.Updated.UTC().Format(time.RFC3339))
	}
	return card
}

// Encode writes one card per person, in order.
func Encode(w io.Writer, people ...domain.Person) error {
	enc := govcard.NewEncoder(w)
	for i := range people {
		if err := enc.Encode(Card(&people[i])); err != nil {
			return err
		}
	}
	return nil
}

// FileName is the download name for a person's card.
func FileName(p *domain.Person) string {
	name := slug.Make(p.FullName())
	if name == "" {
		name = fallbackFileName
	}
	return name + ".vcf"
}

func profileURL(base, handle string) string {
	handle = strings.TrimSpace(handle)
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	return base + strings.TrimPrefix(handle, "@")
}
