// Package identity is the boundary to the external identity provider. The provider
// authenticates users and hands back a signed token; this package only verifies that
// token and builds the provider's login and logout addresses.
package identity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ofa-alumni/ofatechdotorg/domain"
)

const (
	CallbackPath = "/auth/callback"

	returnToParam = "return_to"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type Config struct {
	LoginURL  string
	LogoutURL string
	Secret    string
	Issuer    string
	// PublicURL is this service's externally visible base, used to build the callback.
	PublicURL string
}

// Provider verifies identity tokens and builds provider URLs.
type Provider struct {
	cfg    Config
	parser *jwt.Parser
}

func NewProvider(cfg Config) *Provider {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Provider{
		cfg:    cfg,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify checks the token signature, expiry and issuer and returns the identity it carries.
func (p *Provider) Verify(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	claims := &Claims{}
	parsed, err := p.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(p.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, domain.WrapError(domain.ErrCodeUnauthorized, "invalid identity token", err)
	}
	if p.cfg.Issuer != "" && !claims.VerifyIssuer(p.cfg.Issuer, true) {
		return domain.Identity{}, domain.WrapError(domain.ErrCodeUnauthorized, "invalid identity token",
			fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	if claims.Subject == "" {
		return domain.Identity{}, domain.WrapError(domain.ErrCodeUnauthorized, "invalid identity token",
			errors.New("missing subject"))
	}

	return domain.Identity{
		Token: claims.Subject,
		Email: strings.ToLower(strings.TrimSpace(claims.Email)),
		Admin: claims.Admin,
	}, nil
}

// LoginURL sends the user to the provider, which redirects back to the callback
// with a token and the original return path.
func (p *Provider) LoginURL(returnTo string) string {
	callback := p.cfg.PublicURL + CallbackPath + "?" + url.Values{returnToParam: {SafeReturnPath(returnTo)}}.Encode()
	return withQuery(p.cfg.LoginURL, url.Values{"redirect_uri": {callback}})
}

// LogoutURL ends the provider session and comes back to returnTo on this service.
func (p *Provider) LogoutURL(returnTo string) string {
	target := p.cfg.PublicURL + SafeReturnPath(returnTo)
	return withQuery(p.cfg.LogoutURL, url.Values{"redirect_uri": {target}})
}

// SafeReturnPath only accepts local absolute paths, so callbacks cannot become open redirects.
func SafeReturnPath(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") ||
		strings.Contains(returnTo, "\\") {
		return "/"
	}
	return returnTo
}

func withQuery(base string, values url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + values.Encode()
}
