package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/api/transport"
	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
)

const identityKey = "directory.identity"

// SessionResolver maps a session cookie value to an identity. Unknown sessions
// resolve to the zero identity without error.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (domain.Identity, error)
}

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type AuthConfig struct {
	CookieName string
	Sessions   SessionResolver
	Tokens     TokenVerifier
	// LoginURL builds the provider login address for a local return path.
	LoginURL func(returnTo string) string
	Adapter  *httpcontext.Adapter
	Logger   *zap.Logger
}

// Auth resolves the caller from the session cookie or a bearer token.
type Auth struct {
	cfg AuthConfig
}

func NewAuth(cfg AuthConfig) *Auth {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Adapter == nil {
		cfg.Adapter = httpcontext.NewAdapter(0)
	}
	return &Auth{cfg: cfg}
}

// Authenticate stores the resolved identity, if any, and always calls next.
func (a *Auth) Authenticate(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		a.resolve(ctx)
		next(ctx)
	}
}

// RequireLogin redirects anonymous browsers to the identity provider.
func (a *Auth) RequireLogin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if a.resolve(ctx).IsZero() {
			returnTo := string(ctx.RequestURI())
			loginURL := "/"
			if a.cfg.LoginURL != nil {
				loginURL = a.cfg.LoginURL(returnTo)
			}
			ctx.Response.Header.Set("Location", loginURL)
			ctx.SetStatusCode(fasthttp.StatusFound)
			return
		}
		next(ctx)
	}
}

// RequireIdentity answers anonymous API calls with 401.
func (a *Auth) RequireIdentity(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if a.resolve(ctx).IsZero() {
			body := transport.NewError(string(domain.ErrCodeUnauthorized), domain.ErrUnauthenticated.Error(), nil).Bytes()
			ctx.Response.Header.SetContentType("application/json")
			ctx.SetStatusCode(http.StatusUnauthorized)
			ctx.SetBody(body)
			return
		}
		next(ctx)
	}
}

func (a *Auth) resolve(ctx *fasthttp.RequestCtx) domain.Identity {
	if id, ok := ctx.UserValue(identityKey).(domain.Identity); ok {
		return id
	}

	var identity domain.Identity
	if token := extractToken(ctx); token != "" && a.cfg.Tokens != nil {
		id, err := a.cfg.Tokens.Verify(token)
		if err != nil {
			a.cfg.Logger.Warn("invalid bearer token", zap.Error(err))
		} else {
			identity = id
		}
	} else if sessionID := string(ctx.Request.Header.Cookie(a.cfg.CookieName)); sessionID != "" && a.cfg.Sessions != nil {
		stdCtx, cancel := a.cfg.Adapter.Attach(ctx)
		id, err := a.cfg.Sessions.Resolve(stdCtx, sessionID)
		cancel()
		if err != nil {
			a.cfg.Logger.Error("session lookup failed", zap.Error(err))
		} else {
			identity = id
		}
	}

	SetIdentity(ctx, identity)
	return identity
}

// SetIdentity records the caller for the rest of the request.
func SetIdentity(ctx *fasthttp.RequestCtx, identity domain.Identity) {
	ctx.SetUserValue(identityKey, identity)
}

// IdentityFrom returns the caller resolved by Auth, or the zero identity.
func IdentityFrom(ctx *fasthttp.RequestCtx) domain.Identity {
	id, _ := ctx.UserValue(identityKey).(domain.Identity)
	return id
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
