package handler

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/identity"
	"github.com/ofa-alumni/ofatechdotorg/internal/middleware"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
	authUC "github.com/ofa-alumni/ofatechdotorg/usecase/auth"
	profileUC "github.com/ofa-alumni/ofatechdotorg/usecase/profile"
)

const peoplePath = "/people"

// IdentityProvider is the part of the identity boundary the auth routes use.
type IdentityProvider interface {
	Verify(token string) (domain.Identity, error)
	LoginURL(returnTo string) string
	LogoutURL(returnTo string) string
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	baseHandler
	sessions *authUC.UseCase
	profiles *profileUC.UseCase
	provider IdentityProvider
	cookie   CookieConfig
}

func NewAuthHandler(
	sessions *authUC.UseCase,
	profiles *profileUC.UseCase,
	provider IdentityProvider,
	cookie CookieConfig,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sessions:    sessions,
		profiles:    profiles,
		provider:    provider,
		cookie:      cookie,
	}
}

// Home routes the caller: anonymous users to the provider login, members to the
// directory, admins without a Person are enrolled first, everyone else is logged out.
func (h *AuthHandler) Home(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)
	if caller.IsZero() {
		h.redirect(ctx, h.provider.LoginURL(homePath))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	_, created, err := h.profiles.EnsurePerson(stdCtx, caller)
	switch {
	case err == nil:
		if created {
			h.log(stdCtx).Info("admin enrolled on first visit")
		}
		h.redirect(ctx, peoplePath)
	case errors.Is(err, domain.ErrPersonNotFound):
		h.log(stdCtx).Warn("identity is not a member")
		h.redirect(ctx, h.provider.LogoutURL(homePath))
	default:
		h.respondError(ctx, err)
	}
}

// Callback exchanges the provider token for a session cookie.
func (h *AuthHandler) Callback(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	caller, err := h.provider.Verify(string(ctx.QueryArgs().Peek("token")))
	if err != nil {
		h.log(stdCtx).Warn("identity token rejected", zap.Error(err))
		h.respondError(ctx, err)
		return
	}

	session, err := h.sessions.OpenSession(stdCtx, caller)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.setCookie(ctx, session.ID, session.ExpiresAt)
	h.redirect(ctx, identity.SafeReturnPath(string(ctx.QueryArgs().Peek("return_to"))))
}

// Logout drops the local session and ends the provider session.
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if sessionID := string(ctx.Request.Header.Cookie(h.cookie.Name)); sessionID != "" {
		if err := h.sessions.RevokeSession(stdCtx, sessionID); err != nil {
			h.log(stdCtx).Warn("session revoke failed", zap.Error(err))
		}
	}
	h.clearCookie(ctx)
	h.redirect(ctx, h.provider.LogoutURL(homePath))
}

func (h *AuthHandler) setCookie(ctx *fasthttp.RequestCtx, value string, expires time.Time) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetKey(h.cookie.Name)
	c.SetValue(value)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(h.cookie.Secure)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetExpire(expires)
	ctx.Response.Header.SetCookie(c)
}

func (h *AuthHandler) clearCookie(ctx *fasthttp.RequestCtx) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetKey(h.cookie.Name)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetExpire(fasthttp.CookieExpireDelete)
	ctx.Response.Header.SetCookie(c)
}
