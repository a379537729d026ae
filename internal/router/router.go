package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/ofa-alumni/ofatechdotorg/api/handler"
	"github.com/ofa-alumni/ofatechdotorg/internal/identity"
)

type Handlers struct {
	Auth       *apiHandler.AuthHandler
	Profile    *apiHandler.ProfileHandler
	Directory  *apiHandler.DirectoryHandler
	Invitation *apiHandler.InvitationHandler
	Health     *apiHandler.HealthHandler
}

// Middleware decorates handlers with caller resolution.
type Middleware interface {
	// Authenticate resolves the caller without enforcing anything.
	Authenticate(next fasthttp.RequestHandler) fasthttp.RequestHandler
	// RequireLogin redirects anonymous callers to the identity provider.
	RequireLogin(next fasthttp.RequestHandler) fasthttp.RequestHandler
	// RequireIdentity answers anonymous callers with 401.
	RequireIdentity(next fasthttp.RequestHandler) fasthttp.RequestHandler
}

func New(handlers Handlers, auth Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Identity
	r.GET("/", auth.Authenticate(handlers.Auth.Home))
	r.GET(identity.CallbackPath, handlers.Auth.Callback)
	r.GET("/logout", handlers.Auth.Logout)

	// Directory
	r.GET("/people", auth.RequireIdentity(handlers.Directory.List))
	r.GET("/people.vcf", auth.RequireLogin(handlers.Directory.ExportAll))
	r.GET("/people/{id}/vcard", auth.RequireLogin(handlers.Directory.Export))
	r.GET("/people/me", auth.RequireIdentity(handlers.Profile.GetProfile))
	r.POST("/people/me", auth.RequireIdentity(handlers.Profile.UpdateProfile))

	// Invitations
	r.GET("/invitations", auth.RequireIdentity(handlers.Invitation.List))
	r.POST("/invitations", auth.RequireIdentity(handlers.Invitation.Create))
	r.GET("/invitations/claim", auth.RequireLogin(handlers.Invitation.Claim))
	r.GET("/invitations/{id}", auth.RequireLogin(handlers.Invitation.Get))

	return r
}
