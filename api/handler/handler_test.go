package handler_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/ofa-alumni/ofatechdotorg/api/handler"
	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/identity"
	"github.com/ofa-alumni/ofatechdotorg/internal/infrastructure/monitor"
	"github.com/ofa-alumni/ofatechdotorg/internal/middleware"
	"github.com/ofa-alumni/ofatechdotorg/internal/router"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
	"github.com/ofa-alumni/ofatechdotorg/repository"
	"github.com/ofa-alumni/ofatechdotorg/repository/memory"
	authUC "github.com/ofa-alumni/ofatechdotorg/usecase/auth"
	directoryUC "github.com/ofa-alumni/ofatechdotorg/usecase/directory"
	invitationUC "github.com/ofa-alumni/ofatechdotorg/usecase/invitation"
	profileUC "github.com/ofa-alumni/ofatechdotorg/usecase/profile"
)

const (
	cookieName = "ofa_session"
	secret     = "handler-secret"
)

type mailbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *mailbox) SendInvitation(_ context.Context, to, claimLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = claimLink
	return nil
}

func (m *mailbox) keyFor(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[to]
	require.True(t, ok, "no mail for %s", to)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("key")
}

type app struct {
	handler  fasthttp.RequestHandler
	sessions *authUC.UseCase
	people   repository.PersonRepository
	mail     *mailbox
}

func newApp(t *testing.T) *app {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)

	people := memory.NewPersonRepository(store)
	invitations := memory.NewInvitationRepository(store)
	mail := &mailbox{links: map[string]string{}}

	provider := identity.NewProvider(identity.Config{
		LoginURL:  "https://idp.example/login",
		LogoutURL: "https://idp.example/logout",
		Secret:    secret,
		PublicURL: "https://members.example",
	})
	adapter := httpcontext.NewAdapter(time.Second)

	sessions := authUC.New(memory.NewSessionRepository(store, time.Hour), time.Hour, nil)
	directory := directoryUC.New(people, memory.NewDirectoryCache(), nil)
	profiles := profileUC.New(people, directory, nil)
	invites := invitationUC.New(invitations, people, mail, nil, invitationUC.Config{BaseURL: "https://members.example"}, nil)

	mon := monitor.New(monitor.Checks{}, time.Minute, nil)
	mon.Refresh()

	r := router.New(router.Handlers{
		Auth:       apiHandler.NewAuthHandler(sessions, profiles, provider, apiHandler.CookieConfig{Name: cookieName}, adapter, nil),
		Profile:    apiHandler.NewProfileHandler(profiles, adapter, nil),
		Directory:  apiHandler.NewDirectoryHandler(directory, profiles, adapter, nil),
		Invitation: apiHandler.NewInvitationHandler(invites, profiles, adapter, nil),
		Health:     apiHandler.NewHealthHandler(mon, adapter, nil),
	}, middleware.NewAuth(middleware.AuthConfig{
		CookieName: cookieName,
		Sessions:   sessions,
		Tokens:     provider,
		LoginURL:   provider.LoginURL,
		Adapter:    adapter,
	}))

	return &app{handler: r.Handler, sessions: sessions, people: people, mail: mail}
}

type request struct {
	method      string
	uri         string
	session     string
	body        string
	contentType string
}

func (a *app) do(req request) *fasthttp.RequestCtx {
	var r fasthttp.Request
	if req.method == "" {
		req.method = fasthttp.MethodGet
	}
	r.Header.SetMethod(req.method)
	r.SetRequestURI(req.uri)
	if req.session != "" {
		r.Header.SetCookie(cookieName, req.session)
	}
	if req.body != "" {
		r.Header.SetContentType(req.contentType)
		r.SetBodyString(req.body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&r, nil, nil)
	a.handler(ctx)
	return ctx
}

func (a *app) login(t *testing.T, id domain.Identity) string {
	t.Helper()
	session, err := a.sessions.OpenSession(context.Background(), id)
	require.NoError(t, err)
	return session.ID
}

func location(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Response.Header.Peek("Location"))
}

func TestHome_Routing(t *testing.T) {
	a := newApp(t)

	anon := a.do(request{uri: "/"})
	assert.Equal(t, fasthttp.StatusFound, anon.Response.StatusCode())
	assert.True(t, strings.HasPrefix(location(anon), "https://idp.example/login?"))

	stranger := a.do(request{uri: "/", session: a.login(t, domain.Identity{Token: "stranger"})})
	assert.Equal(t, fasthttp.StatusFound, stranger.Response.StatusCode())
	assert.True(t, strings.HasPrefix(location(stranger), "https://idp.example/logout?"))

	admin := a.do(request{uri: "/", session: a.login(t, domain.Identity{Token: "root", Admin: true})})
	assert.Equal(t, "/people", location(admin))
	_, err := a.people.GetByIdentity(context.Background(), "root")
	assert.NoError(t, err)
}

func TestCallback_OpensSession(t *testing.T) {
	a := newApp(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idp|ada",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	ctx := a.do(request{uri: "/auth/callback?token=" + token + "&return_to=%2Fpeople"})
	require.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode())
	assert.Equal(t, "/people", location(ctx))

	var cookie fasthttp.Cookie
	cookie.SetKey(cookieName)
	require.True(t, ctx.Response.Header.Cookie(&cookie))
	assert.True(t, cookie.HTTPOnly())

	got, err := a.sessions.Resolve(context.Background(), string(cookie.Value()))
	require.NoError(t, err)
	assert.Equal(t, "idp|ada", got.Token)

	rejected := a.do(request{uri: "/auth/callback?token=forged&return_to=https://evil.example"})
	assert.Equal(t, fasthttp.StatusUnauthorized, rejected.Response.StatusCode())

	offsite := a.do(request{uri: "/auth/callback?token=" + token + "&return_to=//evil.example"})
	assert.Equal(t, "/", location(offsite))
}

func TestLogout_RevokesSession(t *testing.T) {
	a := newApp(t)
	sid := a.login(t, domain.Identity{Token: "ada"})

	ctx := a.do(request{uri: "/logout", session: sid})
	assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode())
	assert.True(t, strings.HasPrefix(location(ctx), "https://idp.example/logout?"))

	got, err := a.sessions.Resolve(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAnonymousAccess(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, fasthttp.StatusUnauthorized, a.do(request{uri: "/people"}).Response.StatusCode())
	assert.Equal(t, fasthttp.StatusUnauthorized, a.do(request{uri: "/people/me"}).Response.StatusCode())

	vcf := a.do(request{uri: "/people.vcf"})
	assert.Equal(t, fasthttp.StatusFound, vcf.Response.StatusCode())
	assert.Contains(t, location(vcf), "https://idp.example/login?")
}

func TestInviteClaimAndActivate(t *testing.T) {
	a := newApp(t)
	admin := a.login(t, domain.Identity{Token: "root", Admin: true})
	a.do(request{uri: "/", session: admin})

	created := a.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/invitations",
		session:     admin,
		body:        `{"email":" Bob@Example.com "}`,
		contentType: "application/json",
	})
	require.Equal(t, fasthttp.StatusCreated, created.Response.StatusCode(), string(created.Response.Body()))

	again := a.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/invitations",
		session:     admin,
		body:        "email=bob%40example.com",
		contentType: "application/x-www-form-urlencoded",
	})
	assert.Equal(t, fasthttp.StatusOK, again.Response.StatusCode())

	key := a.mail.keyFor(t, "bob@example.com")

	view := a.do(request{uri: "/invitations/" + key, session: admin})
	assert.Equal(t, fasthttp.StatusOK, view.Response.StatusCode())
	assert.Contains(t, string(view.Response.Body()), `"claimed":false`)

	bob := a.login(t, domain.Identity{Token: "bob"})
	claimed := a.do(request{uri: "/invitations/claim?key=" + key, session: bob})
	assert.Equal(t, fasthttp.StatusFound, claimed.Response.StatusCode())
	assert.Equal(t, "/people/me", location(claimed))

	me := a.do(request{uri: "/people/me", session: bob})
	require.Equal(t, fasthttp.StatusOK, me.Response.StatusCode())
	assert.Contains(t, string(me.Response.Body()), `"email":"bob@example.com"`)
	assert.Contains(t, string(me.Response.Body()), `"active":false`)
	assert.NotContains(t, string(me.Response.Body()), `"identity"`)

	replay := a.do(request{uri: "/invitations/claim?key=" + key, session: a.login(t, domain.Identity{Token: "carol"})})
	assert.Equal(t, "/", location(replay))

	// a member other than the inviter cannot see the invitation
	hidden := a.do(request{uri: "/invitations/" + key, session: bob})
	assert.Equal(t, "/", location(hidden))

	list := a.do(request{uri: "/people", session: bob})
	require.Equal(t, fasthttp.StatusOK, list.Response.StatusCode())
	assert.NotContains(t, string(list.Response.Body()), "Bob")

	updated := a.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/people/me",
		session:     bob,
		body:        "first_name=Bob&last_name=Builder&email=bob%40example.com",
		contentType: "application/x-www-form-urlencoded",
	})
	assert.Equal(t, "/people/me", location(updated))

	list = a.do(request{uri: "/people", session: bob})
	assert.Contains(t, string(list.Response.Body()), `"name":"Bob Builder"`)

	all := a.do(request{uri: "/people.vcf", session: bob})
	require.Equal(t, fasthttp.StatusOK, all.Response.StatusCode())
	assert.Equal(t, "text/x-vcard", string(all.Response.Header.ContentType()))
	assert.Contains(t, string(all.Response.Header.Peek("Content-Disposition")), "members.vcf")
	assert.Contains(t, string(all.Response.Body()), "FN:Bob Builder")

	person, err := a.people.GetByIdentity(context.Background(), "bob")
	require.NoError(t, err)
	card := a.do(request{uri: "/people/" + person.ID + "/vcard", session: bob})
	require.Equal(t, fasthttp.StatusOK, card.Response.StatusCode())
	assert.Contains(t, string(card.Response.Header.Peek("Content-Disposition")), `filename="bob-builder.vcf"`)

	mine := a.do(request{uri: "/invitations", session: admin})
	assert.Contains(t, string(mine.Response.Body()), `"claimed":true`)
}

func TestBrowserRoutesRedirectOnUnknownKeys(t *testing.T) {
	a := newApp(t)
	sid := a.login(t, domain.Identity{Token: "root", Admin: true})
	a.do(request{uri: "/", session: sid})

	for _, uri := range []string{
		"/invitations/not-a-uuid",
		"/invitations/00000000-0000-0000-0000-000000000000",
		"/invitations/claim?key=bogus",
		"/people/not-a-uuid/vcard",
	} {
		ctx := a.do(request{uri: uri, session: sid})
		assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode(), uri)
		assert.Equal(t, "/", location(ctx), uri)
	}
}

func TestCreateInvitation_RequiresMembership(t *testing.T) {
	a := newApp(t)

	ctx := a.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/invitations",
		session:     a.login(t, domain.Identity{Token: "outsider"}),
		body:        `{"email":"x@example.com"}`,
		contentType: "application/json",
	})
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	bad := a.do(request{
		method:      fasthttp.MethodPost,
		uri:         "/invitations",
		session:     a.login(t, domain.Identity{Token: "outsider"}),
		body:        `{"email":`,
		contentType: "application/json",
	})
	assert.Equal(t, fasthttp.StatusBadRequest, bad.Response.StatusCode())
}

func TestHealth(t *testing.T) {
	ctx := newApp(t).do(request{uri: "/health"})
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"store":true`)
}

func (a *app) addMember(t *testing.T, token, first, last string) *domain.Person {
	t.Helper()
	now := time.Now().UTC()
	p := domain.NewPerson("11111111-1111-1111-1111-111111111111", token, domain.OptionalString(token+"@example.com"), now)
	p.ApplyProfile(domain.Profile{
		FirstName:   domain.OptionalString(first),
		LastName:    domain.OptionalString(last),
		Email:       domain.OptionalString(token + "@example.com"),
		PhoneNumber: domain.OptionalString("+44 20 7946 0000"),
	}, now)
	created, err := a.people.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestDirectory_RequiresMembership(t *testing.T) {
	a := newApp(t)
	ada := a.addMember(t, "ada", "Ada", "Lovelace")
	stranger := a.login(t, domain.Identity{Token: "stranger"})

	list := a.do(request{uri: "/people", session: stranger})
	assert.Equal(t, fasthttp.StatusForbidden, list.Response.StatusCode())
	assert.NotContains(t, string(list.Response.Body()), "Lovelace")

	for _, uri := range []string{"/people.vcf", "/people/" + ada.ID + "/vcard"} {
		ctx := a.do(request{uri: uri, session: stranger})
		assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode(), uri)
		assert.Equal(t, "/", location(ctx), uri)
		assert.NotContains(t, string(ctx.Response.Body()), "BEGIN:VCARD", uri)
	}

	member := a.login(t, domain.Identity{Token: "ada"})
	list = a.do(request{uri: "/people", session: member})
	assert.Equal(t, fasthttp.StatusOK, list.Response.StatusCode())
	assert.Contains(t, string(list.Response.Body()), `"name":"Ada Lovelace"`)

	card := a.do(request{uri: "/people/" + ada.ID + "/vcard", session: member})
	assert.Equal(t, fasthttp.StatusOK, card.Response.StatusCode())
	assert.Contains(t, string(card.Response.Body()), "FN:Ada Lovelace")
}

func TestDirectory_InactivePersonHasNoCard(t *testing.T) {
	a := newApp(t)
	a.addMember(t, "ada", "Ada", "Lovelace")

	pending, err := a.people.Create(context.Background(),
		domain.NewPerson("22222222-2222-2222-2222-222222222222", "pending", nil, time.Now()))
	require.NoError(t, err)

	ctx := a.do(request{uri: "/people/" + pending.ID + "/vcard", session: a.login(t, domain.Identity{Token: "ada"})})
	assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode())
	assert.Equal(t, "/", location(ctx))
}

func TestProfile_NonMemberIsSentHome(t *testing.T) {
	a := newApp(t)
	stranger := a.login(t, domain.Identity{Token: "stranger"})

	view := a.do(request{uri: "/people/me", session: stranger})
	assert.Equal(t, fasthttp.StatusFound, view.Response.StatusCode())
	assert.Equal(t, "/", location(view))

	for _, req := range []request{
		{body: "first_name=Eve&last_name=Stranger", contentType: "application/x-www-form-urlencoded"},
		{body: `{"first_name":"Eve","last_name":"Stranger"}`, contentType: "application/json"},
	} {
		req.method = fasthttp.MethodPost
		req.uri = "/people/me"
		req.session = stranger
		ctx := a.do(req)
		assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode(), req.contentType)
		assert.Equal(t, "/", location(ctx), req.contentType)
	}

	_, err := a.people.GetByIdentity(context.Background(), "stranger")
	assert.ErrorIs(t, err, domain.ErrPersonNotFound)
}
