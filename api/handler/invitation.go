package handler

import (
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/api/transport"
	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/middleware"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
	invitationUC "github.com/ofa-alumni/ofatechdotorg/usecase/invitation"
	profileUC "github.com/ofa-alumni/ofatechdotorg/usecase/profile"
)

type InvitationHandler struct {
	baseHandler
	uc       *invitationUC.UseCase
	profiles *profileUC.UseCase
}

func NewInvitationHandler(uc *invitationUC.UseCase, profiles *profileUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		profiles:    profiles,
	}
}

// List returns the invitations sent by the caller.
func (h *InvitationHandler) List(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	invitations, err := h.uc.ListByInviter(stdCtx, caller.Token)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewInvitationViews(invitations))
}

// Create invites an address on behalf of the calling member. Inviting an address that
// already has an invitation answers 200 with the existing one.
func (h *InvitationHandler) Create(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	var req transport.InvitationRequest
	if isJSON(ctx) {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err))
			return
		}
	} else {
		req.Email = string(ctx.FormValue("email"))
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	inviter, err := h.profiles.GetProfile(stdCtx, caller.Token)
	if err != nil {
		if errors.Is(err, domain.ErrPersonNotFound) {
			err = domain.ErrForbidden
		}
		h.respondError(ctx, err)
		return
	}

	res, err := h.uc.Create(stdCtx, inviter, req.Email)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	h.respondSuccess(ctx, status, transport.NewInvitationView(res.Invitation))
}

// Get shows one invitation to its inviter or an admin.
func (h *InvitationHandler) Get(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, _ := ctx.UserValue("id").(string)
	inv, err := h.uc.Lookup(stdCtx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			h.redirectHome(ctx, stdCtx, "invitation not found", err)
			return
		}
		h.respondError(ctx, err)
		return
	}
	if inv.InviterIdentity != caller.Token && !caller.Admin {
		h.redirectHome(ctx, stdCtx, "invitation belongs to another member", domain.ErrForbidden)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewInvitationView(inv))
}

// Claim consumes the invitation in ?key= for the caller and sends them to their
// new profile.
func (h *InvitationHandler) Claim(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	person, err := h.uc.Claim(stdCtx, string(ctx.QueryArgs().Peek("key")), caller)
	switch {
	case err == nil:
		h.log(stdCtx).Info("member joined", zap.String("person_id", person.ID))
		h.redirect(ctx, profilePath)
	case errors.Is(err, domain.ErrInvitationInvalid), errors.Is(err, domain.ErrPersonExists):
		h.redirectHome(ctx, stdCtx, "invitation claim rejected", err)
	default:
		h.respondError(ctx, err)
	}
}
