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
	profileUC "github.com/ofa-alumni/ofatechdotorg/usecase/profile"
)

const profilePath = "/people/me"

type ProfileHandler struct {
	baseHandler
	uc *profileUC.UseCase
}

func NewProfileHandler(uc *profileUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// GetProfile returns the caller's own Person.
func (h *ProfileHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	person, err := h.uc.GetProfile(stdCtx, caller.Token)
	if err != nil {
		if errors.Is(err, domain.ErrPersonNotFound) {
			h.redirectHome(ctx, stdCtx, "profile requested by non-member", err)
			return
		}
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewPersonView(person))
}

// UpdateProfile replaces the caller's profile from a JSON body or a form post.
// Form posts are redirected back to the profile.
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	caller := middleware.IdentityFrom(ctx)

	var req transport.ProfileUpdateRequest
	jsonBody := isJSON(ctx)
	if jsonBody {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err))
			return
		}
	} else {
		req.FromForm(func(key string) string { return string(ctx.FormValue(key)) })
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	person, err := h.uc.UpdateProfile(stdCtx, caller.Token, req.Profile())
	if err != nil {
		if errors.Is(err, domain.ErrPersonNotFound) {
			h.redirectHome(ctx, stdCtx, "profile update by non-member", err)
			return
		}
		h.respondError(ctx, err)
		return
	}
	h.log(stdCtx).Info("profile updated", zap.String("person_id", person.ID), zap.Bool("active", person.Active))

	if !jsonBody {
		h.redirect(ctx, profilePath)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewPersonView(person))
}
