package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ofa-alumni/ofatechdotorg/api/transport"
	"github.com/ofa-alumni/ofatechdotorg/domain"
	"github.com/ofa-alumni/ofatechdotorg/internal/middleware"
	"github.com/ofa-alumni/ofatechdotorg/pkg/httpcontext"
	"github.com/ofa-alumni/ofatechdotorg/pkg/vcard"
	directoryUC "github.com/ofa-alumni/ofatechdotorg/usecase/directory"
)

const directoryFileName = "members.vcf"

// MemberLookup resolves an identity token to the caller's Person.
type MemberLookup interface {
	GetProfile(ctx context.Context, identity string) (*domain.Person, error)
}

// DirectoryHandler serves the member directory. Every route is limited to callers
// that own a Person.
type DirectoryHandler struct {
	baseHandler
	uc      *directoryUC.UseCase
	members MemberLookup
}

func NewDirectoryHandler(uc *directoryUC.UseCase, members MemberLookup, adapter *httpcontext.Adapter, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		members:     members,
	}
}

// List returns the active members ordered by last name.
func (h *DirectoryHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if !h.requireMember(ctx, stdCtx, false) {
		return
	}

	people, err := h.uc.GetActiveSorted(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewPersonViews(people))
}

// ExportAll downloads every active member as one vCard file.
func (h *DirectoryHandler) ExportAll(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if !h.requireMember(ctx, stdCtx, true) {
		return
	}

	people, err := h.uc.GetActiveSorted(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondVCard(ctx, directoryFileName, people...)
}

// Export downloads one member's vCard.
func (h *DirectoryHandler) Export(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if !h.requireMember(ctx, stdCtx, true) {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	person, err := h.uc.Get(stdCtx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPersonNotFound) {
			h.redirectHome(ctx, stdCtx, "vcard requested for unknown person", err)
			return
		}
		h.respondError(ctx, err)
		return
	}
	h.respondVCard(ctx, vcard.FileName(person), *person)
}

// requireMember lets the request through when the caller owns a Person. Browsers
// are sent home otherwise, JSON clients get 403.
func (h *DirectoryHandler) requireMember(ctx *fasthttp.RequestCtx, stdCtx context.Context, browser bool) bool {
	caller := middleware.IdentityFrom(ctx)
	_, err := h.members.GetProfile(stdCtx, caller.Token)
	switch {
	case err == nil:
		return true
	case !errors.Is(err, domain.ErrPersonNotFound):
		h.respondError(ctx, err)
	case browser:
		h.redirectHome(ctx, stdCtx, "directory requested by non-member", err)
	default:
		h.log(stdCtx).Warn("directory requested by non-member", zap.Error(err))
		h.respondError(ctx, domain.ErrForbidden)
	}
	return false
}

func (h *DirectoryHandler) respondVCard(ctx *fasthttp.RequestCtx, fileName string, people ...domain.Person) {
	var buf bytes.Buffer
	if err := vcard.Encode(&buf, people...); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Response.Header.SetContentType(vcard.ContentType)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(buf.Bytes())
}
