package handler

import (
	"errors"
	"io"
	"net/http"

	"PasteBox/internal/dto"
	"PasteBox/internal/service"
	"PasteBox/model"
	"PasteBox/utils"

	"github.com/gin-gonic/gin"
)

func linkRef(c *gin.Context) (service.Ref, bool) {
	kind, ok := model.OwnerKindFromNamespace(c.Param("ns"))
	if !ok {
		utils.Fail(c, http.StatusNotFound, service.ErrNotFound)
		return service.Ref{}, false
	}
	return service.ByShortCode(c.Param("code"), kind), true
}

// ResolveOwned answers /f/:code.
func (h *Handler) ResolveOwned(c *gin.Context) { h.resolve(c, model.OwnerKindOwned) }

// ResolveGuest answers /g/:code.
func (h *Handler) ResolveGuest(c *gin.Context) { h.resolve(c, model.OwnerKindGuest) }

// ResolveLink answers /api/links/:ns/:code.
func (h *Handler) ResolveLink(c *gin.Context) {
	ref, ok := linkRef(c)
	if !ok {
		return
	}
	h.resolve(c, ref.Kind)
}

func (h *Handler) resolve(c *gin.Context, kind model.OwnerKind) {
	view, err := h.files.ResolveByShortCode(c.Request.Context(), c.Param("code"), kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, view)
}

// bindPassword reads an optional {"password": "..."} body. An empty body
// means no password was supplied.
func bindPassword(c *gin.Context) (*string, error) {
	var req dto.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return req.Password, nil
}

// VerifyPassword checks a password without issuing a download.
func (h *Handler) VerifyPassword(c *gin.Context) {
	ref, ok := linkRef(c)
	if !ok {
		return
	}
	pw, err := bindPassword(c)
	if err != nil {
		badRequest(c, "invalid params")
		return
	}
	var raw string
	if pw != nil {
		raw = *pw
	}
	// the service resolves first, so a missing password on an unknown or
	// expired link reports the link state
	if err := h.files.VerifyPassword(c.Request.Context(), ref, raw); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"verified": true})
}

// Download authorizes and returns a signed URL.
func (h *Handler) Download(c *gin.Context) {
	ref, ok := linkRef(c)
	if !ok {
		return
	}
	pw, err := bindPassword(c)
	if err != nil {
		badRequest(c, "invalid params")
		return
	}
	ticket, err := h.files.AuthorizeAndDownload(c.Request.Context(), ref, pw)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, ticket)
}
