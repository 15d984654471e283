package handler

import (
	"errors"
	"net/http"
	"strconv"

	"PasteBox/internal/dto"
	"PasteBox/internal/service"
	"PasteBox/model"
	"PasteBox/utils"

	"github.com/gin-gonic/gin"
)

// owned loads the :id record and checks it belongs to the caller.
func (h *Handler) owned(c *gin.Context) (*model.FileRecord, bool) {
	userID, ok := utils.UserID(c)
	if !ok {
		utils.Fail(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return nil, false
	}
	rec, err := h.files.GetOwned(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return rec, true
}

func (h *Handler) views(c *gin.Context, recs []model.FileRecord) []*service.FileRecordView {
	out := make([]*service.FileRecordView, 0, len(recs))
	for i := range recs {
		out = append(out, h.files.View(c.Request.Context(), &recs[i]))
	}
	return out
}

// ListFiles lists the caller's files, newest first.
func (h *Handler) ListFiles(c *gin.Context) {
	userID, _ := utils.UserID(c)
	recs, err := h.files.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, h.views(c, recs))
}

// SearchFiles matches display names of the caller's files.
func (h *Handler) SearchFiles(c *gin.Context) {
	userID, _ := utils.UserID(c)
	recs, err := h.files.Search(c.Request.Context(), userID, c.Query("query"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, h.views(c, recs))
}

func (h *Handler) FileDetails(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	utils.Success(c, h.files.View(c.Request.Context(), rec))
}

func (h *Handler) DownloadCount(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	count, err := h.files.DownloadCount(c.Request.Context(), rec.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, dto.DownloadCountResponse{ID: rec.ID, DownloadCount: count})
}

func (h *Handler) SetStatus(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	updated, err := h.files.SetStatus(c.Request.Context(), rec.ID, model.Status(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, h.files.View(c.Request.Context(), updated))
}

func (h *Handler) SetExpiry(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.SetExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	updated, err := h.files.SetExpiry(c.Request.Context(), rec.ID, req.Hours)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, h.files.View(c.Request.Context(), updated))
}

func (h *Handler) SetPassword(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "new password is required")
		return
	}
	updated, err := h.files.SetPassword(c.Request.Context(), rec.ID, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, h.files.View(c.Request.Context(), updated))
}

func (h *Handler) DeleteFile(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.files.Delete(c.Request.Context(), rec.ID); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"id": rec.ID})
}

func (h *Handler) RegenerateShortCode(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	updated, err := h.files.RegenerateShortCode(c.Request.Context(), rec.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, dto.ShortURLResponse{
		ShortCode: updated.ShortCode,
		ShortURL:  h.files.Links().URL(updated.ShortCode, updated.OwnerKind),
	})
}

// ShareByEmail queues a share-link mail.
func (h *Handler) ShareByEmail(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.ShareEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	taskID, err := h.files.ShareByEmail(c.Request.Context(), rec.ID, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": 0, "msg": "ok", "data": dto.ShareEmailResponse{TaskID: taskID}})
}

// QRCode returns a PNG of the short URL.
func (h *Handler) QRCode(c *gin.Context) {
	rec, ok := h.owned(c)
	if !ok {
		return
	}
	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid size")
			return
		}
		size = n
	}
	png, err := h.files.QRCode(c.Request.Context(), rec.ID, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ReconcileExpiry runs one expiry sweep inline.
func (h *Handler) ReconcileExpiry(c *gin.Context) {
	report, err := h.files.ReconcileAllExpiry(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{
		"scanned": report.Scanned,
		"updated": report.Updated(),
		"expired": report.Expired,
		"rearmed": report.Rearmed,
		"purged":  report.Purged,
		"failed":  report.Failed,
	})
}
