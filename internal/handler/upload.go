package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"PasteBox/internal/dto"
	"PasteBox/internal/service"
	"PasteBox/utils"

	"github.com/gin-gonic/gin"
)

// UploadOwned stores files for the authenticated user.
func (h *Handler) UploadOwned(c *gin.Context) {
	userID, ok := utils.UserID(c)
	if !ok {
		utils.Fail(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	h.upload(c, service.UserOwner(userID))
}

// UploadGuest stores files without an account.
func (h *Handler) UploadGuest(c *gin.Context) {
	h.upload(c, service.GuestOwner())
}

func (h *Handler) upload(c *gin.Context, owner service.Owner) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "no files uploaded")
		return
	}

	var req dto.UploadForm
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	upload := service.UploadRequest{Owner: owner}
	if formBool(req.IsPassword) {
		pw := req.Password
		upload.Password = &pw
	}
	upload.Expiry.HasExpiry = formBool(req.HasExpiry)
	if upload.Expiry.HasExpiry {
		hours, err := service.ParseHours(req.ExpiresAt)
		if err != nil {
			h.fail(c, err)
			return
		}
		upload.Expiry.Hours = hours
	}

	files, closeAll, err := openParts(headers)
	defer closeAll()
	if err != nil {
		badRequest(c, "unreadable file part")
		return
	}
	upload.Files = files

	results, err := h.files.CreateUpload(c.Request.Context(), upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := dto.UploadResponse{Files: []*service.FileRecordView{}}
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			resp.Errors = append(resp.Errors, dto.UploadError{Name: r.Name, Error: r.Err.Error()})
			continue
		}
		resp.Files = append(resp.Files, h.files.View(c.Request.Context(), r.Record))
	}
	if len(resp.Files) == 0 {
		h.fail(c, firstErr)
		return
	}
	utils.Created(c, resp)
}

func openParts(headers []*multipart.FileHeader) ([]service.UploadFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}
	return files, closeAll, nil
}
