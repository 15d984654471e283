package service

import (
	"context"
	"time"

	"PasteBox/model"
)

// FileRecordView is the public projection of a record.
type FileRecordView struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Size                int64        `json:"size"`
	Type                string       `json:"type"`
	Status              model.Status `json:"status"`
	IsPasswordProtected bool         `json:"is_password_protected"`
	HasExpiry           bool         `json:"has_expiry"`
	ExpiresAt           *time.Time   `json:"expires_at"`
	ShortCode           string       `json:"short_code"`
	ShortURL            string       `json:"short_url"`
	PreviewURL          string       `json:"preview_url,omitempty"`
	DownloadCount       int64        `json:"download_count"`
	UploadedBy          string       `json:"uploaded_by"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// View projects rec. Public URLs are withheld from protected records.
func (s *FileService) View(ctx context.Context, rec *model.FileRecord) *FileRecordView {
	v := &FileRecordView{
		ID:                  rec.ID,
		Name:                rec.DisplayName,
		Size:                rec.SizeBytes,
		Type:                rec.MimeType,
		Status:              rec.Status,
		IsPasswordProtected: rec.IsPasswordProtected,
		HasExpiry:           rec.HasExpiry,
		ExpiresAt:           rec.ExpiresAt,
		ShortCode:           rec.ShortCode,
		ShortURL:            s.links.URL(rec.ShortCode, rec.OwnerKind),
		DownloadCount:       rec.DownloadCount,
		UploadedBy:          s.uploadedBy(ctx, rec),
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
	if !rec.IsPasswordProtected && s.store != nil {
		v.PreviewURL = s.store.PublicURL(rec.StorageKey)
	}
	return v
}

func (s *FileService) uploadedBy(ctx context.Context, rec *model.FileRecord) string {
	if !rec.IsOwned() {
		return rec.OwnerLabel()
	}
	if s.owners == nil || rec.UserID == nil {
		return "Unknown"
	}
	user, err := s.owners.GetUser(ctx, *rec.UserID)
	if err != nil {
		return "Unknown"
	}
	if user.FullName != "" {
		return user.FullName
	}
	return user.UserName
}
