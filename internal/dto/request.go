package dto

// UploadForm is the non-file part of an upload form. Flags arrive as form
// strings ("true", "1", "on").
type UploadForm struct {
	IsPassword string `form:"isPassword"`
	Password   string `form:"password"`
	HasExpiry  string `form:"hasExpiry"`
	ExpiresAt  string `form:"expiresAt"` // hours from now
}

// PasswordRequest carries a password for verify and download.
type PasswordRequest struct {
	Password *string `json:"password"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetExpiryRequest struct {
	Hours float64 `json:"hours" binding:"required"`
}

type SetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

type ShareEmailRequest struct {
	Email string `json:"email" binding:"required"`
}
