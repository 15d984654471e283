package model

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
	StatusDeleted  Status = "deleted"
)

// OwnerKind separates registered uploads from guest uploads.
// It also namespaces short codes.
type OwnerKind string

const (
	OwnerKindOwned OwnerKind = "owned"
	OwnerKindGuest OwnerKind = "guest"
)

// Namespace is the path segment of a short URL for this owner kind.
func (k OwnerKind) Namespace() string {
	if k == OwnerKindGuest {
		return "g"
	}
	return "f"
}

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	return k == OwnerKindOwned || k == OwnerKindGuest
}

// OwnerKindFromNamespace maps "f" and "g" back to an owner kind.
func OwnerKindFromNamespace(ns string) (OwnerKind, bool) {
	switch ns {
	case "f":
		return OwnerKindOwned, true
	case "g":
		return OwnerKindGuest, true
	default:
		return "", false
	}
}

type FileRecord struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	OwnerKind  OwnerKind `gorm:"column:owner_kind;size:16;not null;uniqueIndex:uk_short_code_kind,priority:1" json:"owner_kind"`
	UserID     *uint64   `gorm:"column:user_id;index" json:"user_id,omitempty"`      // set only for owned records
	GuestLabel string    `gorm:"column:guest_label;size:32" json:"guest_label,omitempty"` // set only for guest records

	StorageKey  string `gorm:"column:storage_key;size:512;not null;uniqueIndex" json:"-"`
	DisplayName string `gorm:"column:display_name;size:255;not null;index" json:"display_name"`
	MimeType    string `gorm:"column:mime_type;size:255;not null" json:"mime_type"`
	SizeBytes   int64  `gorm:"column:size_bytes;not null" json:"size_bytes"`

	Status    Status     `gorm:"column:status;size:16;not null;index" json:"status"`
	HasExpiry bool       `gorm:"column:has_expiry;not null;default:false" json:"has_expiry"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index" json:"expires_at"`

	PasswordHash        *string `gorm:"column:password_hash;size:255" json:"-"`
	IsPasswordProtected bool    `gorm:"column:is_password_protected;not null;default:false" json:"is_password_protected"`

	ShortCode string `gorm:"column:short_code;size:32;not null;uniqueIndex:uk_short_code_kind,priority:2" json:"short_code"`

	DownloadCount int64 `gorm:"column:download_count;not null;default:0" json:"download_count"`

	DeletingAt *time.Time `gorm:"column:deleting_at" json:"-"` // delete lease
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (FileRecord) TableName() string {
	return "file_record"
}

// IsOwned reports whether the record belongs to a registered user.
func (r *FileRecord) IsOwned() bool {
	return r.OwnerKind == OwnerKindOwned && r.UserID != nil
}

// OwnerLabel is the value shown as "uploaded by".
func (r *FileRecord) OwnerLabel() string {
	if r.OwnerKind == OwnerKindGuest {
		return r.GuestLabel
	}
	return ""
}

// SetPasswordHash keeps IsPasswordProtected in step with PasswordHash.
func (r *FileRecord) SetPasswordHash(hash *string) {
	if hash != nil && *hash == "" {
		hash = nil
	}
	r.PasswordHash = hash
	r.IsPasswordProtected = hash != nil
}

// PasswordConsistent reports whether the stored flag matches the stored hash.
func (r *FileRecord) PasswordConsistent() bool {
	hasHash := r.PasswordHash != nil && *r.PasswordHash != ""
	return r.IsPasswordProtected == hasHash
}

// ExpiredAt reports whether expiresAt has passed at now.
func (r *FileRecord) ExpiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

/*
The two record variants share one table. OwnerKind is the tag:
owned rows carry UserID (the backing User gets counter updates), guest rows carry
a synthetic GuestLabel with no backing entity.
*/
