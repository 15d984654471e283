package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	UserName string `gorm:"column:user_name;type:varchar(50);not null;unique" json:"user_name"`
	Email    string `gorm:"column:email;type:varchar(255);not null;unique" json:"email"`
	FullName string `gorm:"column:full_name;type:varchar(120);not null;default:''" json:"full_name"`

	TotalUploads   int64 `gorm:"column:total_uploads;not null;default:0" json:"total_uploads"`
	TotalDownloads int64 `gorm:"column:total_downloads;not null;default:0" json:"total_downloads"`
	ImageCount     int64 `gorm:"column:image_count;not null;default:0" json:"image_count"`
	VideoCount     int64 `gorm:"column:video_count;not null;default:0" json:"video_count"`
	DocumentCount  int64 `gorm:"column:document_count;not null;default:0" json:"document_count"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "user_db"
}

// Counter columns that may be incremented on a user row.
const (
	CounterTotalUploads   = "total_uploads"
	CounterTotalDownloads = "total_downloads"
	CounterImageCount     = "image_count"
	CounterVideoCount     = "video_count"
	CounterDocumentCount  = "document_count"
)

// ValidCounter reports whether name is an incrementable user counter.
func ValidCounter(name string) bool {
	switch name {
	case CounterTotalUploads, CounterTotalDownloads, CounterImageCount, CounterVideoCount, CounterDocumentCount:
		return true
	default:
		return false
	}
}
