package dto

import "PasteBox/internal/service"

// UploadError reports one file of a batch that was not stored.
type UploadError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// UploadResponse lists the records created by an upload and the files that failed.
type UploadResponse struct {
	Files  []*service.FileRecordView `json:"files"`
	Errors []UploadError             `json:"errors,omitempty"`
}

type ShortURLResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

type DownloadCountResponse struct {
	ID            string `json:"id"`
	DownloadCount int64  `json:"download_count"`
}

type ShareEmailResponse struct {
	TaskID uint64 `json:"task_id"`
}
