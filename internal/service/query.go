package service

import (
	"context"
	"fmt"
	"strings"

	"PasteBox/model"
)

// Get returns a record in any status.
func (s *FileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	return s.records.GetByID(ctx, id)
}

// GetOwned returns a record only if userID owns it. Records of other owners
// look absent.
func (s *FileService) GetOwned(ctx context.Context, userID uint64, id string) (*model.FileRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.IsOwned() || *rec.UserID != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ListByOwner returns the user's records, newest first. Tombstones are skipped.
func (s *FileService) ListByOwner(ctx context.Context, userID uint64) ([]model.FileRecord, error) {
	return s.records.FindByOwner(ctx, userID)
}

// Search matches the user's display names case-insensitively.
func (s *FileService) Search(ctx context.Context, userID uint64, query string) ([]model.FileRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", ErrInvalidInput)
	}
	return s.records.Search(ctx, userID, query)
}

// DownloadCount returns how many download URLs were issued for a record.
func (s *FileService) DownloadCount(ctx context.Context, id string) (int64, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return rec.DownloadCount, nil
}
