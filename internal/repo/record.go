package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PasteBox/internal/service"
	"PasteBox/model"
	"PasteBox/utils"

	"gorm.io/gorm"
)

// RecordStore is the gorm implementation of service.RecordStore.
type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

var _ service.RecordStore = (*RecordStore)(nil)

// Create inserts a record. A taken short code maps to service.ErrShortCodeTaken.
func (s *RecordStore) Create(ctx context.Context, rec *model.FileRecord) error {
	return uniqueViolation(s.db.WithContext(ctx).Create(rec).Error)
}

// uniqueViolation maps a unique constraint failure to the store error for the
// column it hit. Drivers name it differently: MySQL and Postgres report the
// index (uk_short_code_kind, idx_file_record_storage_key), SQLite the columns.
func uniqueViolation(err error) error {
	if !isDuplicateKey(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "short_code"):
		return service.ErrShortCodeTaken
	case strings.Contains(msg, "storage_key"):
		return fmt.Errorf("%w: %v", service.ErrStorageKeyTaken, err)
	}
	return err
}

func (s *RecordStore) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RecordStore) GetByShortCode(ctx context.Context, code string, kind model.OwnerKind) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := s.db.WithContext(ctx).
		Where("short_code = ? AND owner_kind = ?", code, kind).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RecordStore) ShortCodeExists(ctx context.Context, code string, kind model.OwnerKind) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("short_code = ? AND owner_kind = ?", code, kind).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields is a compare-and-swap write: the guard becomes part of the
// WHERE clause and RowsAffected tells whether it still held.
func (s *RecordStore) UpdateFields(ctx context.Context, id string, guard service.Guard, fields map[string]interface{}) (bool, error) {
	if len(fields) == 0 {
		return false, fmt.Errorf("%w: nothing to update", service.ErrInvalidInput)
	}
	q := s.db.WithContext(ctx).Model(&model.FileRecord{}).Where("id = ?", id)
	if len(guard.Statuses) > 0 {
		q = q.Where("status IN ?", guard.Statuses)
	}
	if guard.HasExpiry != nil {
		q = q.Where("has_expiry = ?", *guard.HasExpiry)
	}
	if guard.ShortCode != "" {
		q = q.Where("short_code = ?", guard.ShortCode)
	}
	if guard.ExpiresAtBefore != nil {
		q = q.Where("expires_at IS NOT NULL AND expires_at <= ?", *guard.ExpiresAtBefore)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return false, uniqueViolation(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementDownloads counts a download on an active record. A record that
// was deleted or deactivated since it was resolved is not counted.
func (s *RecordStore) IncrementDownloads(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id = ? AND status = ?", id, model.StatusActive).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch rec.Status {
	case model.StatusDeleted:
		return service.ErrGone
	case model.StatusExpired:
		return service.ErrExpired
	}
	return service.ErrUnavailable
}

func (s *RecordStore) ClaimDeletion(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id = ? AND status <> ?", id, model.StatusDeleted).
		Where("(deleting_at IS NULL OR deleting_at < ?)", now.Add(-lease)).
		UpdateColumn("deleting_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *RecordStore) DeleteByID(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.FileRecord{}).Error
}

// FindByOwner lists a user's records newest first, without tombstones.
func (s *RecordStore) FindByOwner(ctx context.Context, userID uint64) ([]model.FileRecord, error) {
	var recs []model.FileRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND owner_kind = ? AND status <> ?", userID, model.OwnerKindOwned, model.StatusDeleted).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

// Search matches display names case-insensitively.
func (s *RecordStore) Search(ctx context.Context, userID uint64, query string) ([]model.FileRecord, error) {
	var recs []model.FileRecord
	pattern := "%" + utils.EscapeLike(strings.ToLower(query)) + "%"
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND owner_kind = ? AND status <> ?", userID, model.OwnerKindOwned, model.StatusDeleted).
		Where("LOWER(display_name) LIKE ? ESCAPE '"+utils.LikeEscape+"'", pattern).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

// FindAll streams every record in primary key order.
func (s *RecordStore) FindAll(ctx context.Context, batchSize int, fn func([]model.FileRecord) error) error {
	var batch []model.FileRecord
	res := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return res.Error
}
