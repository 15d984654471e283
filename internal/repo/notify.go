package repo

import (
	"context"
	"errors"
	"time"

	"PasteBox/internal/service"
	"PasteBox/model"

	"gorm.io/gorm"
)

// NotifyTaskStore persists share notification tasks.
type NotifyTaskStore struct {
	db *gorm.DB
}

func NewNotifyTaskStore(db *gorm.DB) *NotifyTaskStore {
	return &NotifyTaskStore{db: db}
}

func (s *NotifyTaskStore) Create(ctx context.Context, task *model.NotifyTask) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *NotifyTaskStore) Get(ctx context.Context, id uint64) (*model.NotifyTask, error) {
	var task model.NotifyTask
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ClaimRunning moves a pending or retrying task to running. It reports false
// when another worker already holds the task or it is finished.
func (s *NotifyTaskStore) ClaimRunning(ctx context.Context, id uint64) (bool, error) {
	startedAt := time.Now()
	res := s.db.WithContext(ctx).Model(&model.NotifyTask{}).
		Where("id = ? AND status IN ?", id, []string{model.NotifyStatusPending, model.NotifyStatusRetrying}).
		Updates(map[string]interface{}{
			"status":     model.NotifyStatusRunning,
			"started_at": &startedAt,
			"error_msg":  "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *NotifyTaskStore) MarkCompleted(ctx context.Context, id uint64) error {
	finishedAt := time.Now()
	return s.db.WithContext(ctx).Model(&model.NotifyTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.NotifyStatusCompleted,
			"finished_at": &finishedAt,
		}).Error
}

func (s *NotifyTaskStore) MarkRetrying(ctx context.Context, id uint64, attempt int, cause error, next time.Time) error {
	return s.db.WithContext(ctx).Model(&model.NotifyTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.NotifyStatusRetrying,
			"error_msg":     cause.Error(),
			"retry_count":   attempt,
			"next_retry_at": &next,
		}).Error
}

func (s *NotifyTaskStore) MarkFailed(ctx context.Context, id uint64, cause error) error {
	finishedAt := time.Now()
	return s.db.WithContext(ctx).Model(&model.NotifyTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.NotifyStatusFailed,
			"error_msg":   cause.Error(),
			"finished_at": &finishedAt,
		}).Error
}
