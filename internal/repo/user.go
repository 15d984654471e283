package repo

import (
	"context"
	"errors"
	"fmt"

	"PasteBox/internal/service"
	"PasteBox/model"

	"gorm.io/gorm"
)

// UserStore reads users and bumps their aggregate counters.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

var _ service.OwnerStore = (*UserStore)(nil)

func (s *UserStore) GetUser(ctx context.Context, userID uint64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user row.
func (s *UserStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// Increment applies all deltas in a single UPDATE so concurrent uploads and
// downloads never lose a count.
func (s *UserStore) Increment(ctx context.Context, userID uint64, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(deltas))
	for name, delta := range deltas {
		if !model.ValidCounter(name) {
			return fmt.Errorf("%w: unknown counter %q", service.ErrInvalidInput, name)
		}
		updates[name] = gorm.Expr(name+" + ?", delta)
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrNotFound
	}
	return nil
}
