package service

import (
	"context"
	"time"

	"PasteBox/model"
)

// Guard narrows a conditional update. Zero-valued fields are not checked.
type Guard struct {
	Statuses  []model.Status
	HasExpiry *bool
	ShortCode string
	// ExpiresAtBefore requires a deadline at or before this instant.
	ExpiresAtBefore *time.Time
}

// RecordStore is the durable store for file records. GetByID and
// GetByShortCode return ErrNotFound for missing rows; Create and UpdateFields
// return ErrShortCodeTaken when the short code uniqueness constraint fails.
type RecordStore interface {
	Create(ctx context.Context, rec *model.FileRecord) error
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	GetByShortCode(ctx context.Context, code string, kind model.OwnerKind) (*model.FileRecord, error)
	ShortCodeExists(ctx context.Context, code string, kind model.OwnerKind) (bool, error)

	// UpdateFields applies fields to the row if it still matches guard and
	// reports whether a row was changed.
	UpdateFields(ctx context.Context, id string, guard Guard, fields map[string]interface{}) (bool, error)
	// IncrementDownloads adds one to download_count in a single atomic
	// statement, only while the record is active. Otherwise it returns the
	// error kind of the stored status.
	IncrementDownloads(ctx context.Context, id string) error
	// ClaimDeletion sets the delete lease unless the row is deleted or
	// another unexpired lease holds it.
	ClaimDeletion(ctx context.Context, id string, now time.Time, lease time.Duration) (bool, error)
	DeleteByID(ctx context.Context, id string) error

	FindByOwner(ctx context.Context, userID uint64) ([]model.FileRecord, error)
	Search(ctx context.Context, userID uint64, query string) ([]model.FileRecord, error)
	FindAll(ctx context.Context, batchSize int, fn func([]model.FileRecord) error) error
}

// OwnerStore gives read and increment access to registered users.
type OwnerStore interface {
	GetUser(ctx context.Context, userID uint64) (*model.User, error)
	// Increment adds every delta to its counter column in one statement.
	Increment(ctx context.Context, userID uint64, deltas map[string]int64) error
}

// CodeCache is a shared short code -> record id cache.
type CodeCache interface {
	GetID(ctx context.Context, kind model.OwnerKind, code string) (string, bool)
	SetID(ctx context.Context, kind model.OwnerKind, code, id string) error
	Forget(ctx context.Context, kind model.OwnerKind, code string) error
}

// ExpiryScheduler arms an out-of-band expiry event for a record.
type ExpiryScheduler interface {
	Schedule(ctx context.Context, id string, at time.Time) error
	Cancel(ctx context.Context, id string) error
}

// ShareNotifier queues a share-link message for delivery.
type ShareNotifier interface {
	EnqueueShareEmail(ctx context.Context, fileID, recipient string) (uint64, error)
}
