package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PasteBox/internal/storage"
	"PasteBox/model"
	"PasteBox/utils"
)

// DownloadTicket is a time-limited URL for a record's bytes.
type DownloadTicket struct {
	URL           string    `json:"download_url"`
	ExpiresAt     time.Time `json:"expires_at"`
	FileName      string    `json:"file_name"`
	DownloadCount int64     `json:"download_count"`
}

// BrokerOptions configures a DownloadBroker.
type BrokerOptions struct {
	TTL     time.Duration
	Timeout time.Duration
	Now     func() time.Time
}

// DownloadBroker issues signed URLs and counts downloads. Callers resolve and
// authorize the record first.
type DownloadBroker struct {
	store   storage.Store
	records RecordStore
	owners  OwnerStore
	opts    BrokerOptions
	log     *slog.Logger
}

func NewDownloadBroker(store storage.Store, records RecordStore, owners OwnerStore, opts BrokerOptions, log *slog.Logger) *DownloadBroker {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DownloadBroker{store: store, records: records, owners: owners, opts: opts, log: log}
}

// Issue mints a signed URL for rec and then records the download. No counter
// moves when signing fails.
func (b *DownloadBroker) Issue(ctx context.Context, rec *model.FileRecord) (*DownloadTicket, error) {
	signCtx := ctx
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		signCtx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}
	name := utils.SanitizeHeaderFilename(rec.DisplayName)
	url, err := b.store.PresignedGetObject(signCtx, rec.StorageKey, b.opts.TTL, storage.SignOptions{
		FileName:    name,
		ContentType: rec.MimeType,
	})
	if err != nil {
		downloadsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: sign url: %v", ErrStorageUnavailable, err)
	}
	expiresAt := b.opts.Now().Add(b.opts.TTL)

	// The URL is dropped if the record stopped being active after resolve.
	if err := b.records.IncrementDownloads(ctx, rec.ID); err != nil {
		downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, fmt.Errorf("count download: %w", err)
	}
	rec.DownloadCount++

	if rec.IsOwned() && b.owners != nil {
		if err := b.owners.Increment(ctx, *rec.UserID, map[string]int64{model.CounterTotalDownloads: 1}); err != nil {
			b.log.Warn("owner download counter failed", "file_id", rec.ID, "user_id", *rec.UserID, "err", err)
		}
	}
	downloadsTotal.WithLabelValues("ok").Inc()
	return &DownloadTicket{
		URL:           url,
		ExpiresAt:     expiresAt,
		FileName:      name,
		DownloadCount: rec.DownloadCount,
	}, nil
}
