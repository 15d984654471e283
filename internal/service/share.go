package service

import (
	"context"
	"fmt"
	"net/mail"

	"PasteBox/model"

	"github.com/skip2/go-qrcode"
)

// ShareByEmail queues a mail carrying the record's short link.
func (s *FileService) ShareByEmail(ctx context.Context, id, recipient string) (uint64, error) {
	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if rec.Status == model.StatusDeleted {
		return 0, ErrGone
	}
	if s.notifier == nil {
		return 0, fmt.Errorf("%w: email sharing is disabled", ErrUnavailable)
	}
	taskID, err := s.notifier.EnqueueShareEmail(ctx, rec.ID, addr.Address)
	if err != nil {
		return 0, fmt.Errorf("queue share email: %w", err)
	}
	s.log.Info("share email queued", "file_id", rec.ID, "task_id", taskID)
	return taskID, nil
}

// QRCode renders the record's short URL as a PNG of size x size pixels.
func (s *FileService) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	if size > 1024 {
		return nil, fmt.Errorf("%w: qr size at most 1024", ErrInvalidInput)
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.StatusDeleted {
		return nil, ErrGone
	}
	return qrcode.Encode(s.links.URL(rec.ShortCode, rec.OwnerKind), qrcode.Medium, size)
}
