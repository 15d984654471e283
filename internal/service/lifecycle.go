package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"PasteBox/internal/storage"
	"PasteBox/model"
	"PasteBox/utils"
)

// Owner identifies who a new record belongs to.
type Owner struct {
	Kind   model.OwnerKind
	UserID uint64
}

func GuestOwner() Owner            { return Owner{Kind: model.OwnerKindGuest} }
func UserOwner(userID uint64) Owner { return Owner{Kind: model.OwnerKindOwned, UserID: userID} }

// ExpiryRequest is the caller's requested lifetime.
type ExpiryRequest struct {
	HasExpiry bool
	Hours     *float64
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadRequest is a batch of files sharing owner, password and expiry.
type UploadRequest struct {
	Files    []UploadFile
	Owner    Owner
	Password *string
	Expiry   ExpiryRequest
}

// UploadResult is the per-file outcome of a batch. Exactly one of Record and
// Err is set.
type UploadResult struct {
	Name   string
	Record *model.FileRecord
	Err    error
}

// Ref addresses a record by id or by short code within a namespace.
type Ref struct {
	ID        string
	ShortCode string
	Kind      model.OwnerKind
}

func ByID(id string) Ref { return Ref{ID: id} }

func ByShortCode(code string, kind model.OwnerKind) Ref {
	return Ref{ShortCode: code, Kind: kind}
}

// CreateUpload stores every file of the batch and creates one record per
// stored file. Request-level validation fails the whole batch before any
// side effect; a storage failure only fails its own file.
func (s *FileService) CreateUpload(ctx context.Context, req UploadRequest) ([]UploadResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidInput)
	}
	if len(req.Files) > s.opts.MaxUploadFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidInput, s.opts.MaxUploadFiles)
	}
	if !req.Owner.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown owner kind %q", ErrInvalidInput, req.Owner.Kind)
	}
	expiresAt, err := s.policy.ComputeExpiry(req.Expiry.HasExpiry, req.Expiry.Hours)
	if err != nil {
		return nil, err
	}
	hasExpiry := req.Expiry.HasExpiry && req.Expiry.Hours != nil && *req.Expiry.Hours > 0

	var hash *string
	if req.Password != nil {
		h, err := s.guard.Protect(*req.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}
	if req.Owner.Kind == model.OwnerKindOwned {
		if req.Owner.UserID == 0 {
			return nil, fmt.Errorf("%w: owned upload without user", ErrInvalidInput)
		}
		if _, err := s.owners.GetUser(ctx, req.Owner.UserID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: user %d", ErrNotFound, req.Owner.UserID)
			}
			return nil, err
		}
	}

	results := make([]UploadResult, len(req.Files))
	for i, f := range req.Files {
		rec, err := s.create(ctx, f, req.Owner, hash, expiresAt, hasExpiry)
		results[i] = UploadResult{Name: f.Name, Record: rec, Err: err}
		uploadsTotal.WithLabelValues(string(req.Owner.Kind), resultLabel(err)).Inc()
		if err != nil {
			s.log.Warn("upload file failed", "name", f.Name, "kind", req.Owner.Kind, "err", err)
		}
	}
	return results, nil
}

func (s *FileService) create(ctx context.Context, f UploadFile, owner Owner, hash *string, expiresAt time.Time, hasExpiry bool) (*model.FileRecord, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("%w: file name is empty", ErrInvalidInput)
	}
	if f.Reader == nil {
		return nil, fmt.Errorf("%w: %s has no content", ErrInvalidInput, f.Name)
	}
	suffix, err := utils.GenShortCode(10)
	if err != nil {
		return nil, err
	}
	key := BuildStorageKey(f.Name, suffix)
	mime := f.ContentType
	if mime == "" || mime == "application/octet-stream" {
		mime = ContentTypeFor(f.Name)
	}

	putCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	err = s.store.PutObject(putCtx, key, f.Reader, f.Size, storage.PutOptions{ContentType: mime})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, f.Name, err)
	}

	rec := &model.FileRecord{
		ID:          utils.NewRecordID(),
		OwnerKind:   owner.Kind,
		StorageKey:  key,
		DisplayName: f.Name,
		MimeType:    mime,
		SizeBytes:   f.Size,
		Status:      model.StatusActive,
		HasExpiry:   hasExpiry,
		ExpiresAt:   &expiresAt,
	}
	rec.SetPasswordHash(hash)
	if owner.Kind == model.OwnerKindOwned {
		uid := owner.UserID
		rec.UserID = &uid
	} else {
		label, err := utils.GenShortCode(8)
		if err != nil {
			s.discard(ctx, key)
			return nil, err
		}
		rec.GuestLabel = "guest_" + label
	}

	if err := s.insert(ctx, rec); err != nil {
		if errors.Is(err, ErrStorageKeyTaken) {
			// another record owns the key now; its bytes must stay
			return nil, fmt.Errorf("%w: %s: %w", ErrStorageWriteFailed, f.Name, err)
		}
		s.discard(ctx, key)
		return nil, err
	}

	if rec.IsOwned() {
		deltas := map[string]int64{model.CounterTotalUploads: 1}
		if counter := categoryCounter(mime); counter != "" {
			deltas[counter] = 1
		}
		if err := s.owners.Increment(ctx, owner.UserID, deltas); err != nil {
			s.log.Warn("owner upload counters failed", "file_id", rec.ID, "user_id", owner.UserID, "err", err)
		}
	}
	s.scheduleExpiry(ctx, rec)
	s.log.Info("file stored", "file_id", rec.ID, "short_code", rec.ShortCode, "kind", rec.OwnerKind, "size", rec.SizeBytes)
	return rec, nil
}

// insert mints a code and writes rec, re-minting when the unique constraint
// reports a code taken between mint and insert.
func (s *FileService) insert(ctx context.Context, rec *model.FileRecord) error {
	for attempt := 0; attempt < s.links.maxAttempts; attempt++ {
		code, err := s.links.Mint(ctx, rec.OwnerKind)
		if err != nil {
			return err
		}
		rec.ShortCode = code
		err = s.records.Create(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrShortCodeTaken) {
			return fmt.Errorf("save record: %w", err)
		}
		shortCodeCollisions.Inc()
	}
	return fmt.Errorf("%w: insert kept colliding", ErrExhaustedRetries)
}

func (s *FileService) discard(ctx context.Context, key string) {
	rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.RemoveObject(rmCtx, key); err != nil {
		s.log.Warn("remove orphan object failed", "key", key, "err", err)
	}
}

// Resolve loads a record and checks it may be served. An active record whose
// deadline passed is flipped to expired here; only one concurrent caller
// performs the flip.
func (s *FileService) Resolve(ctx context.Context, ref Ref) (*model.FileRecord, error) {
	rec, err := s.load(ctx, ref)
	if err == nil {
		err = s.checkResolvable(ctx, rec)
	}
	resolutionsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveByShortCode resolves a short code and projects the record.
func (s *FileService) ResolveByShortCode(ctx context.Context, code string, kind model.OwnerKind) (*FileRecordView, error) {
	rec, err := s.Resolve(ctx, ByShortCode(code, kind))
	if err != nil {
		return nil, err
	}
	return s.View(ctx, rec), nil
}

func (s *FileService) load(ctx context.Context, ref Ref) (*model.FileRecord, error) {
	if ref.ID != "" {
		return s.records.GetByID(ctx, ref.ID)
	}
	if ref.ShortCode == "" {
		return nil, fmt.Errorf("%w: empty record reference", ErrInvalidInput)
	}
	return s.links.lookup(ctx, ref.ShortCode, ref.Kind)
}

func (s *FileService) checkResolvable(ctx context.Context, rec *model.FileRecord) error {
	if err := s.statusError(rec); err != nil {
		return err
	}
	now := s.now()
	if !rec.ExpiredAt(now) {
		return nil
	}
	flipped, err := s.expireIfActive(ctx, rec, now)
	if err != nil {
		return err
	}
	if flipped {
		return ErrExpired
	}
	// The row moved since it was read, e.g. an extension landed. Judge the
	// stored state instead.
	fresh, err := s.records.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	*rec = *fresh
	if err := s.statusError(rec); err != nil {
		return err
	}
	if rec.ExpiredAt(now) {
		return ErrExpired
	}
	return nil
}

// statusError maps a non-active status to its error kind.
func (s *FileService) statusError(rec *model.FileRecord) error {
	switch rec.Status {
	case model.StatusDeleted:
		return ErrGone
	case model.StatusExpired:
		return ErrExpired
	case model.StatusInactive:
		return ErrUnavailable
	case model.StatusActive:
	default:
		s.log.Error("record has unknown status", "file_id", rec.ID, "status", rec.Status)
		return fmt.Errorf("%w: status %q", ErrCorruptState, rec.Status)
	}
	return nil
}

// expireIfActive flips rec to expired if the stored row is still active and
// still past its deadline at now.
func (s *FileService) expireIfActive(ctx context.Context, rec *model.FileRecord, now time.Time) (bool, error) {
	flipped, err := s.records.UpdateFields(ctx, rec.ID,
		Guard{Statuses: []model.Status{model.StatusActive}, ExpiresAtBefore: &now},
		map[string]interface{}{"status": model.StatusExpired})
	if err != nil {
		return false, fmt.Errorf("expire record: %w", err)
	}
	if flipped {
		rec.Status = model.StatusExpired
		lazyExpiryTotal.Inc()
		s.log.Info("file expired", "file_id", rec.ID, "short_code", rec.ShortCode)
	}
	return flipped, nil
}

// Authorize checks a password against rec.
func (s *FileService) Authorize(rec *model.FileRecord, password *string) error {
	if !rec.PasswordConsistent() {
		s.log.Error("password flag and hash disagree", "file_id", rec.ID)
		return fmt.Errorf("%w: password flag and hash disagree", ErrCorruptState)
	}
	if !rec.IsPasswordProtected {
		return nil
	}
	if password == nil || *password == "" {
		return ErrPasswordRequired
	}
	ok, err := s.guard.Verify(*password, *rec.PasswordHash)
	if err != nil {
		s.log.Error("stored password hash unusable", "file_id", rec.ID, "err", err)
		return err
	}
	if !ok {
		return ErrIncorrectPassword
	}
	return nil
}

// VerifyPassword resolves ref and checks password without issuing a download.
func (s *FileService) VerifyPassword(ctx context.Context, ref Ref, password string) error {
	rec, err := s.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if !rec.IsPasswordProtected && rec.PasswordConsistent() {
		return fmt.Errorf("%w: file is not password protected", ErrInvalidInput)
	}
	return s.Authorize(rec, &password)
}

// AuthorizeAndDownload resolves, authorizes and issues a download URL.
func (s *FileService) AuthorizeAndDownload(ctx context.Context, ref Ref, password *string) (*DownloadTicket, error) {
	rec, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(rec, password); err != nil {
		downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	return s.broker.Issue(ctx, rec)
}

// SetStatus toggles a record between active and inactive.
func (s *FileService) SetStatus(ctx context.Context, id string, status model.Status) (*model.FileRecord, error) {
	if status != model.StatusActive && status != model.StatusInactive {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}
	for attempt := 0; attempt < 3; attempt++ {
		rec, err := s.records.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		switch rec.Status {
		case model.StatusDeleted:
			return nil, ErrGone
		case model.StatusExpired:
			return nil, fmt.Errorf("%w: expired files cannot be toggled", ErrExpired)
		}
		if rec.Status == status {
			return nil, fmt.Errorf("%w: file already has this status", ErrInvalidInput)
		}
		if status == model.StatusActive && rec.ExpiredAt(s.now()) {
			return nil, fmt.Errorf("%w: extend the expiry before activating", ErrExpired)
		}
		ok, err := s.records.UpdateFields(ctx, id,
			Guard{Statuses: []model.Status{rec.Status}},
			map[string]interface{}{"status": status})
		if err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		if ok {
			rec.Status = status
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: status changed concurrently", ErrUnavailable)
}

// SetExpiry moves the deadline to now+hours on an active or inactive record.
func (s *FileService) SetExpiry(ctx context.Context, id string, hours float64) (*model.FileRecord, error) {
	at, err := s.policy.Extend(hours)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case model.StatusDeleted:
		return nil, ErrGone
	case model.StatusExpired:
		return nil, fmt.Errorf("%w: expired files cannot be extended", ErrExpired)
	}
	ok, err := s.records.UpdateFields(ctx, id,
		Guard{Statuses: []model.Status{model.StatusActive, model.StatusInactive}},
		map[string]interface{}{"expires_at": at, "has_expiry": true})
	if err != nil {
		return nil, fmt.Errorf("update expiry: %w", err)
	}
	if !ok {
		return nil, s.stateError(ctx, id)
	}
	rec.ExpiresAt = &at
	rec.HasExpiry = true
	s.scheduleExpiry(ctx, rec)
	return rec, nil
}

// SetPassword protects a record with a new password. Hash and flag change in
// one write.
func (s *FileService) SetPassword(ctx context.Context, id string, password string) (*model.FileRecord, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.StatusDeleted {
		return nil, ErrGone
	}
	hash, err := s.guard.Protect(password)
	if err != nil {
		return nil, err
	}
	ok, err := s.records.UpdateFields(ctx, id,
		Guard{Statuses: liveStatuses},
		map[string]interface{}{"password_hash": hash, "is_password_protected": true})
	if err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	if !ok {
		return nil, s.stateError(ctx, id)
	}
	rec.SetPasswordHash(&hash)
	return rec, nil
}

// Delete removes the bytes and leaves a tombstone. A lease keeps concurrent
// deletes from both removing bytes.
func (s *FileService) Delete(ctx context.Context, id string) error {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == model.StatusDeleted {
		return ErrGone
	}
	claimed, err := s.records.ClaimDeletion(ctx, id, s.now(), s.opts.DeleteLease)
	if err != nil {
		return fmt.Errorf("claim delete: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: delete already in progress", ErrGone)
	}

	rmCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	err = s.store.RemoveObject(rmCtx, rec.StorageKey)
	cancel()
	if err != nil {
		if _, relErr := s.records.UpdateFields(ctx, id, Guard{}, map[string]interface{}{"deleting_at": nil}); relErr != nil {
			s.log.Warn("release delete lease failed", "file_id", id, "err", relErr)
		}
		return fmt.Errorf("%w: %v", ErrStorageDeleteFailed, err)
	}

	if _, err := s.records.UpdateFields(ctx, id, Guard{},
		map[string]interface{}{"status": model.StatusDeleted, "deleting_at": nil}); err != nil {
		s.log.Error("bytes removed but record not marked deleted", "file_id", id, "err", err)
		return fmt.Errorf("mark deleted: %w", err)
	}
	s.links.Forget(ctx, rec.ShortCode, rec.OwnerKind)
	s.cancelExpiry(ctx, id)
	s.log.Info("file deleted", "file_id", id, "short_code", rec.ShortCode)
	return nil
}

// RegenerateShortCode swaps in a fresh code; the old one stops resolving.
func (s *FileService) RegenerateShortCode(ctx context.Context, id string) (*model.FileRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.StatusDeleted {
		return nil, ErrGone
	}
	old := rec.ShortCode
	for attempt := 0; attempt < s.links.maxAttempts; attempt++ {
		code, err := s.links.Mint(ctx, rec.OwnerKind)
		if err != nil {
			return nil, err
		}
		ok, err := s.records.UpdateFields(ctx, id,
			Guard{Statuses: liveStatuses, ShortCode: old},
			map[string]interface{}{"short_code": code})
		if errors.Is(err, ErrShortCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update short code: %w", err)
		}
		if !ok {
			return nil, s.stateError(ctx, id)
		}
		s.links.Forget(ctx, old, rec.OwnerKind)
		rec.ShortCode = code
		return rec, nil
	}
	return nil, fmt.Errorf("%w: regenerate kept colliding", ErrExhaustedRetries)
}

// stateError explains why a guarded update on id matched nothing.
func (s *FileService) stateError(ctx context.Context, id string) error {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch rec.Status {
	case model.StatusDeleted:
		return ErrGone
	case model.StatusExpired:
		return ErrExpired
	}
	return fmt.Errorf("%w: record changed concurrently", ErrUnavailable)
}

var liveStatuses = []model.Status{model.StatusActive, model.StatusInactive, model.StatusExpired}

func (s *FileService) scheduleExpiry(ctx context.Context, rec *model.FileRecord) {
	if s.expiry == nil || rec.ExpiresAt == nil {
		return
	}
	if err := s.expiry.Schedule(ctx, rec.ID, *rec.ExpiresAt); err != nil {
		s.log.Warn("schedule expiry key failed", "file_id", rec.ID, "err", err)
	}
}

func (s *FileService) cancelExpiry(ctx context.Context, id string) {
	if s.expiry == nil {
		return
	}
	if err := s.expiry.Cancel(ctx, id); err != nil {
		s.log.Warn("cancel expiry key failed", "file_id", id, "err", err)
	}
}

// BuildStorageKey derives a unique object key from an uploaded name.
func BuildStorageKey(name, suffix string) string {
	clean := utils.SanitizeObjectName(name)
	ext := path.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if base == "" {
		base = "file"
	}
	return base + "_" + suffix + strings.ToLower(ext)
}

// ContentTypeFor returns a content type by file extension.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	case ".gz":
		return "application/gzip"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

func categoryCounter(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.CounterImageCount
	case strings.HasPrefix(mime, "video/"):
		return model.CounterVideoCount
	case strings.HasPrefix(mime, "application/"):
		return model.CounterDocumentCount
	default:
		return ""
	}
}
