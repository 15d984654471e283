package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"PasteBox/internal/storage"
	"PasteBox/model"
)

type memRecords struct {
	mu      sync.Mutex
	rows    map[string]model.FileRecord
	creates int
	// takenOnCreate makes the next n Create calls report a code collision.
	takenOnCreate int
	// createErr, when set, is returned by the next Create.
	createErr error
	// beforeUpdate runs once ahead of the next UpdateFields, outside the lock.
	beforeUpdate func(id string)
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[string]model.FileRecord{}}
}

func (m *memRecords) Create(_ context.Context, rec *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	if m.takenOnCreate > 0 {
		m.takenOnCreate--
		return ErrShortCodeTaken
	}
	for _, r := range m.rows {
		if r.ShortCode == rec.ShortCode && r.OwnerKind == rec.OwnerKind {
			return ErrShortCodeTaken
		}
	}
	now := time.Now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.rows[rec.ID] = *rec
	return nil
}

func (m *memRecords) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memRecords) GetByShortCode(_ context.Context, code string, kind model.OwnerKind) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ShortCode == code && r.OwnerKind == kind {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRecords) ShortCodeExists(ctx context.Context, code string, kind model.OwnerKind) (bool, error) {
	_, err := m.GetByShortCode(ctx, code, kind)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memRecords) UpdateFields(_ context.Context, id string, g Guard, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	hook := m.beforeUpdate
	m.beforeUpdate = nil
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if len(g.Statuses) > 0 {
		match := false
		for _, st := range g.Statuses {
			if r.Status == st {
				match = true
			}
		}
		if !match {
			return false, nil
		}
	}
	if g.HasExpiry != nil && r.HasExpiry != *g.HasExpiry {
		return false, nil
	}
	if g.ShortCode != "" && r.ShortCode != g.ShortCode {
		return false, nil
	}
	if g.ExpiresAtBefore != nil && (r.ExpiresAt == nil || r.ExpiresAt.After(*g.ExpiresAtBefore)) {
		return false, nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			r.Status = v.(model.Status)
		case "expires_at":
			at := v.(time.Time)
			r.ExpiresAt = &at
		case "has_expiry":
			r.HasExpiry = v.(bool)
		case "password_hash":
			h := v.(string)
			r.PasswordHash = &h
		case "is_password_protected":
			r.IsPasswordProtected = v.(bool)
		case "short_code":
			code := v.(string)
			for oid, o := range m.rows {
				if oid != id && o.ShortCode == code && o.OwnerKind == r.OwnerKind {
					return false, ErrShortCodeTaken
				}
			}
			r.ShortCode = code
		case "deleting_at":
			r.DeletingAt = nil
		default:
			return false, errors.New("unexpected field " + k)
		}
	}
	r.UpdatedAt = time.Now()
	m.rows[id] = r
	return true, nil
}

func (m *memRecords) IncrementDownloads(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	switch r.Status {
	case model.StatusDeleted:
		return ErrGone
	case model.StatusExpired:
		return ErrExpired
	case model.StatusInactive:
		return ErrUnavailable
	}
	r.DownloadCount++
	m.rows[id] = r
	return nil
}

func (m *memRecords) ClaimDeletion(_ context.Context, id string, now time.Time, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status == model.StatusDeleted {
		return false, nil
	}
	if r.DeletingAt != nil && !r.DeletingAt.Before(now.Add(-lease)) {
		return false, nil
	}
	r.DeletingAt = &now
	m.rows[id] = r
	return true, nil
}

func (m *memRecords) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memRecords) FindByOwner(_ context.Context, userID uint64) ([]model.FileRecord, error) {
	return m.filter(func(r model.FileRecord) bool {
		return r.UserID != nil && *r.UserID == userID && r.Status != model.StatusDeleted
	}), nil
}

func (m *memRecords) Search(_ context.Context, userID uint64, q string) ([]model.FileRecord, error) {
	q = strings.ToLower(q)
	return m.filter(func(r model.FileRecord) bool {
		return r.UserID != nil && *r.UserID == userID && r.Status != model.StatusDeleted &&
			strings.Contains(strings.ToLower(r.DisplayName), q)
	}), nil
}

func (m *memRecords) FindAll(_ context.Context, batchSize int, fn func([]model.FileRecord) error) error {
	all := m.filter(func(model.FileRecord) bool { return true })
	for start := 0; start < len(all); start += batchSize {
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRecords) filter(keep func(model.FileRecord) bool) []model.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FileRecord
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRecords) put(rec model.FileRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.ID] = rec
}

func (m *memRecords) row(id string) model.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memOwners struct {
	mu       sync.Mutex
	users    map[uint64]*model.User
	failIncr bool
}

func newMemOwners(users ...model.User) *memOwners {
	o := &memOwners{users: map[uint64]*model.User{}}
	for i := range users {
		u := users[i]
		o.users[u.ID] = &u
	}
	return o
}

func (o *memOwners) GetUser(_ context.Context, id uint64) (*model.User, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (o *memOwners) Increment(_ context.Context, id uint64, deltas map[string]int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failIncr {
		return errors.New("owner store down")
	}
	u, ok := o.users[id]
	if !ok {
		return ErrNotFound
	}
	for k, d := range deltas {
		switch k {
		case model.CounterTotalUploads:
			u.TotalUploads += d
		case model.CounterTotalDownloads:
			u.TotalDownloads += d
		case model.CounterImageCount:
			u.ImageCount += d
		case model.CounterVideoCount:
			u.VideoCount += d
		case model.CounterDocumentCount:
			u.DocumentCount += d
		}
	}
	return nil
}

type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    map[string]bool
	failRemove bool
	failSign   bool
	removes    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failPut: map[string]bool{}}
}

func (s *memStore) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ storage.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[string(data)] {
		return errors.New("bucket unreachable")
	}
	s.objects[key] = data
	return nil
}

func (s *memStore) RemoveObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	if s.failRemove {
		return errors.New("bucket unreachable")
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) PresignedGetObject(_ context.Context, key string, expiry time.Duration, _ storage.SignOptions) (string, error) {
	if s.failSign {
		return "", errors.New("signer down")
	}
	return "https://signed.example/" + key + "?ttl=" + expiry.String(), nil
}

func (s *memStore) PublicURL(key string) string {
	return "https://public.example/" + key
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	svc     *FileService
	records *memRecords
	owners  *memOwners
	store   *memStore
	clock   *fakeClock
}

func newHarness(mutate ...func(*Options)) *harness {
	h := &harness{
		records: newMemRecords(),
		owners:  newMemOwners(model.User{ID: 7, UserName: "ana", FullName: "Ana Lima"}),
		store:   newMemStore(),
		clock:   &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts := Options{
		BaseURL:         "https://pb.example",
		BcryptCost:      4,
		ShortCodeLength: 9,
		Now:             h.clock.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.svc = NewFileService(Deps{
		Records: h.records,
		Owners:  h.owners,
		Storage: h.store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, opts)
	return h
}

func file(name, body string) UploadFile {
	return UploadFile{Name: name, Size: int64(len(body)), Reader: bytes.NewBufferString(body)}
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
