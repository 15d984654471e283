package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"PasteBox/model"
)

func uploadOne(t *testing.T, h *harness, req UploadRequest) *model.FileRecord {
	t.Helper()
	if len(req.Files) == 0 {
		req.Files = []UploadFile{file("notes.txt", "hello")}
	}
	if req.Owner.Kind == "" {
		req.Owner = GuestOwner()
	}
	results, err := h.svc.CreateUpload(context.Background(), req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("file failed: %v", results[0].Err)
	}
	return results[0].Record
}

func TestUploadDefaultExpiry(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Expiry: ExpiryRequest{HasExpiry: false}})

	want := h.clock.Now().Add(240 * time.Hour)
	if d := rec.ExpiresAt.Sub(want); d > time.Second || d < -time.Second {
		t.Fatalf("expect expiry near %v, got %v", want, rec.ExpiresAt)
	}
	if rec.HasExpiry {
		t.Fatalf("default horizon should not count as requested expiry")
	}
}

func TestUploadRequestedExpiry(t *testing.T) {
	h := newHarness()
	hours, err := ParseHours("4")
	if err != nil {
		t.Fatal(err)
	}
	rec := uploadOne(t, h, UploadRequest{Expiry: ExpiryRequest{HasExpiry: true, Hours: hours}})

	want := h.clock.Now().Add(4 * time.Hour)
	if d := rec.ExpiresAt.Sub(want); d > time.Second || d < -time.Second {
		t.Fatalf("expect expiry near %v, got %v", want, rec.ExpiresAt)
	}
	if !rec.HasExpiry {
		t.Fatalf("expect has_expiry")
	}
}

func TestUploadPasswordAuthorize(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Password: strPtr("secret")})

	if !rec.IsPasswordProtected || rec.PasswordHash == nil || *rec.PasswordHash == "secret" {
		t.Fatalf("password should be stored hashed and flagged")
	}
	if err := h.svc.Authorize(rec, strPtr("secret")); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := h.svc.Authorize(rec, strPtr("wrong")); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expect ErrIncorrectPassword, got %v", err)
	}
	if err := h.svc.Authorize(rec, nil); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expect ErrPasswordRequired, got %v", err)
	}
}

func TestUploadValidationHasNoSideEffects(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	cases := []struct {
		name string
		req  UploadRequest
		want error
	}{
		{"empty password", UploadRequest{Files: []UploadFile{file("a.txt", "a")}, Owner: GuestOwner(), Password: strPtr("")}, ErrInvalidInput},
		{"negative hours", UploadRequest{Files: []UploadFile{file("a.txt", "a")}, Owner: GuestOwner(), Expiry: ExpiryRequest{HasExpiry: true, Hours: floatPtr(-2)}}, ErrInvalidInput},
		{"no files", UploadRequest{Owner: GuestOwner()}, ErrInvalidInput},
		{"unknown user", UploadRequest{Files: []UploadFile{file("a.txt", "a")}, Owner: UserOwner(404)}, ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := h.svc.CreateUpload(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expect %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(h.store.objects) != 0 || h.records.creates != 0 {
		t.Fatalf("rejected uploads must not touch storage or records")
	}
}

func TestUploadBatchIsBestEffort(t *testing.T) {
	h := newHarness()
	h.store.failPut["two"] = true

	results, err := h.svc.CreateUpload(context.Background(), UploadRequest{
		Files: []UploadFile{file("one.txt", "one"), file("two.txt", "two"), file("three.txt", "three")},
		Owner: GuestOwner(),
	})
	if err != nil {
		t.Fatalf("batch must not fail as a whole: %v", err)
	}
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			if !errors.Is(r.Err, ErrStorageWriteFailed) || r.Name != "two.txt" {
				t.Fatalf("unexpected failure %s: %v", r.Name, r.Err)
			}
			continue
		}
		ok++
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("expect 2 ok and 1 failed, got %d/%d", ok, failed)
	}
	if h.records.creates != 2 {
		t.Fatalf("failed file must not be persisted, creates=%d", h.records.creates)
	}
}

func TestUploadOwnedUpdatesCounters(t *testing.T) {
	h := newHarness()
	results, err := h.svc.CreateUpload(context.Background(), UploadRequest{
		Files: []UploadFile{
			{Name: "cat.png", ContentType: "image/png", Size: 3, Reader: strings.NewReader("png")},
			{Name: "clip.mp4", Size: 3, Reader: strings.NewReader("mp4")},
			{Name: "doc.pdf", ContentType: "application/pdf", Size: 3, Reader: strings.NewReader("pdf")},
			{Name: "readme.txt", Size: 3, Reader: strings.NewReader("txt")},
		},
		Owner: UserOwner(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("%s failed: %v", r.Name, r.Err)
		}
		if r.Record.UserID == nil || *r.Record.UserID != 7 || r.Record.OwnerKind != model.OwnerKindOwned {
			t.Fatalf("record not owned by user 7: %+v", r.Record)
		}
	}
	u, _ := h.owners.GetUser(context.Background(), 7)
	if u.TotalUploads != 4 || u.ImageCount != 1 || u.VideoCount != 1 || u.DocumentCount != 1 {
		t.Fatalf("unexpected counters %+v", u)
	}
}

func TestUploadGuestLabelsAndKeys(t *testing.T) {
	h := newHarness()
	results, err := h.svc.CreateUpload(context.Background(), UploadRequest{
		Files: []UploadFile{file("same name.txt", "a"), file("same name.txt", "b")},
		Owner: GuestOwner(),
	})
	if err != nil {
		t.Fatal(err)
	}
	a, b := results[0].Record, results[1].Record
	if a.StorageKey == b.StorageKey {
		t.Fatalf("storage keys must be unique, got %q twice", a.StorageKey)
	}
	if !strings.HasPrefix(a.StorageKey, "same_name_") || !strings.HasSuffix(a.StorageKey, ".txt") {
		t.Fatalf("storage key should keep the readable name, got %q", a.StorageKey)
	}
	if !strings.HasPrefix(a.GuestLabel, "guest_") || a.UserID != nil {
		t.Fatalf("guest record should carry a label only, got %+v", a)
	}
}

func TestUploadRetriesTakenShortCode(t *testing.T) {
	h := newHarness()
	h.records.takenOnCreate = 2
	rec := uploadOne(t, h, UploadRequest{})
	if rec.ShortCode == "" || h.records.creates != 3 {
		t.Fatalf("expect third insert to succeed, creates=%d", h.records.creates)
	}

	h.records.takenOnCreate = 100
	results, err := h.svc.CreateUpload(context.Background(), UploadRequest{
		Files: []UploadFile{file("x.txt", "x")}, Owner: GuestOwner(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, ErrExhaustedRetries) {
		t.Fatalf("expect ErrExhaustedRetries, got %v", results[0].Err)
	}
	if len(h.store.objects) != 1 {
		t.Fatalf("bytes of the unsaved file should be discarded, have %d objects", len(h.store.objects))
	}
}

func TestUploadStorageKeyClashKeepsBytes(t *testing.T) {
	h := newHarness()
	h.records.createErr = ErrStorageKeyTaken
	results, err := h.svc.CreateUpload(context.Background(), UploadRequest{
		Files: []UploadFile{file("x.txt", "x")}, Owner: GuestOwner(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, ErrStorageWriteFailed) || !errors.Is(results[0].Err, ErrStorageKeyTaken) {
		t.Fatalf("expect storage write failure naming the key clash, got %v", results[0].Err)
	}
	if h.records.creates != 1 {
		t.Fatalf("a key clash must not re-mint short codes, creates=%d", h.records.creates)
	}
	if h.store.removes != 0 {
		t.Fatalf("bytes under a clashing key belong to another record, removes=%d", h.store.removes)
	}
}

func TestResolveByShortCode(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Owner: UserOwner(7)})
	ctx := context.Background()

	view, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindOwned)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if view.ID != rec.ID || view.ShortURL != "https://pb.example/f/"+rec.ShortCode {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.UploadedBy != "Ana Lima" || view.PreviewURL == "" {
		t.Fatalf("unexpected owner or preview: %+v", view)
	}
	if _, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindGuest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("code must be scoped to its namespace, got %v", err)
	}
	if _, err := h.svc.ResolveByShortCode(ctx, "../etc", model.OwnerKindOwned); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed code should be NotFound, got %v", err)
	}
}

func TestResolveProtectedHidesPreview(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Password: strPtr("pw")})
	view, err := h.svc.ResolveByShortCode(context.Background(), rec.ShortCode, model.OwnerKindGuest)
	if err != nil {
		t.Fatal(err)
	}
	if view.PreviewURL != "" || !view.IsPasswordProtected {
		t.Fatalf("protected file must not expose its public url: %+v", view)
	}
}

func TestResolveLazyExpiry(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Expiry: ExpiryRequest{HasExpiry: true, Hours: floatPtr(1)}})
	h.clock.Advance(time.Hour + time.Second)
	ctx := context.Background()

	if _, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindGuest); !errors.Is(err, ErrExpired) {
		t.Fatalf("expect ErrExpired, got %v", err)
	}
	got, err := h.svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusExpired {
		t.Fatalf("expect stored status expired, got %s", got.Status)
	}
	if _, err := h.svc.Resolve(ctx, ByID(rec.ID)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired record must stay expired, got %v", err)
	}
}

func TestResolveKeepsConcurrentExtension(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Expiry: ExpiryRequest{HasExpiry: true, Hours: floatPtr(1)}})
	h.clock.Advance(2 * time.Hour)
	ctx := context.Background()

	h.records.beforeUpdate = func(id string) {
		if _, err := h.svc.SetExpiry(ctx, id, 5); err != nil {
			t.Errorf("extend failed: %v", err)
		}
	}
	got, err := h.svc.Resolve(ctx, ByShortCode(rec.ShortCode, model.OwnerKindGuest))
	if err != nil {
		t.Fatalf("extended record should resolve, got %v", err)
	}
	if got.Status != model.StatusActive {
		t.Fatalf("expect active, got %s", got.Status)
	}
	stored := h.records.row(rec.ID)
	if stored.Status != model.StatusActive || !stored.ExpiresAt.Equal(h.clock.Now().Add(5*time.Hour)) {
		t.Fatalf("extension lost: status=%s expires_at=%v", stored.Status, stored.ExpiresAt)
	}
}

func TestResolveConcurrentExpiryFlipsOnce(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{Expiry: ExpiryRequest{HasExpiry: true, Hours: floatPtr(1)}})
	h.clock.Advance(2 * time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		flipped int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := h.records.GetByID(context.Background(), rec.ID)
			ok, err := h.svc.expireIfActive(context.Background(), r, h.clock.Now())
			if err != nil {
				t.Errorf("expire failed: %v", err)
			}
			if ok {
				mu.Lock()
				flipped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if flipped != 1 {
		t.Fatalf("expect exactly one transition, got %d", flipped)
	}
}

func TestResolveStatusOrder(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	future := h.clock.Now().Add(time.Hour)
	for _, tc := range []struct {
		status model.Status
		want   error
	}{
		{model.StatusDeleted, ErrGone},
		{model.StatusExpired, ErrExpired},
		{model.StatusInactive, ErrUnavailable},
	} {
		h.records.put(model.FileRecord{ID: string(tc.status), Status: tc.status, ExpiresAt: &future, ShortCode: string(tc.status), OwnerKind: model.OwnerKindGuest})
		if _, err := h.svc.Resolve(ctx, ByID(string(tc.status))); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expect %v, got %v", tc.status, tc.want, err)
		}
	}
	if _, err := h.svc.Resolve(ctx, ByID("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
}

func TestAuthorizeCorruptState(t *testing.T) {
	h := newHarness()
	rec := &model.FileRecord{ID: "x", IsPasswordProtected: true}
	if err := h.svc.Authorize(rec, strPtr("pw")); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("flag without hash must be corrupt, got %v", err)
	}
	hash := "$2a$04$abc"
	rec = &model.FileRecord{ID: "y", PasswordHash: &hash}
	if err := h.svc.Authorize(rec, nil); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("hash without flag must be corrupt, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	open := uploadOne(t, h, UploadRequest{})
	locked := uploadOne(t, h, UploadRequest{Password: strPtr("pw")})

	if err := h.svc.VerifyPassword(ctx, ByShortCode(locked.ShortCode, model.OwnerKindGuest), "pw"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := h.svc.VerifyPassword(ctx, ByShortCode(locked.ShortCode, model.OwnerKindGuest), "nope"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expect ErrIncorrectPassword, got %v", err)
	}
	if err := h.svc.VerifyPassword(ctx, ByID(open.ID), "pw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unprotected file should be InvalidInput, got %v", err)
	}
}

func TestSetStatusTransitions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})

	if _, err := h.svc.SetStatus(ctx, rec.ID, model.StatusActive); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("same status should be rejected, got %v", err)
	}
	if _, err := h.svc.SetStatus(ctx, rec.ID, model.StatusDeleted); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("deleted is not a toggle target, got %v", err)
	}
	got, err := h.svc.SetStatus(ctx, rec.ID, model.StatusInactive)
	if err != nil || got.Status != model.StatusInactive {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := h.svc.Resolve(ctx, ByID(rec.ID)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("inactive should be unavailable, got %v", err)
	}
	if _, err := h.svc.SetStatus(ctx, rec.ID, model.StatusActive); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}

	if err := h.svc.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.SetStatus(ctx, rec.ID, model.StatusActive); !errors.Is(err, ErrGone) {
		t.Fatalf("deleted is a sink, got %v", err)
	}
}

func TestSetExpiry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})

	if _, err := h.svc.SetExpiry(ctx, rec.ID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero hours should be rejected, got %v", err)
	}
	got, err := h.svc.SetExpiry(ctx, rec.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasExpiry || !got.ExpiresAt.Equal(h.clock.Now().Add(3*time.Hour)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	stored := h.records.row(rec.ID)
	if !stored.HasExpiry || !stored.ExpiresAt.Equal(*got.ExpiresAt) {
		t.Fatalf("expiry not persisted: %+v", stored)
	}

	h.clock.Advance(4 * time.Hour)
	if _, err := h.svc.Resolve(ctx, ByID(rec.ID)); !errors.Is(err, ErrExpired) {
		t.Fatal(err)
	}
	if _, err := h.svc.SetExpiry(ctx, rec.ID, 3); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired record is not revived, got %v", err)
	}
}

func TestSetPasswordKeepsFlagInStep(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})

	if _, err := h.svc.SetPassword(ctx, rec.ID, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty password should be rejected, got %v", err)
	}
	if stored := h.records.row(rec.ID); stored.IsPasswordProtected || !stored.PasswordConsistent() {
		t.Fatalf("rejected update must not flip the flag: %+v", stored)
	}
	if _, err := h.svc.SetPassword(ctx, rec.ID, "fresh"); err != nil {
		t.Fatal(err)
	}
	stored := h.records.row(rec.ID)
	if !stored.IsPasswordProtected || !stored.PasswordConsistent() {
		t.Fatalf("flag and hash out of step: %+v", stored)
	}
	if err := h.svc.Authorize(&stored, strPtr("fresh")); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})

	if err := h.svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if h.store.has(rec.StorageKey) {
		t.Fatalf("bytes should be removed")
	}
	if err := h.svc.Delete(ctx, rec.ID); !errors.Is(err, ErrGone) {
		t.Fatalf("second delete should be Gone, got %v", err)
	}
	if h.store.removes != 1 {
		t.Fatalf("bytes removed %d times", h.store.removes)
	}
	if _, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindGuest); !errors.Is(err, ErrGone) {
		t.Fatalf("tombstone should answer Gone, got %v", err)
	}
}

func TestDeleteStorageFailureKeepsRecord(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})
	h.store.failRemove = true

	if err := h.svc.Delete(ctx, rec.ID); !errors.Is(err, ErrStorageDeleteFailed) {
		t.Fatalf("expect ErrStorageDeleteFailed, got %v", err)
	}
	stored := h.records.row(rec.ID)
	if stored.Status != model.StatusActive || stored.DeletingAt != nil {
		t.Fatalf("record must survive with the lease released: %+v", stored)
	}

	h.store.failRemove = false
	if err := h.svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
}

func TestDeleteLeaseBlocksConcurrentDelete(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})
	if ok, _ := h.records.ClaimDeletion(ctx, rec.ID, h.clock.Now(), time.Minute); !ok {
		t.Fatal("claim failed")
	}
	if err := h.svc.Delete(ctx, rec.ID); !errors.Is(err, ErrGone) {
		t.Fatalf("expect in-progress delete to be Gone, got %v", err)
	}
	if h.store.removes != 0 {
		t.Fatalf("bytes must not be removed twice")
	}
}

func TestRegenerateShortCode(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	rec := uploadOne(t, h, UploadRequest{})
	if _, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindGuest); err != nil {
		t.Fatal(err)
	}

	got, err := h.svc.RegenerateShortCode(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ShortCode == rec.ShortCode {
		t.Fatalf("code did not change")
	}
	if _, err := h.svc.ResolveByShortCode(ctx, rec.ShortCode, model.OwnerKindGuest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old code should be gone, got %v", err)
	}
	if v, err := h.svc.ResolveByShortCode(ctx, got.ShortCode, model.OwnerKindGuest); err != nil || v.ID != rec.ID {
		t.Fatalf("new code should resolve, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := uploadOne(t, h, UploadRequest{Files: []UploadFile{file("Quarterly Report.pdf", "a")}, Owner: UserOwner(7)})
	uploadOne(t, h, UploadRequest{Files: []UploadFile{file("holiday.png", "b")}, Owner: UserOwner(7)})
	uploadOne(t, h, UploadRequest{Files: []UploadFile{file("report-guest.pdf", "c")}})

	list, err := h.svc.ListByOwner(ctx, 7)
	if err != nil || len(list) != 2 {
		t.Fatalf("expect 2 owned records, got %d %v", len(list), err)
	}
	found, err := h.svc.Search(ctx, 7, "report")
	if err != nil || len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("search should find only the owned report, got %v %v", found, err)
	}
	if _, err := h.svc.Search(ctx, 7, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank query should be rejected, got %v", err)
	}
	if _, err := h.svc.GetOwned(ctx, 8, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner should see NotFound, got %v", err)
	}
}

func TestQRCode(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{})
	png, err := h.svc.QRCode(context.Background(), rec.ID, 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("expect png bytes")
	}
	if _, err := h.svc.QRCode(context.Background(), rec.ID, 4096); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized qr should be rejected, got %v", err)
	}
}

type recordingNotifier struct {
	fileID, to string
}

func (n *recordingNotifier) EnqueueShareEmail(_ context.Context, fileID, recipient string) (uint64, error) {
	n.fileID, n.to = fileID, recipient
	return 42, nil
}

func TestShareByEmail(t *testing.T) {
	h := newHarness()
	rec := uploadOne(t, h, UploadRequest{})
	ctx := context.Background()

	if _, err := h.svc.ShareByEmail(ctx, rec.ID, "ana@example.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("sharing without a notifier should be unavailable, got %v", err)
	}
	n := &recordingNotifier{}
	h.svc.notifier = n
	if _, err := h.svc.ShareByEmail(ctx, rec.ID, "not an email"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
	id, err := h.svc.ShareByEmail(ctx, rec.ID, "Ana <ana@example.com>")
	if err != nil || id != 42 || n.to != "ana@example.com" || n.fileID != rec.ID {
		t.Fatalf("unexpected enqueue: id=%d to=%q err=%v", id, n.to, err)
	}
}
