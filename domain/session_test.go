package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProfileService struct {
	fetchFn  func(ctx context.Context, username string) (Profile, error)
	updateFn func(ctx context.Context, update ProfileUpdate) (Profile, error)
	uploadFn func(ctx context.Context, photos []PhotoUpload) ([]string, error)
	deleteFn func(ctx context.Context, urls []string) ([]string, error)
}

func (s *stubProfileService) FetchProfile(ctx context.Context, username string) (Profile, error) {
	if s.fetchFn == nil {
		return Profile{}, errors.New("unexpected FetchProfile call")
	}
	return s.fetchFn(ctx, username)
}

func (s *stubProfileService) UpdateProfile(ctx context.Context, update ProfileUpdate) (Profile, error) {
	if s.updateFn == nil {
		return Profile{}, errors.New("unexpected UpdateProfile call")
	}
	return s.updateFn(ctx, update)
}

func (s *stubProfileService) UploadPhotos(ctx context.Context, photos []PhotoUpload) ([]string, error) {
	if s.uploadFn == nil {
		return nil, errors.New("unexpected UploadPhotos call")
	}
	return s.uploadFn(ctx, photos)
}

func (s *stubProfileService) DeletePhotos(ctx context.Context, urls []string) ([]string, error) {
	if s.deleteFn == nil {
		return nil, errors.New("unexpected DeletePhotos call")
	}
	return s.deleteFn(ctx, urls)
}

func baseProfile() Profile {
	return Profile{
		ID:            "7",
		Username:      "ayse",
		Email:         "ayse@example.com",
		FirstName:     "Ayşe",
		LastName:      "Demir",
		Bio:           "hello",
		Location:      "Istanbul",
		Interests:     []string{"Sports", "Music"},
		ProfilePhotos: []string{"/media/p1.jpg", "/media/p2.jpg"},
		Preferences:   DefaultNotificationPreferences(),
	}
}

func loadedSession(t *testing.T, svc *stubProfileService) *EditSession {
	t.Helper()
	if svc.fetchFn == nil {
		svc.fetchFn = func(ctx context.Context, username string) (Profile, error) {
			return baseProfile(), nil
		}
	}
	sess := NewEditSession(svc)
	if err := sess.Load(context.Background(), "ayse"); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func fakeJPEG(size int) PhotoUpload {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return PhotoUpload{Name: "photo.jpg", Data: data}
}

func fakePNG() PhotoUpload {
	data := make([]byte, 64)
	copy(data, "\x89PNG\r\n\x1a\n")
	return PhotoUpload{Name: "photo.png", Data: data}
}

func fakeWEBP() PhotoUpload {
	data := make([]byte, 64)
	copy(data, "RIFF\x00\x00\x00\x00WEBPVP8 ")
	return PhotoUpload{Name: "photo.webp", Data: data}
}

func fakeGIF() PhotoUpload {
	data := make([]byte, 64)
	copy(data, "GIF89a")
	return PhotoUpload{Name: "anim.gif", Data: data}
}

func TestLoadFailureLeavesSessionNotReady(t *testing.T) {
	svc := &stubProfileService{
		fetchFn: func(ctx context.Context, username string) (Profile, error) {
			return Profile{}, errors.New("boom")
		},
	}
	sess := NewEditSession(svc)
	if err := sess.Load(context.Background(), "ayse"); err == nil {
		t.Fatal("expected load error")
	}
	if sess.State() != SessionIdle {
		t.Fatalf("expected idle state, got %v", sess.State())
	}
	if sess.Dirty() {
		t.Fatal("unloaded session must not be dirty")
	}
}

func TestAddInterestDeduplicates(t *testing.T) {
	sess := loadedSession(t, &stubProfileService{})
	sess.AddInterest("Music")
	sess.AddInterest("Music")
	sess.AddInterest("  Music  ")

	count := 0
	for _, v := range sess.Interests() {
		if v == "Music" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Music entry, got %d (%v)", count, sess.Interests())
	}

	sess.AddInterest("   ")
	if len(sess.Interests()) != 2 {
		t.Fatalf("blank interest should be a no-op, got %v", sess.Interests())
	}
}

func TestDirtyLifecycle(t *testing.T) {
	upload := func(ctx context.Context, photos []PhotoUpload) ([]string, error) {
		return []string{"/media/new.jpg"}, nil
	}
	update := func(ctx context.Context, u ProfileUpdate) (Profile, error) {
		return baseProfile(), nil
	}
	sess := loadedSession(t, &stubProfileService{uploadFn: upload, updateFn: update})

	if sess.Dirty() {
		t.Fatal("fresh session must be clean")
	}

	sess.SetBio("new bio")
	if !sess.Dirty() {
		t.Fatal("bio change must mark dirty")
	}
	sess.SetBio("hello")
	if sess.Dirty() {
		t.Fatal("restoring the original value must clear dirtiness")
	}

	// Reordering interests is not a change; the comparison is set-based.
	sess.RemoveInterest(0)
	sess.AddInterest("Sports")
	if sess.Dirty() {
		t.Fatalf("reordered interests must compare equal, got %v", sess.Interests())
	}

	sess.AddInterest("Tech")
	if !sess.Dirty() {
		t.Fatal("added interest must mark dirty")
	}
	sess.RemoveInterest(len(sess.Interests()) - 1)

	if errs := sess.StageNewPhotos([]PhotoUpload{fakePNG()}); len(errs) != 0 {
		t.Fatalf("unexpected staging errors: %v", errs)
	}
	if !sess.Dirty() {
		t.Fatal("staged photo must mark dirty")
	}

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sess.Dirty() {
		t.Fatal("successful submit must reset the baseline")
	}
}

func TestStageNewPhotosValidatesIndividually(t *testing.T) {
	sess := loadedSession(t, &stubProfileService{})

	errs := sess.StageNewPhotos([]PhotoUpload{
		fakeJPEG(6 << 20), // over the 5MB cap
		fakeGIF(),         // unsupported format
		fakeWEBP(),
		fakeJPEG(128),
	})

	if len(errs) != 2 {
		t.Fatalf("expected 2 rejections, got %d: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], ErrPhotoTooLarge) {
		t.Fatalf("expected size error first, got %v", errs[0])
	}
	if !errors.Is(errs[1], ErrPhotoFormat) {
		t.Fatalf("expected format error second, got %v", errs[1])
	}
	if got := len(sess.StagedPhotos()); got != 2 {
		t.Fatalf("expected both valid files staged, got %d", got)
	}
}

func TestStageNewPhotosSilentlyDropsOverflow(t *testing.T) {
	sess := loadedSession(t, &stubProfileService{}) // 2 existing photos

	errs := sess.StageNewPhotos([]PhotoUpload{
		fakePNG(), fakePNG(), fakePNG(), fakePNG(), fakePNG(),
	})
	if len(errs) != 0 {
		t.Fatalf("overflow must be silent, got %v", errs)
	}
	if got := len(sess.StagedPhotos()); got != MaxProfilePhotos-2 {
		t.Fatalf("expected %d staged photos, got %d", MaxProfilePhotos-2, got)
	}
}

func TestRemoveExistingPhotoKeepsStateOnDeleteFailure(t *testing.T) {
	svc := &stubProfileService{
		deleteFn: func(ctx context.Context, urls []string) ([]string, error) {
			return nil, errors.New("network down")
		},
	}
	sess := loadedSession(t, svc)

	before := sess.ExistingPhotos()
	if err := sess.RemoveExistingPhoto(context.Background(), 0); err == nil {
		t.Fatal("expected delete error")
	}
	after := sess.ExistingPhotos()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("photo list changed after failed delete: %v -> %v", before, after)
	}
	if sess.Dirty() {
		t.Fatal("failed delete must not dirty the session")
	}
}

func TestRemoveExistingPhotoDeletesRemotelyFirst(t *testing.T) {
	var deleted []string
	svc := &stubProfileService{
		deleteFn: func(ctx context.Context, urls []string) ([]string, error) {
			deleted = append(deleted, urls...)
			return urls, nil
		},
	}
	sess := loadedSession(t, svc)

	if err := sess.RemoveExistingPhoto(context.Background(), 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "/media/p1.jpg" {
		t.Fatalf("expected remote delete of first photo, got %v", deleted)
	}
	if got := sess.ExistingPhotos(); len(got) != 1 || got[0] != "/media/p2.jpg" {
		t.Fatalf("unexpected photo list: %v", got)
	}
	// The server already forgot the photo, so the session is clean again.
	if sess.Dirty() {
		t.Fatal("successful remote delete must keep baseline in sync")
	}
}

func TestValidate(t *testing.T) {
	sess := loadedSession(t, &stubProfileService{})

	if problems := sess.Validate(); len(problems) != 0 {
		t.Fatalf("expected valid draft, got %v", problems)
	}

	sess.SetFullName("   ")
	sess.SetEmail("not-an-email")
	problems := sess.Validate()
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
	if !strings.Contains(problems[0], "full name") || !strings.Contains(problems[1], "email") {
		t.Fatalf("unexpected problems: %v", problems)
	}

	// Validation never mutates state, and it blocks submission.
	if _, err := sess.Submit(context.Background()); err == nil {
		t.Fatal("expected submit to be blocked by validation")
	} else {
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %T", err)
		}
	}
}

func TestSubmitUploadsThenUpdatesOnce(t *testing.T) {
	var gotUpload []PhotoUpload
	var gotUpdate ProfileUpdate
	calls := []string{}
	svc := &stubProfileService{
		uploadFn: func(ctx context.Context, photos []PhotoUpload) ([]string, error) {
			calls = append(calls, "upload")
			gotUpload = photos
			return []string{"/media/n1.png", "/media/n2.png"}, nil
		},
		updateFn: func(ctx context.Context, u ProfileUpdate) (Profile, error) {
			calls = append(calls, "update")
			gotUpdate = u
			return baseProfile(), nil
		},
	}
	sess := loadedSession(t, svc)
	sess.SetBio("updated bio")
	sess.StageNewPhotos([]PhotoUpload{fakePNG(), fakePNG()})

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(calls) != 2 || calls[0] != "upload" || calls[1] != "update" {
		t.Fatalf("expected upload then update, got %v", calls)
	}
	if len(gotUpload) != 2 {
		t.Fatalf("expected 2 uploaded files, got %d", len(gotUpload))
	}
	wantPhotos := []string{"/media/p1.jpg", "/media/p2.jpg", "/media/n1.png", "/media/n2.png"}
	if len(gotUpdate.ProfilePhotos) != len(wantPhotos) {
		t.Fatalf("unexpected photo list: %v", gotUpdate.ProfilePhotos)
	}
	for i, url := range wantPhotos {
		if gotUpdate.ProfilePhotos[i] != url {
			t.Fatalf("photo %d: expected %s, got %s", i, url, gotUpdate.ProfilePhotos[i])
		}
	}
	if gotUpdate.ProfilePhoto == nil || *gotUpdate.ProfilePhoto != "/media/p1.jpg" {
		t.Fatalf("expected first photo as primary, got %v", gotUpdate.ProfilePhoto)
	}
	if gotUpdate.Bio == nil || *gotUpdate.Bio != "updated bio" {
		t.Fatalf("expected bio in update, got %v", gotUpdate.Bio)
	}
	if len(sess.StagedPhotos()) != 0 {
		t.Fatal("staged photos must clear after successful submit")
	}
}

func TestSubmitTruncatesCombinedPhotosToCap(t *testing.T) {
	var gotUpdate ProfileUpdate
	svc := &stubProfileService{
		uploadFn: func(ctx context.Context, photos []PhotoUpload) ([]string, error) {
			urls := make([]string, len(photos))
			for i := range photos {
				urls[i] = "/media/new.png"
			}
			return urls, nil
		},
		updateFn: func(ctx context.Context, u ProfileUpdate) (Profile, error) {
			gotUpdate = u
			return baseProfile(), nil
		},
	}
	sess := loadedSession(t, svc) // 2 existing
	sess.StageNewPhotos([]PhotoUpload{fakePNG(), fakePNG(), fakePNG()})

	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(gotUpdate.ProfilePhotos) != MaxProfilePhotos {
		t.Fatalf("expected %d photos after truncation, got %d", MaxProfilePhotos, len(gotUpdate.ProfilePhotos))
	}
	// Existing photos win; they come first in the combined list.
	if gotUpdate.ProfilePhotos[0] != "/media/p1.jpg" || gotUpdate.ProfilePhotos[1] != "/media/p2.jpg" {
		t.Fatalf("existing photos must lead the list: %v", gotUpdate.ProfilePhotos)
	}
}

func TestSubmitUploadFailureLeavesDraftUntouched(t *testing.T) {
	updateCalled := false
	svc := &stubProfileService{
		uploadFn: func(ctx context.Context, photos []PhotoUpload) ([]string, error) {
			return nil, errors.New("upload failed")
		},
		updateFn: func(ctx context.Context, u ProfileUpdate) (Profile, error) {
			updateCalled = true
			return Profile{}, nil
		},
	}
	sess := loadedSession(t, svc)
	sess.SetBio("changed")
	sess.StageNewPhotos([]PhotoUpload{fakePNG()})

	if _, err := sess.Submit(context.Background()); err == nil {
		t.Fatal("expected submit failure")
	}
	if updateCalled {
		t.Fatal("update must not run after a failed upload")
	}
	if !sess.Dirty() {
		t.Fatal("draft must stay dirty after failed submit")
	}
	if len(sess.StagedPhotos()) != 1 {
		t.Fatal("staged photos must survive a failed submit")
	}
	if sess.State() != SessionReady {
		t.Fatalf("session must return to ready, got %v", sess.State())
	}
}

func TestSubmitUpdateFailureLeavesDraftUntouched(t *testing.T) {
	svc := &stubProfileService{
		updateFn: func(ctx context.Context, u ProfileUpdate) (Profile, error) {
			return Profile{}, errors.New("server error")
		},
	}
	sess := loadedSession(t, svc)
	sess.SetLocation("Ankara")

	if _, err := sess.Submit(context.Background()); err == nil {
		t.Fatal("expected submit failure")
	}
	if !sess.Dirty() {
		t.Fatal("draft must stay dirty after failed update")
	}
}

func TestDiscardedSessionIgnoresLateCompletions(t *testing.T) {
	var sess *EditSession
	svc := &stubProfileService{
		updateFn: func(ctx context.Context, u ProfileUpdate) (Profile, error) {
			// The user navigates away while the request is in flight.
			sess.Discard()
			return baseProfile(), nil
		},
	}
	sess = loadedSession(t, svc)
	sess.SetBio("changed")

	if _, err := sess.Submit(context.Background()); !errors.Is(err, ErrSessionDiscarded) {
		t.Fatalf("expected ErrSessionDiscarded, got %v", err)
	}
	if sess.State() != SessionDiscarded {
		t.Fatalf("discarded session must stay discarded, got %v", sess.State())
	}
}
