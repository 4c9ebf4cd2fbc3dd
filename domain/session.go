package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ProfileService is the external collaborator an edit session talks to. The
// HTTP implementation lives in the client package; tests substitute stubs.
type ProfileService interface {
	FetchProfile(ctx context.Context, username string) (Profile, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (Profile, error)
	UploadPhotos(ctx context.Context, photos []PhotoUpload) ([]string, error)
	DeletePhotos(ctx context.Context, urls []string) ([]string, error)
}

// SessionState tracks the edit session lifecycle.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionLoading
	SessionReady
	SessionSubmitting
	SessionDiscarded
)

// ErrSessionNotReady is returned by operations that need a loaded session.
var ErrSessionNotReady = errors.New("profile edit session is not loaded")

// ErrSessionDiscarded is returned when an in-flight call completes after the
// session was discarded; the completion is treated as a no-op.
var ErrSessionDiscarded = errors.New("profile edit session was discarded")

// ValidationError lists human-readable problems that block submission.
type ValidationError []string

func (v ValidationError) Error() string {
	return "invalid profile: " + strings.Join(v, "; ")
}

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s has the local@domain.tld shape accepted on
// profile updates.
func ValidEmail(s string) bool {
	return emailShape.MatchString(s)
}

// draft is the mutable form state plus the comparison baseline shape.
type draft struct {
	FullName       string
	Email          string
	Bio            string
	Location       string
	Interests      []string
	Preferences    NotificationPreferences
	ExistingPhotos []string
}

func (d draft) clone() draft {
	d.Interests = append([]string(nil), d.Interests...)
	d.ExistingPhotos = append([]string(nil), d.ExistingPhotos...)
	return d
}

// EditSession manages a profile draft from load to save. Each instance is
// owned by exactly one logical flow; no internal locking.
type EditSession struct {
	svc   ProfileService
	state SessionState

	username  string
	baseline  draft
	current   draft
	newPhotos []PhotoUpload
}

// NewEditSession creates an idle session bound to the given collaborator.
func NewEditSession(svc ProfileService) *EditSession {
	return &EditSession{svc: svc, state: SessionIdle}
}

// State exposes the lifecycle phase, mainly for callers gating UI actions.
func (s *EditSession) State() SessionState { return s.state }

// Load fetches the profile snapshot that seeds both draft and baseline. On
// failure the session stays not-ready; no retry is attempted.
func (s *EditSession) Load(ctx context.Context, username string) error {
	s.state = SessionLoading
	profile, err := s.svc.FetchProfile(ctx, username)
	if s.state == SessionDiscarded {
		return ErrSessionDiscarded
	}
	if err != nil {
		s.state = SessionIdle
		return fmt.Errorf("load profile %q: %w", username, err)
	}

	s.username = profile.Username
	s.baseline = draftFromProfile(profile)
	s.current = s.baseline.clone()
	s.newPhotos = nil
	s.state = SessionReady
	return nil
}

func draftFromProfile(p Profile) draft {
	fullName := strings.TrimSpace(p.FirstName + " " + p.LastName)
	return draft{
		FullName:       fullName,
		Email:          p.Email,
		Bio:            p.Bio,
		Location:       p.Location,
		Interests:      append([]string(nil), p.Interests...),
		Preferences:    p.Preferences,
		ExistingPhotos: append([]string(nil), p.ProfilePhotos...),
	}
}

// Discard marks the session gone. In-flight completions observing this state
// become no-ops instead of mutating a dead session.
func (s *EditSession) Discard() { s.state = SessionDiscarded }

// SetFullName replaces the full name field of the draft.
func (s *EditSession) SetFullName(v string) { s.current.FullName = v }

// SetEmail replaces the email field of the draft.
func (s *EditSession) SetEmail(v string) { s.current.Email = v }

// SetBio replaces the bio field of the draft.
func (s *EditSession) SetBio(v string) { s.current.Bio = v }

// SetLocation replaces the location field of the draft.
func (s *EditSession) SetLocation(v string) { s.current.Location = v }

// SetPreferences replaces the notification preference toggles.
func (s *EditSession) SetPreferences(p NotificationPreferences) { s.current.Preferences = p }

// AddInterest appends a trimmed interest. Empty input and exact duplicates
// are dropped silently.
func (s *EditSession) AddInterest(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	for _, existing := range s.current.Interests {
		if existing == trimmed {
			return
		}
	}
	s.current.Interests = append(s.current.Interests, trimmed)
}

// RemoveInterest removes by position. An out-of-range index is a caller bug
// and panics like any slice misuse.
func (s *EditSession) RemoveInterest(index int) {
	s.current.Interests = append(s.current.Interests[:index], s.current.Interests[index+1:]...)
}

// Interests returns the draft interests in display order.
func (s *EditSession) Interests() []string {
	return append([]string(nil), s.current.Interests...)
}

// ExistingPhotos returns the persisted photo URLs in display order.
func (s *EditSession) ExistingPhotos() []string {
	return append([]string(nil), s.current.ExistingPhotos...)
}

// StagedPhotos returns the not-yet-uploaded files.
func (s *EditSession) StagedPhotos() []PhotoUpload {
	return append([]PhotoUpload(nil), s.newPhotos...)
}

// StageNewPhotos validates each file and stages the valid ones. Files failing
// the 5MB/format rules are dropped individually and reported; valid files
// beyond the combined cap of 5 are dropped silently.
func (s *EditSession) StageNewPhotos(files []PhotoUpload) []error {
	var errs []error
	for _, f := range files {
		if err := ValidatePhoto(f); err != nil {
			errs = append(errs, err)
			continue
		}
		if len(s.current.ExistingPhotos)+len(s.newPhotos) >= MaxProfilePhotos {
			continue
		}
		s.newPhotos = append(s.newPhotos, f)
	}
	return errs
}

// RemoveNewPhoto drops a staged file. Purely local.
func (s *EditSession) RemoveNewPhoto(index int) {
	s.newPhotos = append(s.newPhotos[:index], s.newPhotos[index+1:]...)
}

// RemoveExistingPhoto deletes a persisted photo remotely, then removes it
// from the draft only when the delete succeeded.
func (s *EditSession) RemoveExistingPhoto(ctx context.Context, index int) error {
	if s.state != SessionReady {
		return ErrSessionNotReady
	}
	url := s.current.ExistingPhotos[index]
	if _, err := s.svc.DeletePhotos(ctx, []string{url}); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if s.state == SessionDiscarded {
		return ErrSessionDiscarded
	}
	s.current.ExistingPhotos = append(s.current.ExistingPhotos[:index], s.current.ExistingPhotos[index+1:]...)
	// The server no longer has the photo, so the baseline must not claim it.
	s.baseline.ExistingPhotos = removeString(s.baseline.ExistingPhotos, url)
	return nil
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// Dirty reports whether the draft differs from the last-saved snapshot.
// Interests and photo URLs compare order-insensitively.
func (s *EditSession) Dirty() bool {
	if s.state != SessionReady {
		return false
	}
	if len(s.newPhotos) > 0 {
		return true
	}
	b, c := s.baseline, s.current
	return b.FullName != c.FullName ||
		b.Email != c.Email ||
		b.Bio != c.Bio ||
		b.Location != c.Location ||
		b.Preferences != c.Preferences ||
		!sameStringSet(b.Interests, c.Interests) ||
		!sameStringSet(b.ExistingPhotos, c.ExistingPhotos)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// Validate returns the human-readable problems blocking submission. It never
// mutates state.
func (s *EditSession) Validate() []string {
	var problems []string
	if strings.TrimSpace(s.current.FullName) == "" {
		problems = append(problems, "full name is required")
	}
	if !ValidEmail(s.current.Email) {
		problems = append(problems, "a valid email address is required")
	}
	return problems
}

// Submit uploads staged photos, then sends one combined update. On success
// the dirty baseline resets to the saved state. On any failure the draft is
// left untouched so the caller can retry; no partial update is visible.
func (s *EditSession) Submit(ctx context.Context) (Profile, error) {
	if s.state != SessionReady {
		return Profile{}, ErrSessionNotReady
	}
	if problems := s.Validate(); len(problems) > 0 {
		return Profile{}, ValidationError(problems)
	}

	s.state = SessionSubmitting

	photos := append([]string(nil), s.current.ExistingPhotos...)
	if len(s.newPhotos) > 0 {
		uploaded, err := s.svc.UploadPhotos(ctx, s.newPhotos)
		if s.state == SessionDiscarded {
			return Profile{}, ErrSessionDiscarded
		}
		if err != nil {
			s.state = SessionReady
			return Profile{}, fmt.Errorf("upload photos: %w", err)
		}
		photos = append(photos, uploaded...)
	}
	if len(photos) > MaxProfilePhotos {
		photos = photos[:MaxProfilePhotos]
	}

	update := s.buildUpdate(photos)
	saved, err := s.svc.UpdateProfile(ctx, update)
	if s.state == SessionDiscarded {
		return Profile{}, ErrSessionDiscarded
	}
	if err != nil {
		s.state = SessionReady
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}

	s.current.ExistingPhotos = photos
	s.baseline = s.current.clone()
	s.newPhotos = nil
	s.state = SessionReady
	return saved, nil
}

func (s *EditSession) buildUpdate(photos []string) ProfileUpdate {
	firstName, lastName := splitFullName(s.current.FullName)
	email, bio, location := s.current.Email, s.current.Bio, s.current.Location
	prefs := s.current.Preferences
	update := ProfileUpdate{
		FirstName:     &firstName,
		LastName:      &lastName,
		Email:         &email,
		Bio:           &bio,
		Location:      &location,
		Interests:     append([]string(nil), s.current.Interests...),
		ProfilePhotos: photos,
		Preferences:   &prefs,
	}
	if len(photos) > 0 {
		primary := photos[0]
		update.ProfilePhoto = &primary
	}
	return update
}

func splitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
