package api

import (
	"context"

	"sosyal-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchEvents(ctx context.Context) ([]domain.Event, error)
	FetchEvent(ctx context.Context, id string) (domain.Event, error)
	InsertEvent(ctx context.Context, ev domain.Event) error
	FetchProfile(ctx context.Context, username string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, username string, update domain.ProfileUpdate) (domain.Profile, error)
	EnqueueNotifications(ctx context.Context, notifs []domain.Notification) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate event submissions.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}

// PhotoStore persists photo binaries and resolves their public URLs.
type PhotoStore interface {
	Save(ctx context.Context, photo domain.PhotoUpload) (string, error)
	Delete(ctx context.Context, url string) error
}
