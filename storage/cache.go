package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sosyal-api/domain"
)

type backend interface {
	FetchEvents(ctx context.Context) ([]domain.Event, error)
	FetchEvent(ctx context.Context, id string) (domain.Event, error)
	InsertEvent(ctx context.Context, ev domain.Event) error
	FetchProfile(ctx context.Context, username string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, username string, update domain.ProfileUpdate) (domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	EnqueueNotifications(ctx context.Context, notifs []domain.Notification) error
}

// Cache wraps a Storage instance with Redis-backed caching for the hot read
// paths: the full event collection and per-username profiles. Writes evict.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client
// and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) FetchEvents(ctx context.Context) ([]domain.Event, error) {
	if events, ok := c.loadEventsFromCache(ctx); ok {
		return events, nil
	}

	events, err := c.base.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	c.storeEvents(ctx, events)
	return events, nil
}

func (c *Cache) FetchEvent(ctx context.Context, id string) (domain.Event, error) {
	// Serve point reads from the cached collection when present.
	if events, ok := c.loadEventsFromCache(ctx); ok {
		for _, ev := range events {
			if ev.ID == id {
				return ev, nil
			}
		}
	}
	return c.base.FetchEvent(ctx, id)
}

func (c *Cache) InsertEvent(ctx context.Context, ev domain.Event) error {
	if err := c.base.InsertEvent(ctx, ev); err != nil {
		return err
	}

	c.evict(ctx, eventsCacheKey())
	return nil
}

func (c *Cache) FetchProfile(ctx context.Context, username string) (domain.Profile, error) {
	if profile, ok := c.loadProfileFromCache(ctx, username); ok {
		return profile, nil
	}

	profile, err := c.base.FetchProfile(ctx, username)
	if err != nil {
		return domain.Profile{}, err
	}

	c.storeProfile(ctx, profile)
	return profile, nil
}

func (c *Cache) UpdateProfile(ctx context.Context, username string, update domain.ProfileUpdate) (domain.Profile, error) {
	profile, err := c.base.UpdateProfile(ctx, username, update)
	if err != nil {
		return domain.Profile{}, err
	}

	c.evict(ctx, profileCacheKey(username))
	return profile, nil
}

func (c *Cache) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return c.base.ListProfiles(ctx)
}

func (c *Cache) EnqueueNotifications(ctx context.Context, notifs []domain.Notification) error {
	return c.base.EnqueueNotifications(ctx, notifs)
}

func (c *Cache) loadEventsFromCache(ctx context.Context) ([]domain.Event, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, eventsCacheKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, eventsCacheKey()).Err()
		}
		return nil, false
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		_ = c.redis.Del(ctx, eventsCacheKey()).Err()
		return nil, false
	}
	return events, true
}

func (c *Cache) loadProfileFromCache(ctx context.Context, username string) (domain.Profile, bool) {
	if c.redis == nil {
		return domain.Profile{}, false
	}
	data, err := c.redis.Get(ctx, profileCacheKey(username)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, profileCacheKey(username)).Err()
		}
		return domain.Profile{}, false
	}
	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		_ = c.redis.Del(ctx, profileCacheKey(username)).Err()
		return domain.Profile{}, false
	}
	return profile, true
}

func (c *Cache) storeEvents(ctx context.Context, events []domain.Event) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, eventsCacheKey(), data, c.ttl).Err()
}

func (c *Cache) storeProfile(ctx context.Context, profile domain.Profile) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, profileCacheKey(profile.Username), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func eventsCacheKey() string {
	return "events:all"
}

func profileCacheKey(username string) string {
	return "profile:" + username
}
