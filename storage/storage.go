package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"sosyal-api/domain"
)

// eventPartition keys every event entity; the collection is small enough to
// serve as a single partition scan.
const eventPartition = "event"

// ErrNotFound is returned when a requested event or profile does not exist.
var ErrNotFound = errors.New("not found")

// Storage provides access to underlying persistence mechanisms.
type Storage struct {
	eventTable   *aztables.Client
	profileTable *aztables.Client
	notifQueue   *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, eventsTable, profilesTable, notificationQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	et := svc.NewClient(eventsTable)
	pt := svc.NewClient(profilesTable)

	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	nq, err := azqueue.NewQueueClientFromConnectionString(connStr, notificationQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{eventTable: et, profileTable: pt, notifQueue: nq}, nil
}

type eventEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
	Location    string `json:"Location"`
	Date        string `json:"Date"`
	StartTime   string `json:"StartTime"`
	EndTime     string `json:"EndTime"`
	Attendees   int32  `json:"Attendees"`
	Image       string `json:"Image"`
	Featured    bool   `json:"Featured"`
	Organizer   string `json:"Organizer"`
}

func decodeEventEntity(data []byte) (domain.Event, error) {
	var ent eventEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Category:    ent.Category,
		Location:    ent.Location,
		Date:        ent.Date,
		StartTime:   ent.StartTime,
		EndTime:     ent.EndTime,
		Attendees:   int(ent.Attendees),
		Image:       ent.Image,
		Featured:    ent.Featured,
	}
	if ent.Organizer != "" {
		var org domain.Organizer
		if err := json.Unmarshal([]byte(ent.Organizer), &org); err == nil {
			ev.Organizer = &org
		}
	}
	return ev, nil
}

func encodeEventEntity(ev domain.Event) ([]byte, error) {
	ent := eventEntity{
		Entity: aztables.Entity{
			PartitionKey: eventPartition,
			RowKey:       ev.ID,
		},
		Title:       ev.Title,
		Description: ev.Description,
		Category:    ev.Category,
		Location:    ev.Location,
		Date:        ev.Date,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Attendees:   int32(ev.Attendees),
		Image:       ev.Image,
		Featured:    ev.Featured,
	}
	if ev.Organizer != nil {
		org, err := json.Marshal(ev.Organizer)
		if err != nil {
			return nil, err
		}
		ent.Organizer = string(org)
	}
	return json.Marshal(ent)
}

// FetchEvents retrieves the whole event collection.
func (s *Storage) FetchEvents(ctx context.Context) ([]domain.Event, error) {
	filter := "PartitionKey eq '" + eventPartition + "'"
	pager := s.eventTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	events := []domain.Event{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			ev, err := decodeEventEntity(e)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// FetchEvent retrieves one event by id.
func (s *Storage) FetchEvent(ctx context.Context, id string) (domain.Event, error) {
	ent, err := s.eventTable.GetEntity(ctx, eventPartition, id, nil)
	if err != nil {
		return domain.Event{}, mapNotFound(err)
	}
	return decodeEventEntity(ent.Value)
}

// InsertEvent persists a new event.
func (s *Storage) InsertEvent(ctx context.Context, ev domain.Event) error {
	data, err := encodeEventEntity(ev)
	if err != nil {
		return err
	}
	_, err = s.eventTable.AddEntity(ctx, data, nil)
	return err
}

type profileEntity struct {
	aztables.Entity
	UserID       string `json:"UserID"`
	Email        string `json:"Email"`
	FirstName    string `json:"FirstName"`
	LastName     string `json:"LastName"`
	Bio          string `json:"Bio"`
	Location     string `json:"Location"`
	Interests    string `json:"Interests"`
	ProfilePhoto string `json:"ProfilePhoto"`
	Photos       string `json:"Photos"`
	Preferences  string `json:"Preferences"`
	IsActive     bool   `json:"IsActive"`
	LastLoginAt  string `json:"LastLoginAt"`
	CreatedAt    string `json:"CreatedAt"`
	UpdatedAt    string `json:"UpdatedAt"`
}

func decodeProfileEntity(data []byte) (domain.Profile, error) {
	var ent profileEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Profile{}, err
	}
	p := domain.Profile{
		ID:           ent.UserID,
		Username:     ent.RowKey,
		Email:        ent.Email,
		FirstName:    ent.FirstName,
		LastName:     ent.LastName,
		Bio:          ent.Bio,
		Location:     ent.Location,
		ProfilePhoto: ent.ProfilePhoto,
		Preferences:  domain.DefaultNotificationPreferences(),
		IsActive:     ent.IsActive,
		LastLoginAt:  ent.LastLoginAt,
		CreatedAt:    ent.CreatedAt,
		UpdatedAt:    ent.UpdatedAt,
	}
	if ent.Interests != "" {
		if err := json.Unmarshal([]byte(ent.Interests), &p.Interests); err != nil {
			return domain.Profile{}, fmt.Errorf("profile %s: interests column: %w", ent.RowKey, err)
		}
	}
	if ent.Photos != "" {
		if err := json.Unmarshal([]byte(ent.Photos), &p.ProfilePhotos); err != nil {
			return domain.Profile{}, fmt.Errorf("profile %s: photos column: %w", ent.RowKey, err)
		}
	}
	if ent.Preferences != "" {
		if err := json.Unmarshal([]byte(ent.Preferences), &p.Preferences); err != nil {
			return domain.Profile{}, fmt.Errorf("profile %s: preferences column: %w", ent.RowKey, err)
		}
	}
	return p, nil
}

func encodeProfileEntity(p domain.Profile) ([]byte, error) {
	interests, err := json.Marshal(p.Interests)
	if err != nil {
		return nil, err
	}
	photos, err := json.Marshal(p.ProfilePhotos)
	if err != nil {
		return nil, err
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return nil, err
	}
	ent := profileEntity{
		Entity: aztables.Entity{
			PartitionKey: p.Username,
			RowKey:       p.Username,
		},
		UserID:       p.ID,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Bio:          p.Bio,
		Location:     p.Location,
		Interests:    string(interests),
		ProfilePhoto: p.ProfilePhoto,
		Photos:       string(photos),
		Preferences:  string(prefs),
		IsActive:     p.IsActive,
		LastLoginAt:  p.LastLoginAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	return json.Marshal(ent)
}

// FetchProfile retrieves one profile by username.
func (s *Storage) FetchProfile(ctx context.Context, username string) (domain.Profile, error) {
	ent, err := s.profileTable.GetEntity(ctx, username, username, nil)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return decodeProfileEntity(ent.Value)
}

// UpdateProfile merges a partial update into the stored profile and returns
// the result. The merge happens in one replace so a reader never observes a
// half-applied update.
func (s *Storage) UpdateProfile(ctx context.Context, username string, update domain.ProfileUpdate) (domain.Profile, error) {
	profile, err := s.FetchProfile(ctx, username)
	if err != nil {
		return domain.Profile{}, err
	}

	applyUpdate(&profile, update)
	profile.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := encodeProfileEntity(profile)
	if err != nil {
		return domain.Profile{}, err
	}
	if _, err := s.profileTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func applyUpdate(p *domain.Profile, u domain.ProfileUpdate) {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Interests != nil {
		p.Interests = append([]string(nil), u.Interests...)
	}
	if u.ProfilePhotos != nil {
		p.ProfilePhotos = append([]string(nil), u.ProfilePhotos...)
	}
	if u.ProfilePhoto != nil {
		p.ProfilePhoto = *u.ProfilePhoto
	} else if len(p.ProfilePhotos) > 0 {
		p.ProfilePhoto = p.ProfilePhotos[0]
	}
	if u.Preferences != nil {
		p.Preferences = *u.Preferences
	}
}

// ListProfiles retrieves every stored profile. Used by the digest job; the
// profile population is expected to fit a full scan.
func (s *Storage) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	pager := s.profileTable.NewListEntitiesPager(nil)
	profiles := []domain.Profile{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			p, err := decodeProfileEntity(e)
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// EnqueueNotifications sends the given notifications to the delivery queue.
func (s *Storage) EnqueueNotifications(ctx context.Context, notifs []domain.Notification) error {
	for _, n := range notifs {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := s.notifQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

func mapNotFound(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, respErr.ErrorCode)
	}
	return err
}
