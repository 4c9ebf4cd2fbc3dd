package client

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"

	"sosyal-api/domain"
)

// EventDraft is the payload for creating an event. IdempotencyKey is
// optional; the server assigns one when empty.
type EventDraft struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	Date        string            `json:"date"`
	StartTime   string            `json:"startTime,omitempty"`
	EndTime     string            `json:"endTime,omitempty"`
	Location    string            `json:"location"`
	Image       string            `json:"image,omitempty"`
	Attendees   int               `json:"attendees,omitempty"`
	Organizer   *domain.Organizer `json:"organizer,omitempty"`

	IdempotencyKey string `json:"-"`
}

// CreateEventResult reports the outcome of an event submission.
type CreateEventResult struct {
	ID             string `json:"id"`
	IdempotencyKey string `json:"idempotencyKey"`
	Duplicate      bool   `json:"duplicate"`
}

// ListEvents fetches the visible event list. Filter values matching the open
// defaults are omitted from the request.
func (c *Client) ListEvents(ctx context.Context, searchQuery, category string, filters domain.FilterConfig) ([]domain.Event, error) {
	query := url.Values{}
	if searchQuery != "" {
		query.Set("q", searchQuery)
	}
	if category != "" {
		query.Set("category", category)
	}
	if filters.Date != "" && filters.Date != domain.DateAll {
		query.Set("date", string(filters.Date))
	}
	if filters.Location != "" && filters.Location != domain.LocationAll {
		query.Set("location", filters.Location)
	}
	if filters.Attendees != "" && filters.Attendees != domain.AttendeesAll {
		query.Set("attendees", string(filters.Attendees))
	}
	if filters.SortBy != "" && filters.SortBy != domain.SortByDate {
		query.Set("sortBy", string(filters.SortBy))
	}

	var events []domain.Event
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/events",
		query:  query,
	}, &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var ev domain.Event
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/events/" + url.PathEscape(id),
	}, &ev)
	if err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// CreateEvent submits a new event. Requires an authenticated client.
func (c *Client) CreateEvent(ctx context.Context, draft EventDraft) (CreateEventResult, error) {
	body, err := sonic.Marshal(draft)
	if err != nil {
		return CreateEventResult{}, err
	}

	header := http.Header{}
	if draft.IdempotencyKey != "" {
		header.Set("Idempotency-Key", draft.IdempotencyKey)
	}

	var result CreateEventResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/events",
		body:        bytes.NewReader(body),
		contentType: "application/json",
		header:      header,
	}, &result)
	if err != nil {
		return CreateEventResult{}, err
	}
	return result, nil
}
