package domain

import "github.com/bytedance/sonic"

// Notification kinds enqueued for asynchronous delivery.
const (
	NotificationEventCreated = "event-created"
	NotificationWeeklyDigest = "weekly-digest"
)

// Notification is one queued delivery for a user.
type Notification struct {
	ID        string                 `json:"id,omitempty"`
	UserID    string                 `json:"userId"`
	Type      string                 `json:"type"`
	Data      sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// DigestPayload is the Data body of a weekly-digest notification.
type DigestPayload struct {
	WeekStart string  `json:"weekStart"`
	Events    []Event `json:"events"`
}

// EventCreatedPayload is the Data body of an event-created notification.
type EventCreatedPayload struct {
	EventID  string `json:"eventId"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Date     string `json:"date"`
}
