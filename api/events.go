package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"sosyal-api/domain"
	"sosyal-api/storage"
)

type createEventRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Date        string            `json:"date"`
	StartTime   string            `json:"startTime"`
	EndTime     string            `json:"endTime"`
	Location    string            `json:"location"`
	Image       string            `json:"image"`
	Attendees   int               `json:"attendees"`
	Organizer   *domain.Organizer `json:"organizer"`
}

type createEventResponse struct {
	ID             string `json:"id,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

func getEvents(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newEventRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		searchQuery := c.QueryParam("q")
		category := c.QueryParam("category")
		metrics.SetSearchProvided(strings.TrimSpace(searchQuery) != "")

		filters := domain.DefaultFilters()
		if v := strings.TrimSpace(c.QueryParam("date")); v != "" {
			filters.Date = domain.DateFilter(v)
		}
		if v := strings.TrimSpace(c.QueryParam("location")); v != "" {
			filters.Location = v
		}
		if v := strings.TrimSpace(c.QueryParam("attendees")); v != "" {
			filters.Attendees = domain.AttendeeFilter(v)
		}
		if v := strings.TrimSpace(c.QueryParam("sortBy")); v != "" {
			filters.SortBy = domain.SortKey(v)
		}

		fetchStart := time.Now()
		events, fetchErr := store.FetchEvents(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = fail(c, http.StatusInternalServerError, "failed to load events")
			return err
		}

		queryStart := time.Now()
		visible := domain.Query(events, searchQuery, category, filters, time.Now())
		metrics.ObserveQuery(time.Since(queryStart))
		metrics.SetEventsReturned(len(visible))

		encodeStart := time.Now()
		err = respond(c, http.StatusOK, visible)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getEvent(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ev, err := store.FetchEvent(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fail(c, http.StatusNotFound, "event not found")
			}
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "failed to load event")
		}
		return respond(c, http.StatusOK, ev)
	}
}

func postEvent(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, createEventMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req createEventRequest
		if err := dec.Decode(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
		if problem := validateCreateEvent(req); problem != "" {
			return fail(c, http.StatusBadRequest, problem)
		}

		key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
		if key == "" {
			key = uuid.NewString()
		}
		added, err := deduper.Add(ctx, userID, key)
		if err != nil {
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "failed to record submission")
		}
		if !added {
			return respond(c, http.StatusOK, createEventResponse{IdempotencyKey: key, Duplicate: true})
		}

		ev := domain.Event{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Category:    req.Category,
			Date:        req.Date,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Location:    strings.TrimSpace(req.Location),
			Image:       req.Image,
			Attendees:   req.Attendees,
			Organizer:   req.Organizer,
		}
		if err := store.InsertEvent(ctx, ev); err != nil {
			if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
				c.Logger().Errorf("dedupe rollback failed: %v", rerr)
			}
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "failed to create event")
		}

		eventsCreatedTotal.Inc()
		fanOutEventCreated(c, store, userID, ev)

		return respond(c, http.StatusCreated, createEventResponse{ID: ev.ID, IdempotencyKey: key})
	}
}

func validateCreateEvent(req createEventRequest) string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if !domain.ValidCategory(req.Category) {
		return "unknown category"
	}
	if _, ok := domain.ParseEventDate(req.Date); !ok {
		return "invalid date"
	}
	if strings.TrimSpace(req.Location) == "" {
		return "location is required"
	}
	if req.Attendees < 0 {
		return "attendees must not be negative"
	}
	return ""
}

// fanOutEventCreated queues the creation notification. Delivery is best
// effort; a failed enqueue is logged and never fails the request.
func fanOutEventCreated(c echo.Context, store Storage, userID string, ev domain.Event) {
	payload, err := sonic.Marshal(domain.EventCreatedPayload{
		EventID:  ev.ID,
		Title:    ev.Title,
		Category: ev.Category,
		Date:     ev.Date,
	})
	if err != nil {
		c.Logger().Errorf("encode notification payload: %v", err)
		return
	}

	job := fanoutJob{notifs: []domain.Notification{{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      domain.NotificationEventCreated,
		Data:      payload,
		Timestamp: nextTimestamp(),
	}}}

	if tryEnqueueJob(job) {
		return
	}

	if globalLog != nil {
		globalLog.Warn("notification buffer saturated; enqueueing inline")
	}

	timeout := enqueueTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	enqueueCtx, cancel := context.WithTimeout(bg, timeout)
	defer cancel()
	if err := store.EnqueueNotifications(enqueueCtx, job.notifs); err != nil {
		c.Logger().Errorf("enqueue inline failed: %v", err)
	}
}
