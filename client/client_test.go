package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sosyal-api/domain"
)

func TestListEventsForwardsFilters(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"status":"success","data":[{"id":"1","title":"Tech Summit"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	filters := domain.FilterConfig{
		Date:      domain.DateThisWeek,
		Location:  "istanbul",
		Attendees: domain.AttendeesLarge,
		SortBy:    domain.SortByAttendees,
	}
	events, err := c.ListEvents(context.Background(), "tech", "tech", filters)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].ID != "1" {
		t.Fatalf("unexpected events: %#v", events)
	}

	want := map[string]string{
		"q":         "tech",
		"category":  "tech",
		"date":      "thisWeek",
		"location":  "istanbul",
		"attendees": "large",
		"sortBy":    "attendees",
	}
	for key, val := range want {
		if got := gotQuery[key]; len(got) != 1 || got[0] != val {
			t.Fatalf("query param %s: expected %q, got %v", key, val, got)
		}
	}
}

func TestListEventsOmitsOpenDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Query()) != 0 {
			t.Errorf("expected no query params, got %v", r.URL.Query())
		}
		_, _ = io.WriteString(w, `{"status":"success","data":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if _, err := c.ListEvents(context.Background(), "", "", domain.DefaultFilters()); err != nil {
		t.Fatalf("list events: %v", err)
	}
}

func TestClientDecodesLegacyNestedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","data":{"data":{"id":"e1","title":"Festival"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ev, err := c.GetEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if ev.ID != "e1" || ev.Title != "Festival" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClientReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":"error","message":"event not found"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.GetEvent(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "event not found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if apiErr.IsAuth() {
		t.Fatal("404 must not classify as auth error")
	}
}

func TestClientAuthErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":"error","message":"missing authorization header"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.FetchProfile(context.Background(), "")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !apiErr.IsAuth() {
		t.Fatal("401 must classify as auth error")
	}
}

func TestClientTokenLifecycle(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":"success","data":{"username":"ayse"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	if _, err := c.FetchProfile(ctx, "ayse"); err != nil {
		t.Fatalf("anonymous fetch: %v", err)
	}
	c.SetToken("tok-123")
	if _, err := c.FetchProfile(ctx, ""); err != nil {
		t.Fatalf("authed fetch: %v", err)
	}
	c.ClearToken()
	if _, err := c.FetchProfile(ctx, "ayse"); err != nil {
		t.Fatalf("cleared fetch: %v", err)
	}

	want := []string{"", "Bearer tok-123", ""}
	for i, header := range want {
		if gotAuth[i] != header {
			t.Fatalf("request %d: expected auth %q, got %q", i, header, gotAuth[i])
		}
	}
}

func TestFetchProfilePaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"success","data":{"username":"ayse"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()
	if _, err := c.FetchProfile(ctx, ""); err != nil {
		t.Fatalf("own profile: %v", err)
	}
	if _, err := c.FetchProfile(ctx, "@ayse"); err != nil {
		t.Fatalf("detail profile: %v", err)
	}

	if paths[0] != "/api/users/profile" {
		t.Fatalf("unexpected own path: %s", paths[0])
	}
	if paths[1] != "/api/users/profile/details/@ayse" {
		t.Fatalf("unexpected detail path: %s", paths[1])
	}
}

func TestUpdateProfileSendsOnlyProvidedFields(t *testing.T) {
	var body map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		_, _ = io.WriteString(w, `{"status":"success","data":{"username":"ayse","bio":"hiker"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	bio := "hiker"
	profile, err := c.UpdateProfile(context.Background(), domain.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if profile.Bio != "hiker" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, ok := body["bio"]; !ok {
		t.Fatalf("bio missing from body: %v", body)
	}
	for _, forbidden := range []string{"firstName", "email", "interests", "profilePhotos"} {
		if _, ok := body[forbidden]; ok {
			t.Fatalf("omitted field %s must not be sent", forbidden)
		}
	}
}

func TestUploadPhotosMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["photos"]
		if len(files) != 2 {
			t.Errorf("expected 2 files, got %d", len(files))
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":"success","data":{"photoUrls":["/media/a.jpg","/media/b.jpg"]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	urls, err := c.UploadPhotos(context.Background(), []domain.PhotoUpload{
		{Name: "a.jpg", Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}},
		{Name: "b.jpg", Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(urls) != 2 || urls[0] != "/media/a.jpg" {
		t.Fatalf("unexpected urls: %#v", urls)
	}
}

func TestDeletePhotosSendsURLs(t *testing.T) {
	var body photosPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		_, _ = io.WriteString(w, `{"status":"success","data":{"photoUrls":["/media/a.jpg"]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	deleted, err := c.DeletePhotos(context.Background(), []string{"/media/a.jpg"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "/media/a.jpg" {
		t.Fatalf("unexpected deleted urls: %#v", deleted)
	}
	if len(body.PhotoURLs) != 1 || body.PhotoURLs[0] != "/media/a.jpg" {
		t.Fatalf("unexpected request body: %#v", body)
	}
}

func TestCreateEventSendsIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Idempotency-Key"); got != "key-1" {
			t.Errorf("expected idempotency key, got %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":"success","data":{"id":"e9","idempotencyKey":"key-1"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	result, err := c.CreateEvent(context.Background(), EventDraft{
		Title:          "Tech Summit",
		Category:       "tech",
		Date:           "2025-03-15",
		Location:       "Istanbul",
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if result.ID != "e9" || result.Duplicate {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestEditSessionAgainstLiveServer(t *testing.T) {
	profile := domain.Profile{
		Username:    "ayse",
		Email:       "ayse@example.com",
		FirstName:   "Ayşe",
		LastName:    "Demir",
		Preferences: domain.DefaultNotificationPreferences(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/profile/details/ayse", func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(profile)
		_, _ = io.WriteString(w, `{"status":"success","data":`+string(data)+`}`)
	})
	mux.HandleFunc("/api/users/profile/detail", func(w http.ResponseWriter, r *http.Request) {
		var update domain.ProfileUpdate
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &update); err != nil {
			t.Errorf("invalid update body: %v", err)
		}
		if update.Bio != nil {
			profile.Bio = *update.Bio
		}
		data, _ := json.Marshal(profile)
		_, _ = io.WriteString(w, `{"status":"success","data":`+string(data)+`}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, nil)
	c.SetToken("tok")

	session := domain.NewEditSession(c)
	ctx := context.Background()
	if err := session.Load(ctx, "ayse"); err != nil {
		t.Fatalf("load: %v", err)
	}
	session.SetBio("hiker")
	if !session.Dirty() {
		t.Fatal("expected dirty session after edit")
	}

	saved, err := session.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if saved.Bio != "hiker" {
		t.Fatalf("unexpected saved profile: %+v", saved)
	}
	if session.Dirty() {
		t.Fatal("baseline must reset after successful submit")
	}
}
