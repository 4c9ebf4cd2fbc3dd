package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"sosyal-api/domain"
	"sosyal-api/storage"
)

type patchPreferences struct {
	EmailNotifications    *bool `json:"emailNotifications"`
	PushNotifications     *bool `json:"pushNotifications"`
	WeeklyRecommendations *bool `json:"weeklyRecommendations"`
}

// resolve fills omitted preference fields with the documented defaults.
func (p *patchPreferences) resolve() domain.NotificationPreferences {
	prefs := domain.DefaultNotificationPreferences()
	if p.EmailNotifications != nil {
		prefs.EmailNotifications = *p.EmailNotifications
	}
	if p.PushNotifications != nil {
		prefs.PushNotifications = *p.PushNotifications
	}
	if p.WeeklyRecommendations != nil {
		prefs.WeeklyRecommendations = *p.WeeklyRecommendations
	}
	return prefs
}

type patchProfileRequest struct {
	FirstName     *string           `json:"firstName"`
	LastName      *string           `json:"lastName"`
	Email         *string           `json:"email"`
	Bio           *string           `json:"bio"`
	Location      *string           `json:"location"`
	Interests     []string          `json:"interests"`
	ProfilePhoto  *string           `json:"profilePhoto"`
	ProfilePhotos []string          `json:"profilePhotos"`
	Preferences   *patchPreferences `json:"notificationPreferences"`
}

type photosResponse struct {
	PhotoURLs []string `json:"photoUrls"`
}

type deletePhotosRequest struct {
	PhotoURLs []string `json:"photoUrls"`
}

func getProfile(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		username, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}
		profile, err := store.FetchProfile(ctx, username)
		if err != nil {
			return profileFetchError(c, err)
		}
		return respond(c, http.StatusOK, profile)
	}
}

func getProfileDetails(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		// Front ends pass handles as typed, with the leading @ included.
		username := strings.TrimPrefix(c.Param("username"), "@")
		if username == "" {
			return fail(c, http.StatusBadRequest, "username is required")
		}
		profile, err := store.FetchProfile(ctx, username)
		if err != nil {
			return profileFetchError(c, err)
		}
		return respond(c, http.StatusOK, profile)
	}
}

func patchProfile(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		username, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, patchProfileMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req patchProfileRequest
		if err := dec.Decode(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
		if req.Email != nil && !domain.ValidEmail(*req.Email) {
			return fail(c, http.StatusBadRequest, "invalid email address")
		}

		update := domain.ProfileUpdate{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			Bio:           req.Bio,
			Location:      req.Location,
			Interests:     req.Interests,
			ProfilePhoto:  req.ProfilePhoto,
			ProfilePhotos: req.ProfilePhotos,
		}
		if req.Preferences != nil {
			prefs := req.Preferences.resolve()
			update.Preferences = &prefs
		}

		profile, err := store.UpdateProfile(ctx, username, update)
		if err != nil {
			return profileFetchError(c, err)
		}
		return respond(c, http.StatusOK, profile)
	}
}

func postPhotos(store Storage, auth Authenticator, photos PhotoStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		username, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}

		form, err := c.MultipartForm()
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid multipart body")
		}
		files := form.File["photos"]
		if len(files) == 0 {
			return fail(c, http.StatusBadRequest, "no photos provided")
		}

		profile, err := store.FetchProfile(ctx, username)
		if err != nil {
			return profileFetchError(c, err)
		}
		if len(profile.ProfilePhotos)+len(files) > domain.MaxProfilePhotos {
			return fail(c, http.StatusBadRequest, "photo limit exceeded")
		}

		uploads := make([]domain.PhotoUpload, 0, len(files))
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return fail(c, http.StatusBadRequest, "unreadable photo: "+fh.Filename)
			}
			// Read one byte past the cap so oversize files fail validation
			// instead of being truncated silently.
			data, err := io.ReadAll(io.LimitReader(f, domain.MaxPhotoBytes+1))
			_ = f.Close()
			if err != nil {
				return fail(c, http.StatusBadRequest, "unreadable photo: "+fh.Filename)
			}
			upload := domain.PhotoUpload{Name: fh.Filename, Data: data}
			if err := domain.ValidatePhoto(upload); err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			uploads = append(uploads, upload)
		}

		saved := make([]string, 0, len(uploads))
		for _, upload := range uploads {
			url, err := photos.Save(ctx, upload)
			if err != nil {
				discardPhotos(c, photos, saved)
				c.Logger().Error(err)
				return fail(c, http.StatusInternalServerError, "failed to store photo")
			}
			saved = append(saved, url)
		}

		combined := append(append([]string(nil), profile.ProfilePhotos...), saved...)
		if _, err := store.UpdateProfile(ctx, username, domain.ProfileUpdate{ProfilePhotos: combined}); err != nil {
			discardPhotos(c, photos, saved)
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "failed to update profile")
		}

		return respond(c, http.StatusCreated, photosResponse{PhotoURLs: saved})
	}
}

func deletePhotos(store Storage, auth Authenticator, photos PhotoStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		username, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, deletePhotosMaxSize)
		var req deletePhotosRequest
		if err := sonic.ConfigStd.NewDecoder(lr).Decode(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
		if len(req.PhotoURLs) == 0 {
			return fail(c, http.StatusBadRequest, "no photo urls provided")
		}

		profile, err := store.FetchProfile(ctx, username)
		if err != nil {
			return profileFetchError(c, err)
		}
		owned := make(map[string]struct{}, len(profile.ProfilePhotos))
		for _, url := range profile.ProfilePhotos {
			owned[url] = struct{}{}
		}
		for _, url := range req.PhotoURLs {
			if _, ok := owned[url]; !ok {
				return fail(c, http.StatusNotFound, "photo not found: "+url)
			}
		}

		for _, url := range req.PhotoURLs {
			if err := photos.Delete(ctx, url); err != nil {
				c.Logger().Error(err)
				return fail(c, http.StatusInternalServerError, "failed to delete photo")
			}
		}

		remaining := make([]string, 0, len(profile.ProfilePhotos))
		deleted := make(map[string]struct{}, len(req.PhotoURLs))
		for _, url := range req.PhotoURLs {
			deleted[url] = struct{}{}
		}
		for _, url := range profile.ProfilePhotos {
			if _, ok := deleted[url]; !ok {
				remaining = append(remaining, url)
			}
		}

		if _, err := store.UpdateProfile(ctx, username, domain.ProfileUpdate{ProfilePhotos: remaining}); err != nil {
			c.Logger().Error(err)
			return fail(c, http.StatusInternalServerError, "failed to update profile")
		}

		return respond(c, http.StatusOK, photosResponse{PhotoURLs: req.PhotoURLs})
	}
}

func discardPhotos(c echo.Context, photos PhotoStore, urls []string) {
	for _, url := range urls {
		if err := photos.Delete(c.Request().Context(), url); err != nil {
			c.Logger().Errorf("orphaned photo %s: %v", url, err)
		}
	}
}

func profileFetchError(c echo.Context, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fail(c, http.StatusNotFound, "user not found")
	}
	c.Logger().Error(err)
	return fail(c, http.StatusInternalServerError, "failed to load profile")
}
