package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, photos PhotoStore, logger *log.Logger) {
	e.GET("/api/events", getEvents(store, logger))
	e.GET("/api/events/:id", getEvent(store))
	e.POST("/api/events", postEvent(store, auth, deduper))

	e.GET("/api/users/profile", getProfile(store, auth))
	e.GET("/api/users/profile/details/:username", getProfileDetails(store))
	e.PATCH("/api/users/profile/detail", patchProfile(store, auth))
	e.POST("/api/users/profile/photos", postPhotos(store, auth, photos))
	e.DELETE("/api/users/profile/photos", deletePhotos(store, auth, photos))

	e.GET("/healthz", healthz(store))

	initNotificationSender(store, logger)
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
