package api

import "github.com/labstack/echo/v4"

const (
	createEventMaxSize  = 64 * 1024 // 64 KiB
	patchProfileMaxSize = 64 * 1024
	deletePhotosMaxSize = 16 * 1024
)

// envelope is the uniform response body. Success responses carry data, error
// responses carry a message; no response mixes the two.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Status: "success", Data: data})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Status: "error", Message: message})
}
