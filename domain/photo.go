package domain

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// MaxProfilePhotos caps a profile's photo list, persisted plus staged.
	MaxProfilePhotos = 5
	// MaxPhotoBytes is the per-file upload ceiling.
	MaxPhotoBytes = 5 << 20
)

// ErrPhotoTooLarge and ErrPhotoFormat classify the two rejection reasons for
// a staged photo.
var (
	ErrPhotoTooLarge = errors.New("photo exceeds 5MB limit")
	ErrPhotoFormat   = errors.New("photo format must be JPG, PNG or WEBP")
)

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// PhotoUpload is a not-yet-persisted binary image payload.
type PhotoUpload struct {
	Name string
	Data []byte
}

// ContentType sniffs the payload's MIME type from its leading bytes. The
// declared type from the uploader is ignored on purpose.
func (p PhotoUpload) ContentType() string {
	return http.DetectContentType(p.Data)
}

// ValidatePhoto checks one upload against the size and format rules.
func ValidatePhoto(p PhotoUpload) error {
	if len(p.Data) > MaxPhotoBytes {
		return fmt.Errorf("%s: %w", p.Name, ErrPhotoTooLarge)
	}
	if _, ok := allowedPhotoTypes[p.ContentType()]; !ok {
		return fmt.Errorf("%s: %w", p.Name, ErrPhotoFormat)
	}
	return nil
}
