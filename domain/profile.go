package domain

// NotificationPreferences are the three independent opt-ins a user controls.
type NotificationPreferences struct {
	EmailNotifications    bool `json:"emailNotifications"`
	PushNotifications     bool `json:"pushNotifications"`
	WeeklyRecommendations bool `json:"weeklyRecommendations"`
}

// DefaultNotificationPreferences mirrors the defaults applied when a partial
// update provides a preferences object with fields omitted.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailNotifications:    true,
		PushNotifications:     true,
		WeeklyRecommendations: false,
	}
}

// Profile is the full user profile as served by the API.
type Profile struct {
	ID            string                  `json:"id"`
	Username      string                  `json:"username"`
	Email         string                  `json:"email"`
	FirstName     string                  `json:"firstName"`
	LastName      string                  `json:"lastName"`
	Bio           string                  `json:"bio,omitempty"`
	Location      string                  `json:"location,omitempty"`
	Interests     []string                `json:"interests,omitempty"`
	ProfilePhoto  string                  `json:"profilePhoto,omitempty"`
	ProfilePhotos []string                `json:"profilePhotos,omitempty"`
	Preferences   NotificationPreferences `json:"notificationPreferences"`
	IsActive      bool                    `json:"isActive"`
	LastLoginAt   string                  `json:"lastLoginAt,omitempty"`
	CreatedAt     string                  `json:"createdAt,omitempty"`
	UpdatedAt     string                  `json:"updatedAt,omitempty"`
}

// ProfileUpdate is a partial profile update. Nil fields are left untouched by
// the server; the update is applied as one atomic merge.
type ProfileUpdate struct {
	FirstName     *string                  `json:"firstName,omitempty"`
	LastName      *string                  `json:"lastName,omitempty"`
	Email         *string                  `json:"email,omitempty"`
	Bio           *string                  `json:"bio,omitempty"`
	Location      *string                  `json:"location,omitempty"`
	Interests     []string                 `json:"interests,omitempty"`
	ProfilePhoto  *string                  `json:"profilePhoto,omitempty"`
	ProfilePhotos []string                 `json:"profilePhotos,omitempty"`
	Preferences   *NotificationPreferences `json:"notificationPreferences,omitempty"`
}
