package domain

import "time"

// InAppMessage is one materialized in-app notification, served to the user's
// inbox by the read surface. The in-app channel "provider" writes these.
type InAppMessage struct {
	ID        string     `json:"id"`
	UID       string     `json:"uid"`
	EventID   string     `json:"eventId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}
