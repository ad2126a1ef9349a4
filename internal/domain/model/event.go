package model

import "time"

// Event is a vendor event stream entry.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	AlertType string    `json:"alertType"`
	Priority  string    `json:"priority"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is a user-facing alert raised from an event.
type Notification struct {
	ID        string    `json:"id"`
	EventID   int64     `json:"eventId"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	AlertType string    `json:"alertType"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}
