package domain

import "time"

// Notification is an inbox entry kept for clients that poll instead of
// holding a websocket open.
type Notification struct {
	ID        string    `json:"id"`
	Username  string    `json:"-"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
