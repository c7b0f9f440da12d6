package notification

import "time"

// Verification is the message handed from registration to the delivery side.
type Verification struct {
	Email       string    `json:"email"`
	Link        string    `json:"link"`
	RequestedAt time.Time `json:"requested_at"`
}
