package outreach

import "github.com/google/uuid"

// BroadcastInput sends one text to many customers through a gateway session.
type BroadcastInput struct {
	SessionID   string
	CustomerIDs []uuid.UUID
	Text        string
}

// BroadcastFailure names one recipient that could not be reached.
type BroadcastFailure struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Phone      string    `json:"phone"`
	Reason     string    `json:"reason"`
}

// BroadcastResult reports partial success. Sent plus len(Failures) equals the
// number of resolved recipients.
type BroadcastResult struct {
	Sent     int                `json:"sent"`
	Failures []BroadcastFailure `json:"failures,omitempty"`
}
