package domain

import "time"

// Invoice records that an invoice exists for a booking. Rendering is done
// elsewhere.
type Invoice struct {
	ID        string
	BookingID string
	Amount    Money
	CreatedAt time.Time
}

// Review is the client's rating of a completed rental. One per booking.
type Review struct {
	ID        string
	BookingID string
	ClientID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

const (
	MinRating = 1
	MaxRating = 5
)
