package domain

import "time"

// User is a client or owner account. Contact fields may be redacted by the
// action gate depending on who is looking.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Car is the rented vehicle.
type Car struct {
	ID            string
	OwnerID       string
	Make          string
	Model         string
	Plate         string
	PricePerDay   Money
	DepositAmount Money
	DeliveryFee   Money
	CreatedAt     time.Time
}

// Booking is the aggregate root of the rental lifecycle. It is only mutated
// through lifecycle transitions.
type Booking struct {
	ID     string
	Status Status

	// Date-only, UTC midnight.
	StartDate time.Time
	EndDate   time.Time

	OwnerResponseDeadline *time.Time
	PaymentDeadline       *time.Time

	PricePerDay         Money
	TotalPrice          Money
	DepositAmount       Money
	DeliveryFee         Money
	OnlinePaymentAmount Money
	OwnerPaymentAmount  Money

	DeliveryCode       string
	DeliveryCodeUsedAt *time.Time
	PaymentID          string

	Car    Car
	Client User
	Owner  User

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days returns the number of rented days (end date exclusive).
func (b Booking) Days() int {
	return int(DateOnly(b.EndDate).Sub(DateOnly(b.StartDate)).Hours() / 24)
}

// ActiveDeadline returns the SLA deadline carried by the current status, if any.
func (b Booking) ActiveDeadline() (time.Time, bool) {
	switch b.Status {
	case StatusPendingOwner:
		if b.OwnerResponseDeadline != nil {
			return *b.OwnerResponseDeadline, true
		}
	case StatusWaitingPayment:
		if b.PaymentDeadline != nil {
			return *b.PaymentDeadline, true
		}
	}
	return time.Time{}, false
}

// DeliveryCodeUsed reports whether the handoff code has already been accepted.
func (b Booking) DeliveryCodeUsed() bool {
	return b.DeliveryCodeUsedAt != nil
}

// IsParty reports whether userID is the client or the owner of the booking.
func (b Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.Client.ID || userID == b.Owner.ID)
}

// Clone returns a deep copy so callers can hold snapshots safely.
func (b Booking) Clone() Booking {
	out := b
	out.OwnerResponseDeadline = cloneTime(b.OwnerResponseDeadline)
	out.PaymentDeadline = cloneTime(b.PaymentDeadline)
	out.DeliveryCodeUsedAt = cloneTime(b.DeliveryCodeUsedAt)
	return out
}

// Validate checks the structural invariants of a booking.
func (b Booking) Validate() error {
	if !b.Status.Valid() {
		return ErrInvalidTransition
	}
	if !b.EndDate.After(b.StartDate) {
		return ErrInvalidDates
	}
	for _, m := range []Money{
		b.PricePerDay, b.TotalPrice, b.DepositAmount, b.DeliveryFee,
		b.OnlinePaymentAmount, b.OwnerPaymentAmount,
	} {
		if m < 0 {
			return ErrInvalidAmount
		}
	}
	if b.OwnerPaymentAmount > b.TotalPrice {
		return ErrInvalidAmount
	}
	if b.OnlinePaymentAmount+b.OwnerPaymentAmount != b.TotalPrice {
		return ErrInvalidAmount
	}

	switch b.Status {
	case StatusPendingOwner:
		if b.OwnerResponseDeadline == nil || b.PaymentDeadline != nil {
			return ErrInvalidDeadlines
		}
	case StatusWaitingPayment:
		if b.PaymentDeadline == nil || b.OwnerResponseDeadline != nil {
			return ErrInvalidDeadlines
		}
	default:
		if b.OwnerResponseDeadline != nil || b.PaymentDeadline != nil {
			return ErrInvalidDeadlines
		}
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
