package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID              = errors.New("invalid id")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrCarNotFound            = errors.New("car not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidDates           = errors.New("end date must be after start date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDeadlines       = errors.New("deadlines do not match booking status")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrUnauthorizedAction     = errors.New("action not permitted for role")
	ErrForbidden              = errors.New("not a party to this booking")
	ErrMalformedCode          = errors.New("malformed delivery code")
	ErrEarlyDeliveryAttempt   = errors.New("delivery code used before rental start date")
	ErrCodeAlreadyUsed        = errors.New("delivery code already used")
	ErrIncorrectCode          = errors.New("incorrect delivery code")
	ErrDeliveryCodeNotIssued  = errors.New("delivery code not issued")
	ErrDeadlineElapsed        = errors.New("deadline elapsed")
	ErrPaymentAlreadySettled  = errors.New("payment already settled")
	ErrInvalidRole            = errors.New("invalid role")
	ErrUserNameRequired       = errors.New("user name required")
	ErrCarModelRequired       = errors.New("car model required")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrCarUnavailable         = errors.New("car already booked for these dates")
	ErrOwnCar                 = errors.New("owners cannot book their own car")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
	ErrReviewExists           = errors.New("booking already reviewed")
	ErrReviewNotAllowed       = errors.New("review not allowed for this booking")
	ErrUserEmailTaken         = errors.New("email already registered")
	ErrPlateTaken             = errors.New("plate already registered")
)

// InvalidTransitionError identifies the edge that was attempted. Cause, when
// set, is the guard failure (for example ErrDeadlineElapsed).
type InvalidTransitionError struct {
	From    Status
	Trigger Trigger
	Reason  string
	Cause   error
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid transition: %s --%s-->", e.From, e.Trigger)
	}
	return fmt.Sprintf("invalid transition: %s --%s--> (%s)", e.From, e.Trigger, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidTransition, e.Cause}
	}
	return []error{ErrInvalidTransition}
}

// AuthorityError is an error reported by the authoritative booking service.
// Err holds the matching sentinel when the code is known.
type AuthorityError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AuthorityError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authority: %s (status %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("authority: %s: %s", e.Code, e.Message)
}

func (e *AuthorityError) Unwrap() error { return e.Err }

// TransportError wraps a network or timeout failure talking to the authority.
// The outcome of the attempted operation is unknown.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuthority reports whether err was reported by the authority.
func IsAuthority(err error) bool {
	var ae *AuthorityError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is resolved locally without any network call.
func IsValidation(err error) bool {
	if IsTransport(err) || IsAuthority(err) {
		return false
	}
	return errors.Is(err, ErrMalformedCode) ||
		errors.Is(err, ErrEarlyDeliveryAttempt) ||
		errors.Is(err, ErrCodeAlreadyUsed) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnauthorizedAction)
}
