package domain

import "errors"

// Wire error codes shared by the HTTP API and its client.
const (
	CodeInvalidID              = "invalid_id"
	CodeBookingNotFound        = "booking_not_found"
	CodeCarNotFound            = "car_not_found"
	CodeUserNotFound           = "user_not_found"
	CodeInvalidDates           = "invalid_dates"
	CodeInvalidAmount          = "invalid_amount"
	CodeInvalidTransition      = "invalid_transition"
	CodeDeadlineElapsed        = "deadline_elapsed"
	CodeUnauthorizedAction     = "unauthorized_action"
	CodeForbidden              = "forbidden"
	CodeMalformedCode          = "malformed_code"
	CodeEarlyDeliveryAttempt   = "early_delivery_attempt"
	CodeCodeAlreadyUsed        = "code_already_used"
	CodeIncorrectCode          = "incorrect_code"
	CodeDeliveryCodeNotIssued  = "delivery_code_not_issued"
	CodePaymentAlreadySettled  = "payment_already_settled"
	CodeIdempotencyKeyRequired = "idempotency_key_required"
	CodeCarUnavailable         = "car_unavailable"
	CodeOwnCar                 = "own_car"
	CodeInvalidRating          = "invalid_rating"
	CodeReviewExists           = "review_exists"
	CodeReviewNotAllowed       = "review_not_allowed"
	CodeUserNameRequired       = "user_name_required"
	CodeCarModelRequired       = "car_model_required"
	CodeUserEmailTaken         = "email_taken"
	CodePlateTaken             = "plate_taken"
	CodeUnsupportedCurrency    = "unsupported_currency"
)

// codeTable is ordered: the first match wins, so more specific causes
// (deadline elapsed, early delivery) come before ErrInvalidTransition,
// which wraps them.
var codeTable = []struct {
	code string
	err  error
}{
	{CodeDeadlineElapsed, ErrDeadlineElapsed},
	{CodeEarlyDeliveryAttempt, ErrEarlyDeliveryAttempt},
	{CodeCodeAlreadyUsed, ErrCodeAlreadyUsed},
	{CodeInvalidTransition, ErrInvalidTransition},
	{CodeInvalidID, ErrInvalidID},
	{CodeBookingNotFound, ErrBookingNotFound},
	{CodeCarNotFound, ErrCarNotFound},
	{CodeUserNotFound, ErrUserNotFound},
	{CodeInvalidDates, ErrInvalidDates},
	{CodeInvalidAmount, ErrInvalidAmount},
	{CodeUnauthorizedAction, ErrUnauthorizedAction},
	{CodeForbidden, ErrForbidden},
	{CodeMalformedCode, ErrMalformedCode},
	{CodeIncorrectCode, ErrIncorrectCode},
	{CodeDeliveryCodeNotIssued, ErrDeliveryCodeNotIssued},
	{CodePaymentAlreadySettled, ErrPaymentAlreadySettled},
	{CodeIdempotencyKeyRequired, ErrIdempotencyKeyRequired},
	{CodeCarUnavailable, ErrCarUnavailable},
	{CodeOwnCar, ErrOwnCar},
	{CodeInvalidRating, ErrInvalidRating},
	{CodeReviewExists, ErrReviewExists},
	{CodeReviewNotAllowed, ErrReviewNotAllowed},
	{CodeUserNameRequired, ErrUserNameRequired},
	{CodeCarModelRequired, ErrCarModelRequired},
	{CodeUserEmailTaken, ErrUserEmailTaken},
	{CodePlateTaken, ErrPlateTaken},
	{CodeUnsupportedCurrency, ErrUnsupportedCurrency},
}

// ErrorCode returns the wire code for err, or "" when err is not a domain
// error.
func ErrorCode(err error) string {
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ErrorForCode returns the sentinel a wire code stands for. Codes that
// describe a failed transition guard also wrap ErrInvalidTransition.
func ErrorForCode(code string) error {
	for _, c := range codeTable {
		if c.code != code {
			continue
		}
		switch c.err {
		case ErrDeadlineElapsed, ErrEarlyDeliveryAttempt, ErrCodeAlreadyUsed:
			return errors.Join(ErrInvalidTransition, c.err)
		}
		return c.err
	}
	return nil
}
