package session

import (
	"context"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Authority is the system that owns booking state. Every method may fail
// with a *domain.TransportError (outcome unknown) or a *domain.AuthorityError.
type Authority interface {
	FetchBooking(ctx context.Context, id string) (domain.Booking, error)
	AcceptBooking(ctx context.Context, id string) (domain.Booking, error)
	RejectBooking(ctx context.Context, id string) (domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (domain.Booking, error)
	FetchDeliveryCode(ctx context.Context, id string) (string, error)
	ValidateDeliveryCode(ctx context.Context, id, code string) (domain.Booking, error)
	FetchExchangeRates(ctx context.Context) (currency.Rates, error)
	CheckReviewEligibility(ctx context.Context, id string) (bool, error)
	CheckInvoiceAvailability(ctx context.Context, id string) (bool, error)
}
