package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/lifecycle"
)

// fakeAuthority applies transitions with the real machine so the session is
// exercised against authoritative semantics.
type fakeAuthority struct {
	mu      sync.Mutex
	clock   clock.Clock
	machine *lifecycle.Machine
	booking domain.Booking

	calls map[string]int
	// fail makes the next call of op return err. When applyAnyway is set the
	// mutation still happens, like a response lost after commit.
	fail        map[string]error
	applyAnyway bool
	// lazyExpiry expires overdue bookings on fetch, as the real service does.
	lazyExpiry bool

	rates            currency.Rates
	ratesErr         error
	reviewEligible   bool
	invoiceAvailable bool
}

func newFakeAuthority(clk clock.Clock, b domain.Booking) *fakeAuthority {
	return &fakeAuthority{
		clock:      clk,
		machine:    lifecycle.New(),
		booking:    b,
		calls:      make(map[string]int),
		fail:       make(map[string]error),
		lazyExpiry: true,
	}
}

func (f *fakeAuthority) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAuthority) set(b domain.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booking = b
}

func (f *fakeAuthority) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeAuthority) takeFailure(op string) error {
	err := f.fail[op]
	delete(f.fail, op)
	return err
}

func (f *fakeAuthority) FetchBooking(_ context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["fetch"]++
	if err := f.takeFailure("fetch"); err != nil {
		return domain.Booking{}, err
	}
	if id != f.booking.ID {
		return domain.Booking{}, &domain.AuthorityError{Status: http.StatusNotFound, Code: "booking_not_found", Err: domain.ErrBookingNotFound}
	}
	if f.lazyExpiry {
		for _, trigger := range []domain.Trigger{domain.TriggerExpireOwner, domain.TriggerExpirePayment} {
			if next, err := f.machine.Apply(f.booking, trigger, f.clock.Now()); err == nil {
				f.booking = next
			}
		}
	}
	return f.booking.Clone(), nil
}

func (f *fakeAuthority) apply(op string, trigger domain.Trigger) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	failure := f.takeFailure(op)
	if failure != nil && !f.applyAnyway {
		return domain.Booking{}, failure
	}
	next, err := f.machine.Apply(f.booking, trigger, f.clock.Now())
	if err != nil {
		return domain.Booking{}, &domain.AuthorityError{Status: http.StatusConflict, Code: "invalid_transition", Message: err.Error(), Err: err}
	}
	f.booking = next
	if failure != nil {
		return domain.Booking{}, failure
	}
	return next.Clone(), nil
}

func (f *fakeAuthority) AcceptBooking(_ context.Context, _ string) (domain.Booking, error) {
	return f.apply("accept", domain.TriggerAccept)
}

func (f *fakeAuthority) RejectBooking(_ context.Context, _ string) (domain.Booking, error) {
	return f.apply("reject", domain.TriggerReject)
}

func (f *fakeAuthority) CancelBooking(_ context.Context, _ string) (domain.Booking, error) {
	return f.apply("cancel", domain.TriggerCancel)
}

func (f *fakeAuthority) FetchDeliveryCode(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["code"]++
	if err := f.takeFailure("code"); err != nil {
		return "", err
	}
	return f.booking.DeliveryCode, nil
}

func (f *fakeAuthority) ValidateDeliveryCode(_ context.Context, _ string, code string) (domain.Booking, error) {
	f.mu.Lock()
	if code != f.booking.DeliveryCode {
		f.calls["validate"]++
		f.mu.Unlock()
		return domain.Booking{}, &domain.AuthorityError{Status: http.StatusUnprocessableEntity, Code: "incorrect_code", Err: domain.ErrIncorrectCode}
	}
	f.mu.Unlock()
	return f.apply("validate", domain.TriggerValidateDeliveryCode)
}

func (f *fakeAuthority) FetchExchangeRates(_ context.Context) (currency.Rates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["rates"]++
	return f.rates, f.ratesErr
}

func (f *fakeAuthority) CheckReviewEligibility(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["review"]++
	return f.reviewEligible, nil
}

func (f *fakeAuthority) CheckInvoiceAvailability(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["invoice"]++
	return f.invoiceAvailable, nil
}
