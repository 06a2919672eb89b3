package deliverycode

import (
	"sync"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Guard enforces the local preconditions for submitting a delivery code:
// shape, single use, and not before the rental start date. It never decides
// whether a well-formed code is correct.
type Guard struct {
	clock clock.Clock

	mu   sync.Mutex
	used map[string]struct{}
}

func NewGuard(clk clock.Clock) *Guard {
	return &Guard{
		clock: clk,
		used:  make(map[string]struct{}),
	}
}

// Check returns ErrMalformedCode, ErrCodeAlreadyUsed or ErrEarlyDeliveryAttempt
// when the code must not be sent, nil otherwise.
func (g *Guard) Check(b domain.Booking, code string) error {
	if err := ValidateFormat(code); err != nil {
		return err
	}
	if b.DeliveryCodeUsed() || g.wasUsed(b.ID) {
		return domain.ErrCodeAlreadyUsed
	}
	if BeforeStart(b, g.clock.Now()) {
		return domain.ErrEarlyDeliveryAttempt
	}
	return nil
}

// MarkUsed records that the authority accepted a code for bookingID.
func (g *Guard) MarkUsed(bookingID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.used[bookingID] = struct{}{}
}

func (g *Guard) wasUsed(bookingID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.used[bookingID]
	return ok
}
