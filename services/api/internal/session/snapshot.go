package session

import (
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/gate"
)

// Snapshot is a consistent, read-only picture of the session.
type Snapshot struct {
	View    gate.View
	Actions []domain.Action

	Deadline    time.Time
	HasDeadline bool
	Remaining   time.Duration
	Urgent      bool

	Currency currency.Code
	Amounts  Amounts
}

// Amounts holds formatted figures. Empty strings are hidden from the role.
type Amounts struct {
	PricePerDay   string
	Total         string
	Deposit       string
	DeliveryFee   string
	OnlinePayment string
	OwnerPayment  string
}

func formatAmounts(e *currency.Engine, v gate.View, role domain.Role, preferred currency.Code) Amounts {
	b := v.Booking
	out := Amounts{
		PricePerDay:  e.Display(b.PricePerDay, role, preferred),
		Total:        e.Display(b.TotalPrice, role, preferred),
		Deposit:      e.Display(b.DepositAmount, role, preferred),
		DeliveryFee:  e.Display(b.DeliveryFee, role, preferred),
		OwnerPayment: e.Display(b.OwnerPaymentAmount, role, preferred),
	}
	if v.OnlinePaymentAmount {
		out.OnlinePayment = e.Display(b.OnlinePaymentAmount, role, preferred)
	}
	return out
}
