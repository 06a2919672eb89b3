// Package lifecycle owns the booking state machine: the legal edges, their
// guards and the side effects applied when an edge is taken.
//
// The machine is pure. It never reads the wall clock and never performs I/O;
// callers pass the instant at which the trigger is evaluated. Only the
// authoritative booking service applies transitions. Clients use Check to
// reject obviously illegal requests before issuing them.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/deliverycode"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// DefaultPaymentWindow is how long the client has to pay once the owner accepts.
const DefaultPaymentWindow = time.Hour

var (
	errNoDeadline         = errors.New("no deadline set")
	errDeadlineNotElapsed = errors.New("deadline not elapsed")
)

type edge struct {
	from    domain.Status
	trigger domain.Trigger
}

type rule struct {
	to    domain.Status
	roles []domain.Role
	guard func(b domain.Booking, now time.Time) error
}

var transitions = map[edge]rule{
	{domain.StatusPendingOwner, domain.TriggerAccept}: {
		to:    domain.StatusWaitingPayment,
		roles: []domain.Role{domain.RoleOwner},
		guard: withinOwnerDeadline,
	},
	{domain.StatusPendingOwner, domain.TriggerReject}: {
		to:    domain.StatusRejected,
		roles: []domain.Role{domain.RoleOwner},
		guard: withinOwnerDeadline,
	},
	{domain.StatusPendingOwner, domain.TriggerCancel}: {
		to:    domain.StatusCancelled,
		roles: []domain.Role{domain.RoleClient},
	},
	{domain.StatusPendingOwner, domain.TriggerExpireOwner}: {
		to:    domain.StatusExpiredOwner,
		roles: []domain.Role{domain.RoleAdmin},
		guard: pastOwnerDeadline,
	},
	{domain.StatusWaitingPayment, domain.TriggerSettlePayment}: {
		to:    domain.StatusConfirmed,
		roles: []domain.Role{domain.RoleAdmin},
		guard: withinPaymentDeadline,
	},
	{domain.StatusWaitingPayment, domain.TriggerCancel}: {
		to:    domain.StatusCancelled,
		roles: []domain.Role{domain.RoleClient},
	},
	{domain.StatusWaitingPayment, domain.TriggerExpirePayment}: {
		to:    domain.StatusExpiredPayment,
		roles: []domain.Role{domain.RoleAdmin},
		guard: pastPaymentDeadline,
	},
	{domain.StatusConfirmed, domain.TriggerValidateDeliveryCode}: {
		to:    domain.StatusInProgress,
		roles: []domain.Role{domain.RoleOwner},
		guard: deliveryWindowOpen,
	},
	{domain.StatusInProgress, domain.TriggerCompleteReturn}: {
		to:    domain.StatusCompleted,
		roles: []domain.Role{domain.RoleOwner, domain.RoleAdmin},
	},
}

// Target returns the status reached by taking trigger from status, ignoring guards.
func Target(from domain.Status, trigger domain.Trigger) (domain.Status, bool) {
	r, ok := transitions[edge{from, trigger}]
	return r.to, ok
}

// Authorize reports whether role may fire trigger at all.
func Authorize(trigger domain.Trigger, role domain.Role) error {
	for e, r := range transitions {
		if e.trigger != trigger {
			continue
		}
		for _, allowed := range r.roles {
			if allowed == role {
				return nil
			}
		}
	}
	return domain.ErrUnauthorizedAction
}

// Check evaluates whether trigger may be taken from b's current state at now.
// It returns an *domain.InvalidTransitionError when the edge does not exist,
// the source is terminal or the guard fails.
func Check(b domain.Booking, trigger domain.Trigger, now time.Time) error {
	if b.Status.Terminal() {
		return &domain.InvalidTransitionError{From: b.Status, Trigger: trigger, Reason: "terminal state"}
	}
	r, ok := transitions[edge{b.Status, trigger}]
	if !ok {
		return &domain.InvalidTransitionError{From: b.Status, Trigger: trigger}
	}
	if r.guard != nil {
		if err := r.guard(b, now); err != nil {
			return &domain.InvalidTransitionError{From: b.Status, Trigger: trigger, Reason: err.Error(), Cause: err}
		}
	}
	return nil
}

// Machine applies transitions and their side effects.
type Machine struct {
	paymentWindow time.Duration
	generateCode  func() (string, error)
}

type Option func(*Machine)

// WithPaymentWindow overrides how long the client has to pay after acceptance.
func WithPaymentWindow(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.paymentWindow = d
		}
	}
}

// WithCodeGenerator replaces the delivery code generator.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(m *Machine) {
		if fn != nil {
			m.generateCode = fn
		}
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{
		paymentWindow: DefaultPaymentWindow,
		generateCode:  deliverycode.Generate,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PaymentWindow returns the configured payment window.
func (m *Machine) PaymentWindow() time.Duration {
	return m.paymentWindow
}

// Apply takes trigger from b's state at now and returns the updated booking.
// b itself is never modified; on error the returned booking is b unchanged.
func (m *Machine) Apply(b domain.Booking, trigger domain.Trigger, now time.Time) (domain.Booking, error) {
	if err := Check(b, trigger, now); err != nil {
		return b, err
	}
	r := transitions[edge{b.Status, trigger}]

	next := b.Clone()
	next.Status = r.to
	next.UpdatedAt = now

	switch trigger {
	case domain.TriggerAccept:
		deadline := now.Add(m.paymentWindow)
		next.OwnerResponseDeadline = nil
		next.PaymentDeadline = &deadline
	case domain.TriggerSettlePayment:
		if next.DeliveryCode != "" {
			return b, &domain.InvalidTransitionError{From: b.Status, Trigger: trigger, Reason: "delivery code already issued"}
		}
		code, err := m.generateCode()
		if err != nil {
			return b, err
		}
		if err := deliverycode.ValidateFormat(code); err != nil {
			return b, err
		}
		next.PaymentDeadline = nil
		next.DeliveryCode = code
	case domain.TriggerValidateDeliveryCode:
		usedAt := now
		next.DeliveryCodeUsedAt = &usedAt
	default:
		next.OwnerResponseDeadline = nil
		next.PaymentDeadline = nil
	}
	return next, nil
}

func withinOwnerDeadline(b domain.Booking, now time.Time) error {
	if b.OwnerResponseDeadline == nil {
		return errNoDeadline
	}
	if now.After(*b.OwnerResponseDeadline) {
		return fmt.Errorf("owner response: %w", domain.ErrDeadlineElapsed)
	}
	return nil
}

func pastOwnerDeadline(b domain.Booking, now time.Time) error {
	if b.OwnerResponseDeadline == nil || !now.After(*b.OwnerResponseDeadline) {
		return errDeadlineNotElapsed
	}
	return nil
}

func withinPaymentDeadline(b domain.Booking, now time.Time) error {
	if b.PaymentDeadline == nil {
		return errNoDeadline
	}
	if now.After(*b.PaymentDeadline) {
		return fmt.Errorf("payment: %w", domain.ErrDeadlineElapsed)
	}
	return nil
}

func pastPaymentDeadline(b domain.Booking, now time.Time) error {
	if b.PaymentDeadline == nil || !now.After(*b.PaymentDeadline) {
		return errDeadlineNotElapsed
	}
	return nil
}

func deliveryWindowOpen(b domain.Booking, now time.Time) error {
	if b.DeliveryCodeUsed() {
		return domain.ErrCodeAlreadyUsed
	}
	if deliverycode.BeforeStart(b, now) {
		return domain.ErrEarlyDeliveryAttempt
	}
	return nil
}
