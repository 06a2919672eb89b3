// Package session drives one booking as seen by one actor.
//
// The session never advances the booking on its own. Mutations are checked
// locally, sent to the Authority, awaited, and followed by a re-fetch; the
// re-fetched record replaces the local one. The SLA tracker is advisory and
// only ever causes a re-fetch.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/deliverycode"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/gate"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/lifecycle"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/sla"
)

var (
	ErrClosed    = errors.New("session closed")
	ErrNotLoaded = errors.New("session not opened")
)

type Session struct {
	authority Authority
	bookingID string
	role      domain.Role
	preferred currency.Code
	clock     clock.Clock
	logger    *slog.Logger
	interval  time.Duration
	onChange  func(Snapshot)

	guard   *deliverycode.Guard
	tracker *sla.Tracker

	// opMu serializes operations; mu guards the fields below it.
	opMu sync.Mutex

	mu               sync.RWMutex
	booking          domain.Booking
	loaded           bool
	reviewEligible   bool
	invoiceAvailable bool
	engine           *currency.Engine
	expiredDeadline  time.Time
	closed           bool
	ctx              context.Context
	cancel           context.CancelFunc

	wg sync.WaitGroup
}

type Option func(*Session)

// WithCurrency sets the preferred display currency. Only clients get it.
func WithCurrency(code currency.Code) Option {
	return func(s *Session) { s.preferred = code }
}

func WithClock(clk clock.Clock) Option {
	return func(s *Session) {
		if clk != nil {
			s.clock = clk
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTickInterval overrides the countdown cadence.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// OnChange registers a hook called after every sync and countdown tick. It
// must not call back into the session's mutating methods.
func OnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

func New(authority Authority, bookingID string, role domain.Role, opts ...Option) *Session {
	s := &Session{
		authority: authority,
		bookingID: bookingID,
		role:      role,
		preferred: currency.Canonical,
		clock:     clock.NewSystem(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:  sla.DefaultInterval,
		engine:    currency.NewEngine(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guard = deliverycode.NewGuard(s.clock)
	s.tracker = sla.New(s.clock,
		sla.WithInterval(s.interval),
		sla.OnTick(func(time.Duration) { s.notify() }),
		sla.OnExpire(s.handleExpiry),
	)
	return s
}

// Open loads exchange rates and the booking. Expiry re-syncs run on a context
// derived from ctx until Close.
func (s *Session) Open(ctx context.Context) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if s.cancel == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	s.mu.Unlock()

	if rates, err := s.authority.FetchExchangeRates(ctx); err != nil {
		s.logger.Warn("exchange rates unavailable, amounts shown in MAD", "booking_id", s.bookingID, "err", err)
	} else {
		s.mu.Lock()
		s.engine = currency.NewEngine(rates)
		s.mu.Unlock()
	}

	if err := s.sync(ctx); err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Close stops the countdown and any pending expiry re-sync. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// In-flight operations see the cancelled context and return; later ones
	// observe closed.
	s.opMu.Lock()
	s.tracker.Stop()
	s.opMu.Unlock()
	s.wg.Wait()
}

// Refresh re-reads the booking from the authority.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.usable(); err != nil {
		return Snapshot{}, err
	}
	err := s.sync(ctx)
	return s.Snapshot(), err
}

func (s *Session) Accept(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, domain.TriggerAccept, s.authority.AcceptBooking)
}

func (s *Session) Reject(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, domain.TriggerReject, s.authority.RejectBooking)
}

func (s *Session) Cancel(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, domain.TriggerCancel, s.authority.CancelBooking)
}

// ValidateDeliveryCode submits code after the local shape, single-use and
// start-date checks pass.
func (s *Session) ValidateDeliveryCode(ctx context.Context, code string) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.usable(); err != nil {
		return Snapshot{}, err
	}
	b := s.current()
	if err := lifecycle.Authorize(domain.TriggerValidateDeliveryCode, s.role); err != nil {
		return s.Snapshot(), err
	}
	// Shape and single use are refused first, then a missing edge, then an
	// early attempt.
	guardErr := s.guard.Check(b, code)
	if guardErr != nil && !errors.Is(guardErr, domain.ErrEarlyDeliveryAttempt) {
		return s.Snapshot(), guardErr
	}
	if _, ok := lifecycle.Target(b.Status, domain.TriggerValidateDeliveryCode); !ok {
		return s.Snapshot(), lifecycle.Check(b, domain.TriggerValidateDeliveryCode, s.clock.Now())
	}
	if guardErr != nil {
		return s.Snapshot(), guardErr
	}

	_, err := s.authority.ValidateDeliveryCode(ctx, b.ID, code)
	if err == nil || errors.Is(err, domain.ErrCodeAlreadyUsed) {
		s.guard.MarkUsed(b.ID)
	}
	return s.settle(ctx, "validate_delivery_code", err)
}

// DeliveryCode returns the handoff code. Only the client holds it, and only
// once payment is settled.
func (s *Session) DeliveryCode(ctx context.Context) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}
	if s.role != domain.RoleClient {
		return "", domain.ErrUnauthorizedAction
	}
	b := s.current()
	if !b.Status.Engaged() {
		return "", domain.ErrDeliveryCodeNotIssued
	}
	if b.DeliveryCode != "" {
		return b.DeliveryCode, nil
	}

	code, err := s.authority.FetchDeliveryCode(ctx, b.ID)
	if err != nil {
		_, err = s.settle(ctx, "fetch_delivery_code", err)
		return "", err
	}
	if err := deliverycode.ValidateFormat(code); err != nil {
		return "", err
	}
	return code, nil
}

// Snapshot returns the current view. It never performs I/O.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	b := s.booking.Clone()
	review, invoice := s.reviewEligible, s.invoiceAvailable
	engine := s.engine
	s.mu.RUnlock()

	now := s.clock.Now()
	view := gate.Project(b, s.role)
	snap := Snapshot{
		View:     view,
		Actions:  gate.Actions(b.Status, s.role, gate.ContextFor(b, now, review, invoice)),
		Currency: currency.Target(s.role, s.preferred),
		Amounts:  formatAmounts(engine, view, s.role, s.preferred),
	}
	if deadline, ok := b.ActiveDeadline(); ok {
		snap.Deadline = deadline
		snap.HasDeadline = true
		if s.tracker.Deadline().Equal(deadline) {
			snap.Remaining = s.tracker.Remaining()
		} else {
			snap.Remaining = sla.Remaining(deadline, now)
		}
		snap.Urgent = sla.IsUrgent(snap.Remaining)
	}
	return snap
}

type mutation func(ctx context.Context, id string) (domain.Booking, error)

func (s *Session) mutate(ctx context.Context, trigger domain.Trigger, call mutation) (Snapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.usable(); err != nil {
		return Snapshot{}, err
	}
	b := s.current()
	if err := lifecycle.Authorize(trigger, s.role); err != nil {
		return s.Snapshot(), err
	}
	if err := s.checkLocally(b, trigger); err != nil {
		return s.Snapshot(), err
	}

	_, err := call(ctx, b.ID)
	return s.settle(ctx, string(trigger), err)
}

// checkLocally refuses edges that cannot exist from the current state. Deadline
// guards are left to the authority, which alone decides expiry.
func (s *Session) checkLocally(b domain.Booking, trigger domain.Trigger) error {
	err := lifecycle.Check(b, trigger, s.clock.Now())
	if errors.Is(err, domain.ErrDeadlineElapsed) {
		return nil
	}
	return err
}

// settle re-syncs after an authority call, whatever its outcome. A transport
// failure is never retried by re-sending the call.
func (s *Session) settle(ctx context.Context, op string, callErr error) (Snapshot, error) {
	if callErr != nil {
		s.logger.Warn("authority call failed, re-syncing",
			"booking_id", s.bookingID, "op", op, "transport", domain.IsTransport(callErr), "err", callErr)
	}
	syncErr := s.sync(ctx)
	if syncErr != nil {
		s.logger.Error("re-sync failed", "booking_id", s.bookingID, "op", op, "err", syncErr)
	}
	switch {
	case callErr != nil && syncErr != nil:
		return s.Snapshot(), errors.Join(callErr, syncErr)
	case callErr != nil:
		return s.Snapshot(), callErr
	default:
		return s.Snapshot(), syncErr
	}
}

func (s *Session) sync(ctx context.Context) error {
	b, err := s.authority.FetchBooking(ctx, s.bookingID)
	if err != nil {
		return err
	}

	var review, invoice bool
	if b.Status == domain.StatusCompleted && s.role == domain.RoleClient {
		if review, err = s.authority.CheckReviewEligibility(ctx, b.ID); err != nil {
			return err
		}
	}
	if b.Status.Engaged() && s.role != domain.RoleAdmin {
		if invoice, err = s.authority.CheckInvoiceAvailability(ctx, b.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.booking = b
	s.loaded = true
	s.reviewEligible = review
	s.invoiceAvailable = invoice
	expired := s.expiredDeadline
	s.mu.Unlock()

	s.retrack(b, expired)
	s.notify()
	return nil
}

func (s *Session) retrack(b domain.Booking, expired time.Time) {
	deadline, ok := b.ActiveDeadline()
	if !ok {
		s.tracker.Stop()
		return
	}
	// The authority still reports the deadline that already expired locally.
	// Counting it down again would only re-fire immediately.
	if !expired.IsZero() && deadline.Equal(expired) {
		s.tracker.Stop()
		return
	}
	s.tracker.Start(deadline)
}

func (s *Session) handleExpiry() {
	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	s.expiredDeadline = s.tracker.Deadline()
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.logger.Info("deadline reached, re-syncing", "booking_id", s.bookingID)

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.usable() != nil {
		return
	}
	if err := s.sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("re-sync after expiry failed", "booking_id", s.bookingID, "err", err)
	}
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.mu.RLock()
	ready := s.loaded
	s.mu.RUnlock()
	if ready {
		s.onChange(s.Snapshot())
	}
}

func (s *Session) usable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

func (s *Session) current() domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.booking.Clone()
}
