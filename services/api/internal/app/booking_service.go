package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/deliverycode"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/lifecycle"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCar(ctx context.Context, carID string) (domain.Car, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	HasOverlappingBooking(ctx context.Context, carID string, start, end time.Time) (bool, error)
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) error
	ListOverdueBookingIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	CreateInvoice(ctx context.Context, inv domain.Invoice) error
	GetInvoiceByBooking(ctx context.Context, bookingID string) (*domain.Invoice, error)
	GetReviewByBooking(ctx context.Context, bookingID string) (*domain.Review, error)
	CreateReview(ctx context.Context, r domain.Review) error
}

// EventPublisher receives lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.BookingEvent) error { return nil }

// SystemActor fires the platform-owned triggers (expiry, payment settlement).
var SystemActor = domain.Actor{UserID: "system", Role: domain.RoleAdmin}

const (
	defaultOwnerResponseWindow  = 3 * time.Hour
	defaultOnlinePaymentPercent = 20
	defaultExpiryBatch          = 100
)

// BookingService is the authority over booking state. Every transition is
// applied inside a transaction holding the booking row lock.
type BookingService struct {
	repo          BookingRepository
	clock         clock.Clock
	events        EventPublisher
	logger        *slog.Logger
	ownerWindow   time.Duration
	paymentWindow time.Duration
	onlinePercent int64
	codeGen       func() (string, error)
	machine       *lifecycle.Machine
}

type BookingServiceOption func(*BookingService)

// WithOwnerResponseWindow overrides how long the owner has to answer a request.
func WithOwnerResponseWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.ownerWindow = d
		}
	}
}

// WithPaymentWindow overrides how long the client has to pay after acceptance.
func WithPaymentWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.paymentWindow = d
		}
	}
}

// WithOnlinePaymentPercent sets the share of the total collected online.
func WithOnlinePaymentPercent(p int) BookingServiceOption {
	return func(s *BookingService) {
		if p >= 0 && p <= 100 {
			s.onlinePercent = int64(p)
		}
	}
}

func WithEventPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLogger(logger *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodeGenerator replaces delivery code generation.
func WithCodeGenerator(fn func() (string, error)) BookingServiceOption {
	return func(s *BookingService) { s.codeGen = fn }
}

func NewBookingService(repo BookingRepository, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:          repo,
		clock:         clk,
		events:        noopPublisher{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		ownerWindow:   defaultOwnerResponseWindow,
		paymentWindow: lifecycle.DefaultPaymentWindow,
		onlinePercent: defaultOnlinePaymentPercent,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.machine = lifecycle.New(
		lifecycle.WithPaymentWindow(svc.paymentWindow),
		lifecycle.WithCodeGenerator(svc.codeGen),
	)
	return svc
}

type CreateBookingInput struct {
	CarID     string
	StartDate time.Time
	EndDate   time.Time
}

// Create records a client's request. It starts in pending_owner with the
// owner response deadline running.
func (s *BookingService) Create(ctx context.Context, actor domain.Actor, in CreateBookingInput) (domain.Booking, error) {
	if actor.Role != domain.RoleClient {
		return domain.Booking{}, domain.ErrUnauthorizedAction
	}
	if in.CarID == "" || actor.UserID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	start, end := domain.DateOnly(in.StartDate), domain.DateOnly(in.EndDate)
	if !end.After(start) || start.Before(domain.DateOnly(now)) {
		return domain.Booking{}, domain.ErrInvalidDates
	}

	var result domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		car, err := s.repo.GetCar(txCtx, in.CarID)
		if err != nil {
			return err
		}
		if car.OwnerID == actor.UserID {
			return domain.ErrOwnCar
		}
		client, err := s.repo.GetUser(txCtx, actor.UserID)
		if err != nil {
			return err
		}
		owner, err := s.repo.GetUser(txCtx, car.OwnerID)
		if err != nil {
			return err
		}

		taken, err := s.repo.HasOverlappingBooking(txCtx, car.ID, start, end)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrCarUnavailable
		}

		b := s.price(car, start, end)
		deadline := now.Add(s.ownerWindow)
		b.ID = uuid.NewString()
		b.Status = domain.StatusPendingOwner
		b.OwnerResponseDeadline = &deadline
		b.Car = car
		b.Client = client
		b.Owner = owner
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.repo.CreateBooking(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publish(ctx, result, domain.EventBookingCreated, actor)
	return result, nil
}

// price derives the amounts from the car's tariff. The deposit is collected
// by the owner on handoff and is not part of the total.
func (s *BookingService) price(car domain.Car, start, end time.Time) domain.Booking {
	b := domain.Booking{StartDate: start, EndDate: end}
	days := domain.Money(b.Days())
	total := car.PricePerDay*days + car.DeliveryFee
	online := domain.Money((int64(total)*s.onlinePercent + 50) / 100)

	b.PricePerDay = car.PricePerDay
	b.DepositAmount = car.DepositAmount
	b.DeliveryFee = car.DeliveryFee
	b.TotalPrice = total
	b.OnlinePaymentAmount = online
	b.OwnerPaymentAmount = total - online
	return b
}

// Get returns the booking if actor may see it. An overdue booking is expired
// before it is returned, so readers never observe a stale deadline.
func (s *BookingService) Get(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := authorizeParty(b, actor); err != nil {
		return domain.Booking{}, err
	}
	if !s.overdue(b, s.clock.Now()) {
		return b, nil
	}

	expired, changed, err := s.expireOne(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !changed {
		return s.repo.GetBooking(ctx, id)
	}
	return expired, nil
}

func (s *BookingService) Accept(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.TriggerAccept, nil)
}

func (s *BookingService) Reject(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.TriggerReject, nil)
}

func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.TriggerCancel, nil)
}

// CompleteReturn closes the rental once the vehicle is back.
func (s *BookingService) CompleteReturn(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.TriggerCompleteReturn, nil)
}

// DeliveryCode returns the handoff code to the booking's client.
func (s *BookingService) DeliveryCode(ctx context.Context, actor domain.Actor, id string) (string, error) {
	if actor.Role != domain.RoleClient {
		return "", domain.ErrUnauthorizedAction
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return "", err
	}
	if err := authorizeParty(b, actor); err != nil {
		return "", err
	}
	if !b.Status.Engaged() || b.DeliveryCode == "" {
		return "", domain.ErrDeliveryCodeNotIssued
	}
	return b.DeliveryCode, nil
}

// ValidateDeliveryCode checks the code presented to the owner at handoff and
// starts the rental.
func (s *BookingService) ValidateDeliveryCode(ctx context.Context, actor domain.Actor, id, code string) (domain.Booking, error) {
	if err := deliverycode.ValidateFormat(code); err != nil {
		return domain.Booking{}, err
	}
	return s.transition(ctx, actor, id, domain.TriggerValidateDeliveryCode, func(b domain.Booking, now time.Time) error {
		if err := lifecycle.Check(b, domain.TriggerValidateDeliveryCode, now); err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(b.DeliveryCode)) != 1 {
			return domain.ErrIncorrectCode
		}
		return nil
	})
}

type SettlePaymentInput struct {
	BookingID string
	PaymentID string
}

type SettlePaymentResult struct {
	Booking domain.Booking
	Created bool
}

// SettlePayment confirms a booking once its online share is paid. Replaying
// the same payment ID returns the existing confirmation.
func (s *BookingService) SettlePayment(ctx context.Context, in SettlePaymentInput) (SettlePaymentResult, error) {
	if in.PaymentID == "" {
		return SettlePaymentResult{}, domain.ErrIdempotencyKeyRequired
	}

	now := s.clock.Now()
	var result SettlePaymentResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		if b.PaymentID != "" {
			if b.PaymentID == in.PaymentID {
				result = SettlePaymentResult{Booking: b, Created: false}
				return nil
			}
			return domain.ErrPaymentAlreadySettled
		}

		next, err := s.machine.Apply(b, domain.TriggerSettlePayment, now)
		if err != nil {
			return err
		}
		next.PaymentID = in.PaymentID
		if err := s.repo.UpdateBooking(txCtx, next); err != nil {
			return err
		}
		if err := s.repo.CreateInvoice(txCtx, domain.Invoice{
			ID:        uuid.NewString(),
			BookingID: next.ID,
			Amount:    next.TotalPrice,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = SettlePaymentResult{Booking: next, Created: true}
		return nil
	})
	if err != nil {
		return SettlePaymentResult{}, err
	}

	if result.Created {
		s.publish(ctx, result.Booking, domain.EventType(domain.TriggerSettlePayment), SystemActor)
	}
	return result, nil
}

// ExpireOverdue expires up to limit bookings whose deadline has passed and
// returns how many changed.
func (s *BookingService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultExpiryBatch
	}
	ids, err := s.repo.ListOverdueBookingIDs(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		_, changed, err := s.expireOne(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// ReviewEligibility reports whether actor may still review the booking.
func (s *BookingService) ReviewEligibility(ctx context.Context, actor domain.Actor, id string) (bool, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return false, err
	}
	if actor.Role != domain.RoleClient || b.Status != domain.StatusCompleted {
		return false, nil
	}
	existing, err := s.repo.GetReviewByBooking(ctx, id)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

type LeaveReviewInput struct {
	BookingID string
	Rating    int
	Comment   string
}

func (s *BookingService) LeaveReview(ctx context.Context, actor domain.Actor, in LeaveReviewInput) (domain.Review, error) {
	if actor.Role != domain.RoleClient {
		return domain.Review{}, domain.ErrUnauthorizedAction
	}
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return domain.Review{}, domain.ErrInvalidRating
	}

	now := s.clock.Now()
	var result domain.Review
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		if err := authorizeParty(b, actor); err != nil {
			return err
		}
		if b.Status != domain.StatusCompleted {
			return domain.ErrReviewNotAllowed
		}
		if existing, err := s.repo.GetReviewByBooking(txCtx, b.ID); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrReviewExists
		}

		review := domain.Review{
			ID:        uuid.NewString(),
			BookingID: b.ID,
			ClientID:  actor.UserID,
			Rating:    in.Rating,
			Comment:   in.Comment,
			CreatedAt: now,
		}
		if err := s.repo.CreateReview(txCtx, review); err != nil {
			return err
		}
		result = review
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return result, nil
}

// InvoiceAvailability reports whether an invoice was generated for a booking
// the actor is a party to.
func (s *BookingService) InvoiceAvailability(ctx context.Context, actor domain.Actor, id string) (bool, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return false, err
	}
	if !b.Status.Engaged() {
		return false, nil
	}
	inv, err := s.repo.GetInvoiceByBooking(ctx, id)
	if err != nil {
		return false, err
	}
	return inv != nil, nil
}

type precondition func(b domain.Booking, now time.Time) error

func (s *BookingService) transition(ctx context.Context, actor domain.Actor, id string, trigger domain.Trigger, pre precondition) (domain.Booking, error) {
	if err := lifecycle.Authorize(trigger, actor.Role); err != nil {
		return domain.Booking{}, err
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := authorizeParty(b, actor); err != nil {
			return err
		}
		if pre != nil {
			if err := pre(b, now); err != nil {
				return err
			}
		}
		next, err := s.machine.Apply(b, trigger, now)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateBooking(txCtx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.publish(ctx, result, domain.EventType(trigger), actor)
	return result, nil
}

// expireOne applies the expiry edge matching the booking's state. changed is
// false when the booking was no longer overdue under the row lock.
func (s *BookingService) expireOne(ctx context.Context, id string) (domain.Booking, bool, error) {
	now := s.clock.Now()
	var (
		result  domain.Booking
		trigger domain.Trigger
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetBookingForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !s.overdue(b, now) {
			result = b
			return nil
		}
		trigger = expiryTrigger(b.Status)
		next, err := s.machine.Apply(b, trigger, now)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateBooking(txCtx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return domain.Booking{}, false, err
	}
	if trigger == "" {
		return result, false, nil
	}

	s.logger.Info("booking expired", "booking_id", id, "status", result.Status)
	s.publish(ctx, result, domain.EventType(trigger), SystemActor)
	return result, true, nil
}

func (s *BookingService) overdue(b domain.Booking, now time.Time) bool {
	deadline, ok := b.ActiveDeadline()
	return ok && now.After(deadline)
}

func expiryTrigger(status domain.Status) domain.Trigger {
	if status == domain.StatusWaitingPayment {
		return domain.TriggerExpirePayment
	}
	return domain.TriggerExpireOwner
}

func (s *BookingService) publish(ctx context.Context, b domain.Booking, eventType string, actor domain.Actor) {
	ev := domain.BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  b.ID,
		Status:     b.Status,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		OccurredAt: s.clock.Now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish booking event failed", "type", eventType, "booking_id", b.ID, "err", err)
	}
}

// authorizeParty lets admins see everything and parties see their bookings.
func authorizeParty(b domain.Booking, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleClient:
		if actor.UserID != "" && actor.UserID == b.Client.ID {
			return nil
		}
	case domain.RoleOwner:
		if actor.UserID != "" && actor.UserID == b.Owner.ID {
			return nil
		}
	}
	return domain.ErrForbidden
}
