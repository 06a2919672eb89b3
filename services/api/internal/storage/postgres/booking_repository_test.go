package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/testutil"
)

type seeded struct {
	car    domain.Car
	client domain.User
	owner  domain.User
}

func seedFleet(t *testing.T, ctx context.Context, repo *BookingRepository, ownerID, clientID, carID string) seeded {
	t.Helper()
	car, err := repo.GetCar(ctx, carID)
	if err != nil {
		t.Fatalf("get car: %v", err)
	}
	client, err := repo.GetUser(ctx, clientID)
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	owner, err := repo.GetUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	return seeded{car: car, client: client, owner: owner}
}

func newPendingBooking(s seeded, start time.Time, days int, now time.Time) domain.Booking {
	deadline := now.Add(3 * time.Hour)
	total := s.car.PricePerDay * domain.Money(days)
	online := total / 5
	return domain.Booking{
		ID:                    uuid.NewString(),
		Status:                domain.StatusPendingOwner,
		StartDate:             start,
		EndDate:               start.AddDate(0, 0, days),
		OwnerResponseDeadline: &deadline,
		PricePerDay:           s.car.PricePerDay,
		TotalPrice:            total,
		OnlinePaymentAmount:   online,
		OwnerPaymentAmount:    total - online,
		Car:                   s.car,
		Client:                s.client,
		Owner:                 s.owner,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	start := domain.DateOnly(now).AddDate(0, 0, 10)

	setup := func(t *testing.T, ctx context.Context) seeded {
		t.Helper()
		testutil.TruncateAll(t, ctx, pool)
		ownerID := testutil.InsertUser(t, ctx, pool, "Owner")
		clientID := testutil.InsertUser(t, ctx, pool, "Client")
		carID := testutil.InsertCar(t, ctx, pool, ownerID, 40000)
		return seedFleet(t, ctx, repo, ownerID, clientID, carID)
	}

	t.Run("CreateBooking round-trips through GetBooking", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)
		b := newPendingBooking(s, start, 3, now)

		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}
		got, err := repo.GetBooking(ctx, b.ID)
		if err != nil {
			t.Fatalf("get booking: %v", err)
		}
		if got.Status != domain.StatusPendingOwner || got.TotalPrice != 120000 {
			t.Fatalf("unexpected booking: %+v", got)
		}
		if !got.StartDate.Equal(start) || got.Days() != 3 {
			t.Fatalf("unexpected dates: %v - %v", got.StartDate, got.EndDate)
		}
		if got.OwnerResponseDeadline == nil || !got.OwnerResponseDeadline.Equal(*b.OwnerResponseDeadline) {
			t.Fatalf("unexpected deadline: %v", got.OwnerResponseDeadline)
		}
		if got.Owner.ID != s.owner.ID || got.Client.ID != s.client.ID || got.Car.ID != s.car.ID {
			t.Fatalf("unexpected parties: %+v", got)
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("loaded booking invalid: %v", err)
		}
	})

	t.Run("GetBooking maps missing and malformed ids", func(t *testing.T) {
		ctx := context.Background()
		setup(t, ctx)

		if _, err := repo.GetBooking(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrBookingNotFound {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
		if _, err := repo.GetBooking(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if _, err := repo.GetCar(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrCarNotFound {
			t.Fatalf("expected ErrCarNotFound, got %v", err)
		}
	})

	t.Run("UpdateBooking persists lifecycle columns under lock", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)
		b := newPendingBooking(s, start, 2, now)
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			locked, err := repo.GetBookingForUpdate(txCtx, b.ID)
			if err != nil {
				return err
			}
			locked.Status = domain.StatusConfirmed
			locked.OwnerResponseDeadline = nil
			locked.DeliveryCode = "ABC-123-XYZ"
			locked.PaymentID = "pay-1"
			locked.UpdatedAt = now.Add(time.Minute)
			return repo.UpdateBooking(txCtx, locked)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		got, err := repo.GetBooking(ctx, b.ID)
		if err != nil {
			t.Fatalf("get booking: %v", err)
		}
		if got.Status != domain.StatusConfirmed || got.DeliveryCode != "ABC-123-XYZ" || got.PaymentID != "pay-1" {
			t.Fatalf("unexpected booking after update: %+v", got)
		}
		if got.OwnerResponseDeadline != nil || got.DeliveryCodeUsed() {
			t.Fatalf("unexpected nullable columns: %+v", got)
		}
	})

	t.Run("UpdateBooking rolls back with the transaction", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)
		b := newPendingBooking(s, start, 2, now)
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		_ = repo.WithTx(ctx, func(txCtx context.Context) error {
			next := b.Clone()
			next.Status = domain.StatusRejected
			next.OwnerResponseDeadline = nil
			if err := repo.UpdateBooking(txCtx, next); err != nil {
				t.Fatalf("update: %v", err)
			}
			return domain.ErrInvalidTransition
		})

		got, err := repo.GetBooking(ctx, b.ID)
		if err != nil {
			t.Fatalf("get booking: %v", err)
		}
		if got.Status != domain.StatusPendingOwner {
			t.Fatalf("expected rollback, got %s", got.Status)
		}
	})

	t.Run("HasOverlappingBooking ignores closed bookings", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)
		b := newPendingBooking(s, start, 3, now)
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		tests := []struct {
			name       string
			start, end time.Time
			want       bool
		}{
			{name: "same dates", start: start, end: start.AddDate(0, 0, 3), want: true},
			{name: "overlaps tail", start: start.AddDate(0, 0, 2), end: start.AddDate(0, 0, 5), want: true},
			{name: "starts on return day", start: start.AddDate(0, 0, 3), end: start.AddDate(0, 0, 4), want: false},
			{name: "ends on pickup day", start: start.AddDate(0, 0, -2), end: start, want: false},
		}
		for _, tt := range tests {
			got, err := repo.HasOverlappingBooking(ctx, s.car.ID, tt.start, tt.end)
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got != tt.want {
				t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
			}
		}

		cancelled := b.Clone()
		cancelled.Status = domain.StatusCancelled
		cancelled.OwnerResponseDeadline = nil
		if err := repo.UpdateBooking(ctx, cancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		got, err := repo.HasOverlappingBooking(ctx, s.car.ID, start, start.AddDate(0, 0, 3))
		if err != nil {
			t.Fatalf("overlap: %v", err)
		}
		if got {
			t.Fatalf("cancelled booking must not block the car")
		}
	})

	t.Run("ListOverdueBookingIDs returns bookings past their active deadline", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)

		overdue := newPendingBooking(s, start, 1, now.Add(-4*time.Hour))
		fresh := newPendingBooking(s, start.AddDate(0, 0, 5), 1, now)
		waiting := newPendingBooking(s, start.AddDate(0, 0, 10), 1, now)
		paymentDeadline := now.Add(-time.Minute)
		waiting.Status = domain.StatusWaitingPayment
		waiting.OwnerResponseDeadline = nil
		waiting.PaymentDeadline = &paymentDeadline
		for _, b := range []domain.Booking{overdue, fresh, waiting} {
			if err := repo.CreateBooking(ctx, b); err != nil {
				t.Fatalf("create booking: %v", err)
			}
		}

		ids, err := repo.ListOverdueBookingIDs(ctx, now, 10)
		if err != nil {
			t.Fatalf("list overdue: %v", err)
		}
		if len(ids) != 2 || ids[0] != overdue.ID || ids[1] != waiting.ID {
			t.Fatalf("unexpected overdue ids: %v", ids)
		}

		ids, err = repo.ListOverdueBookingIDs(ctx, now, 1)
		if err != nil {
			t.Fatalf("list overdue: %v", err)
		}
		if len(ids) != 1 {
			t.Fatalf("expected limit to apply, got %v", ids)
		}
	})

	t.Run("invoices and reviews are one per booking", func(t *testing.T) {
		ctx := context.Background()
		s := setup(t, ctx)
		b := newPendingBooking(s, start, 2, now)
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		inv, err := repo.GetInvoiceByBooking(ctx, b.ID)
		if err != nil || inv != nil {
			t.Fatalf("expected no invoice, got %v %v", inv, err)
		}
		invoice := domain.Invoice{ID: uuid.NewString(), BookingID: b.ID, Amount: b.TotalPrice, CreatedAt: now}
		if err := repo.CreateInvoice(ctx, invoice); err != nil {
			t.Fatalf("create invoice: %v", err)
		}
		invoice.ID = uuid.NewString()
		if err := repo.CreateInvoice(ctx, invoice); err != domain.ErrPaymentAlreadySettled {
			t.Fatalf("expected ErrPaymentAlreadySettled, got %v", err)
		}
		inv, err = repo.GetInvoiceByBooking(ctx, b.ID)
		if err != nil || inv == nil || inv.Amount != b.TotalPrice {
			t.Fatalf("unexpected invoice %+v %v", inv, err)
		}

		review := domain.Review{ID: uuid.NewString(), BookingID: b.ID, ClientID: s.client.ID, Rating: 5, Comment: "great", CreatedAt: now}
		if err := repo.CreateReview(ctx, review); err != nil {
			t.Fatalf("create review: %v", err)
		}
		review.ID = uuid.NewString()
		if err := repo.CreateReview(ctx, review); err != domain.ErrReviewExists {
			t.Fatalf("expected ErrReviewExists, got %v", err)
		}
		got, err := repo.GetReviewByBooking(ctx, b.ID)
		if err != nil || got == nil || got.Rating != 5 {
			t.Fatalf("unexpected review %+v %v", got, err)
		}
	})
}
