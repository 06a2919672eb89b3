package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/deliverycode"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

var now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func pendingBooking() domain.Booking {
	deadline := now.Add(3 * time.Hour)
	return domain.Booking{
		ID:                    "booking-1",
		Status:                domain.StatusPendingOwner,
		StartDate:             time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC),
		OwnerResponseDeadline: &deadline,
		PricePerDay:           50000,
		TotalPrice:            150000,
		OnlinePaymentAmount:   30000,
		OwnerPaymentAmount:    120000,
	}
}

func TestMachine_EndToEnd(t *testing.T) {
	t.Parallel()

	m := New(WithPaymentWindow(45 * time.Minute))
	b := pendingBooking()
	require.NoError(t, b.Validate())

	acceptedAt := now.Add(time.Hour)
	b, err := m.Apply(b, domain.TriggerAccept, acceptedAt)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingPayment, b.Status)
	assert.Nil(t, b.OwnerResponseDeadline)
	require.NotNil(t, b.PaymentDeadline)
	assert.True(t, b.PaymentDeadline.Equal(acceptedAt.Add(45*time.Minute)))
	require.NoError(t, b.Validate())

	b, err = m.Apply(b, domain.TriggerSettlePayment, acceptedAt.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.Nil(t, b.PaymentDeadline)
	assert.NoError(t, deliverycode.ValidateFormat(b.DeliveryCode))
	require.NoError(t, b.Validate())

	b, err = m.Apply(b, domain.TriggerValidateDeliveryCode, b.StartDate.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, b.Status)
	assert.True(t, b.DeliveryCodeUsed())

	b, err = m.Apply(b, domain.TriggerCompleteReturn, b.EndDate)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, b.Status)
	assert.NoError(t, b.Validate())
}

func TestMachine_RejectThenAcceptIsInvalid(t *testing.T) {
	t.Parallel()

	m := New()
	b, err := m.Apply(pendingBooking(), domain.TriggerReject, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, b.Status)
	require.Nil(t, b.OwnerResponseDeadline)

	after, err := m.Apply(b, domain.TriggerAccept, now.Add(2*time.Minute))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	var ite *domain.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, domain.StatusRejected, ite.From)
	assert.Equal(t, domain.TriggerAccept, ite.Trigger)
	assert.Equal(t, domain.StatusRejected, after.Status, "state must be left unchanged")
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()

	m := New()
	pending := pendingBooking()
	late := pending.OwnerResponseDeadline.Add(time.Second)

	waiting, err := m.Apply(pending, domain.TriggerAccept, now)
	require.NoError(t, err)
	paymentLate := waiting.PaymentDeadline.Add(time.Second)

	confirmed, err := m.Apply(waiting, domain.TriggerSettlePayment, now.Add(time.Minute))
	require.NoError(t, err)

	tests := []struct {
		name    string
		booking domain.Booking
		trigger domain.Trigger
		at      time.Time
		want    domain.Status
		wantErr error
	}{
		{name: "accept at exact deadline", booking: pending, trigger: domain.TriggerAccept, at: *pending.OwnerResponseDeadline, want: domain.StatusWaitingPayment},
		{name: "accept after deadline", booking: pending, trigger: domain.TriggerAccept, at: late, wantErr: domain.ErrDeadlineElapsed},
		{name: "reject after deadline", booking: pending, trigger: domain.TriggerReject, at: late, wantErr: domain.ErrDeadlineElapsed},
		{name: "client cancels after deadline", booking: pending, trigger: domain.TriggerCancel, at: late, want: domain.StatusCancelled},
		{name: "owner expiry before deadline", booking: pending, trigger: domain.TriggerExpireOwner, at: now, wantErr: domain.ErrInvalidTransition},
		{name: "owner expiry after deadline", booking: pending, trigger: domain.TriggerExpireOwner, at: late, want: domain.StatusExpiredOwner},
		{name: "settle after payment deadline", booking: waiting, trigger: domain.TriggerSettlePayment, at: paymentLate, wantErr: domain.ErrDeadlineElapsed},
		{name: "payment expiry after deadline", booking: waiting, trigger: domain.TriggerExpirePayment, at: paymentLate, want: domain.StatusExpiredPayment},
		{name: "cancel while waiting payment", booking: waiting, trigger: domain.TriggerCancel, at: now, want: domain.StatusCancelled},
		{name: "pay from pending", booking: pending, trigger: domain.TriggerSettlePayment, at: now, wantErr: domain.ErrInvalidTransition},
		{name: "validate before start date", booking: confirmed, trigger: domain.TriggerValidateDeliveryCode, at: confirmed.StartDate.Add(-time.Second), wantErr: domain.ErrEarlyDeliveryAttempt},
		{name: "cancel once confirmed", booking: confirmed, trigger: domain.TriggerCancel, at: now, wantErr: domain.ErrInvalidTransition},
		{name: "complete before handoff", booking: confirmed, trigger: domain.TriggerCompleteReturn, at: now, wantErr: domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := m.Apply(tt.booking, tt.trigger, tt.at)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, tt.booking.Status, got.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestMachine_TerminalStatesRefuseEverything(t *testing.T) {
	t.Parallel()

	triggers := []domain.Trigger{
		domain.TriggerAccept, domain.TriggerReject, domain.TriggerCancel,
		domain.TriggerExpireOwner, domain.TriggerSettlePayment, domain.TriggerExpirePayment,
		domain.TriggerValidateDeliveryCode, domain.TriggerCompleteReturn,
	}
	for _, status := range domain.Statuses() {
		if !status.Terminal() {
			continue
		}
		b := pendingBooking()
		b.Status = status
		b.OwnerResponseDeadline = nil
		for _, trigger := range triggers {
			err := Check(b, trigger, now)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s --%s-->", status, trigger)
		}
	}
}

func TestMachine_SettleNeverRegeneratesCode(t *testing.T) {
	t.Parallel()

	calls := 0
	m := New(WithCodeGenerator(func() (string, error) {
		calls++
		return "ABC-123-XYZ", nil
	}))
	waiting, err := m.Apply(pendingBooking(), domain.TriggerAccept, now)
	require.NoError(t, err)

	waiting.DeliveryCode = "OLD-000-OLD"
	_, err = m.Apply(waiting, domain.TriggerSettlePayment, now)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Zero(t, calls)
}

func TestMachine_SettleRejectsMalformedGeneratedCode(t *testing.T) {
	t.Parallel()

	m := New(WithCodeGenerator(func() (string, error) { return "bad", nil }))
	waiting, err := m.Apply(pendingBooking(), domain.TriggerAccept, now)
	require.NoError(t, err)

	got, err := m.Apply(waiting, domain.TriggerSettlePayment, now)
	require.ErrorIs(t, err, domain.ErrMalformedCode)
	assert.Equal(t, domain.StatusWaitingPayment, got.Status)
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Authorize(domain.TriggerAccept, domain.RoleOwner))
	assert.ErrorIs(t, Authorize(domain.TriggerAccept, domain.RoleClient), domain.ErrUnauthorizedAction)
	assert.NoError(t, Authorize(domain.TriggerCancel, domain.RoleClient))
	assert.ErrorIs(t, Authorize(domain.TriggerCancel, domain.RoleOwner), domain.ErrUnauthorizedAction)
	assert.NoError(t, Authorize(domain.TriggerCompleteReturn, domain.RoleAdmin))
	assert.ErrorIs(t, Authorize(domain.TriggerValidateDeliveryCode, domain.RoleClient), domain.ErrUnauthorizedAction)
}

func TestTarget(t *testing.T) {
	t.Parallel()

	to, ok := Target(domain.StatusWaitingPayment, domain.TriggerSettlePayment)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusConfirmed, to)

	_, ok = Target(domain.StatusCompleted, domain.TriggerCancel)
	assert.False(t, ok)
}
