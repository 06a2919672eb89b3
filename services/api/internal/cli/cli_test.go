package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/auth"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/lifecycle"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/session"
)

const bookingID = "b-1"

type fakeAuthority struct {
	mu       sync.Mutex
	booking  domain.Booking
	machine  *lifecycle.Machine
	err      error
	accepted int
}

func (f *fakeAuthority) FetchBooking(context.Context, string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booking.Clone(), nil
}

func (f *fakeAuthority) apply(trigger domain.Trigger) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Booking{}, f.err
	}
	next, err := f.machine.Apply(f.booking, trigger, time.Now())
	if err != nil {
		return domain.Booking{}, err
	}
	f.booking = next
	return next.Clone(), nil
}

func (f *fakeAuthority) AcceptBooking(context.Context, string) (domain.Booking, error) {
	f.mu.Lock()
	f.accepted++
	f.mu.Unlock()
	return f.apply(domain.TriggerAccept)
}

func (f *fakeAuthority) RejectBooking(context.Context, string) (domain.Booking, error) {
	return f.apply(domain.TriggerReject)
}

func (f *fakeAuthority) CancelBooking(context.Context, string) (domain.Booking, error) {
	return f.apply(domain.TriggerCancel)
}

func (f *fakeAuthority) FetchDeliveryCode(context.Context, string) (string, error) {
	return "ABC-123-XYZ", nil
}

func (f *fakeAuthority) ValidateDeliveryCode(context.Context, string, string) (domain.Booking, error) {
	return f.apply(domain.TriggerValidateDeliveryCode)
}

func (f *fakeAuthority) FetchExchangeRates(context.Context) (currency.Rates, error) {
	return currency.ParseRates(map[string]string{"USD": "10", "EUR": "11"})
}

func (f *fakeAuthority) CheckReviewEligibility(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeAuthority) CheckInvoiceAvailability(context.Context, string) (bool, error) {
	return true, nil
}

func pendingBooking() domain.Booking {
	now := time.Now().UTC()
	deadline := now.Add(2 * time.Hour)
	return domain.Booking{
		ID:                    bookingID,
		Status:                domain.StatusPendingOwner,
		StartDate:             domain.DateOnly(now.Add(72 * time.Hour)),
		EndDate:               domain.DateOnly(now.Add(144 * time.Hour)),
		OwnerResponseDeadline: &deadline,
		PricePerDay:           50000,
		TotalPrice:            150000,
		OnlinePaymentAmount:   30000,
		OwnerPaymentAmount:    120000,
		Car:                   domain.Car{ID: "car-1", Make: "Dacia", Model: "Duster"},
		Client:                domain.User{ID: "client-1"},
		Owner:                 domain.User{ID: "owner-1", Name: "Karim", Phone: "+212600000001"},
	}
}

type harness struct {
	authority *fakeAuthority
	actor     domain.Actor
	connectEr error
}

func (h *harness) connect(string, string) (session.Authority, domain.Actor, error) {
	if h.connectEr != nil {
		return nil, domain.Actor{}, h.connectEr
	}
	return h.authority, h.actor, nil
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(h.connect)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--token", "t"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newHarness(role domain.Role, b domain.Booking) *harness {
	return &harness{
		authority: &fakeAuthority{booking: b, machine: lifecycle.New()},
		actor:     domain.Actor{UserID: string(role) + "-1", Role: role},
	}
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"show", "watch", "accept", "reject", "cancel", "code", "validate", "token"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestShow_ClientSeesConvertedAmountsButNoContact(t *testing.T) {
	h := newHarness(domain.RoleClient, pendingBooking())

	out, err := run(t, h, "--currency", "USD", "show", bookingID)
	require.NoError(t, err)

	assert.Contains(t, out, "status:   pending_owner")
	assert.Contains(t, out, "Dacia Duster")
	assert.Contains(t, out, "left")
	assert.Contains(t, out, "actions:  cancel")
	assert.Contains(t, out, "$150.00")
	assert.NotContains(t, out, "Karim", "owner contact is hidden before confirmation")
}

func TestShow_JSONForOwnerHidesOnlineShare(t *testing.T) {
	h := newHarness(domain.RoleOwner, pendingBooking())

	out, err := run(t, h, "--format", "json", "show", bookingID)
	require.NoError(t, err)

	var got snapshotJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "pending_owner", got.Status)
	assert.Equal(t, "MAD", got.Currency)
	assert.NotContains(t, got.Amounts, "online_payment")
	assert.Contains(t, got.Amounts, "total")
	assert.NotNil(t, got.Deadline)
	assert.ElementsMatch(t, []domain.Action{domain.ActionAccept, domain.ActionReject}, got.Actions)
}

func TestAccept(t *testing.T) {
	h := newHarness(domain.RoleOwner, pendingBooking())

	out, err := run(t, h, "accept", bookingID)
	require.NoError(t, err)
	assert.Contains(t, out, "status:   waiting_payment")
	assert.Equal(t, 1, h.authority.accepted)
}

func TestAccept_RefusedLocallyForClient(t *testing.T) {
	h := newHarness(domain.RoleClient, pendingBooking())

	_, err := run(t, h, "accept", bookingID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAction)
	assert.Equal(t, 0, h.authority.accepted, "nothing is sent when the role cannot act")
}

func TestAccept_TransportFailureHasUnknownOutcome(t *testing.T) {
	h := newHarness(domain.RoleOwner, pendingBooking())
	h.authority.err = &domain.TransportError{Op: "accept booking", Err: errors.New("connection reset")}

	out, err := run(t, h, "accept", bookingID)
	require.Error(t, err)
	assert.Equal(t, ExitUnknownOutcome, GetExitCode(err))
	assert.Contains(t, out, "pending_owner", "the re-read booking is still shown")
}

func TestCodeAndValidate(t *testing.T) {
	b := pendingBooking()
	b.Status = domain.StatusConfirmed
	b.OwnerResponseDeadline = nil
	b.StartDate = domain.DateOnly(time.Now().UTC())
	b.DeliveryCode = "ABC-123-XYZ"

	client := newHarness(domain.RoleClient, b)
	out, err := run(t, client, "code", bookingID)
	require.NoError(t, err)
	assert.Equal(t, "ABC-123-XYZ\n", out)

	owner := newHarness(domain.RoleOwner, b)
	_, err = run(t, owner, "validate", bookingID, "not-a-code")
	require.ErrorIs(t, err, domain.ErrMalformedCode)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = run(t, owner, "validate", bookingID, "ABC-123-XYZ")
	require.NoError(t, err)
	assert.Contains(t, out, "status:   in_progress")
}

func TestWatch_ReturnsForTerminalBooking(t *testing.T) {
	b := pendingBooking()
	b.Status = domain.StatusCancelled
	b.OwnerResponseDeadline = nil

	out, err := run(t, newHarness(domain.RoleClient, b), "watch", bookingID)
	require.NoError(t, err)
	assert.Contains(t, out, "status:   cancelled")
}

func TestWatch_StopsAfterLimit(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := run(t, newHarness(domain.RoleOwner, pendingBooking()), "watch", bookingID, "--for", "100ms")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(domain.RoleOwner, pendingBooking())

	_, err := run(t, h, "--format", "yaml", "show", bookingID)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, h, "--currency", "GBP", "show", bookingID)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	h.connectEr = auth.ErrInvalidToken
	_, err = run(t, h, "show", bookingID)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	cmd := newRootCommand(h.connect)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--token", "", "show", bookingID})
	err = cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestToken(t *testing.T) {
	h := newHarness(domain.RoleAdmin, pendingBooking())

	out, err := run(t, h, "token", "--secret", "0123456789abcdef", "--user", "admin-7", "--role", "admin")
	require.NoError(t, err)

	actor, err := auth.Verify([]byte("0123456789abcdef"), string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "admin-7", Role: domain.RoleAdmin}, actor)

	_, err = run(t, h, "token", "--secret", "s", "--user", "u", "--role", "root")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
