package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/session"
)

// Exit codes for CLI commands.
const (
	ExitSuccess        = 0
	ExitFailure        = 1 // refused locally or by the API
	ExitCommandError   = 2 // bad flags, arguments or token
	ExitUnknownOutcome = 3 // the API could not be reached; the action may or may not have happened
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Returns ExitFailure if
// the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps session errors onto exit codes.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsTransport(err):
		return WrapExitError(ExitUnknownOutcome, "api unreachable, outcome unknown", err)
	case domain.IsValidation(err):
		return WrapExitError(ExitFailure, "not allowed", err)
	default:
		return WrapExitError(ExitFailure, "refused", err)
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Success outputs a result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(data)
	}
	if m, ok := data.(map[string]string); ok {
		for _, v := range m {
			fmt.Fprintln(f.Writer, v)
		}
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

type snapshotJSON struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	StartDate    string            `json:"start_date"`
	EndDate      string            `json:"end_date"`
	Car          string            `json:"car,omitempty"`
	Owner        *ownerJSON        `json:"owner,omitempty"`
	Deadline     *time.Time        `json:"deadline,omitempty"`
	Remaining    string            `json:"remaining,omitempty"`
	Urgent       bool              `json:"urgent,omitempty"`
	Currency     string            `json:"currency"`
	Amounts      map[string]string `json:"amounts"`
	DeliveryCode string            `json:"delivery_code,omitempty"`
	Actions      []domain.Action   `json:"actions"`
}

type ownerJSON struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Snapshot prints the booking as the session sees it.
func (f *OutputFormatter) Snapshot(s session.Snapshot) error {
	b := s.View.Booking
	amounts := amountList(s.Amounts)

	if f.Format == "json" {
		out := snapshotJSON{
			ID:        b.ID,
			Status:    string(b.Status),
			StartDate: b.StartDate.Format("2006-01-02"),
			EndDate:   b.EndDate.Format("2006-01-02"),
			Car:       carLabel(b.Car),
			Currency:  string(s.Currency),
			Amounts:   make(map[string]string, len(amounts)),
			Actions:   s.Actions,
		}
		if s.View.OwnerContact {
			out.Owner = &ownerJSON{Name: b.Owner.Name, Phone: b.Owner.Phone, Email: b.Owner.Email}
		}
		if s.HasDeadline {
			d := s.Deadline
			out.Deadline = &d
			out.Remaining = s.Remaining.String()
			out.Urgent = s.Urgent
		}
		if s.View.DeliveryCode {
			out.DeliveryCode = b.DeliveryCode
		}
		for _, a := range amounts {
			out.Amounts[a.key] = a.value
		}
		return json.NewEncoder(f.Writer).Encode(out)
	}

	w := f.Writer
	fmt.Fprintf(w, "Booking %s\n", b.ID)
	fmt.Fprintf(w, "  status:   %s\n", b.Status)
	fmt.Fprintf(w, "  dates:    %s to %s (%d days)\n", b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"), b.Days())
	if label := carLabel(b.Car); label != "" {
		fmt.Fprintf(w, "  car:      %s\n", label)
	}
	if s.View.OwnerContact && b.Owner.Name != "" {
		fmt.Fprintf(w, "  owner:    %s %s\n", b.Owner.Name, b.Owner.Phone)
	}
	if s.HasDeadline {
		fmt.Fprintf(w, "  deadline: %s\n", countdown(s))
	}
	for _, a := range amounts {
		fmt.Fprintf(w, "  %-9s %s\n", a.label+":", a.value)
	}
	if s.View.DeliveryCode && b.DeliveryCode != "" {
		fmt.Fprintf(w, "  code:     %s\n", b.DeliveryCode)
	}
	fmt.Fprintf(w, "  actions:  %s\n", actionList(s.Actions))
	return nil
}

// Countdown prints a single deadline line.
func (f *OutputFormatter) Countdown(s session.Snapshot) {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(map[string]any{
			"status":    s.View.Booking.Status,
			"remaining": s.Remaining.String(),
			"urgent":    s.Urgent,
		})
		return
	}
	fmt.Fprintf(f.Writer, "%s  %s\n", s.View.Booking.Status, countdown(s))
}

func countdown(s session.Snapshot) string {
	out := s.Remaining.Truncate(time.Second).String() + " left"
	if s.Remaining == 0 {
		out = "elapsed, waiting for the server"
	}
	if s.Urgent {
		out += " (urgent)"
	}
	return out
}

type amountLine struct {
	key, label, value string
}

// amountList drops the figures hidden from the role.
func amountList(a session.Amounts) []amountLine {
	all := []amountLine{
		{"price_per_day", "per day", a.PricePerDay},
		{"total", "total", a.Total},
		{"online_payment", "online", a.OnlinePayment},
		{"owner_payment", "at pickup", a.OwnerPayment},
		{"deposit", "deposit", a.Deposit},
		{"delivery_fee", "delivery", a.DeliveryFee},
	}
	out := all[:0]
	for _, l := range all {
		if l.value != "" {
			out = append(out, l)
		}
	}
	return out
}

func carLabel(c domain.Car) string {
	return strings.TrimSpace(c.Make + " " + c.Model)
}

func actionList(actions []domain.Action) string {
	if len(actions) == 0 {
		return string(domain.ActionNone)
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
