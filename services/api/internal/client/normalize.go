package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

const dateLayout = "2006-01-02"

// normalizeBooking turns a booking payload into the canonical record. It is
// the only place that knows the API may answer in snake_case or camelCase and
// may send amounts as numbers or decimal strings.
func normalizeBooking(raw map[string]any) (domain.Booking, error) {
	f := fields{raw: raw}

	b := domain.Booking{
		ID:                    f.str("id"),
		Status:                domain.Status(f.str("status")),
		StartDate:             f.date("start_date"),
		EndDate:               f.date("end_date"),
		OwnerResponseDeadline: f.timePtr("owner_response_deadline"),
		PaymentDeadline:       f.timePtr("payment_deadline"),
		PricePerDay:           f.money("price_per_day"),
		TotalPrice:            f.money("total_price"),
		DepositAmount:         f.money("deposit_amount"),
		DeliveryFee:           f.money("delivery_fee"),
		OnlinePaymentAmount:   f.money("online_payment_amount"),
		OwnerPaymentAmount:    f.money("owner_payment_amount"),
		DeliveryCode:          f.str("delivery_code"),
		DeliveryCodeUsedAt:    f.timePtr("delivery_code_used_at"),
		PaymentID:             f.str("payment_id"),
		Car:                   normalizeCar(f.object("car")),
		Client:                normalizeUser(f.object("client")),
		Owner:                 normalizeUser(f.object("owner")),
		CreatedAt:             f.timestamp("created_at"),
		UpdatedAt:             f.timestamp("updated_at"),
	}
	if b.Car.ID == "" {
		b.Car.ID = f.str("car_id")
	}
	if b.Client.ID == "" {
		b.Client.ID = f.str("client_id")
	}
	if b.Owner.ID == "" {
		b.Owner.ID = f.str("owner_id")
	}
	if b.Car.OwnerID == "" {
		b.Car.OwnerID = b.Owner.ID
	}

	if f.err != nil {
		return domain.Booking{}, f.err
	}
	if b.ID == "" {
		return domain.Booking{}, fmt.Errorf("booking without id")
	}
	if !b.Status.Valid() {
		return domain.Booking{}, fmt.Errorf("unknown booking status %q", b.Status)
	}
	return b, nil
}

func normalizeCar(raw map[string]any) domain.Car {
	f := fields{raw: raw}
	return domain.Car{
		ID:            f.str("id"),
		OwnerID:       f.str("owner_id"),
		Make:          f.str("make"),
		Model:         f.str("model"),
		Plate:         f.str("plate"),
		PricePerDay:   f.money("price_per_day"),
		DepositAmount: f.money("deposit_amount"),
		DeliveryFee:   f.money("delivery_fee"),
	}
}

func normalizeUser(raw map[string]any) domain.User {
	f := fields{raw: raw}
	return domain.User{
		ID:    f.str("id"),
		Name:  f.str("name"),
		Email: f.str("email"),
		Phone: f.str("phone"),
	}
}

// normalizeRates accepts {"rates": {...}} or a bare code → rate map.
func normalizeRates(raw map[string]any) (currency.Rates, error) {
	src := raw
	if nested, ok := raw["rates"].(map[string]any); ok {
		src = nested
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "base" {
			continue
		}
		switch n := v.(type) {
		case string:
			out[strings.ToUpper(k)] = n
		case json.Number:
			out[strings.ToUpper(k)] = n.String()
		default:
			return nil, fmt.Errorf("rate %s: unexpected %T", k, v)
		}
	}
	return currency.ParseRates(out)
}

// fields reads keys by their snake_case name, falling back to camelCase. The
// first conversion error is kept in err.
type fields struct {
	raw map[string]any
	err error
}

func lookup(raw map[string]any, snake string) any {
	if v, ok := raw[snake]; ok {
		return v
	}
	return raw[camel(snake)]
}

func (f *fields) get(key string) any {
	if f.raw == nil {
		return nil
	}
	return lookup(f.raw, key)
}

func (f *fields) fail(key string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (f *fields) str(key string) string {
	switch v := f.get(key).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func (f *fields) object(key string) map[string]any {
	m, _ := f.get(key).(map[string]any)
	return m
}

func (f *fields) money(key string) domain.Money {
	var s string
	switch v := f.get(key).(type) {
	case nil:
		return 0
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		f.fail(key, fmt.Errorf("unexpected %T", v))
		return 0
	}
	if s == "" {
		return 0
	}
	m, err := domain.ParseMoney(s)
	if err != nil {
		f.fail(key, err)
	}
	return m
}

func (f *fields) date(key string) time.Time {
	s := f.str(key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		f.fail(key, err)
		return time.Time{}
	}
	return domain.DateOnly(t)
}

func (f *fields) timestamp(key string) time.Time {
	s := f.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		f.fail(key, err)
		return time.Time{}
	}
	return t
}

func (f *fields) timePtr(key string) *time.Time {
	t := f.timestamp(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// camel converts owner_response_deadline to ownerResponseDeadline.
func camel(snake string) string {
	var sb strings.Builder
	upper := false
	for _, r := range snake {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
