// Package client talks to the booking API over HTTP and implements
// session.Authority.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/auth"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Client is an HTTP authority bound to one bearer token.
type Client struct {
	baseURL *url.URL
	token   string
	actor   domain.Actor
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the API at baseURL. The caller's identity and
// role are read from token; the server still verifies it on every call.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	actor, err := auth.Inspect(token)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		token:   token,
		actor:   actor,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Actor is the identity carried by the client's token.
func (c *Client) Actor() domain.Actor { return c.actor }

func (c *Client) FetchBooking(ctx context.Context, id string) (domain.Booking, error) {
	return c.booking(ctx, "fetch booking", http.MethodGet, bookingPath(id, ""), nil)
}

func (c *Client) AcceptBooking(ctx context.Context, id string) (domain.Booking, error) {
	return c.booking(ctx, "accept booking", http.MethodPost, bookingPath(id, "accept"), nil)
}

func (c *Client) RejectBooking(ctx context.Context, id string) (domain.Booking, error) {
	return c.booking(ctx, "reject booking", http.MethodPost, bookingPath(id, "reject"), nil)
}

func (c *Client) CancelBooking(ctx context.Context, id string) (domain.Booking, error) {
	return c.booking(ctx, "cancel booking", http.MethodPost, bookingPath(id, "cancel"), nil)
}

func (c *Client) FetchDeliveryCode(ctx context.Context, id string) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := c.do(ctx, "fetch delivery code", http.MethodGet, bookingPath(id, "delivery-code"), nil, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *Client) ValidateDeliveryCode(ctx context.Context, id, code string) (domain.Booking, error) {
	body := map[string]string{"code": code}
	return c.booking(ctx, "validate delivery code", http.MethodPost, bookingPath(id, "delivery-code/validate"), body)
}

func (c *Client) FetchExchangeRates(ctx context.Context) (currency.Rates, error) {
	var raw map[string]any
	if err := c.do(ctx, "fetch exchange rates", http.MethodGet, "/exchange-rates", nil, &raw); err != nil {
		return nil, err
	}
	rates, err := normalizeRates(raw)
	if err != nil {
		return nil, &domain.TransportError{Op: "fetch exchange rates", Err: err}
	}
	return rates, nil
}

func (c *Client) CheckReviewEligibility(ctx context.Context, id string) (bool, error) {
	return c.flag(ctx, "check review eligibility", bookingPath(id, "review-eligibility"), "eligible")
}

func (c *Client) CheckInvoiceAvailability(ctx context.Context, id string) (bool, error) {
	return c.flag(ctx, "check invoice availability", bookingPath(id, "invoice"), "available")
}

func (c *Client) booking(ctx context.Context, op, method, path string, body any) (domain.Booking, error) {
	var raw map[string]any
	if err := c.do(ctx, op, method, path, body, &raw); err != nil {
		return domain.Booking{}, err
	}
	b, err := normalizeBooking(raw)
	if err != nil {
		return domain.Booking{}, &domain.TransportError{Op: op, Err: err}
	}
	return b, nil
}

func (c *Client) flag(ctx context.Context, op, path, name string) (bool, error) {
	var out map[string]any
	if err := c.do(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	v, _ := lookup(out, name).(bool)
	return v, nil
}

// do performs one request. Network failures, timeouts and unreadable
// responses become *domain.TransportError; non-2xx answers become
// *domain.AuthorityError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return authorityError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func authorityError(status int, data []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(data, &payload)

	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(http.StatusText(status))
	}
	ae := &domain.AuthorityError{
		Status:  status,
		Code:    payload.Code,
		Message: msg,
		Err:     domain.ErrorForCode(payload.Code),
	}
	if ae.Err == nil && status == http.StatusNotFound {
		ae.Err = domain.ErrBookingNotFound
	}
	return ae
}

func bookingPath(id, action string) string {
	p := "/bookings/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

// IsUnauthenticated reports whether the API refused the token itself.
func IsUnauthenticated(err error) bool {
	var ae *domain.AuthorityError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}
