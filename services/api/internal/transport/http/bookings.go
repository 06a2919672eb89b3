package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/app"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/gate"
)

const (
	dateLayout        = "2006-01-02"
	idempotencyHeader = "Idempotency-Key"
)

// BookingCreator is the minimal interface needed to request a booking.
type BookingCreator interface {
	Create(ctx context.Context, actor domain.Actor, in app.CreateBookingInput) (domain.Booking, error)
}

// BookingService is what the per-booking routes need from the authority.
type BookingService interface {
	Get(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error)
	Accept(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error)
	Reject(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error)
	Cancel(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error)
	CompleteReturn(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error)
	DeliveryCode(ctx context.Context, actor domain.Actor, id string) (string, error)
	ValidateDeliveryCode(ctx context.Context, actor domain.Actor, id, code string) (domain.Booking, error)
	SettlePayment(ctx context.Context, in app.SettlePaymentInput) (app.SettlePaymentResult, error)
	ReviewEligibility(ctx context.Context, actor domain.Actor, id string) (bool, error)
	LeaveReview(ctx context.Context, actor domain.Actor, in app.LeaveReviewInput) (domain.Review, error)
	InvoiceAvailability(ctx context.Context, actor domain.Actor, id string) (bool, error)
}

// HandleCreateBooking serves POST /bookings.
func HandleCreateBooking(svc BookingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req createBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		in, err := req.input()
		if err != nil {
			writeDomainError(w, err)
			return
		}

		b, err := svc.Create(r.Context(), actor, in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newBookingResponse(gate.Project(b, actor.Role)))
	}
}

type createBookingRequest struct {
	CarID     string `json:"car_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (r createBookingRequest) input() (app.CreateBookingInput, error) {
	if !validID(r.CarID) {
		return app.CreateBookingInput{}, domain.ErrInvalidID
	}
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return app.CreateBookingInput{}, domain.ErrInvalidDates
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return app.CreateBookingInput{}, domain.ErrInvalidDates
	}
	return app.CreateBookingInput{CarID: r.CarID, StartDate: start, EndDate: end}, nil
}

// HandleBooking serves every /bookings/{id}[/action] route.
func HandleBooking(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := parseBookingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		method, known := bookingRoutes[action]
		if !known {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if !validID(id) {
			writeDomainError(w, domain.ErrInvalidID)
			return
		}

		h := bookingHandler{svc: svc, actor: actor, id: id}
		switch action {
		case "":
			h.respond(w, http.StatusOK)(svc.Get(r.Context(), actor, id))
		case "accept":
			h.respond(w, http.StatusOK)(svc.Accept(r.Context(), actor, id))
		case "reject":
			h.respond(w, http.StatusOK)(svc.Reject(r.Context(), actor, id))
		case "cancel":
			h.respond(w, http.StatusOK)(svc.Cancel(r.Context(), actor, id))
		case "return":
			h.respond(w, http.StatusOK)(svc.CompleteReturn(r.Context(), actor, id))
		case "payment":
			h.settlePayment(w, r)
		case "delivery-code":
			h.deliveryCode(w, r)
		case "delivery-code/validate":
			h.validateDeliveryCode(w, r)
		case "review-eligibility":
			eligible, err := svc.ReviewEligibility(r.Context(), actor, id)
			h.flag(w, "eligible", eligible, err)
		case "invoice":
			available, err := svc.InvoiceAvailability(r.Context(), actor, id)
			h.flag(w, "available", available, err)
		case "review":
			h.leaveReview(w, r)
		}
	}
}

var bookingRoutes = map[string]string{
	"":                       http.MethodGet,
	"accept":                 http.MethodPost,
	"reject":                 http.MethodPost,
	"cancel":                 http.MethodPost,
	"return":                 http.MethodPost,
	"payment":                http.MethodPost,
	"delivery-code":          http.MethodGet,
	"delivery-code/validate": http.MethodPost,
	"review-eligibility":     http.MethodGet,
	"invoice":                http.MethodGet,
	"review":                 http.MethodPost,
}

type bookingHandler struct {
	svc   BookingService
	actor domain.Actor
	id    string
}

func (h bookingHandler) respond(w http.ResponseWriter, status int) func(domain.Booking, error) {
	return func(b domain.Booking, err error) {
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, status, newBookingResponse(gate.Project(b, h.actor.Role)))
	}
}

func (h bookingHandler) flag(w http.ResponseWriter, name string, value bool, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{name: value})
}

func (h bookingHandler) settlePayment(w http.ResponseWriter, r *http.Request) {
	if h.actor.Role != domain.RoleAdmin {
		writeDomainError(w, domain.ErrUnauthorizedAction)
		return
	}
	var req settlePaymentRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = r.Header.Get(idempotencyHeader)
	}

	res, err := h.svc.SettlePayment(r.Context(), app.SettlePaymentInput{BookingID: h.id, PaymentID: paymentID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newBookingResponse(gate.Project(res.Booking, h.actor.Role)))
}

func (h bookingHandler) deliveryCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.svc.DeliveryCode(r.Context(), h.actor, h.id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveryCodeBody{Code: code})
}

func (h bookingHandler) validateDeliveryCode(w http.ResponseWriter, r *http.Request) {
	var req deliveryCodeBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, "code is required")
		return
	}
	h.respond(w, http.StatusOK)(h.svc.ValidateDeliveryCode(r.Context(), h.actor, h.id, req.Code))
}

func (h bookingHandler) leaveReview(w http.ResponseWriter, r *http.Request) {
	var req leaveReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	review, err := h.svc.LeaveReview(r.Context(), h.actor, app.LeaveReviewInput{
		BookingID: h.id,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewResponse{
		ID:        review.ID,
		BookingID: review.BookingID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	})
}

// parseBookingPath splits /bookings/{id}[/action...] into id and action.
func parseBookingPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 4 || parts[0] != "bookings" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], strings.Join(parts[2:], "/"), true
}

type settlePaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type deliveryCodeBody struct {
	Code string `json:"code"`
}

type leaveReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
