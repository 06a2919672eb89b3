package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/gate"
)

// Money is encoded as a decimal MAD string ("1000.00") so no precision is
// lost in transit.
type bookingResponse struct {
	ID                    string       `json:"id"`
	Status                string       `json:"status"`
	StartDate             string       `json:"start_date"`
	EndDate               string       `json:"end_date"`
	OwnerResponseDeadline *time.Time   `json:"owner_response_deadline,omitempty"`
	PaymentDeadline       *time.Time   `json:"payment_deadline,omitempty"`
	PricePerDay           string       `json:"price_per_day"`
	TotalPrice            string       `json:"total_price"`
	DepositAmount         string       `json:"deposit_amount"`
	DeliveryFee           string       `json:"delivery_fee"`
	OnlinePaymentAmount   string       `json:"online_payment_amount,omitempty"`
	OwnerPaymentAmount    string       `json:"owner_payment_amount"`
	DeliveryCode          string       `json:"delivery_code,omitempty"`
	DeliveryCodeUsedAt    *time.Time   `json:"delivery_code_used_at,omitempty"`
	Car                   carResponse  `json:"car"`
	Client                userResponse `json:"client"`
	Owner                 userResponse `json:"owner"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

type carResponse struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Make          string    `json:"make,omitempty"`
	Model         string    `json:"model"`
	Plate         string    `json:"plate,omitempty"`
	PricePerDay   string    `json:"price_per_day"`
	DepositAmount string    `json:"deposit_amount"`
	DeliveryFee   string    `json:"delivery_fee"`
	CreatedAt     time.Time `json:"created_at"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func newBookingResponse(v gate.View) bookingResponse {
	b := v.Booking
	resp := bookingResponse{
		ID:                    b.ID,
		Status:                string(b.Status),
		StartDate:             b.StartDate.Format(dateLayout),
		EndDate:               b.EndDate.Format(dateLayout),
		OwnerResponseDeadline: b.OwnerResponseDeadline,
		PaymentDeadline:       b.PaymentDeadline,
		PricePerDay:           b.PricePerDay.String(),
		TotalPrice:            b.TotalPrice.String(),
		DepositAmount:         b.DepositAmount.String(),
		DeliveryFee:           b.DeliveryFee.String(),
		OwnerPaymentAmount:    b.OwnerPaymentAmount.String(),
		DeliveryCodeUsedAt:    b.DeliveryCodeUsedAt,
		Car:                   newCarResponse(b.Car),
		Client:                newUserResponse(b.Client),
		Owner:                 newUserResponse(b.Owner),
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
	if v.OnlinePaymentAmount {
		resp.OnlinePaymentAmount = b.OnlinePaymentAmount.String()
	}
	if v.DeliveryCode {
		resp.DeliveryCode = b.DeliveryCode
	}
	return resp
}

func newCarResponse(c domain.Car) carResponse {
	return carResponse{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Make:          c.Make,
		Model:         c.Model,
		Plate:         c.Plate,
		PricePerDay:   c.PricePerDay.String(),
		DepositAmount: c.DepositAmount.String(),
		DeliveryFee:   c.DeliveryFee.String(),
		CreatedAt:     c.CreatedAt,
	}
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
