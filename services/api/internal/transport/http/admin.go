package http

import (
	"context"
	"net/http"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/app"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// AdminUserService is the minimal interface needed for admin user endpoints.
type AdminUserService interface {
	CreateUser(ctx context.Context, in app.CreateUserInput) (domain.User, error)
}

// AdminCarService is the minimal interface needed for admin car endpoints.
type AdminCarService interface {
	CreateCar(ctx context.Context, in app.CreateCarInput) (domain.Car, error)
	ListCars(ctx context.Context, ownerID string) ([]domain.Car, error)
}

// HandleAdminUsers serves POST /admin/users.
func HandleAdminUsers(svc AdminUserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if !requireAdmin(w, r) {
			return
		}

		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Name == "" {
			writeDomainError(w, domain.ErrUserNameRequired)
			return
		}

		user, err := svc.CreateUser(r.Context(), app.CreateUserInput{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(user))
	}
}

// HandleAdminCars serves GET and POST /admin/cars. GET accepts an optional
// owner_id filter.
func HandleAdminCars(svc AdminCarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if !requireAdmin(w, r) {
			return
		}

		if r.Method == http.MethodGet {
			ownerID := r.URL.Query().Get("owner_id")
			if ownerID != "" && !validID(ownerID) {
				writeDomainError(w, domain.ErrInvalidID)
				return
			}
			cars, err := svc.ListCars(r.Context(), ownerID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]carResponse, 0, len(cars))
			for _, car := range cars {
				resp = append(resp, newCarResponse(car))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		var req createCarRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		in, err := req.input()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		car, err := svc.CreateCar(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newCarResponse(car))
	}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Amounts are decimal MAD strings.
type createCarRequest struct {
	OwnerID       string `json:"owner_id"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	Plate         string `json:"plate"`
	PricePerDay   string `json:"price_per_day"`
	DepositAmount string `json:"deposit_amount,omitempty"`
	DeliveryFee   string `json:"delivery_fee,omitempty"`
}

func (r createCarRequest) input() (app.CreateCarInput, error) {
	if !validID(r.OwnerID) {
		return app.CreateCarInput{}, domain.ErrInvalidID
	}
	price, err := domain.ParseMoney(r.PricePerDay)
	if err != nil {
		return app.CreateCarInput{}, err
	}
	deposit, err := optionalMoney(r.DepositAmount)
	if err != nil {
		return app.CreateCarInput{}, err
	}
	fee, err := optionalMoney(r.DeliveryFee)
	if err != nil {
		return app.CreateCarInput{}, err
	}
	return app.CreateCarInput{
		OwnerID:       r.OwnerID,
		Make:          r.Make,
		Model:         r.Model,
		Plate:         r.Plate,
		PricePerDay:   price,
		DepositAmount: deposit,
		DeliveryFee:   fee,
	}, nil
}

func optionalMoney(s string) (domain.Money, error) {
	if s == "" {
		return 0, nil
	}
	return domain.ParseMoney(s)
}
