package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

type AdminRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	CreateCar(ctx context.Context, car domain.Car) error
	ListCars(ctx context.Context, ownerID string) ([]domain.Car, error)
}

// AdminService manages the fleet: accounts and the cars owners list.
type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateUserInput struct {
	Name  string
	Email string
	Phone string
}

func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, domain.ErrUserNameRequired
	}

	user := domain.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type CreateCarInput struct {
	OwnerID       string
	Make          string
	Model         string
	Plate         string
	PricePerDay   domain.Money
	DepositAmount domain.Money
	DeliveryFee   domain.Money
}

func (s *AdminService) CreateCar(ctx context.Context, in CreateCarInput) (domain.Car, error) {
	if in.OwnerID == "" {
		return domain.Car{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.Model) == "" {
		return domain.Car{}, domain.ErrCarModelRequired
	}
	if in.PricePerDay <= 0 || in.DepositAmount < 0 || in.DeliveryFee < 0 {
		return domain.Car{}, domain.ErrInvalidAmount
	}

	car := domain.Car{
		ID:            uuid.NewString(),
		OwnerID:       in.OwnerID,
		Make:          strings.TrimSpace(in.Make),
		Model:         strings.TrimSpace(in.Model),
		Plate:         strings.ToUpper(strings.TrimSpace(in.Plate)),
		PricePerDay:   in.PricePerDay,
		DepositAmount: in.DepositAmount,
		DeliveryFee:   in.DeliveryFee,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.CreateCar(ctx, car); err != nil {
		return domain.Car{}, err
	}
	return car, nil
}

// ListCars returns every car, or only ownerID's when it is set.
func (s *AdminService) ListCars(ctx context.Context, ownerID string) ([]domain.Car, error) {
	return s.repo.ListCars(ctx, ownerID)
}
