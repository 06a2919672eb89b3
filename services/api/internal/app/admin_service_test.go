package app

import (
	"context"
	"testing"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

type fakeAdminRepo struct {
	createdUser domain.User
	createdCar  domain.Car
	listOwner   string

	createUserErr error
	createCarErr  error
}

func (f *fakeAdminRepo) CreateUser(_ context.Context, user domain.User) error {
	f.createdUser = user
	return f.createUserErr
}

func (f *fakeAdminRepo) CreateCar(_ context.Context, car domain.Car) error {
	f.createdCar = car
	return f.createCarErr
}

func (f *fakeAdminRepo) ListCars(_ context.Context, ownerID string) ([]domain.Car, error) {
	f.listOwner = ownerID
	return nil, nil
}

func TestAdminService_CreateUser_Normalizes(t *testing.T) {
	repo := &fakeAdminRepo{}
	svc := NewAdminService(repo, clock.NewFixed(time.Now()))

	got, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "  Sara ", Email: " Sara@Example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if got.Name != "Sara" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}
	if got.Email != "sara@example.com" {
		t.Fatalf("expected lowercased email, got %q", got.Email)
	}
	if repo.createdUser.ID == "" {
		t.Fatalf("expected user ID to be set")
	}
}

func TestAdminService_CreateUser_ValidatesName(t *testing.T) {
	svc := NewAdminService(&fakeAdminRepo{}, clock.NewFixed(time.Now()))

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "   "})
	if err != domain.ErrUserNameRequired {
		t.Fatalf("expected ErrUserNameRequired, got %v", err)
	}
}

func TestAdminService_CreateCar(t *testing.T) {
	repo := &fakeAdminRepo{}
	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	svc := NewAdminService(repo, clock.NewFixed(now))

	got, err := svc.CreateCar(context.Background(), CreateCarInput{
		OwnerID:     "owner-1",
		Make:        "Dacia",
		Model:       "Duster",
		Plate:       " 12345-a-6 ",
		PricePerDay: 35000,
	})
	if err != nil {
		t.Fatalf("create car: %v", err)
	}
	if got.Plate != "12345-A-6" {
		t.Fatalf("expected normalized plate, got %q", got.Plate)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, got.CreatedAt)
	}
	if repo.createdCar.ID != got.ID {
		t.Fatalf("expected car persisted")
	}
}

func TestAdminService_CreateCar_ValidatesInput(t *testing.T) {
	svc := NewAdminService(&fakeAdminRepo{}, clock.NewFixed(time.Now()))
	ctx := context.Background()

	_, err := svc.CreateCar(ctx, CreateCarInput{OwnerID: "", Model: "Clio", PricePerDay: 100})
	if err != domain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	_, err = svc.CreateCar(ctx, CreateCarInput{OwnerID: "owner", Model: "", PricePerDay: 100})
	if err != domain.ErrCarModelRequired {
		t.Fatalf("expected ErrCarModelRequired, got %v", err)
	}

	_, err = svc.CreateCar(ctx, CreateCarInput{OwnerID: "owner", Model: "Clio", PricePerDay: 0})
	if err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = svc.CreateCar(ctx, CreateCarInput{OwnerID: "owner", Model: "Clio", PricePerDay: 100, DepositAmount: -1})
	if err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAdminService_CreateCar_PropagatesRepoError(t *testing.T) {
	repo := &fakeAdminRepo{createCarErr: domain.ErrUserNotFound}
	svc := NewAdminService(repo, clock.NewFixed(time.Now()))

	_, err := svc.CreateCar(context.Background(), CreateCarInput{OwnerID: "ghost", Model: "Clio", PricePerDay: 100})
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAdminService_ListCars_FiltersByOwner(t *testing.T) {
	repo := &fakeAdminRepo{}
	svc := NewAdminService(repo, clock.NewFixed(time.Now()))

	if _, err := svc.ListCars(context.Background(), "owner-7"); err != nil {
		t.Fatalf("list cars: %v", err)
	}
	if repo.listOwner != "owner-7" {
		t.Fatalf("expected owner filter passed through, got %q", repo.listOwner)
	}
}
