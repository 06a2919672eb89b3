package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, name, email, phone)
VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, stmt, user.ID, user.Name, user.Email, user.Phone)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrUserEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateCar(ctx context.Context, car domain.Car) error {
	const stmt = `
INSERT INTO cars (id, owner_id, make, model, plate, price_per_day, deposit_amount, delivery_fee, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, stmt,
		car.ID, car.OwnerID, car.Make, car.Model, car.Plate,
		int64(car.PricePerDay), int64(car.DepositAmount), int64(car.DeliveryFee), car.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrPlateTaken
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("create car: %w", err)
	}
	return nil
}

// ListCars returns the fleet in creation order, restricted to ownerID when
// it is not empty.
func (r *AdminRepository) ListCars(ctx context.Context, ownerID string) ([]domain.Car, error) {
	const query = `
SELECT id, owner_id, make, model, plate, price_per_day, deposit_amount, delivery_fee, created_at
FROM cars
WHERE $1 = '' OR owner_id::text = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []domain.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, car)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate cars: %w", rows.Err())
	}
	return cars, nil
}
