package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// blockingStatuses hold the car for their dates.
var blockingStatuses = []string{
	string(domain.StatusPendingOwner),
	string(domain.StatusWaitingPayment),
	string(domain.StatusConfirmed),
	string(domain.StatusInProgress),
}

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetCar(ctx context.Context, carID string) (domain.Car, error) {
	const query = `
SELECT id, owner_id, make, model, plate, price_per_day, deposit_amount, delivery_fee, created_at
FROM cars
WHERE id = $1`

	car, err := scanCar(r.queryRow(ctx, query, carID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Car{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Car{}, domain.ErrCarNotFound
		}
		return domain.Car{}, fmt.Errorf("get car: %w", err)
	}
	return car, nil
}

func (r *BookingRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	const query = `SELECT id, name, email, phone FROM users WHERE id = $1`

	var u domain.User
	err := r.queryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Email, &u.Phone)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// HasOverlappingBooking reports whether a live booking holds the car on any
// day of [start, end). The car row is locked first so two requests for the
// same dates serialize.
func (r *BookingRepository) HasOverlappingBooking(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if txFromContext(ctx) != nil {
		if _, err := r.exec(ctx, `SELECT 1 FROM cars WHERE id = $1 FOR UPDATE`, carID); err != nil {
			return false, fmt.Errorf("lock car: %w", err)
		}
	}

	const query = `
SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE car_id = $1
	  AND status = ANY($2)
	  AND start_date < $4
	  AND end_date > $3
)`

	var taken bool
	if err := r.queryRow(ctx, query, carID, blockingStatuses, start, end).Scan(&taken); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return taken, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, car_id, client_id, owner_id, status, start_date, end_date,
	owner_response_deadline, payment_deadline,
	price_per_day, total_price, deposit_amount, delivery_fee,
	online_payment_amount, owner_payment_amount,
	delivery_code, delivery_code_used_at, payment_id, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.exec(ctx, stmt,
		b.ID, b.Car.ID, b.Client.ID, b.Owner.ID, string(b.Status), b.StartDate, b.EndDate,
		b.OwnerResponseDeadline, b.PaymentDeadline,
		int64(b.PricePerDay), int64(b.TotalPrice), int64(b.DepositAmount), int64(b.DeliveryFee),
		int64(b.OnlinePaymentAmount), int64(b.OwnerPaymentAmount),
		nullString(b.DeliveryCode), b.DeliveryCodeUsedAt, nullString(b.PaymentID), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCarNotFound
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

const selectBooking = `
SELECT b.id, b.status, b.start_date, b.end_date,
	b.owner_response_deadline, b.payment_deadline,
	b.price_per_day, b.total_price, b.deposit_amount, b.delivery_fee,
	b.online_payment_amount, b.owner_payment_amount,
	COALESCE(b.delivery_code, ''), b.delivery_code_used_at, COALESCE(b.payment_id, ''),
	b.created_at, b.updated_at,
	c.id, c.owner_id, c.make, c.model, c.plate, c.price_per_day, c.deposit_amount, c.delivery_fee, c.created_at,
	cl.id, cl.name, cl.email, cl.phone,
	o.id, o.name, o.email, o.phone
FROM bookings b
JOIN cars c ON c.id = b.car_id
JOIN users cl ON cl.id = b.client_id
JOIN users o ON o.id = b.owner_id
WHERE b.id = $1`

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return r.getBooking(ctx, selectBooking, id)
}

// GetBookingForUpdate locks the booking row until the surrounding
// transaction ends.
func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	return r.getBooking(ctx, selectBooking+"\nFOR UPDATE OF b", id)
}

func (r *BookingRepository) getBooking(ctx context.Context, query, id string) (domain.Booking, error) {
	b, err := scanBooking(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBooking persists the mutable lifecycle columns. Prices and parties
// never change after creation.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
UPDATE bookings SET
	status = $2,
	owner_response_deadline = $3,
	payment_deadline = $4,
	delivery_code = $5,
	delivery_code_used_at = $6,
	payment_id = $7,
	updated_at = $8
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		b.ID, string(b.Status), b.OwnerResponseDeadline, b.PaymentDeadline,
		nullString(b.DeliveryCode), b.DeliveryCodeUsedAt, nullString(b.PaymentID), b.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrPaymentAlreadySettled
		}
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// ListOverdueBookingIDs returns bookings whose active deadline is strictly
// before now, oldest deadline first.
func (r *BookingRepository) ListOverdueBookingIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT id FROM (
	SELECT id, owner_response_deadline AS deadline FROM bookings
	WHERE status = 'pending_owner' AND owner_response_deadline < $1
	UNION ALL
	SELECT id, payment_deadline AS deadline FROM bookings
	WHERE status = 'waiting_payment' AND payment_deadline < $1
) overdue
ORDER BY deadline ASC
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue bookings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan overdue booking: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate overdue bookings: %w", rows.Err())
	}
	return ids, nil
}

func (r *BookingRepository) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	const stmt = `
INSERT INTO invoices (id, booking_id, amount, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, inv.ID, inv.BookingID, int64(inv.Amount), inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentAlreadySettled
		}
		if isForeignKeyViolation(err) {
			return domain.ErrBookingNotFound
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetInvoiceByBooking(ctx context.Context, bookingID string) (*domain.Invoice, error) {
	const query = `SELECT id, booking_id, amount, created_at FROM invoices WHERE booking_id = $1`

	var (
		inv    domain.Invoice
		amount int64
	)
	err := r.queryRow(ctx, query, bookingID).Scan(&inv.ID, &inv.BookingID, &amount, &inv.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Amount = domain.Money(amount)
	return &inv, nil
}

func (r *BookingRepository) GetReviewByBooking(ctx context.Context, bookingID string) (*domain.Review, error) {
	const query = `
SELECT id, booking_id, client_id, rating, comment, created_at
FROM reviews
WHERE booking_id = $1`

	var rv domain.Review
	err := r.queryRow(ctx, query, bookingID).
		Scan(&rv.ID, &rv.BookingID, &rv.ClientID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

func (r *BookingRepository) CreateReview(ctx context.Context, rv domain.Review) error {
	const stmt = `
INSERT INTO reviews (id, booking_id, client_id, rating, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, rv.ID, rv.BookingID, rv.ClientID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReviewExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrBookingNotFound
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func scanCar(row pgx.Row) (domain.Car, error) {
	var (
		c                   domain.Car
		price, deposit, fee int64
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Make, &c.Model, &c.Plate, &price, &deposit, &fee, &c.CreatedAt)
	if err != nil {
		return domain.Car{}, err
	}
	c.PricePerDay, c.DepositAmount, c.DeliveryFee = domain.Money(price), domain.Money(deposit), domain.Money(fee)
	return c, nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b                                         domain.Booking
		status                                    string
		price, total, deposit, fee, online, owner int64
		carPrice, carDeposit, carFee              int64
	)
	err := row.Scan(
		&b.ID, &status, &b.StartDate, &b.EndDate,
		&b.OwnerResponseDeadline, &b.PaymentDeadline,
		&price, &total, &deposit, &fee, &online, &owner,
		&b.DeliveryCode, &b.DeliveryCodeUsedAt, &b.PaymentID,
		&b.CreatedAt, &b.UpdatedAt,
		&b.Car.ID, &b.Car.OwnerID, &b.Car.Make, &b.Car.Model, &b.Car.Plate,
		&carPrice, &carDeposit, &carFee, &b.Car.CreatedAt,
		&b.Client.ID, &b.Client.Name, &b.Client.Email, &b.Client.Phone,
		&b.Owner.ID, &b.Owner.Name, &b.Owner.Email, &b.Owner.Phone,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.Status(status)
	b.PricePerDay, b.TotalPrice = domain.Money(price), domain.Money(total)
	b.DepositAmount, b.DeliveryFee = domain.Money(deposit), domain.Money(fee)
	b.OnlinePaymentAmount, b.OwnerPaymentAmount = domain.Money(online), domain.Money(owner)
	b.Car.PricePerDay, b.Car.DepositAmount, b.Car.DeliveryFee = domain.Money(carPrice), domain.Money(carDeposit), domain.Money(carFee)
	b.StartDate, b.EndDate = b.StartDate.UTC(), b.EndDate.UTC()
	return b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
