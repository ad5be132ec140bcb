package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

const mysqlDuplicateEntry = 1062

// BookingRepo stores bookings in MySQL.  Seats booked under a booking live
// in booking_seats.  All timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const bookingColumns = `id, hold_id, session_id, showtime_id, total_cents, payment_method,
	payment_status, payment_outcome, created_at, updated_at`

// Create inserts the booking and its seats in one transaction.  A second
// booking for the same hold or ID returns ErrConflict.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.HoldID, b.SessionID, b.ShowtimeID, b.TotalCents, b.PaymentMethod,
		string(b.PaymentStatus), string(b.PaymentOutcome), b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return fmt.Errorf("booking %s: %w", b.ID, ErrConflict)
		}
		return err
	}
	if err := insertSeatsTx(ctx, tx, b.ID, b.Seats); err != nil {
		return err
	}
	return tx.Commit()
}

// insertSeatsTx writes every seat in a single multi-row INSERT.
func insertSeatsTx(ctx context.Context, tx *sql.Tx, bookingID string, seats []model.SeatID) error {
	if len(seats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO booking_seats (booking_id, screen_id, showtime_id, seat_row, seat_index) VALUES `)
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, bookingID, s.ScreenID, s.ShowtimeID, s.Row, s.Index)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// Get loads one booking with its seats.
func (r *BookingRepo) Get(ctx context.Context, id string) (model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, model.ErrBookingNotFound)
	}
	if err != nil {
		return model.Booking{}, err
	}
	seats, err := r.seats(ctx, []string{b.ID})
	if err != nil {
		return model.Booking{}, err
	}
	b.Seats = seats[b.ID]
	return b, nil
}

// CompareAndSetStatus moves the booking from one status to another only if
// its stored status still equals from.  A non-empty outcome is recorded.
func (r *BookingRepo) CompareAndSetStatus(ctx context.Context, id string, from, to model.PaymentStatus, outcome model.PaymentOutcome, at time.Time) (bool, error) {
	const q = `UPDATE bookings
	           SET payment_status = ?, payment_outcome = COALESCE(NULLIF(?, ''), payment_outcome), updated_at = ?
	           WHERE id = ? AND payment_status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), string(outcome), at.UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListBySession returns a session's bookings, newest first.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE session_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, sessionID)
}

// ListByStatus returns every booking in the given status, oldest first.
func (r *BookingRepo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_status = ? ORDER BY created_at ASC`
	return r.list(ctx, q, string(status))
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	var ids []string
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Booking{}, nil
	}
	seats, err := r.seats(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = seats[out[i].ID]
	}
	return out, nil
}

// seats loads the seats of the given bookings keyed by booking ID.
func (r *BookingRepo) seats(ctx context.Context, bookingIDs []string) (map[string][]model.SeatID, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookingIDs)), ",")
	q := `SELECT booking_id, screen_id, showtime_id, seat_row, seat_index
	      FROM booking_seats WHERE booking_id IN (` + placeholders + `)
	      ORDER BY booking_id, seat_row, seat_index`
	args := make([]interface{}, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.SeatID, len(bookingIDs))
	for rows.Next() {
		var bookingID string
		var s model.SeatID
		if err := rows.Scan(&bookingID, &s.ScreenID, &s.ShowtimeID, &s.Row, &s.Index); err != nil {
			return nil, err
		}
		out[bookingID] = append(out[bookingID], s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	var status, outcome string
	err := row.Scan(&b.ID, &b.HoldID, &b.SessionID, &b.ShowtimeID, &b.TotalCents, &b.PaymentMethod,
		&status, &outcome, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.PaymentStatus = model.PaymentStatus(status)
	b.PaymentOutcome = model.PaymentOutcome(outcome)
	return b, nil
}
