package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// ShowtimeRepo reads the showtimes the seat map is built from.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a ShowtimeRepo bound to db.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, screen_id, movie_ref, starts_at, seat_rows, seats_per_row, price_cents`

// ListScheduled returns every showtime still open for sale, earliest first.
func (r *ShowtimeRepo) ListScheduled(ctx context.Context) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE status = 'SCHEDULED' ORDER BY starts_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Showtime
	for rows.Next() {
		st, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetByID returns one showtime regardless of status.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
	st, err := scanShowtime(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Showtime{}, fmt.Errorf("showtime %d: %w", id, model.ErrUnknownShowtime)
	}
	return st, err
}

// Upsert inserts or replaces a showtime.  Used to seed local databases.
func (r *ShowtimeRepo) Upsert(ctx context.Context, st model.Showtime) error {
	const q = `INSERT INTO showtimes (` + showtimeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE screen_id = VALUES(screen_id), movie_ref = VALUES(movie_ref),
	           starts_at = VALUES(starts_at), seat_rows = VALUES(seat_rows),
	           seats_per_row = VALUES(seats_per_row), price_cents = VALUES(price_cents)`
	_, err := r.db.ExecContext(ctx, q, st.ID, st.ScreenID, st.MovieRef, st.StartsAt.UTC(),
		st.Rows, st.SeatsPerRow, st.PriceCents)
	return err
}

func scanShowtime(row rowScanner) (model.Showtime, error) {
	var st model.Showtime
	err := row.Scan(&st.ID, &st.ScreenID, &st.MovieRef, &st.StartsAt, &st.Rows, &st.SeatsPerRow, &st.PriceCents)
	return st, err
}
