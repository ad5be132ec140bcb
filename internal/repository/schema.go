package repository

// Schema creates the tables used by BookingRepo and ShowtimeRepo.  Applied
// by EnsureSchema at boot; statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS showtimes (
		id            BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		screen_id     BIGINT UNSIGNED NOT NULL,
		movie_ref     VARCHAR(128)    NOT NULL,
		starts_at     DATETIME        NOT NULL,
		seat_rows     INT             NOT NULL,
		seats_per_row INT             NOT NULL,
		price_cents   INT UNSIGNED    NOT NULL,
		status        ENUM('SCHEDULED','CANCELLED','FINISHED') NOT NULL DEFAULT 'SCHEDULED'
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              CHAR(36)        NOT NULL PRIMARY KEY,
		hold_id         CHAR(36)        NOT NULL UNIQUE,
		session_id      VARCHAR(64)     NOT NULL,
		showtime_id     BIGINT UNSIGNED NOT NULL,
		total_cents     INT UNSIGNED    NOT NULL,
		payment_method  VARCHAR(32)     NOT NULL,
		payment_status  ENUM('PENDING','CONFIRMED','FAILED','CANCELLED') NOT NULL,
		payment_outcome VARCHAR(16)     NOT NULL DEFAULT '',
		created_at      DATETIME(3)     NOT NULL,
		updated_at      DATETIME(3)     NOT NULL,
		INDEX idx_bookings_session (session_id, created_at),
		INDEX idx_bookings_status (payment_status)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id  CHAR(36)        NOT NULL,
		screen_id   BIGINT UNSIGNED NOT NULL,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_row    INT             NOT NULL,
		seat_index  INT             NOT NULL,
		PRIMARY KEY (booking_id, seat_row, seat_index),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	)`,
}
