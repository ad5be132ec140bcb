// Package repository persists bookings and showtimes.  The MySQL
// repositories back production; MemoryBookingStore serves local runs and
// tests.  Lookups of missing rows return the model package's not-found
// errors so handlers can map them without knowing the backend.
package repository

import "errors"

// ErrConflict is returned when an insert collides with an existing row,
// such as a second booking for the same hold.
var ErrConflict = errors.New("conflict")
