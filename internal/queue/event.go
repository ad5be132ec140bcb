// Package queue defines the broker payloads for booking events and the
// background consumer that turns them into an audit log.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Queue names, one durable queue per event type.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingFailed    = "booking.failed"
	QueueBookingCancelled = "booking.cancelled"
	QueueReconciliation   = "booking.reconciliation"
)

// Queues lists every queue the consumer reads.
var Queues = []string{QueueBookingConfirmed, QueueBookingFailed, QueueBookingCancelled, QueueReconciliation}

// QueueFor returns the routing key for an event type.
func QueueFor(t model.EventType) (string, error) {
	switch t {
	case model.EventBookingConfirmed:
		return QueueBookingConfirmed, nil
	case model.EventBookingFailed:
		return QueueBookingFailed, nil
	case model.EventBookingCancelled:
		return QueueBookingCancelled, nil
	case model.EventReconciliationRequired:
		return QueueReconciliation, nil
	}
	return "", fmt.Errorf("no queue for event type %q", t)
}

// Decode parses a message body.
func Decode(body []byte) (model.BookingEvent, error) {
	var ev model.BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == "" {
		return ev, fmt.Errorf("event missing type or booking id")
	}
	return ev, nil
}

// FormatLine renders an event as one audit log line.
func FormatLine(ev model.BookingEvent) string {
	seats := "[]"
	if len(ev.SeatLabels) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.SeatLabels, ","))
	}
	line := fmt.Sprintf("[%s] %s | booking_id=%s | session_id=%s | showtime_id=%d | total=%d cents | seats=%s",
		ev.OccurredAt.UTC().Format("2006-01-02 15:04:05"), ev.Type, ev.BookingID, ev.SessionID,
		ev.ShowtimeID, ev.TotalCents, seats)
	if ev.Reason != "" {
		line += fmt.Sprintf(" | reason=%q", ev.Reason)
	}
	return line + "\n"
}
