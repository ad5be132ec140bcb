// Package queue_publisher implements the booking coordinator's
// notification sinks.  Publish errors are logged and returned so the
// caller can ignore them without interrupting the booking flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	q "github.com/iliyamo/cinema-booking-core/internal/queue"
)

// DefaultDialTimeout bounds connecting and the AMQP handshake when the
// caller's context carries no earlier deadline.
const DefaultDialTimeout = 5 * time.Second

// Publisher sends booking events to RabbitMQ, one durable queue per event
// type.  Each Publish opens its own connection, so a broker outage never
// leaves a stale channel behind.
type Publisher struct {
	url         string
	log         *zap.Logger
	DialTimeout time.Duration
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, l *zap.Logger) *Publisher {
	return &Publisher{url: url, log: logger.OrNop(l).Named("rabbitmq"), DialTimeout: DefaultDialTimeout}
}

// dial connects under ctx.  The deadline set here also covers the AMQP
// handshake; the library clears it once the connection is open.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			deadline := time.Now().Add(timeout)
			if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
				deadline = dl
			}
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev model.BookingEvent) error {
	queue, err := q.QueueFor(ev.Type)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.Error(err))
		return err
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(ev.Type) + ":" + ev.BookingID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("queue", queue), zap.String("booking_id", ev.BookingID))
	return nil
}

// LogNotifier writes every event to the structured log.  It is the
// default sink when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a LogNotifier writing to l.
func NewLogNotifier(l *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(l).Named("notify")}
}

func (n *LogNotifier) Publish(_ context.Context, ev model.BookingEvent) error {
	fields := []zap.Field{
		zap.String("type", string(ev.Type)),
		zap.String("booking_id", ev.BookingID),
		zap.String("session_id", ev.SessionID),
		zap.Uint64("showtime_id", ev.ShowtimeID),
		zap.Strings("seats", ev.SeatLabels),
		zap.Uint32("total_cents", ev.TotalCents),
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	if ev.Type == model.EventReconciliationRequired {
		n.log.Error("booking event", fields...)
		return nil
	}
	n.log.Info("booking event", fields...)
	return nil
}
