package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/booking"
	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/database"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/hold"
	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/payment"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
	"github.com/iliyamo/cinema-booking-core/internal/router"
	"github.com/iliyamo/cinema-booking-core/internal/seatmap"
	queue_publisher "github.com/iliyamo/cinema-booking-core/internal/service"
)

// demoShowtime is registered when DEMO_SHOWTIME is on.
var demoShowtime = model.Showtime{
	ID:          1,
	ScreenID:    1,
	MovieRef:    "demo",
	Rows:        8,
	SeatsPerRow: 12,
	PriceCents:  1200,
}

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	l, err := logger.New(cfg.Env, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seats := seatmap.NewStore()

	// booking store and showtimes
	var store booking.Store
	switch cfg.BookingStore {
	case config.StoreMySQL:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("mysql: %w", err)
		}
		defer db.Close()
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return err
		}
		showtimes := repository.NewShowtimeRepo(db)
		if cfg.DemoShowtime {
			st := demoShowtime
			st.StartsAt = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
			if err := showtimes.Upsert(ctx, st); err != nil {
				return fmt.Errorf("seed showtime: %w", err)
			}
		}
		list, err := showtimes.ListScheduled(ctx)
		if err != nil {
			return fmt.Errorf("load showtimes: %w", err)
		}
		for _, st := range list {
			if err := seats.RegisterShowtime(st); err != nil {
				l.Warn("skipping showtime", zap.Uint64("showtime_id", st.ID), zap.Error(err))
			}
		}
		store = repository.NewBookingRepo(db)
	default:
		if cfg.DemoShowtime {
			st := demoShowtime
			st.StartsAt = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
			if err := seats.RegisterShowtime(st); err != nil {
				return err
			}
		}
		store = repository.NewMemoryBookingStore()
	}
	l.Info("seat map ready", zap.Int("showtimes", len(seats.Showtimes())))

	// redis: required for the durable expiry index, optional for rate limiting
	var rdb *redis.Client
	if c, err := config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		if cfg.ExpiryIndex == config.IndexRedis {
			return err
		}
		l.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		rdb = c
		defer rdb.Close()
	}

	// hold manager
	var index hold.ExpiryIndex = hold.NewMemoryIndex()
	if cfg.ExpiryIndex == config.IndexRedis {
		index = hold.NewRedisIndex(rdb, "", cfg.InstanceID)
	}
	holds := hold.NewManager(seats, hold.Config{
		TTL:           cfg.Hold.TTL,
		SweepInterval: cfg.Hold.SweepInterval,
		Retention:     cfg.Hold.Retention,
	}, hold.WithIndex(index), hold.WithLogger(l.Named("hold")))
	if err := holds.Recover(ctx); err != nil {
		l.Warn("expiry index recovery failed", zap.Error(err))
	}
	go holds.Run(ctx)

	// notification sink
	var notifier booking.Notifier = queue_publisher.NewLogNotifier(l)
	if cfg.Notify.Driver == config.NotifyRabbitMQ {
		notifier = queue_publisher.NewPublisher(cfg.Notify.RabbitURL, l)
	}
	if cfg.Notify.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Notify.RabbitURL, cfg.Notify.LogDir, l)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	// coordinator and payment provider
	opts := []booking.Option{booking.WithNotifier(notifier), booking.WithLogger(l.Named("booking"))}
	var mock *payment.MockProvider
	if cfg.Payment.Provider == config.ProviderMock {
		mock = payment.NewMockProvider(payment.MockConfig{
			SuccessRate: cfg.Payment.MockSuccessRate,
			DropRate:    cfg.Payment.MockDropRate,
			Delay:       cfg.Payment.MockDelay,
		}, l.Named("payment"))
		opts = append(opts, booking.WithProvider(mock))
	}
	coord := booking.NewCoordinator(holds, seats, store, booking.Config{
		PaymentTimeout: cfg.Payment.Timeout,
		Currency:       cfg.Payment.Currency,
	}, opts...)
	defer coord.Close()
	if mock != nil {
		mock.OnResult(func(ctx context.Context, id string, o model.PaymentOutcome) {
			if _, err := coord.OnPaymentResult(ctx, id, o); err != nil {
				l.Warn("mock payment result not applied", zap.String("booking_id", id), zap.Error(err))
			}
		})
		defer mock.Close()
	}
	rep, err := coord.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover bookings: %w", err)
	}
	l.Info("bookings recovered", zap.Int("rebooked", rep.Rebooked), zap.Int("failed", rep.Failed))

	// http
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID(), middleware.AccessLog(l.Named("http")))

	var limiter redis.Scripter
	if rdb != nil {
		limiter = rdb
	}
	router.Register(e, router.Handlers{
		Health:   &handler.HealthHandler{Holds: holds},
		Session:  &handler.SessionHandler{Secret: cfg.JWTSecret, TTL: cfg.SessionTTL},
		Seats:    &handler.SeatHandler{Seats: seats},
		Holds:    &handler.HoldHandler{Seats: seats, Holds: holds},
		Bookings: &handler.BookingHandler{Coord: coord},
		Payments: &handler.PaymentHandler{Coord: coord, Secret: cfg.Payment.WebhookSecret},
	}, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), limiter, l))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		l.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
