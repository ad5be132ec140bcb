package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// MockConfig holds configuration for the mock provider.
type MockConfig struct {
	// SuccessRate is the probability of a successful payment (0.0 to 1.0).
	SuccessRate float64
	// DropRate is the probability that the provider never answers, which
	// exercises the booking coordinator's payment timeout.
	DropRate float64
	// Delay is the simulated processing time before the outcome is reported.
	Delay time.Duration
}

// DefaultMockConfig returns the default mock behaviour.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		SuccessRate: 0.95,
		Delay:       2 * time.Second,
	}
}

// MockProvider simulates an asynchronous payment provider for local runs
// and tests.  Outcomes are delivered to the ResultFunc set with OnResult.
type MockProvider struct {
	cfg MockConfig
	log *zap.Logger

	mu       sync.Mutex
	onResult ResultFunc
	rnd      *rand.Rand
	stop     chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewMockProvider clamps rates into [0,1] and returns the provider.
func NewMockProvider(cfg MockConfig, l *zap.Logger) *MockProvider {
	cfg.SuccessRate = clamp(cfg.SuccessRate)
	cfg.DropRate = clamp(cfg.DropRate)
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &MockProvider{
		cfg:  cfg,
		log:  logger.OrNop(l),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
		stop: make(chan struct{}),
	}
}

// OnResult registers the callback that receives outcomes.
func (p *MockProvider) OnResult(fn ResultFunc) {
	p.mu.Lock()
	p.onResult = fn
	p.mu.Unlock()
}

// Submit accepts an intent and reports its outcome after the configured delay.
func (p *MockProvider) Submit(ctx context.Context, in Intent) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("mock provider: %w", err)
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("mock provider: closed")
	}
	fn := p.onResult
	roll := p.rnd.Float64()
	drop := p.rnd.Float64() < p.cfg.DropRate
	p.wg.Add(1)
	p.mu.Unlock()

	outcome := model.OutcomeFailure
	if roll < p.cfg.SuccessRate {
		outcome = model.OutcomeSuccess
	}
	p.log.Debug("mock payment accepted",
		zap.String("booking_id", in.BookingID),
		zap.Uint32("amount_cents", in.AmountCents),
		zap.String("planned_outcome", string(outcome)),
		zap.Bool("dropped", drop))

	go func() {
		defer p.wg.Done()
		select {
		case <-p.stop:
			return
		case <-time.After(p.cfg.Delay):
		}
		if drop || fn == nil {
			return
		}
		fn(context.Background(), in.BookingID, outcome)
	}()
	return nil
}

// Close stops pending deliveries and waits for them to exit.
func (p *MockProvider) Close() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
