package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

type recorder struct {
	mu       sync.Mutex
	outcomes map[string]model.PaymentOutcome
}

func (r *recorder) record(_ context.Context, id string, o model.PaymentOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]model.PaymentOutcome{}
	}
	r.outcomes[id] = o
}

func (r *recorder) get(id string) (model.PaymentOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[id]
	return o, ok
}

func TestMockProviderReportsSuccess(t *testing.T) {
	rec := &recorder{}
	p := NewMockProvider(MockConfig{SuccessRate: 1, Delay: 5 * time.Millisecond}, nil)
	p.OnResult(rec.record)
	defer p.Close()

	require.NoError(t, p.Submit(context.Background(), Intent{BookingID: "b1", Method: "card", AmountCents: 1500}))
	assert.Eventually(t, func() bool {
		o, ok := rec.get("b1")
		return ok && o == model.OutcomeSuccess
	}, time.Second, 5*time.Millisecond)
}

func TestMockProviderReportsFailure(t *testing.T) {
	rec := &recorder{}
	p := NewMockProvider(MockConfig{SuccessRate: 0}, nil)
	p.OnResult(rec.record)
	defer p.Close()

	require.NoError(t, p.Submit(context.Background(), Intent{BookingID: "b2", Method: "card"}))
	assert.Eventually(t, func() bool {
		o, ok := rec.get("b2")
		return ok && o == model.OutcomeFailure
	}, time.Second, 5*time.Millisecond)
}

func TestMockProviderDropsOutcome(t *testing.T) {
	rec := &recorder{}
	p := NewMockProvider(MockConfig{SuccessRate: 1, DropRate: 1}, nil)
	p.OnResult(rec.record)

	require.NoError(t, p.Submit(context.Background(), Intent{BookingID: "b3", Method: "card"}))
	time.Sleep(20 * time.Millisecond)
	p.Close()
	_, ok := rec.get("b3")
	assert.False(t, ok)
}

func TestMockProviderValidatesIntent(t *testing.T) {
	p := NewMockProvider(DefaultMockConfig(), nil)
	defer p.Close()
	assert.Error(t, p.Submit(context.Background(), Intent{Method: "card"}))
	assert.Error(t, p.Submit(context.Background(), Intent{BookingID: "b"}))
}

func TestMockProviderClosed(t *testing.T) {
	p := NewMockProvider(MockConfig{SuccessRate: 1.5, DropRate: -1}, nil)
	assert.Equal(t, 1.0, p.cfg.SuccessRate)
	assert.Equal(t, 0.0, p.cfg.DropRate)
	p.Close()
	p.Close()
	assert.Error(t, p.Submit(context.Background(), Intent{BookingID: "b", Method: "card"}))
}
