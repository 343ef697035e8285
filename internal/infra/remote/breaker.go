package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/swapmatch/internal/metrics"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	StateClosed   BreakerState = iota // Calls pass through normally
	StateOpen                         // Calls are rejected without being attempted
	StateHalfOpen                     // A single probe call is in flight
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig defines circuit breaker behavior.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// DefaultBreakerConfig provides sensible defaults.
var DefaultBreakerConfig = BreakerConfig{
	FailureThreshold: 5,
	ResetTimeout:     60 * time.Second,
}

// Breaker is a circuit breaker guarding a single dependency.
//
// Closed counts consecutive failures and trips open at the threshold. Open
// rejects calls until the reset timeout elapses, then the first arriving call
// becomes the half-open probe; calls racing the probe are rejected as if
// open. The probe's outcome alone decides whether the breaker closes or
// re-opens.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultBreakerConfig.ResetTimeout
	}

	b := &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// Do runs op through the breaker. When the breaker rejects the call, op is
// never invoked and ErrCircuitOpen is returned.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	probe, err := b.allow()
	if err != nil {
		return err
	}

	opErr := op(ctx)
	b.record(probe, opErr)
	return opErr
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) <= b.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		// Reset timeout elapsed. This call becomes the probe.
		b.setState(StateHalfOpen)
		b.probing = true
		return true, nil

	case StateHalfOpen:
		if b.probing {
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}

	return false, nil
}

func (b *Breaker) record(probe bool, opErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A call admitted before the breaker tripped may finish after the trip.
	// Once the breaker has left closed, only the probe's result moves the
	// state.
	if b.state != StateClosed && !probe {
		return
	}

	if opErr == nil {
		b.failures = 0
		b.probing = false
		if b.state != StateClosed {
			b.setState(StateClosed)
		}
		return
	}

	metrics.CircuitBreakerFailures.WithLabelValues(b.name).Inc()

	if b.state == StateHalfOpen {
		b.probing = false
		b.openedAt = b.now()
		b.setState(StateOpen)
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

// setState must be called with the mutex held.
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	metrics.CircuitBreakerState.WithLabelValues(b.name).Set(float64(to))
	slog.Info("Circuit breaker state change",
		"dependency", b.name, "from", from.String(), "to", to.String())
}
