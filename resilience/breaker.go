package resilience

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout" yaml:"recovery_timeout"`
	HalfOpenAttempts int           `json:"half_open_attempts" yaml:"half_open_attempts"`
}

// DefaultBreakerConfig returns the stock breaker parameters.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenAttempts: 1,
	}
}

// CircuitBreaker prevents repeated calls to a persistently failing
// operation. Closed passes calls through; open rejects immediately until
// the recovery timeout elapses; half-open admits trial calls, closing on
// success and reopening on failure.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	state             string
	failures          int
	lastFailure       time.Time
	halfOpenSuccesses int

	now func() time.Time
}

// NewCircuitBreaker builds a closed breaker; zero-valued config fields use
// the defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.HalfOpenAttempts == 0 {
		cfg.HalfOpenAttempts = def.HalfOpenAttempts
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Do executes op through the breaker. While open it returns ErrCircuitOpen
// without invoking op.
func (cb *CircuitBreaker) Do(op func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := op()
	cb.after(err)
	return err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker back to closed with a clear failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) > cb.cfg.RecoveryTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenSuccesses = 0
			return nil
		}
		return ErrCircuitOpen
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.cfg.HalfOpenAttempts {
			cb.state = StateClosed
			cb.failures = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}
