package errors

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState is the position of a breaker guarding a game store
type CircuitBreakerState int

const (
	// CircuitBreakerClosed lets every call through
	CircuitBreakerClosed CircuitBreakerState = iota
	// CircuitBreakerOpen rejects calls until the reset timeout elapses
	CircuitBreakerOpen
	// CircuitBreakerHalfOpen lets trial calls through
	CircuitBreakerHalfOpen
)

var stateNames = map[CircuitBreakerState]string{
	CircuitBreakerClosed:   "CLOSED",
	CircuitBreakerOpen:     "OPEN",
	CircuitBreakerHalfOpen: "HALF_OPEN",
}

func (s CircuitBreakerState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// CircuitBreakerConfig tunes when a breaker trips and recovers
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open a closed breaker
	MaxFailures int
	// ResetTimeout is measured from the most recent failure
	ResetTimeout time.Duration
	// SuccessThreshold consecutive trial successes close a half-open breaker
	SuccessThreshold int
}

// DefaultCircuitBreakerConfig is the tuning used for the game stores
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 3,
	}
}

// CircuitBreaker stops calling a failing backend until it has had time to
// recover. Only errors accepted by the failure classifier count, so a
// "game not found" answer does not trip the breaker guarding a healthy store.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu          sync.RWMutex
	state       CircuitBreakerState
	failures    int
	successes   int
	lastFailure time.Time
	isFailure   func(error) bool
	onChange    func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker returns a closed breaker that counts every non-nil error
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:       cfg,
		now:       time.Now,
		isFailure: func(err error) bool { return err != nil },
	}
}

// SetFailureClassifier replaces the predicate deciding which errors count
func (cb *CircuitBreaker) SetFailureClassifier(isFailure func(error) bool) {
	cb.mu.Lock()
	cb.isFailure = isFailure
	cb.mu.Unlock()
}

// SetStateChangeCallback registers a listener for transitions. It runs on
// its own goroutine.
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(name string, from, to CircuitBreakerState)) {
	cb.mu.Lock()
	cb.onChange = callback
	cb.mu.Unlock()
}

// Execute runs fn unless the breaker is open. A cancelled ctx is returned
// as is and not recorded.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state, ok := cb.admit(); !ok {
		return NewStorageError(ErrCodeCircuitOpen,
			fmt.Sprintf("Circuit breaker '%s' is open", cb.cfg.Name), nil).
			WithContext("circuit_breaker", cb.cfg.Name).
			WithContext("state", state.String())
	}

	err := fn(ctx)
	cb.observe(err)
	return err
}

func (cb *CircuitBreaker) admit() (CircuitBreakerState, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitBreakerOpen && cb.now().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout {
		cb.transition(CircuitBreakerHalfOpen)
	}
	return cb.state, cb.state != CircuitBreakerOpen
}

func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isFailure(err) {
		cb.successes++
		switch {
		case cb.state == CircuitBreakerClosed:
			cb.failures = 0
		case cb.state == CircuitBreakerHalfOpen && cb.successes >= cb.cfg.SuccessThreshold:
			cb.failures, cb.successes = 0, 0
			cb.transition(CircuitBreakerClosed)
		}
		return
	}

	cb.failures++
	cb.successes = 0
	cb.lastFailure = cb.now()
	if cb.state == CircuitBreakerHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.transition(CircuitBreakerOpen)
	}
}

// transition requires cb.mu
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onChange != nil {
		go cb.onChange(cb.cfg.Name, from, to)
	}
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats snapshots the breaker for health and performance reports
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return CircuitBreakerStats{
		Name:            cb.cfg.Name,
		State:           cb.state.String(),
		FailureCount:    cb.failures,
		SuccessCount:    cb.successes,
		LastFailureTime: cb.lastFailure,
	}
}

// CircuitBreakerStats is the serialisable view of a breaker
type CircuitBreakerStats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failureCount"`
	SuccessCount    int       `json:"successCount"`
	LastFailureTime time.Time `json:"lastFailureTime"`
}

// IsHealthy reports whether the breaker is closed
func (stats CircuitBreakerStats) IsHealthy() bool {
	return stats.State == CircuitBreakerClosed.String()
}
