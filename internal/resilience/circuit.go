// Package resilience guards calls to upstream resolvers with a
// failure-ratio circuit breaker.
package resilience

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all calls and tracks failures.
	Closed State = iota
	// Open rejects calls until the cool-off period expires.
	Open
	// HalfOpen allows one probe to determine recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Options configure a Breaker. Zero values fall back to defaults.
type Options struct {
	// Target is the logical dependency name used in logs and metrics.
	Target string
	// MinRequests is the sample size required before the ratio is checked.
	MinRequests int
	// FailureRatio opens the breaker once exceeded. Defaults to 0.5.
	FailureRatio float64
	// OpenFor is the cool-off period. Defaults to 30s.
	OpenFor time.Duration
	Logger  zerolog.Logger
}

// Breaker is a failure-ratio circuit breaker.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	opts      Options
}

// NewBreaker constructs a breaker from opts.
func NewBreaker(opts Options) *Breaker {
	if opts.MinRequests <= 0 {
		opts.MinRequests = 1
	}
	if opts.FailureRatio <= 0 || opts.FailureRatio > 1 {
		opts.FailureRatio = 0.5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	if strings.TrimSpace(opts.Target) == "" {
		opts.Target = "default"
	}
	b := &Breaker{state: Closed, opts: opts}
	b.recordStateLocked()
	return b
}

// Do runs fn under the breaker. When the breaker is open it returns
// ErrOpenCircuit without invoking fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	b.report(err == nil)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if time.Since(b.openedAt) < b.opts.OpenFor {
			return false
		}
		b.changeStateLocked(HalfOpen)
	}
	return true
}

func (b *Breaker) report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.changeStateLocked(Closed)
		} else {
			b.changeStateLocked(Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}

	total := b.failures + b.successes
	if total < b.opts.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.opts.FailureRatio {
		b.changeStateLocked(Open)
	} else if total > b.opts.MinRequests*2 {
		// Halve counters so old outcomes age out of the ratio.
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

// CurrentState reports the breaker state, for tests and introspection.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) changeStateLocked(next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.failures = 0
	b.successes = 0
	b.recordStateLocked()
	b.recordTransition(prev, next)
}

func (b *Breaker) recordStateLocked() {
	BreakerState.WithLabelValues(b.opts.Target).Set(stateGaugeValue(b.state))
}

func (b *Breaker) recordTransition(from, to State) {
	BreakerTransitions.WithLabelValues(b.opts.Target, from.String(), to.String()).Inc()
	if to == Open {
		BreakerOpenedTotal.WithLabelValues(b.opts.Target).Inc()
	}
	b.opts.Logger.Info().
		Str("target", b.opts.Target).
		Str("from_state", from.String()).
		Str("to_state", to.String()).
		Msg("breaker transition")
}

func stateGaugeValue(state State) float64 {
	switch state {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}
