package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// maxBackoff bounds a single retry delay.
const maxBackoff = 10 * time.Second

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single trial request through to test recovery.
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

func (s State) gauge() float64 {
	switch s {
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

// Breaker guards one outbound dependency, such as the Zemen backend or
// Stripe. It keeps the outcomes of the most recent calls in a ring and opens
// once the failure share of a full enough window reaches the threshold.
type Breaker struct {
	mu           sync.Mutex
	state        State
	outcomes     []bool
	next         int
	filled       int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	trialing     bool
	target       string
	logger       *zerolog.Logger
}

// NewBreaker constructs a breaker that needs at least minRequests outcomes
// before the failure ratio is evaluated. The window holds twice that many.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		outcomes:     make([]bool, minRequests*2),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
	}
}

// Allow reports whether a call may proceed. After the cool-off an open
// breaker admits exactly one trial request; everyone else keeps failing fast
// until the trial reports back.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.openFor {
			return false
		}
		b.changeStateLocked(ctx, HalfOpen)
		b.trialing = true
		return true
	case HalfOpen:
		if b.trialing {
			return false
		}
		b.trialing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an allowed call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.trialing = false
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	b.outcomes[b.next] = success
	b.next = (b.next + 1) % len(b.outcomes)
	if b.filled < len(b.outcomes) {
		b.filled++
	}
	if b.filled < b.minRequests {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if !b.outcomes[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.failureRatio {
		b.changeStateLocked(ctx, Open)
	}
}

// Release gives back an allowed call that ended without a verdict, such as
// one cancelled by its caller. It counts as neither success nor failure.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.trialing = false
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.openedAt) >= b.openFor {
		return HalfOpen
	}
	return b.state
}

// WithTarget names the dependency in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.recordStateLocked()
	return b
}

// WithLogger sets the fallback logger for transitions.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

func (b *Breaker) changeStateLocked(ctx context.Context, to State) {
	from := b.state
	if from == to {
		b.recordStateLocked()
		return
	}
	b.state = to
	switch to {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.next, b.filled = 0, 0
	b.recordStateLocked()

	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, from.String(), to.String()).Inc()
	}
	if to == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.loggerFor(ctx).Info().Str("target", label).Str("from_state", from.String()).Str("to_state", to.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.targetLabel()).Set(b.state.gauge())
	}
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}

// Backoff returns the exponential delay before retry attempt+1, capped at
// ten seconds. jitterPct spreads it by that fraction in either direction.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
