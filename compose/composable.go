package compose

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/glimte/weft-go/dispatch"
)

type state int

const (
	statePending state = iota
	stateSucceeded
	stateFailed
)

// Option configures a composable at construction.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for dropped and unhandled errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// FailureTarget receives a propagated failure from an upstream
// composable. Only composables in this package implement it.
type FailureTarget interface {
	acceptFailure(err error)
}

// Composable is the surface merge requires from a fan-in source.
// *Promise[T] and *Stream[T] both implement it.
type Composable[T any] interface {
	Consume(fn func(T))
	ForwardError(target FailureTarget)
}

// Deferred is implemented by sources that buffer their input until
// explicitly released. Merge releases deferred sources only after all
// fan-in wiring is in place.
type Deferred interface {
	Release()
}

// ErrorSource accepts error handler registrations. Used by the generic
// WhenAs helper.
type ErrorSource interface {
	When(match func(error) bool, fn func(error))
}

// Relation records. Handlers and forward links are stored as records
// with opaque handles rather than as bare closures, and are dropped
// explicitly on teardown.
type consumerRecord[T any] struct {
	id string
	fn func(T)
}

type errorRecord struct {
	id    string
	match func(error) bool
	fn    func(error)
}

type forwardRecord struct {
	id     string
	target FailureTarget
}

// core is the shared composable state machine. Promise and Stream are
// its two acceptance policies: expected=1 terminal completion, and
// expected=N per-accept accumulation.
type core[T any] struct {
	mu     sync.Mutex
	obs    dispatch.Observable
	id     string
	logger *slog.Logger

	// acceptance policy
	expected  int
	perAccept bool

	accepted int
	st       state
	value    T
	err      error
	acc      []T

	consumers []consumerRecord[T]
	handlers  []errorRecord
	forwards  []forwardRecord
	onFull    []func([]T)

	errReg dispatch.Registration
}

func (c *core[T]) init(obs dispatch.Observable, expected int, perAccept bool, opts ...Option) {
	cfg := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	c.obs = obs
	c.id = uuid.NewString()
	c.logger = cfg.logger
	c.expected = expected
	c.perAccept = perAccept
}

// ID returns the composable's identifier, as used in log records.
func (c *core[T]) ID() string { return c.id }

// Observable returns the scheduling handle the composable is bound to.
func (c *core[T]) Observable() dispatch.Observable { return c.obs }

// IsPending reports whether no terminal state has been reached.
func (c *core[T]) IsPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == statePending
}

// IsSuccess reports whether the expected accept count has been reached.
func (c *core[T]) IsSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateSucceeded
}

// IsError reports whether the composable completed in error.
func (c *core[T]) IsError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateFailed
}

// Value returns the current value and whether success completion has
// been reached. It never blocks.
func (c *core[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.st == stateSucceeded
}

// Err returns the accepted failure, or nil.
func (c *core[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Accepted returns the number of values accepted so far.
func (c *core[T]) Accepted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// Consume registers fn for the success value. If the composable already
// completed successfully, fn is scheduled against the stored value
// immediately. If it completed in error, fn is never invoked.
func (c *core[T]) Consume(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.st {
	case stateFailed:
		// errors reach consumers only through error handlers
	case stateSucceeded:
		c.scheduleValue(fn, c.value)
		if c.perAccept {
			c.consumers = append(c.consumers, consumerRecord[T]{id: uuid.NewString(), fn: fn})
		}
	default:
		c.consumers = append(c.consumers, consumerRecord[T]{id: uuid.NewString(), fn: fn})
	}
}

// ConsumeKey forwards the success value to target as a signal published
// under key, either immediately if already complete or upon completion.
func (c *core[T]) ConsumeKey(key any, target dispatch.Observable) {
	c.Consume(func(v T) {
		target.Notify(key, dispatch.WrapKey(key, v))
	})
}

// When registers fn for failures matching the predicate. Registration
// after error completion is honored: if the stored error matches, fn is
// scheduled immediately.
func (c *core[T]) When(match func(error) bool, fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st == stateFailed && match(c.err) {
		c.scheduleError(fn, c.err)
	}
	c.handlers = append(c.handlers, errorRecord{id: uuid.NewString(), match: match, fn: fn})
}

// WhenIs registers fn for failures matching target per errors.Is.
func (c *core[T]) WhenIs(target error, fn func(error)) {
	c.When(func(err error) bool { return errors.Is(err, target) }, fn)
}

// WhenAs registers fn on src for failures assignable to E per errors.As.
// The most specific registered category is whatever E unwraps to.
func WhenAs[E error](src ErrorSource, fn func(E)) {
	src.When(func(err error) bool {
		var e E
		return errors.As(err, &e)
	}, func(err error) {
		var e E
		if errors.As(err, &e) {
			fn(e)
		}
	})
}

// ForwardError wires this composable's error completion to also fail
// target with the same error. If already failed, target fails now.
func (c *core[T]) ForwardError(target FailureTarget) {
	c.mu.Lock()
	if c.st == stateFailed {
		err := c.err
		c.mu.Unlock()
		target.acceptFailure(err)
		return
	}
	c.forwards = append(c.forwards, forwardRecord{id: uuid.NewString(), target: target})
	c.mu.Unlock()
}

// DropHandlers discards all registered consumers, error handlers, and
// forward links, and cancels the fabric error subscription. Teardown is
// explicit; a dropped composable keeps its state but notifies no one.
func (c *core[T]) DropHandlers() {
	c.mu.Lock()
	c.consumers = nil
	c.handlers = nil
	c.forwards = nil
	c.onFull = nil
	reg := c.errReg
	c.errReg = nil
	c.mu.Unlock()

	if reg != nil {
		reg.Cancel()
	}
}

// acceptValue drives the success side of the state machine.
func (c *core[T]) acceptValue(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acceptValueLocked(v)
}

func (c *core[T]) acceptValueLocked(v T) {
	if c.st == stateFailed {
		return
	}
	if c.st == stateSucceeded && !c.perAccept {
		return
	}

	c.accepted++
	c.value = v

	if !c.perAccept {
		c.st = stateSucceeded
		for _, rec := range c.consumers {
			c.scheduleValue(rec.fn, v)
		}
		c.consumers = nil
		return
	}

	// Accumulating variant: consumers fire on every accept and stay
	// registered. Completion fires once, when the expected count is
	// reached; later accepts may still overwrite the stored value.
	c.acc = append(c.acc, v)
	for _, rec := range c.consumers {
		c.scheduleValue(rec.fn, v)
	}
	if c.st == statePending && c.accepted >= c.expected {
		c.st = stateSucceeded
		full := make([]T, len(c.acc))
		copy(full, c.acc)
		for _, fn := range c.onFull {
			fn := fn
			c.obs.Schedule(func(dispatch.Event) { fn(full) }, dispatch.Wrap(full))
		}
		c.onFull = nil
	}
}

// acceptFailure drives the error side. A failure arriving after success
// is logged and dropped; success stays authoritative once reached.
func (c *core[T]) acceptFailure(err error) {
	c.mu.Lock()
	switch c.st {
	case stateSucceeded:
		c.mu.Unlock()
		c.logger.Error("error received after successful completion, dropping",
			"composable", c.id, "error", err)
		return
	case stateFailed:
		c.mu.Unlock()
		c.logger.Debug("error received after failure, dropping",
			"composable", c.id, "error", err)
		return
	}
	c.failLocked(err)
	forwards := append([]forwardRecord(nil), c.forwards...)
	c.mu.Unlock()

	for _, f := range forwards {
		f.target.acceptFailure(err)
	}
}

func (c *core[T]) failLocked(err error) {
	c.st = stateFailed
	c.err = err

	matched := false
	for _, rec := range c.handlers {
		if rec.match(err) {
			matched = true
			c.scheduleError(rec.fn, err)
		}
	}
	if !matched && len(c.forwards) == 0 {
		c.logger.Debug("no handler for error", "composable", c.id, "error", err)
	}

	c.consumers = nil
	c.onFull = nil
}

// scheduleValue hands one consumer invocation to the fabric. The value
// travels in the closure so interface-typed and nil values round-trip.
func (c *core[T]) scheduleValue(fn func(T), v T) {
	c.obs.Schedule(func(dispatch.Event) { fn(v) }, dispatch.Wrap(v))
}

func (c *core[T]) scheduleError(fn func(error), err error) {
	c.obs.Schedule(func(dispatch.Event) { fn(err) }, dispatch.Wrap(err))
}
