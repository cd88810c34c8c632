package dispatch

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
)

// registration is a relation record in the dispatcher's registry. Callers
// hold the handle, not the record.
type registration struct {
	id       string
	selector Selector
	handler  Handler
	owner    *Dispatcher
}

// ID implements Registration.
func (r *registration) ID() string { return r.id }

// Cancel implements Registration.
func (r *registration) Cancel() {
	r.owner.cancel(r.id)
}

type task struct {
	handler Handler
	event   Event
}

// Dispatcher is the in-process Observable implementation: a bounded FIFO
// task queue drained by worker goroutines.
type Dispatcher struct {
	mu         sync.RWMutex
	regs       map[string]*registration
	order      []string
	middleware []Middleware
	logger     *slog.Logger

	tasks  chan task
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	workers    int
	queueDepth int
	logger     *slog.Logger
	middleware []Middleware
}

// WithWorkers sets the number of worker goroutines. With the default of
// one worker, task execution is per-submission FIFO.
func WithWorkers(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueDepth sets the capacity of the task queue. Schedule blocks
// when the queue is full.
func WithQueueDepth(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.queueDepth = n
		}
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDispatchMiddleware adds middleware around handler execution,
// applied in registration order.
func WithDispatchMiddleware(mw ...Middleware) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewDispatcher creates a dispatcher and starts its workers.
func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	cfg := &dispatcherConfig{
		workers:    1,
		queueDepth: 1024,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	d := &Dispatcher{
		regs:       make(map[string]*registration),
		middleware: cfg.middleware,
		logger:     cfg.logger,
		tasks:      make(chan task, cfg.queueDepth),
		closed:     make(chan struct{}),
	}

	d.wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go d.worker()
	}
	return d
}

// On implements Observable.
func (d *Dispatcher) On(sel Selector, h Handler) Registration {
	reg := &registration{
		id:       uuid.NewString(),
		selector: sel,
		handler:  h,
		owner:    d,
	}

	d.mu.Lock()
	d.regs[reg.id] = reg
	d.order = append(d.order, reg.id)
	d.mu.Unlock()

	return reg
}

// Notify implements Observable. Matching handlers are queued in
// registration order.
func (d *Dispatcher) Notify(key any, ev Event) {
	if ev.Key == nil {
		ev.Key = key
	}

	d.mu.RLock()
	matched := make([]Handler, 0, len(d.order))
	for _, id := range d.order {
		reg, ok := d.regs[id]
		if !ok {
			continue
		}
		if reg.selector.Matches(key) {
			matched = append(matched, reg.handler)
		}
	}
	d.mu.RUnlock()

	for _, h := range matched {
		d.Schedule(h, ev)
	}
}

// Schedule implements Observable. The handler never runs on the calling
// goroutine. After Close, tasks are dropped and logged.
func (d *Dispatcher) Schedule(h Handler, ev Event) {
	select {
	case <-d.closed:
		d.logger.Warn("dispatcher closed, dropping task", "eventId", ev.ID)
	case d.tasks <- task{handler: h, event: ev}:
	}
}

// Close stops the workers after draining queued tasks. It is safe to call
// more than once.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.closed)
	})
	d.wg.Wait()
}

func (d *Dispatcher) cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.regs[id]; !ok {
		return
	}
	delete(d.regs, id)
	for i, other := range d.order {
		if other == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case t := <-d.tasks:
			d.run(t)
		case <-d.closed:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case t := <-d.tasks:
					d.run(t)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) run(t task) {
	h := t.handler
	for i := len(d.middleware) - 1; i >= 0; i-- {
		h = d.middleware[i](h)
	}

	recovered := panics.Try(func() {
		h(t.event)
	})
	if recovered != nil {
		d.logger.Error("handler panicked",
			"eventId", t.event.ID,
			"panic", recovered.Value,
			"stack", string(recovered.Stack),
		)
	}
}
