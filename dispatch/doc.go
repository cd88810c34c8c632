// Package dispatch provides the scheduling fabric the composition engine
// runs on: signal registration, signal delivery, and asynchronous handler
// execution.
//
// The core abstraction is Observable, a small pub/sub-and-dispatch surface
// with three capabilities:
//   - On registers a handler for a class of signal keys (a Selector)
//   - Notify delivers an event to every handler whose selector matches
//   - Schedule hands a single handler invocation to the fabric for
//     asynchronous execution
//
// Dispatcher is the in-process implementation: a bounded FIFO task queue
// drained by a configurable number of workers. Handler panics are captured
// and logged rather than allowed to kill a worker. Registrations are kept
// in a registry keyed by opaque handles, so callers cancel by handle
// instead of holding live references into the dispatcher.
//
// Basic usage:
//
//	d := dispatch.NewDispatcher(dispatch.WithWorkers(1))
//	defer d.Close()
//
//	reg := d.On(dispatch.Errors(), func(ev dispatch.Event) {
//	    log.Printf("error signal: %v", ev.Data)
//	})
//	defer reg.Cancel()
//
//	d.Notify(err, dispatch.Wrap(err))
package dispatch
