// Package bridge provides synchronous access to asynchronous composable
// values.
//
// The composition core never blocks: Set, Consume, Map, and friends all
// return immediately and hand work to the scheduling fabric. Code that
// does want to block until a promise completes uses this package, which
// turns a completion callback into a context-aware wait.
//
// Basic usage:
//
//	v, err := bridge.Await(ctx, p)
//	if err != nil {
//	    log.Fatal(err)
//	}
package bridge
