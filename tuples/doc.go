// Package tuples provides small, immutable, fixed-arity heterogeneous
// value containers.
//
// Tuples are constructed once and never mutated. Each position has a
// statically typed accessor field, so no runtime casting is required
// beyond what the caller's own generic context already guarantees.
//
// The composition engine uses Tuple2 to pair a fan-in value with the
// index of the source it came from, which is how merge results keep
// their declared order regardless of completion order.
package tuples
