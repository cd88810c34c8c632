package tuples

// Tuple is the arity-independent view of a tuple value.
type Tuple interface {
	// Size returns the number of positions in the tuple.
	Size() int
}

// Tuple2 holds two heterogeneous values.
type Tuple2[T1, T2 any] struct {
	V1 T1
	V2 T2
}

// Of2 creates a Tuple2 from the given values.
func Of2[T1, T2 any](v1 T1, v2 T2) Tuple2[T1, T2] {
	return Tuple2[T1, T2]{V1: v1, V2: v2}
}

// Size returns 2.
func (t Tuple2[T1, T2]) Size() int { return 2 }

// Tuple3 holds three heterogeneous values.
type Tuple3[T1, T2, T3 any] struct {
	V1 T1
	V2 T2
	V3 T3
}

// Of3 creates a Tuple3 from the given values.
func Of3[T1, T2, T3 any](v1 T1, v2 T2, v3 T3) Tuple3[T1, T2, T3] {
	return Tuple3[T1, T2, T3]{V1: v1, V2: v2, V3: v3}
}

// Size returns 3.
func (t Tuple3[T1, T2, T3]) Size() int { return 3 }

// Tuple4 holds four heterogeneous values.
type Tuple4[T1, T2, T3, T4 any] struct {
	V1 T1
	V2 T2
	V3 T3
	V4 T4
}

// Of4 creates a Tuple4 from the given values.
func Of4[T1, T2, T3, T4 any](v1 T1, v2 T2, v3 T3, v4 T4) Tuple4[T1, T2, T3, T4] {
	return Tuple4[T1, T2, T3, T4]{V1: v1, V2: v2, V3: v3, V4: v4}
}

// Size returns 4.
func (t Tuple4[T1, T2, T3, T4]) Size() int { return 4 }

// Tuple5 holds five heterogeneous values.
type Tuple5[T1, T2, T3, T4, T5 any] struct {
	V1 T1
	V2 T2
	V3 T3
	V4 T4
	V5 T5
}

// Of5 creates a Tuple5 from the given values.
func Of5[T1, T2, T3, T4, T5 any](v1 T1, v2 T2, v3 T3, v4 T4, v5 T5) Tuple5[T1, T2, T3, T4, T5] {
	return Tuple5[T1, T2, T3, T4, T5]{V1: v1, V2: v2, V3: v3, V4: v4, V5: v5}
}

// Size returns 5.
func (t Tuple5[T1, T2, T3, T4, T5]) Size() int { return 5 }
