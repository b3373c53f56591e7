package dictionary

// Value wraps a payload of type T together with the NULL flag from
// spec.md §3: a dictionary element is either a non-null byte payload or the
// distinguished NULL. Codecs never see NULL — Encode/Decode only ever
// handle Data for non-null values; NULL is represented purely by the
// length-marker convention in the container format (spec.md §6).
type Value[T any] struct {
	Data   T
	IsNull bool
}

// NullValue constructs the NULL element for T.
func NullValue[T any]() Value[T] {
	return Value[T]{IsNull: true}
}

// NonNull wraps v as a non-null element.
func NonNull[T any](v T) Value[T] {
	return Value[T]{Data: v}
}

// compareValues orders two values with NULL as the minimum, per spec.md
// §4.2's "nulls-first" contract. codec.Compare is only ever invoked on two
// non-null payloads.
func compareValues[T any](a, b Value[T], codec Codec[T]) int {
	switch {
	case a.IsNull && b.IsNull:
		return 0
	case a.IsNull:
		return -1
	case b.IsNull:
		return 1
	default:
		return codec.Compare(a.Data, b.Data)
	}
}

// binarySearchMid computes the midpoint of [lo, hi] the way
// java.util.Arrays.binarySearch does: casting the sum to unsigned before
// shifting avoids the signed-overflow wraparound that (lo+hi)/2 would hit
// once lo+hi exceeds math.MaxInt32, which every binary search in this
// package can reach once numElements approaches math.MaxInt32.
func binarySearchMid(lo, hi int) int {
	return int(uint(lo+hi) >> 1)
}
