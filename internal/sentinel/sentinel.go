// Package sentinel implements the "no data" in-band sentinel convention
// described in the external interfaces design: -1 for signed integer
// types, the type's maximum value for unsigned integer types. Public APIs
// in this module prefer explicit bool/ok returns; this package exists for
// the wire-compatible persisted representations that still need an
// in-band marker.
package sentinel

// Signed is the set of integer types that use -1 as their "no data" value.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int
}

// Unsigned is the set of integer types that use their max value as "no data".
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// NoDataSigned returns the "no data" sentinel for a signed integer type.
func NoDataSigned[T Signed]() T {
	return T(-1)
}

// NoDataUnsigned returns the "no data" sentinel for an unsigned integer type.
func NoDataUnsigned[T Unsigned]() T {
	return ^T(0)
}

// IsValidSigned reports whether v is distinguishable from "no data".
func IsValidSigned[T Signed](v T) bool {
	return v != NoDataSigned[T]()
}

// IsValidUnsigned reports whether v is distinguishable from "no data".
func IsValidUnsigned[T Unsigned](v T) bool {
	return v != NoDataUnsigned[T]()
}

// SetNoDataSigned overwrites *v with the "no data" sentinel.
func SetNoDataSigned[T Signed](v *T) {
	*v = NoDataSigned[T]()
}

// SetNoDataUnsigned overwrites *v with the "no data" sentinel.
func SetNoDataUnsigned[T Unsigned](v *T) {
	*v = NoDataUnsigned[T]()
}
