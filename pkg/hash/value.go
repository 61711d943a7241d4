package hash

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
)

// Value is an immutable, type-tagged value.
//
// The payload Go type is fixed by the kind:
//
//	KindNone        nil
//	KindBool        bool
//	KindInt8..64    int8, int16, int32, int64
//	KindUint8..64   uint8, uint16, uint32, uint64
//	KindFloat32/64  float32, float64
//	KindComplex*    complex64, complex128
//	KindString      string
//	KindBytes       []byte
//	KindTimestamp   time.Time
//	KindVector*     []bool, []int8, ..., []float64, []string
//	KindHash        *Hash
//	KindVectorHash  []*Hash
//
// Slices are copied on construction and extraction. Hash payloads are live
// subtrees; storing a Value into a Hash copies them.
type Value struct {
	kind Kind
	data any
}

// None returns the empty value.
func None() Value { return Value{kind: KindNone} }

func Bool(v bool) Value             { return Value{kind: KindBool, data: v} }
func Int8(v int8) Value             { return Value{kind: KindInt8, data: v} }
func Int16(v int16) Value           { return Value{kind: KindInt16, data: v} }
func Int32(v int32) Value           { return Value{kind: KindInt32, data: v} }
func Int64(v int64) Value           { return Value{kind: KindInt64, data: v} }
func Uint8(v uint8) Value           { return Value{kind: KindUint8, data: v} }
func Uint16(v uint16) Value         { return Value{kind: KindUint16, data: v} }
func Uint32(v uint32) Value         { return Value{kind: KindUint32, data: v} }
func Uint64(v uint64) Value         { return Value{kind: KindUint64, data: v} }
func Float32(v float32) Value       { return Value{kind: KindFloat32, data: v} }
func Float64(v float64) Value       { return Value{kind: KindFloat64, data: v} }
func Complex64(v complex64) Value   { return Value{kind: KindComplex64, data: v} }
func Complex128(v complex128) Value { return Value{kind: KindComplex128, data: v} }
func String(v string) Value         { return Value{kind: KindString, data: v} }
func Bytes(v []byte) Value          { return Value{kind: KindBytes, data: cloneSlice(v)} }
func Timestamp(v time.Time) Value   { return Value{kind: KindTimestamp, data: v} }

func VectorBool(v []bool) Value       { return Value{kind: KindVectorBool, data: cloneSlice(v)} }
func VectorInt8(v []int8) Value       { return Value{kind: KindVectorInt8, data: cloneSlice(v)} }
func VectorInt16(v []int16) Value     { return Value{kind: KindVectorInt16, data: cloneSlice(v)} }
func VectorInt32(v []int32) Value     { return Value{kind: KindVectorInt32, data: cloneSlice(v)} }
func VectorInt64(v []int64) Value     { return Value{kind: KindVectorInt64, data: cloneSlice(v)} }
func VectorUint8(v []uint8) Value     { return Value{kind: KindVectorUint8, data: cloneSlice(v)} }
func VectorUint16(v []uint16) Value   { return Value{kind: KindVectorUint16, data: cloneSlice(v)} }
func VectorUint32(v []uint32) Value   { return Value{kind: KindVectorUint32, data: cloneSlice(v)} }
func VectorUint64(v []uint64) Value   { return Value{kind: KindVectorUint64, data: cloneSlice(v)} }
func VectorFloat32(v []float32) Value { return Value{kind: KindVectorFloat32, data: cloneSlice(v)} }
func VectorFloat64(v []float64) Value { return Value{kind: KindVectorFloat64, data: cloneSlice(v)} }
func VectorString(v []string) Value   { return Value{kind: KindVectorString, data: cloneSlice(v)} }

// Tree wraps a hash. A nil hash becomes an empty one.
func Tree(h *Hash) Value {
	if h == nil {
		h = New()
	}
	return Value{kind: KindHash, data: h}
}

// Trees wraps a vector of hashes. Nil entries become empty hashes.
func Trees(hs []*Hash) Value {
	out := make([]*Hash, len(hs))
	for i, h := range hs {
		if h == nil {
			h = New()
		}
		out[i] = h
	}
	return Value{kind: KindVectorHash, data: out}
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Kind returns the value's kind. The zero Value has KindUnknown.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value was constructed with a known kind.
func (v Value) IsValid() bool { return v.kind.IsValid() }

// Interface returns a copy of the payload as its Go type.
func (v Value) Interface() any { return copyPayload(v.data) }

// Len returns the element count of vectors, bytes and strings, and the key
// count of hashes. Scalars have length 1 and None has length 0.
func (v Value) Len() int {
	switch d := v.data.(type) {
	case nil:
		return 0
	case string:
		return len(d)
	case *Hash:
		return d.Len()
	case []*Hash:
		return len(d)
	}
	if v.kind.IsVector() || v.kind == KindBytes {
		return vectorLen(v.data)
	}
	return 1
}

func vectorLen(data any) int {
	switch d := data.(type) {
	case []byte:
		return len(d)
	case []bool:
		return len(d)
	case []int8:
		return len(d)
	case []int16:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []uint16:
		return len(d)
	case []uint32:
		return len(d)
	case []uint64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	case []*Hash:
		return len(d)
	}
	return 0
}

// Extract returns the payload if T is exactly its Go type. There is no
// widening or narrowing: extracting int64 from an INT32 value fails with
// TypeMismatch.
//
// []byte and []uint8 are one Go type, so Extract[[]byte] succeeds for both
// BYTES and VECTOR_UINT8 values. Check Kind first where the two must differ.
func Extract[T any](v Value) (T, error) {
	t, ok := v.data.(T)
	if !ok {
		var zero T
		return zero, errs.New(errs.TypeMismatch, "", "cannot extract %T from %s value", zero, v.kind)
	}
	return copyPayload(t).(T), nil
}

// copyPayload returns data with slices copied. Hashes are returned as is.
func copyPayload(data any) any {
	switch d := data.(type) {
	case []byte:
		return cloneSlice(d)
	case []bool:
		return cloneSlice(d)
	case []int8:
		return cloneSlice(d)
	case []int16:
		return cloneSlice(d)
	case []int32:
		return cloneSlice(d)
	case []int64:
		return cloneSlice(d)
	case []uint16:
		return cloneSlice(d)
	case []uint32:
		return cloneSlice(d)
	case []uint64:
		return cloneSlice(d)
	case []float32:
		return cloneSlice(d)
	case []float64:
		return cloneSlice(d)
	case []string:
		return cloneSlice(d)
	case []*Hash:
		return cloneSlice(d)
	}
	return data
}

// Clone returns a deep copy; nested hashes are duplicated.
func (v Value) Clone() Value {
	switch d := v.data.(type) {
	case *Hash:
		return Value{kind: v.kind, data: d.Clone()}
	case []*Hash:
		out := make([]*Hash, len(d))
		for i, h := range d {
			out[i] = h.Clone()
		}
		return Value{kind: v.kind, data: out}
	}
	return Value{kind: v.kind, data: copyPayload(v.data)}
}

// Equal reports structural, type-sensitive equality. Values of different
// kinds are never equal. NaN equals NaN so that codec round trips compare.
// Nested hashes compare without regard to key order.
func (v Value) Equal(o Value) bool {
	return equalValues(v, o, false)
}

func equalValues(a, b Value, ordered bool) bool {
	if a.kind != b.kind {
		return false
	}
	switch x := a.data.(type) {
	case nil:
		return b.data == nil
	case float32:
		return equalFloat(float64(x), float64(b.data.(float32)))
	case float64:
		return equalFloat(x, b.data.(float64))
	case complex64:
		y := b.data.(complex64)
		return equalFloat(float64(real(x)), float64(real(y))) && equalFloat(float64(imag(x)), float64(imag(y)))
	case complex128:
		y := b.data.(complex128)
		return equalFloat(real(x), real(y)) && equalFloat(imag(x), imag(y))
	case time.Time:
		return x.Equal(b.data.(time.Time))
	case []byte:
		return bytes.Equal(x, b.data.([]byte))
	case []bool:
		return slices.Equal(x, b.data.([]bool))
	case []int8:
		return slices.Equal(x, b.data.([]int8))
	case []int16:
		return slices.Equal(x, b.data.([]int16))
	case []int32:
		return slices.Equal(x, b.data.([]int32))
	case []int64:
		return slices.Equal(x, b.data.([]int64))
	case []uint16:
		return slices.Equal(x, b.data.([]uint16))
	case []uint32:
		return slices.Equal(x, b.data.([]uint32))
	case []uint64:
		return slices.Equal(x, b.data.([]uint64))
	case []float32:
		return slices.EqualFunc(x, b.data.([]float32), func(p, q float32) bool {
			return equalFloat(float64(p), float64(q))
		})
	case []float64:
		return slices.EqualFunc(x, b.data.([]float64), equalFloat)
	case []string:
		return slices.Equal(x, b.data.([]string))
	case *Hash:
		return equalHashes(x, b.data.(*Hash), ordered)
	case []*Hash:
		return slices.EqualFunc(x, b.data.([]*Hash), func(p, q *Hash) bool {
			return equalHashes(p, q, ordered)
		})
	default:
		return a.data == b.data
	}
}

func equalFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b && math.Signbit(a) == math.Signbit(b)
}

// String renders the value as a literal. Vectors are comma separated,
// bytes are base64 and timestamps RFC 3339 with nanoseconds.
func (v Value) String() string {
	switch d := v.data.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(d)
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return fmt.Sprint(d)
	case float32:
		return FormatFloat(float64(d), 32)
	case float64:
		return FormatFloat(d, 64)
	case complex64:
		return strconv.FormatComplex(complex128(d), 'g', -1, 64)
	case complex128:
		return strconv.FormatComplex(d, 'g', -1, 128)
	case string:
		return d
	case []byte:
		if v.kind == KindBytes {
			return base64.StdEncoding.EncodeToString(d)
		}
	case time.Time:
		return d.UTC().Format(time.RFC3339Nano)
	case *Hash:
		return fmt.Sprintf("Hash(%s)", strings.Join(d.Keys(), ", "))
	case []*Hash:
		return fmt.Sprintf("VectorHash(%d)", len(d))
	}
	if v.kind.IsVector() {
		elems := v.Elements()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v.data)
}

// FormatFloat formats f with the fewest digits that parse back exactly.
func FormatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// Elements returns the elements of a vector value as scalar values.
// Non-vector values return nil.
func (v Value) Elements() []Value {
	switch d := v.data.(type) {
	case []bool:
		return mapElems(d, Bool)
	case []int8:
		return mapElems(d, Int8)
	case []int16:
		return mapElems(d, Int16)
	case []int32:
		return mapElems(d, Int32)
	case []int64:
		return mapElems(d, Int64)
	case []uint8:
		if v.kind == KindVectorUint8 {
			return mapElems(d, Uint8)
		}
	case []uint16:
		return mapElems(d, Uint16)
	case []uint32:
		return mapElems(d, Uint32)
	case []uint64:
		return mapElems(d, Uint64)
	case []float32:
		return mapElems(d, Float32)
	case []float64:
		return mapElems(d, Float64)
	case []string:
		return mapElems(d, String)
	case []*Hash:
		return mapElems(d, Tree)
	}
	return nil
}

func mapElems[T any](s []T, fn func(T) Value) []Value {
	out := make([]Value, len(s))
	for i, e := range s {
		out[i] = fn(e)
	}
	return out
}

// AsFloat64 returns the value of a numeric scalar as float64.
func (v Value) AsFloat64() (float64, bool) {
	switch d := v.data.(type) {
	case int8:
		return float64(d), true
	case int16:
		return float64(d), true
	case int32:
		return float64(d), true
	case int64:
		return float64(d), true
	case uint8:
		return float64(d), true
	case uint16:
		return float64(d), true
	case uint32:
		return float64(d), true
	case uint64:
		return float64(d), true
	case float32:
		return float64(d), true
	case float64:
		return d, true
	}
	return 0, false
}

// Compare orders two numeric scalars of any numeric kinds exactly: integers
// are compared as integers even beyond the float64 mantissa. The result is
// -1, 0 or +1; ok is false if either value is not numeric or is NaN.
func Compare(a, b Value) (int, bool) {
	na, oka := numberOf(a.data)
	nb, okb := numberOf(b.data)
	if !oka || !okb || na.isNaN() || nb.isNaN() {
		return 0, false
	}
	switch {
	case na.class == classFloat && nb.class == classFloat:
		return cmpOrdered(na.f, nb.f), true
	case na.class == classFloat:
		return -compareIntFloat(nb, na.f), true
	case nb.class == classFloat:
		return compareIntFloat(na, nb.f), true
	case na.class == classInt && nb.class == classInt:
		return cmpOrdered(na.i, nb.i), true
	case na.class == classUint && nb.class == classUint:
		return cmpOrdered(na.u, nb.u), true
	case na.class == classInt:
		if na.i < 0 {
			return -1, true
		}
		return cmpOrdered(uint64(na.i), nb.u), true
	default:
		if nb.i < 0 {
			return 1, true
		}
		return cmpOrdered(na.u, uint64(nb.i)), true
	}
}

// compareIntFloat compares an integer number with a non-NaN float.
func compareIntFloat(n number, f float64) int {
	switch {
	case f >= 0x1p64:
		return -1
	case f < -0x1p63:
		return 1
	}
	t := math.Trunc(f)
	var c int
	if n.class == classUint {
		if f < 0 {
			return 1
		}
		c = cmpOrdered(n.u, uint64(t))
	} else {
		if f >= 0x1p63 {
			return -1
		}
		c = cmpOrdered(n.i, int64(t))
	}
	if c != 0 {
		return c
	}
	return cmpOrdered(0, f-t)
}

func cmpOrdered[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
