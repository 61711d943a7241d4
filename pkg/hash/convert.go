package hash

import (
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
)

// MakeValue builds a value of the given kind from a Go value. The conversion
// must be exact: integer overflow, a lost fraction or a malformed literal
// fails with TypeMismatch.
func MakeValue(kind Kind, raw any) (Value, error) {
	if !kind.IsValid() {
		return Value{}, errs.New(errs.TypeMismatch, "", "invalid kind %d", kind)
	}
	v, err := ValueOf(raw)
	if err != nil {
		return Value{}, err
	}
	return v.Convert(kind)
}

// ValueOf infers a value from a Go value. Plain int and uint map to INT64
// and UINT64. Maps with string keys become hashes with sorted keys; []any
// becomes a vector of the common element kind.
func ValueOf(raw any) (Value, error) {
	switch r := raw.(type) {
	case nil:
		return None(), nil
	case Value:
		return r, nil
	case bool:
		return Bool(r), nil
	case int:
		return Int64(int64(r)), nil
	case int8:
		return Int8(r), nil
	case int16:
		return Int16(r), nil
	case int32:
		return Int32(r), nil
	case int64:
		return Int64(r), nil
	case uint:
		return Uint64(uint64(r)), nil
	case uint8:
		return Uint8(r), nil
	case uint16:
		return Uint16(r), nil
	case uint32:
		return Uint32(r), nil
	case uint64:
		return Uint64(r), nil
	case float32:
		return Float32(r), nil
	case float64:
		return Float64(r), nil
	case complex64:
		return Complex64(r), nil
	case complex128:
		return Complex128(r), nil
	case string:
		return String(r), nil
	case []byte:
		return Bytes(r), nil
	case time.Time:
		return Timestamp(r), nil
	case []bool:
		return VectorBool(r), nil
	case []int8:
		return VectorInt8(r), nil
	case []int16:
		return VectorInt16(r), nil
	case []int32:
		return VectorInt32(r), nil
	case []int64:
		return VectorInt64(r), nil
	case []uint16:
		return VectorUint16(r), nil
	case []uint32:
		return VectorUint32(r), nil
	case []uint64:
		return VectorUint64(r), nil
	case []float32:
		return VectorFloat32(r), nil
	case []float64:
		return VectorFloat64(r), nil
	case []string:
		return VectorString(r), nil
	case *Hash:
		return Tree(r), nil
	case []*Hash:
		return Trees(r), nil
	case map[string]any:
		h := New()
		for _, k := range slices.Sorted(maps.Keys(r)) {
			ev, err := ValueOf(r[k])
			if err != nil {
				return Value{}, err
			}
			if err := h.Set(k, ev); err != nil {
				return Value{}, err
			}
		}
		return Tree(h), nil
	case []any:
		return vectorOfAny(r)
	}
	return reflectValue(reflect.ValueOf(raw))
}

func vectorOfAny(items []any) (Value, error) {
	if len(items) == 0 {
		return VectorString(nil), nil
	}
	elems := make([]Value, len(items))
	for i, item := range items {
		v, err := ValueOf(item)
		if err != nil {
			return Value{}, err
		}
		elems[i] = v
	}
	return VectorFrom(elems)
}

// VectorFrom builds a vector from scalar values of one kind.
// An empty input yields an empty VECTOR_STRING.
func VectorFrom(elems []Value) (Value, error) {
	if len(elems) == 0 {
		return VectorString(nil), nil
	}
	kind := elems[0].kind
	vk := VectorOf(kind)
	if vk == KindUnknown {
		return Value{}, errs.New(errs.TypeMismatch, "", "no vector of %s", kind)
	}
	for i, e := range elems {
		if e.kind != kind {
			return Value{}, errs.New(errs.TypeMismatch, "", "element %d is %s, expected %s", i, e.kind, kind)
		}
	}
	return packVector(vk, elems)
}

// packVector assembles already converted elements into a vector of kind vk.
func packVector(vk Kind, elems []Value) (Value, error) {
	switch vk {
	case KindVectorBool:
		return VectorBool(unpack[bool](elems)), nil
	case KindVectorInt8:
		return VectorInt8(unpack[int8](elems)), nil
	case KindVectorInt16:
		return VectorInt16(unpack[int16](elems)), nil
	case KindVectorInt32:
		return VectorInt32(unpack[int32](elems)), nil
	case KindVectorInt64:
		return VectorInt64(unpack[int64](elems)), nil
	case KindVectorUint8:
		return VectorUint8(unpack[uint8](elems)), nil
	case KindVectorUint16:
		return VectorUint16(unpack[uint16](elems)), nil
	case KindVectorUint32:
		return VectorUint32(unpack[uint32](elems)), nil
	case KindVectorUint64:
		return VectorUint64(unpack[uint64](elems)), nil
	case KindVectorFloat32:
		return VectorFloat32(unpack[float32](elems)), nil
	case KindVectorFloat64:
		return VectorFloat64(unpack[float64](elems)), nil
	case KindVectorString:
		return VectorString(unpack[string](elems)), nil
	case KindVectorHash:
		return Trees(unpack[*Hash](elems)), nil
	}
	return Value{}, errs.New(errs.TypeMismatch, "", "%s is not a vector kind", vk)
}

func unpack[T any](elems []Value) []T {
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i], _ = e.data.(T)
	}
	return out
}

func reflectValue(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			e, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			elems[i] = e
		}
		return VectorFrom(elems)
	}
	if !rv.IsValid() {
		return None(), nil
	}
	return Value{}, errs.New(errs.TypeMismatch, "", "unsupported Go type %s", rv.Type())
}

// Convert casts the value to another kind. Numbers convert with range and
// precision checks, strings parse as literals, scalars render to strings and
// vectors convert element by element. A string converts to a vector by
// splitting on commas.
func (v Value) Convert(kind Kind) (Value, error) {
	if v.kind == kind {
		return v, nil
	}
	out, err := v.convert(kind)
	if err != nil {
		return Value{}, errs.Wrap(errs.TypeMismatch, "", err, "cannot convert %s to %s", v.kind, kind)
	}
	return out, nil
}

func (v Value) convert(kind Kind) (Value, error) {
	switch {
	case kind == KindString:
		if v.kind.IsScalar() || (v.kind.IsVector() && v.kind != KindVectorHash) {
			return String(v.String()), nil
		}
	case kind.IsNumeric():
		n, err := v.toNumber()
		if err != nil {
			return Value{}, err
		}
		return fromNumber(n, kind)
	case kind.IsComplex():
		return v.toComplex(kind)
	case kind == KindBool:
		return v.toBool()
	case kind == KindBytes:
		switch d := v.data.(type) {
		case string:
			b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(d))
			if err != nil {
				return Value{}, err
			}
			return Bytes(b), nil
		case []byte:
			return Bytes(d), nil
		}
	case kind == KindTimestamp:
		if s, ok := v.data.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
			if err != nil {
				return Value{}, err
			}
			return Timestamp(t), nil
		}
	case kind == KindVectorHash:
		if h, ok := v.data.(*Hash); ok {
			return Trees([]*Hash{h}), nil
		}
	case kind.IsVector():
		return v.toVector(kind)
	}
	return Value{}, errors.New("incompatible kinds")
}

func (v Value) toVector(kind Kind) (Value, error) {
	var src []Value
	switch {
	case v.kind == KindString:
		s := strings.TrimSpace(v.data.(string))
		if s != "" {
			for _, part := range strings.Split(s, ",") {
				src = append(src, String(strings.TrimSpace(part)))
			}
		}
	case v.kind == KindBytes && kind == KindVectorUint8:
		return VectorUint8(v.data.([]byte)), nil
	case v.kind.IsVector() && v.kind != KindVectorHash:
		src = v.Elements()
	case v.kind.IsScalar():
		src = []Value{v}
	default:
		return Value{}, errors.New("incompatible kinds")
	}
	elem := kind.Elem()
	out := make([]Value, len(src))
	for i, e := range src {
		c, err := e.Convert(elem)
		if err != nil {
			return Value{}, err
		}
		out[i] = c
	}
	return packVector(kind, out)
}

func (v Value) toBool() (Value, error) {
	switch d := v.data.(type) {
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(d))
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	}
	if n, ok := numberOf(v.data); ok && n.class != classFloat {
		switch {
		case n.isZero():
			return Bool(false), nil
		case n.isOne():
			return Bool(true), nil
		}
	}
	return Value{}, errors.New("not a boolean")
}

func (v Value) toComplex(kind Kind) (Value, error) {
	var c complex128
	switch d := v.data.(type) {
	case complex64:
		c = complex128(d)
	case complex128:
		c = d
	case string:
		p, err := strconv.ParseComplex(strings.TrimSpace(d), 128)
		if err != nil {
			return Value{}, err
		}
		c = p
	default:
		n, ok := numberOf(v.data)
		if !ok {
			return Value{}, errors.New("not a number")
		}
		f, ok := n.exactFloat(64)
		if !ok {
			return Value{}, errors.New("precision lost")
		}
		c = complex(f, 0)
	}
	if kind == KindComplex128 {
		return Complex128(c), nil
	}
	c64 := complex64(c)
	if !equalFloat(float64(real(c64)), real(c)) || !equalFloat(float64(imag(c64)), imag(c)) {
		return Value{}, errors.New("precision lost")
	}
	return Complex64(c64), nil
}

func (v Value) toNumber() (number, error) {
	if s, ok := v.data.(string); ok {
		return parseNumber(strings.TrimSpace(s))
	}
	if b, ok := v.data.(bool); ok {
		if b {
			return number{class: classInt, i: 1}, nil
		}
		return number{class: classInt}, nil
	}
	n, ok := numberOf(v.data)
	if !ok {
		return number{}, errors.New("not a number")
	}
	return n, nil
}

func parseNumber(s string) (number, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{class: classInt, i: i}, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return number{class: classUint, u: u}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return number{}, fmt.Errorf("malformed number %q", s)
	}
	return number{class: classFloat, f: f}, nil
}

type numClass uint8

const (
	classInt numClass = iota + 1
	classUint
	classFloat
)

// number is a numeric scalar widened without loss.
type number struct {
	class numClass
	i     int64
	u     uint64
	f     float64
}

func numberOf(data any) (number, bool) {
	switch d := data.(type) {
	case int8:
		return number{class: classInt, i: int64(d)}, true
	case int16:
		return number{class: classInt, i: int64(d)}, true
	case int32:
		return number{class: classInt, i: int64(d)}, true
	case int64:
		return number{class: classInt, i: d}, true
	case uint8:
		return number{class: classUint, u: uint64(d)}, true
	case uint16:
		return number{class: classUint, u: uint64(d)}, true
	case uint32:
		return number{class: classUint, u: uint64(d)}, true
	case uint64:
		return number{class: classUint, u: d}, true
	case float32:
		return number{class: classFloat, f: float64(d)}, true
	case float64:
		return number{class: classFloat, f: d}, true
	}
	return number{}, false
}

func (n number) isNaN() bool { return n.class == classFloat && math.IsNaN(n.f) }

func (n number) isZero() bool {
	return (n.class == classInt && n.i == 0) || (n.class == classUint && n.u == 0)
}

func (n number) isOne() bool {
	return (n.class == classInt && n.i == 1) || (n.class == classUint && n.u == 1)
}

// exactFloat returns n as a float of the given width if no precision is lost.
// NaN and infinities pass between float widths.
func (n number) exactFloat(bits int) (float64, bool) {
	if n.class == classFloat {
		if bits == 64 || math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return n.f, true
		}
		f := float64(float32(n.f))
		return f, f == n.f
	}
	var f float64
	if n.class == classInt {
		f = float64(n.i)
	} else {
		f = float64(n.u)
	}
	if bits == 32 {
		f = float64(float32(f))
	}
	return f, compareIntFloat(n, f) == 0
}

// exactInt returns n as a signed or unsigned 64-bit integer if it is integral.
func (n number) exactInt(signed bool) (int64, uint64, bool) {
	switch n.class {
	case classInt:
		if !signed && n.i < 0 {
			return 0, 0, false
		}
		return n.i, uint64(n.i), true
	case classUint:
		if signed && n.u > math.MaxInt64 {
			return 0, 0, false
		}
		return int64(n.u), n.u, true
	}
	f := n.f
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, 0, false
	}
	if signed {
		if f < -0x1p63 || f >= 0x1p63 {
			return 0, 0, false
		}
		return int64(f), 0, true
	}
	if f < 0 || f >= 0x1p64 {
		return 0, 0, false
	}
	return 0, uint64(f), true
}

func fromNumber(n number, kind Kind) (Value, error) {
	if kind.IsFloat() {
		f, ok := n.exactFloat(kind.bits())
		if !ok {
			return Value{}, errors.New("precision lost")
		}
		if kind == KindFloat32 {
			return Float32(float32(f)), nil
		}
		return Float64(f), nil
	}
	i, u, ok := n.exactInt(kind.IsSigned())
	if !ok {
		return Value{}, errors.New("not representable")
	}
	bits := kind.bits()
	if kind.IsSigned() {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if bits == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		if i < lo || i > hi {
			return Value{}, fmt.Errorf("%d overflows %s", i, kind)
		}
		switch kind {
		case KindInt8:
			return Int8(int8(i)), nil
		case KindInt16:
			return Int16(int16(i)), nil
		case KindInt32:
			return Int32(int32(i)), nil
		default:
			return Int64(i), nil
		}
	}
	if bits < 64 && u > uint64(1)<<bits-1 {
		return Value{}, fmt.Errorf("%d overflows %s", u, kind)
	}
	switch kind {
	case KindUint8:
		return Uint8(uint8(u)), nil
	case KindUint16:
		return Uint16(uint16(u)), nil
	case KindUint32:
		return Uint32(uint32(u)), nil
	default:
		return Uint64(u), nil
	}
}
