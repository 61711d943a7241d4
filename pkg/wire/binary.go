package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// Binary format constants.
const (
	// MaxDepth is the deepest nesting of hashes the codec accepts.
	MaxDepth = 512

	// MaxKeyLength is the longest key or attribute name in bytes.
	MaxKeyLength = 255
)

// ErrUnencodable indicates a tree that has no binary representation.
var ErrUnencodable = errors.New("wire: unencodable tree")

var le = binary.LittleEndian

// Marshal encodes a hash in the binary format:
//
//	hash    := u32 count, node*
//	node    := key, u8 tag, payload, u32 attrCount, (key, u8 tag, payload)*
//	key     := u8 len, bytes
//
// All integers are little-endian. Tags are the hash.Kind values.
func Marshal(h *hash.Hash) ([]byte, error) {
	return appendHash(nil, h, 0)
}

// MarshalValue encodes a single tagged value: u8 tag followed by its payload.
func MarshalValue(v hash.Value) ([]byte, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: invalid value", ErrUnencodable)
	}
	return appendValue([]byte{byte(v.Kind())}, v, 0)
}

func appendKey(buf []byte, key string, isAttr bool) ([]byte, error) {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return nil, fmt.Errorf("%w: key length %d out of range", ErrUnencodable, len(key))
	}
	if !isAttr && !hash.ValidKey(key) {
		return nil, fmt.Errorf("%w: invalid key %q", ErrUnencodable, key)
	}
	buf = append(buf, byte(len(key)))
	return append(buf, key...), nil
}

func appendHash(buf []byte, h *hash.Hash, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnencodable, MaxDepth)
	}
	buf = le.AppendUint32(buf, uint32(h.Len()))
	var err error
	for key, n := range h.All() {
		if buf, err = appendKey(buf, key, false); err != nil {
			return nil, err
		}
		v := n.Value()
		buf = append(buf, byte(v.Kind()))
		if buf, err = appendValue(buf, v, depth); err != nil {
			return nil, err
		}
		attrs := n.Attributes()
		buf = le.AppendUint32(buf, uint32(attrs.Len()))
		for name, av := range attrs.All() {
			if buf, err = appendKey(buf, name, true); err != nil {
				return nil, err
			}
			buf = append(buf, byte(av.Kind()))
			if buf, err = appendValue(buf, av, depth); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func appendValue(buf []byte, v hash.Value, depth int) ([]byte, error) {
	switch d := v.Interface().(type) {
	case nil:
		return buf, nil
	case bool:
		return append(buf, boolByte(d)), nil
	case int8:
		return append(buf, byte(d)), nil
	case int16:
		return le.AppendUint16(buf, uint16(d)), nil
	case int32:
		return le.AppendUint32(buf, uint32(d)), nil
	case int64:
		return le.AppendUint64(buf, uint64(d)), nil
	case uint8:
		return append(buf, d), nil
	case uint16:
		return le.AppendUint16(buf, d), nil
	case uint32:
		return le.AppendUint32(buf, d), nil
	case uint64:
		return le.AppendUint64(buf, d), nil
	case float32:
		return le.AppendUint32(buf, math.Float32bits(d)), nil
	case float64:
		return le.AppendUint64(buf, math.Float64bits(d)), nil
	case complex64:
		buf = le.AppendUint32(buf, math.Float32bits(real(d)))
		return le.AppendUint32(buf, math.Float32bits(imag(d))), nil
	case complex128:
		buf = le.AppendUint64(buf, math.Float64bits(real(d)))
		return le.AppendUint64(buf, math.Float64bits(imag(d))), nil
	case string:
		return appendBytes(buf, []byte(d)), nil
	case []byte:
		// BYTES and VECTOR_UINT8 share the layout.
		return appendBytes(buf, d), nil
	case time.Time:
		buf = le.AppendUint64(buf, uint64(d.Unix()))
		return le.AppendUint32(buf, uint32(d.Nanosecond())), nil
	case []bool:
		buf = le.AppendUint32(buf, uint32(len(d)))
		for _, e := range d {
			buf = append(buf, boolByte(e))
		}
		return buf, nil
	case []int8:
		return appendVector(buf, d, func(b []byte, e int8) []byte { return append(b, byte(e)) }), nil
	case []int16:
		return appendVector(buf, d, func(b []byte, e int16) []byte { return le.AppendUint16(b, uint16(e)) }), nil
	case []int32:
		return appendVector(buf, d, func(b []byte, e int32) []byte { return le.AppendUint32(b, uint32(e)) }), nil
	case []int64:
		return appendVector(buf, d, func(b []byte, e int64) []byte { return le.AppendUint64(b, uint64(e)) }), nil
	case []uint16:
		return appendVector(buf, d, le.AppendUint16), nil
	case []uint32:
		return appendVector(buf, d, le.AppendUint32), nil
	case []uint64:
		return appendVector(buf, d, le.AppendUint64), nil
	case []float32:
		return appendVector(buf, d, func(b []byte, e float32) []byte { return le.AppendUint32(b, math.Float32bits(e)) }), nil
	case []float64:
		return appendVector(buf, d, func(b []byte, e float64) []byte { return le.AppendUint64(b, math.Float64bits(e)) }), nil
	case []string:
		return appendVector(buf, d, func(b []byte, e string) []byte { return appendBytes(b, []byte(e)) }), nil
	case *hash.Hash:
		return appendHash(buf, d, depth+1)
	case []*hash.Hash:
		buf = le.AppendUint32(buf, uint32(len(d)))
		var err error
		for _, e := range d {
			if buf, err = appendHash(buf, e, depth+1); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrUnencodable, v.Kind())
}

func appendVector[T any](buf []byte, s []T, put func([]byte, T) []byte) []byte {
	buf = le.AppendUint32(buf, uint32(len(s)))
	for _, e := range s {
		buf = put(buf, e)
	}
	return buf
}

func appendBytes(buf, b []byte) []byte {
	buf = le.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Unmarshal decodes a hash from the binary format. It never reads past data
// and never panics; malformed input fails with errs.CorruptData carrying the
// byte offset.
func Unmarshal(data []byte) (*hash.Hash, error) {
	d := &decoder{buf: data}
	h, err := d.hash(0)
	if err != nil {
		return nil, err
	}
	if d.off != len(d.buf) {
		return nil, d.corrupt("%d trailing bytes", len(d.buf)-d.off)
	}
	return h, nil
}

// UnmarshalValue decodes a single tagged value written by MarshalValue.
func UnmarshalValue(data []byte) (hash.Value, error) {
	d := &decoder{buf: data}
	tag, err := d.u8()
	if err != nil {
		return hash.Value{}, err
	}
	v, err := d.value(hash.Kind(tag), 0)
	if err != nil {
		return hash.Value{}, err
	}
	if d.off != len(d.buf) {
		return hash.Value{}, d.corrupt("%d trailing bytes", len(d.buf)-d.off)
	}
	return v, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) corrupt(format string, args ...any) error {
	return errs.Corrupt(d.off, format, args...)
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.remaining() {
		return nil, d.corrupt("need %d bytes, %d left", n, d.remaining())
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return le.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return le.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return le.Uint64(b), nil
}

func (d *decoder) boolean() (bool, error) {
	at := d.off
	b, err := d.u8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errs.Corrupt(at, "invalid bool byte 0x%02x", b)
}

// count reads an element count and checks that count elements of at least
// minSize bytes fit in the rest of the buffer.
func (d *decoder) count(minSize int) (int, error) {
	at := d.off
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minSize) > uint64(d.remaining()) {
		return 0, errs.Corrupt(at, "count %d exceeds remaining %d bytes", n, d.remaining())
	}
	return int(n), nil
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.count(1)
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

func (d *decoder) key(isAttr bool) (string, error) {
	at := d.off
	n, err := d.u8()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errs.Corrupt(at, "empty key")
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	key := string(b)
	if !isAttr && !hash.ValidKey(key) {
		return "", errs.Corrupt(at, "invalid key %q", key)
	}
	return key, nil
}

func (d *decoder) hash(depth int) (*hash.Hash, error) {
	if depth > MaxDepth {
		return nil, d.corrupt("nesting deeper than %d", MaxDepth)
	}
	// A node takes at least key (2), tag (1) and attribute count (4).
	n, err := d.count(7)
	if err != nil {
		return nil, err
	}
	h := hash.New()
	for range n {
		at := d.off
		key, err := d.key(false)
		if err != nil {
			return nil, err
		}
		if h.Has(key) {
			return nil, errs.Corrupt(at, "duplicate key %q", key)
		}
		v, err := d.tagged(depth)
		if err != nil {
			return nil, err
		}
		node, err := h.Insert(key, v)
		if err != nil {
			return nil, errs.Corrupt(at, "%v", err)
		}
		attrs := node.Attributes()
		na, err := d.count(3)
		if err != nil {
			return nil, err
		}
		for range na {
			at := d.off
			name, err := d.key(true)
			if err != nil {
				return nil, err
			}
			if attrs.Has(name) {
				return nil, errs.Corrupt(at, "duplicate attribute %q", name)
			}
			av, err := d.tagged(depth)
			if err != nil {
				return nil, err
			}
			attrs.Set(name, av)
		}
	}
	return h, nil
}

func (d *decoder) tagged(depth int) (hash.Value, error) {
	tag, err := d.u8()
	if err != nil {
		return hash.Value{}, err
	}
	return d.value(hash.Kind(tag), depth)
}

func (d *decoder) value(kind hash.Kind, depth int) (hash.Value, error) {
	switch kind {
	case hash.KindNone:
		return hash.None(), nil
	case hash.KindBool:
		b, err := d.boolean()
		return hash.Bool(b), err
	case hash.KindInt8:
		b, err := d.u8()
		return hash.Int8(int8(b)), err
	case hash.KindInt16:
		u, err := d.u16()
		return hash.Int16(int16(u)), err
	case hash.KindInt32:
		u, err := d.u32()
		return hash.Int32(int32(u)), err
	case hash.KindInt64:
		u, err := d.u64()
		return hash.Int64(int64(u)), err
	case hash.KindUint8:
		b, err := d.u8()
		return hash.Uint8(b), err
	case hash.KindUint16:
		u, err := d.u16()
		return hash.Uint16(u), err
	case hash.KindUint32:
		u, err := d.u32()
		return hash.Uint32(u), err
	case hash.KindUint64:
		u, err := d.u64()
		return hash.Uint64(u), err
	case hash.KindFloat32:
		u, err := d.u32()
		return hash.Float32(math.Float32frombits(u)), err
	case hash.KindFloat64:
		u, err := d.u64()
		return hash.Float64(math.Float64frombits(u)), err
	case hash.KindComplex64:
		b, err := d.take(8)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Complex64(complex(math.Float32frombits(le.Uint32(b)), math.Float32frombits(le.Uint32(b[4:])))), nil
	case hash.KindComplex128:
		b, err := d.take(16)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Complex128(complex(math.Float64frombits(le.Uint64(b)), math.Float64frombits(le.Uint64(b[8:])))), nil
	case hash.KindString:
		b, err := d.bytes()
		return hash.String(string(b)), err
	case hash.KindBytes:
		b, err := d.bytes()
		return hash.Bytes(b), err
	case hash.KindTimestamp:
		b, err := d.take(12)
		if err != nil {
			return hash.Value{}, err
		}
		nsec := le.Uint32(b[8:])
		if nsec >= 1e9 {
			return hash.Value{}, errs.Corrupt(d.off-4, "nanoseconds %d out of range", nsec)
		}
		return hash.Timestamp(time.Unix(int64(le.Uint64(b)), int64(nsec)).UTC()), nil
	case hash.KindVectorBool:
		n, err := d.count(1)
		if err != nil {
			return hash.Value{}, err
		}
		out := make([]bool, n)
		for i := range out {
			if out[i], err = d.boolean(); err != nil {
				return hash.Value{}, err
			}
		}
		return hash.VectorBool(out), nil
	case hash.KindVectorInt8:
		s, err := fixedVector(d, 1, func(b []byte) int8 { return int8(b[0]) })
		return hash.VectorInt8(s), err
	case hash.KindVectorInt16:
		s, err := fixedVector(d, 2, func(b []byte) int16 { return int16(le.Uint16(b)) })
		return hash.VectorInt16(s), err
	case hash.KindVectorInt32:
		s, err := fixedVector(d, 4, func(b []byte) int32 { return int32(le.Uint32(b)) })
		return hash.VectorInt32(s), err
	case hash.KindVectorInt64:
		s, err := fixedVector(d, 8, func(b []byte) int64 { return int64(le.Uint64(b)) })
		return hash.VectorInt64(s), err
	case hash.KindVectorUint8:
		b, err := d.bytes()
		return hash.VectorUint8(b), err
	case hash.KindVectorUint16:
		s, err := fixedVector(d, 2, le.Uint16)
		return hash.VectorUint16(s), err
	case hash.KindVectorUint32:
		s, err := fixedVector(d, 4, le.Uint32)
		return hash.VectorUint32(s), err
	case hash.KindVectorUint64:
		s, err := fixedVector(d, 8, le.Uint64)
		return hash.VectorUint64(s), err
	case hash.KindVectorFloat32:
		s, err := fixedVector(d, 4, func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) })
		return hash.VectorFloat32(s), err
	case hash.KindVectorFloat64:
		s, err := fixedVector(d, 8, func(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) })
		return hash.VectorFloat64(s), err
	case hash.KindVectorString:
		n, err := d.count(4)
		if err != nil {
			return hash.Value{}, err
		}
		out := make([]string, n)
		for i := range out {
			b, err := d.bytes()
			if err != nil {
				return hash.Value{}, err
			}
			out[i] = string(b)
		}
		return hash.VectorString(out), nil
	case hash.KindHash:
		h, err := d.hash(depth + 1)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Tree(h), nil
	case hash.KindVectorHash:
		n, err := d.count(4)
		if err != nil {
			return hash.Value{}, err
		}
		out := make([]*hash.Hash, n)
		for i := range out {
			if out[i], err = d.hash(depth + 1); err != nil {
				return hash.Value{}, err
			}
		}
		return hash.Trees(out), nil
	}
	return hash.Value{}, errs.Corrupt(d.off-1, "unknown type tag %d", uint8(kind))
}

func fixedVector[T any](d *decoder, size int, get func([]byte) T) ([]T, error) {
	n, err := d.count(size)
	if err != nil {
		return nil, err
	}
	b, err := d.take(n * size)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = get(b[i*size:])
	}
	return out, nil
}
