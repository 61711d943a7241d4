package wire

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// sampleTree holds one value of every kind plus attributes and nesting.
func sampleTree(t *testing.T) *hash.Hash {
	t.Helper()
	h := hash.New()
	set := func(path string, v hash.Value) {
		require.NoError(t, h.Set(path, v))
	}
	set("none", hash.None())
	set("flag", hash.Bool(true))
	set("i8", hash.Int8(-8))
	set("i16", hash.Int16(-1600))
	set("i32", hash.Int32(math.MinInt32))
	set("i64", hash.Int64(math.MaxInt64))
	set("u8", hash.Uint8(255))
	set("u16", hash.Uint16(65535))
	set("u32", hash.Uint32(1<<31))
	set("u64", hash.Uint64(math.MaxUint64))
	set("f32", hash.Float32(1.5))
	set("f64", hash.Float64(math.NaN()))
	set("neg0", hash.Float64(math.Copysign(0, -1)))
	set("c64", hash.Complex64(complex(1, -2)))
	set("c128", hash.Complex128(complex(math.Inf(1), 0.25)))
	set("text", hash.String("grüße"))
	set("empty", hash.String(""))
	set("blob", hash.Bytes([]byte{0, 1, 0xff}))
	set("at", hash.Timestamp(time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)))
	set("vb", hash.VectorBool([]bool{true, false}))
	set("vi8", hash.VectorInt8([]int8{-1, 1}))
	set("vi16", hash.VectorInt16([]int16{-300}))
	set("vi32", hash.VectorInt32([]int32{1, 2, 3}))
	set("vi64", hash.VectorInt64(nil))
	set("vu8", hash.VectorUint8([]uint8{9, 8}))
	set("vu16", hash.VectorUint16([]uint16{1}))
	set("vu32", hash.VectorUint32([]uint32{4, 5}))
	set("vu64", hash.VectorUint64([]uint64{math.MaxUint64}))
	set("vf32", hash.VectorFloat32([]float32{0.5}))
	set("vf64", hash.VectorFloat64([]float64{1e300, -1e-300}))
	set("vs", hash.VectorString([]string{"a", "", "c"}))
	set("nested.deeper.leaf", hash.Int32(7))
	set("nested.blank", hash.Tree(nil))
	set("rows[0].name", hash.String("first"))
	set("rows[1].name", hash.String("second"))
	set("norows", hash.Trees(nil))

	require.NoError(t, h.SetAttribute("f32", "unit", hash.String("V")))
	require.NoError(t, h.SetAttribute("f32", "range", hash.VectorFloat64([]float64{0, 10})))
	require.NoError(t, h.SetAttribute("nested", "sub", hash.Tree(hash.MustFrom("x", int32(1)))))
	require.NoError(t, h.SetAttribute("text", "odd.name[0]", hash.Bool(false)))
	return h
}

func TestMarshalRoundTrip(t *testing.T) {
	h := sampleTree(t)

	data, err := Marshal(h)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, hash.EqualOrdered(h, got), "round trip changed the tree")
	assert.Equal(t, h.Keys(), got.Keys())

	neg0, err := hash.Lookup[float64](got, "neg0")
	require.NoError(t, err)
	assert.True(t, math.Signbit(neg0))

	again, err := Marshal(got)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, again), "encoding is not deterministic")
}

func TestMarshalEmpty(t *testing.T) {
	data, err := Marshal(hash.New())
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestMarshalLayout(t *testing.T) {
	h := hash.MustFrom("a", int32(1))
	require.NoError(t, h.SetAttribute("a", "u", hash.Bool(true)))

	data, err := Marshal(h)
	require.NoError(t, err)
	want := []byte{
		1, 0, 0, 0, // node count
		1, 'a', // key
		byte(hash.KindInt32), 1, 0, 0, 0,
		1, 0, 0, 0, // attribute count
		1, 'u',
		byte(hash.KindBool), 1,
	}
	assert.Equal(t, want, data)
}

func TestMarshalValueRoundTrip(t *testing.T) {
	values := []hash.Value{
		hash.None(),
		hash.Int16(-2),
		hash.String("x"),
		hash.VectorString([]string{"p", "q"}),
		hash.Tree(hash.MustFrom("k", "v")),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			data, err := MarshalValue(v)
			require.NoError(t, err)
			assert.Equal(t, byte(v.Kind()), data[0])

			got, err := UnmarshalValue(data)
			require.NoError(t, err)
			assert.True(t, v.Equal(got))
		})
	}

	_, err := MarshalValue(hash.Value{})
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestMarshalTooDeep(t *testing.T) {
	h := hash.New()
	require.NoError(t, h.Set(strings.Repeat("a.", MaxDepth+1)+"a", hash.Int32(1)))

	_, err := Marshal(h)
	assert.ErrorIs(t, err, ErrUnencodable)
}

// nested builds count levels of {"a": {...}} by hand.
func nested(count int) []byte {
	var buf []byte
	for range count {
		buf = append(buf, 1, 0, 0, 0, 1, 'a', byte(hash.KindHash))
	}
	buf = append(buf, 0, 0, 0, 0)
	for range count {
		buf = append(buf, 0, 0, 0, 0)
	}
	return buf
}

func TestUnmarshalCorrupt(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{
			name:   "empty input",
			data:   nil,
			offset: 0,
		},
		{
			name:   "count exceeds input",
			data:   []byte{0xff, 0xff, 0xff, 0xff},
			offset: 0,
		},
		{
			name:   "unknown tag",
			data:   []byte{1, 0, 0, 0, 1, 'a', 0xee, 0, 0, 0, 0},
			offset: 6,
		},
		{
			name:   "unknown zero tag",
			data:   []byte{1, 0, 0, 0, 1, 'a', 0, 0, 0, 0, 0},
			offset: 6,
		},
		{
			name:   "invalid bool",
			data:   []byte{1, 0, 0, 0, 1, 'a', byte(hash.KindBool), 5, 0, 0, 0, 0},
			offset: 7,
		},
		{
			name:   "empty key",
			data:   []byte{1, 0, 0, 0, 0, byte(hash.KindNone), 0, 0, 0, 0, 0},
			offset: 4,
		},
		{
			name:   "dotted key",
			data:   []byte{1, 0, 0, 0, 3, 'a', '.', 'b', byte(hash.KindNone), 0, 0, 0, 0},
			offset: 4,
		},
		{
			name: "duplicate key",
			data: []byte{
				2, 0, 0, 0,
				1, 'a', byte(hash.KindNone), 0, 0, 0, 0,
				1, 'a', byte(hash.KindNone), 0, 0, 0, 0,
			},
			offset: 11,
		},
		{
			name: "duplicate attribute",
			data: []byte{
				1, 0, 0, 0,
				1, 'a', byte(hash.KindNone),
				2, 0, 0, 0,
				1, 'u', byte(hash.KindNone),
				1, 'u', byte(hash.KindNone),
			},
			offset: 14,
		},
		{
			name:   "truncated string",
			data:   []byte{1, 0, 0, 0, 1, 'a', byte(hash.KindString), 5, 0, 0, 0, 'h', 'i'},
			offset: 7,
		},
		{
			name:   "truncated attribute count",
			data:   []byte{1, 0, 0, 0, 1, 'a', byte(hash.KindInt32), 1, 0, 0, 0, 0, 0},
			offset: 11,
		},
		{
			name:   "trailing bytes",
			data:   []byte{0, 0, 0, 0, 0xaa},
			offset: 4,
		},
		{
			name: "nanoseconds out of range",
			data: []byte{
				1, 0, 0, 0,
				1, 't', byte(hash.KindTimestamp),
				0, 0, 0, 0, 0, 0, 0, 0,
				0x00, 0xca, 0x9a, 0x3b, // 1e9
				0, 0, 0, 0,
			},
			offset: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrCorruptData)

			var e *errs.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.offset, e.Offset, "error: %v", err)
		})
	}
}

func TestUnmarshalDepth(t *testing.T) {
	h, err := Unmarshal(nested(100))
	require.NoError(t, err)
	assert.True(t, h.Has(strings.Repeat("a.", 99)+"a"))

	_, err = Unmarshal(nested(MaxDepth + 10))
	assert.ErrorIs(t, err, errs.ErrCorruptData)
}

func TestUnmarshalEveryTruncation(t *testing.T) {
	data, err := Marshal(sampleTree(t))
	require.NoError(t, err)

	for n := range len(data) {
		_, err := Unmarshal(data[:n])
		if !errs.Is(err, errs.CorruptData) {
			t.Fatalf("prefix of %d bytes: got %v, want CorruptData", n, err)
		}
	}
}

func TestUnmarshalDoesNotAliasInput(t *testing.T) {
	h := hash.MustFrom("b", []byte{1, 2, 3})
	data, err := Marshal(h)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	for i := range data {
		data[i] = 0
	}
	b, err := hash.Lookup[[]byte](got, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}
