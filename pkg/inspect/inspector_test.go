package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/validate"
)

func mustPath(t *testing.T, s string) *Path {
	t.Helper()
	p, err := ParsePath(s)
	require.NoError(t, err)
	return p
}

func createTestTree() *hash.Hash {
	h := hash.MustFrom("name", "m1", "speed", float64(1500), "bus.address", uint16(1))
	_ = h.SetAttribute("speed", "unit", hash.String("rpm"))
	_ = h.Set("points", hash.Trees([]*hash.Hash{hash.MustFrom("label", "a")}))
	return h
}

func TestInspectorRead(t *testing.T) {
	insp := NewInspector(createTestTree(), nil)

	v, err := insp.Read(mustPath(t, "bus.address"))
	require.NoError(t, err)
	assert.True(t, v.Equal(hash.Uint16(1)))

	v, err = insp.Read(mustPath(t, "speed@unit"))
	require.NoError(t, err)
	assert.True(t, v.Equal(hash.String("rpm")))

	v, err = insp.Read(mustPath(t, "points[0].label"))
	require.NoError(t, err)
	assert.True(t, v.Equal(hash.String("a")))

	v, err = insp.Read(mustPath(t, "."))
	require.NoError(t, err)
	assert.Equal(t, hash.KindHash, v.Kind())

	_, err = insp.Read(mustPath(t, "bus.nope"))
	assert.ErrorIs(t, err, errs.ErrPathNotFound)
}

func TestInspectorWrite(t *testing.T) {
	t.Run("schema decides the kind", func(t *testing.T) {
		insp := NewInspector(createTestTree(), helpSchema(t))
		require.NoError(t, insp.Write(mustPath(t, "speed"), "42"))
		v, err := insp.Tree().Get("speed")
		require.NoError(t, err)
		assert.True(t, v.Equal(hash.Float64(42)))
		assert.True(t, insp.Tree().HasAttribute("speed", "unit"), "attributes are kept")

		err = insp.Write(mustPath(t, "speed"), "fast")
		assert.ErrorIs(t, err, errs.ErrTypeMismatch)
	})

	t.Run("inferred without schema", func(t *testing.T) {
		insp := NewInspector(nil, nil)
		tests := []struct {
			path    string
			literal string
			want    hash.Value
		}{
			{"a", "42", hash.Int64(42)},
			{"b", "1.5", hash.Float64(1.5)},
			{"c", "true", hash.Bool(true)},
			{"d", "hello world", hash.String("hello world")},
			{"e", "[1, 2]", hash.VectorInt64([]int64{1, 2})},
			{"f.g", "x", hash.String("x")},
		}
		for _, tt := range tests {
			require.NoError(t, insp.Write(mustPath(t, tt.path), tt.literal))
			v, err := insp.Tree().Get(tt.path)
			require.NoError(t, err)
			assert.True(t, v.Equal(tt.want), "%s = %s", tt.path, v)
		}
	})

	t.Run("rows and attributes", func(t *testing.T) {
		insp := NewInspector(createTestTree(), helpSchema(t))
		require.NoError(t, insp.Write(mustPath(t, "points[0].label"), "b"))
		require.NoError(t, insp.Write(mustPath(t, "bus.address@comment"), "primary"))
		v, err := insp.Tree().Get("points[0].label")
		require.NoError(t, err)
		assert.True(t, v.Equal(hash.String("b")))
		attr, err := insp.Tree().Attribute("bus.address", "comment")
		require.NoError(t, err)
		assert.True(t, attr.Equal(hash.String("primary")))
	})

	t.Run("root is not writable", func(t *testing.T) {
		insp := NewInspector(nil, nil)
		assert.ErrorIs(t, insp.Write(mustPath(t, "."), "1"), ErrInvalidPath)
	})
}

func TestInspectorRemove(t *testing.T) {
	insp := NewInspector(createTestTree(), nil)

	require.NoError(t, insp.Remove(mustPath(t, "speed@unit")))
	assert.True(t, insp.Tree().Has("speed"))
	assert.False(t, insp.Tree().HasAttribute("speed", "unit"))

	require.NoError(t, insp.Remove(mustPath(t, "bus.address")))
	assert.True(t, insp.Tree().Has("bus"))
	assert.False(t, insp.Tree().Has("bus.address"))

	require.NoError(t, insp.Remove(mustPath(t, ".")))
	assert.True(t, insp.Tree().Empty())
}

func TestInspectorList(t *testing.T) {
	insp := NewInspector(createTestTree(), helpSchema(t))

	entries, err := insp.List(mustPath(t, "."))
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"name", "speed", "bus", "points"}, names)
	require.NotNil(t, entries[1].Element)
	assert.Equal(t, "rpm", entries[1].Element.Unit)
	assert.Equal(t, 1, entries[1].Attributes)

	rows := NewFormatter().Rows(entries)
	assert.Equal(t, EntryRow{Name: "speed@", Value: "1500 rpm", Kind: "FLOAT64", Access: "reconfigurable"}, rows[1])

	entries, err = insp.List(mustPath(t, "points"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "[0]", entries[0].Name)

	_, err = insp.List(mustPath(t, "speed"))
	assert.ErrorIs(t, err, ErrNotHash)
}

func TestInspectorHelp(t *testing.T) {
	insp := NewInspector(nil, helpSchema(t))

	out, err := insp.Help(nil, "SPD")
	require.NoError(t, err)
	assert.Contains(t, out, "speed (FLOAT64, leaf)")

	out, err = insp.Help(nil, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema: Motor")

	_, err = insp.Help(nil, "missing")
	assert.ErrorIs(t, err, errs.ErrPathNotFound)

	_, err = NewInspector(nil, nil).Help(nil, "speed")
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestInspectorValidate(t *testing.T) {
	insp := NewInspector(hash.MustFrom("speed", float64(10)), helpSchema(t))

	_, err := insp.Validate(validate.DefaultRules(), "")
	assert.ErrorIs(t, err, errs.ErrMissingMandatoryElement)

	require.NoError(t, insp.Write(mustPath(t, "name"), "m1"))
	out, err := insp.Validate(validate.DefaultRules(), "")
	require.NoError(t, err)
	assert.True(t, out.Has("bus.address"))
	assert.False(t, insp.Tree().Has("bus"), "the inspected tree is not changed")

	_, err = NewInspector(nil, nil).Validate(validate.DefaultRules(), "")
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		literal string
		want    hash.Value
	}{
		{"", hash.String("")},
		{"null", hash.None()},
		{"-7", hash.Int64(-7)},
		{"'42'", hash.String("42")},
		{"[a, b]", hash.VectorString([]string{"a", "b"})},
		{"{x: 1}", hash.Tree(hash.MustFrom("x", 1))},
		{"a: b: c", hash.String("a: b: c")},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got, err := ParseLiteral(tt.literal)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s (%s)", got, got.Kind())
		})
	}
}
