package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// motorSchema declares a small but complete schema used across tests.
func motorSchema(t *testing.T) *Schema {
	t.Helper()
	s := New("Motor")
	must := func(err error) {
		t.Helper()
		require.NoError(t, err)
	}
	must(StringElement(s).Key("name").Mandatory().Init().Description("Motor name").Commit())
	must(Float64Element(s).Key("speed").Unit("rpm").MinInc(0).MaxInc(3000).DefaultValue(1500).
		Alias("SPD").Tags("hw", "fast").Commit())
	must(Int32Element(s).Key("mode").Options(1, 2, 3).DefaultValue(2).AllowedStates("OFF").Commit())
	must(BoolElement(s).Key("running").ReadOnly().DefaultValue(false).Commit())
	must(VectorInt32Element(s).Key("limits").MinSize(2).MaxSize(2).DefaultValue([]int32{0, 100}).Commit())
	must(NodeElement(s).Key("bus").Description("Field bus").Commit())
	must(Uint16Element(s).Key("bus.address").DefaultValue(1).Tags("hw").Commit())
	must(ChoiceElement(s).Key("link").DefaultValue("tcp").Commit())
	must(NodeElement(s).Key("link.tcp").Commit())
	must(Uint16Element(s).Key("link.tcp.port").DefaultValue(502).Commit())
	must(NodeElement(s).Key("link.serial").Commit())
	must(StringElement(s).Key("link.serial.device").Mandatory().Commit())
	must(ListElement(s).Key("filters").DefaultValue("lowpass").MaxSize(4).Commit())
	must(NodeElement(s).Key("filters.lowpass").Commit())
	must(Float32Element(s).Key("filters.lowpass.cutoff").DefaultValue(50).Commit())
	must(NodeElement(s).Key("filters.notch").Commit())

	rows := New("")
	must(StringElement(rows).Key("label").Mandatory().Commit())
	must(Int32Element(rows).Key("weight").DefaultValue(1).Commit())
	must(TableElement(s).Key("points").RowSchema(rows).MaxSize(8).
		DefaultValue(hash.MustFrom("label", "origin", "weight", int32(0))).Commit())
	return s
}

func TestBuildersAndQueries(t *testing.T) {
	s := motorSchema(t)

	assert.Equal(t, "Motor", s.RootName())
	assert.Equal(t, []string{"name", "speed", "mode", "running", "limits", "bus", "link", "filters", "points"}, s.Keys())
	assert.Equal(t, 9, s.Len())
	assert.True(t, s.Has("link.serial.device"))
	assert.False(t, s.Has("link.serial.baud"))
	assert.Equal(t, []string{
		"name", "speed", "mode", "running", "limits", "bus.address",
		"link.tcp.port", "link.serial.device", "filters.lowpass.cutoff", "filters.notch", "points",
	}, s.Paths())

	speed, err := s.Element("speed")
	require.NoError(t, err)
	assert.Equal(t, "speed", speed.Key)
	assert.Equal(t, LeafNode, speed.NodeType)
	assert.Equal(t, hash.KindFloat64, speed.ValueKind)
	assert.Equal(t, AccessReconfigurable, speed.Access)
	assert.Equal(t, Optional, speed.Assignment)
	assert.True(t, speed.Default.Equal(hash.Float64(1500)))
	assert.True(t, speed.MaxInc.Equal(hash.Float64(3000)))
	assert.Equal(t, "rpm", speed.Unit)
	assert.Equal(t, Unset, speed.MinSize)

	path, ok := s.KeyForAlias("SPD")
	assert.True(t, ok)
	assert.Equal(t, "speed", path)
	assert.Equal(t, []string{"speed", "bus.address"}, s.Tagged("hw"))

	link, err := s.Element("link")
	require.NoError(t, err)
	assert.Equal(t, ChoiceNode, link.NodeType)

	children, err := s.Children("link")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "link.serial", children[1].Path)

	_, err = s.Element("nope")
	assert.ErrorIs(t, err, errs.ErrPathNotFound)
}

func TestElementCopiesAreIndependent(t *testing.T) {
	s := motorSchema(t)
	e, err := s.Element("mode")
	require.NoError(t, err)
	e.Options[0] = hash.Int32(99)
	e.AllowedStates[0] = "ON"

	again, err := s.Element("mode")
	require.NoError(t, err)
	assert.True(t, again.Options[0].Equal(hash.Int32(1)))
	assert.Equal(t, []string{"OFF"}, again.AllowedStates)
}

func TestCommitErrors(t *testing.T) {
	tests := []struct {
		name   string
		commit func(s *Schema) error
	}{
		{"missing key", func(s *Schema) error { return Int32Element(s).Commit() }},
		{"missing type", func(s *Schema) error { return ElementOf(s, hash.KindUnknown).Key("x").Commit() }},
		{"empty segment", func(s *Schema) error { return Int32Element(s).Key("bus..x").Commit() }},
		{"indexed key", func(s *Schema) error { return Int32Element(s).Key("bus[0]").Commit() }},
		{"undeclared parent", func(s *Schema) error { return Int32Element(s).Key("nowhere.x").Commit() }},
		{"leaf parent", func(s *Schema) error { return Int32Element(s).Key("speed.x").Commit() }},
		{"leaf under choice", func(s *Schema) error { return Int32Element(s).Key("link.x").Commit() }},
		{"leaf under list", func(s *Schema) error { return Int32Element(s).Key("filters.x").Commit() }},
		{"default above max", func(s *Schema) error {
			return Int32Element(s).Key("x").MaxInc(10).DefaultValue(11).Commit()
		}},
		{"default at exclusive min", func(s *Schema) error {
			return Float64Element(s).Key("x").MinExc(0).DefaultValue(0).Commit()
		}},
		{"default not in options", func(s *Schema) error {
			return StringElement(s).Key("x").Options("a", "b").DefaultValue("c").Commit()
		}},
		{"min above max", func(s *Schema) error { return Int8Element(s).Key("x").MinInc(5).MaxInc(4).Commit() }},
		{"empty exclusive range", func(s *Schema) error { return Int8Element(s).Key("x").MinExc(4).MaxExc(4).Commit() }},
		{"min size above max size", func(s *Schema) error {
			return VectorStringElement(s).Key("x").MinSize(3).MaxSize(2).Commit()
		}},
		{"default too long", func(s *Schema) error {
			return VectorStringElement(s).Key("x").MaxSize(1).DefaultValue([]string{"a", "b"}).Commit()
		}},
		{"size on scalar", func(s *Schema) error { return Int32Element(s).Key("x").MaxSize(1).Commit() }},
		{"bounds on string", func(s *Schema) error { return ElementOf(s, hash.KindString).Key("x").MinInc("a").Commit() }},
		{"option of wrong kind", func(s *Schema) error { return ElementOf(s, hash.KindInt32).Key("x").Options("many").Commit() }},
		{"options on bytes", func(s *Schema) error {
			return ElementOf(s, hash.KindBytes).Key("x").Options([]byte{1}).Commit()
		}},
		{"list default too long", func(s *Schema) error {
			return ListElement(s).Key("x").MaxSize(1).DefaultValue("a", "b").Commit()
		}},
		{"row schema on scalar", func(s *Schema) error {
			return ElementOf(s, hash.KindInt32).Key("x").RowSchema(New("")).Commit()
		}},
		{"duplicate alias", func(s *Schema) error { return Int32Element(s).Key("x").Alias("SPD").Commit() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := motorSchema(t)
			before := s.ToHash()

			err := tt.commit(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrSchema)
			assert.True(t, hash.EqualOrdered(before, s.ToHash()), "failed commit changed the schema")
		})
	}
}

func TestRecommitOverwrites(t *testing.T) {
	t.Run("new default", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, Float64Element(s).Key("speed").Unit("rpm").MinInc(0).MaxInc(3000).DefaultValue(20).
			Alias("SPD").Tags("hw", "fast").Commit())
		e, _ := s.Element("speed")
		assert.True(t, e.Default.Equal(hash.Float64(20)))
		assert.Equal(t, 1, s.root.Position("speed"))
		assert.Equal(t, 9, s.Len())
	})
	t.Run("kind change", func(t *testing.T) {
		s := motorSchema(t)
		err := Int32Element(s).Key("speed").DefaultValue(20).Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
	})
	t.Run("node type change", func(t *testing.T) {
		s := motorSchema(t)
		err := NodeElement(s).Key("speed").Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
	})
	t.Run("relax mandatory", func(t *testing.T) {
		s := motorSchema(t)
		err := StringElement(s).Key("name").Init().Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
	})
	t.Run("children survive", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, NodeElement(s).Key("bus").Description("Modbus").Commit())
		assert.True(t, s.Has("bus.address"))
	})
}

func TestOverwriteBuilder(t *testing.T) {
	t.Run("default and bounds", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, Overwrite(s).Key("speed").SetNewMaxInc(100).SetNewDefaultValue(20).Commit())
		e, _ := s.Element("speed")
		assert.True(t, e.Default.Equal(hash.Float64(20)))
		assert.True(t, e.MaxInc.Equal(hash.Float64(100)))
		assert.Equal(t, "rpm", e.Unit)
	})
	t.Run("options and access", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, Overwrite(s).Key("mode").SetNewOptions(2, 4).SetNowInit().Commit())
		e, _ := s.Element("mode")
		assert.Equal(t, AccessInit, e.Access)
		require.Len(t, e.Options, 2)
		assert.True(t, e.Options[1].Equal(hash.Int32(4)))
	})
	t.Run("choice default", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, Overwrite(s).Key("link").SetNewDefaultValue("serial").Commit())
		assert.Equal(t, "serial", mustHash(t, s.DefaultsHash(), "link").Keys()[0])
	})
	t.Run("tighter options reject default", func(t *testing.T) {
		s := motorSchema(t)
		before := s.ToHash()
		err := Overwrite(s).Key("mode").SetNewOptions(1, 3).Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
		assert.True(t, hash.EqualOrdered(before, s.ToHash()))
	})
	t.Run("unconvertible value", func(t *testing.T) {
		s := motorSchema(t)
		err := Overwrite(s).Key("mode").SetNewDefaultValue("two").Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
	})
	t.Run("missing element", func(t *testing.T) {
		s := motorSchema(t)
		err := Overwrite(s).Key("torque").SetNewDefaultValue(1).Commit()
		assert.ErrorIs(t, err, errs.ErrSchema)
	})
	t.Run("alias moves", func(t *testing.T) {
		s := motorSchema(t)
		require.NoError(t, Overwrite(s).Key("speed").SetNewAlias("RPM").Commit())
		_, ok := s.KeyForAlias("SPD")
		assert.False(t, ok)
		path, ok := s.KeyForAlias("RPM")
		assert.True(t, ok)
		assert.Equal(t, "speed", path)
	})
}

func TestRestrictions(t *testing.T) {
	s := New("R")
	require.NoError(t, Int32Element(s).Key("x").DefaultValue(1).MaxInc(10).
		OverwriteRestrictions(RestrictDefault).Commit())

	err := Overwrite(s).Key("x").SetNewDefaultValue(2).Commit()
	assert.ErrorIs(t, err, errs.ErrSchema)

	require.NoError(t, Overwrite(s).Key("x").SetNewMaxInc(5).Commit())

	require.NoError(t, Overwrite(s).Key("x").SetNewOverwriteRestrictions(RestrictMaxInc).Commit())
	e, _ := s.Element("x")
	assert.Equal(t, RestrictDefault|RestrictMaxInc, e.Restrictions)
	assert.ErrorIs(t, Overwrite(s).Key("x").SetNewMaxInc(6).Commit(), errs.ErrSchema)

	// A re-declaration without restrictions keeps the old ones.
	require.NoError(t, Int32Element(s).Key("x").DefaultValue(1).MaxInc(5).Commit())
	e, _ = s.Element("x")
	assert.Equal(t, RestrictDefault|RestrictMaxInc, e.Restrictions)

	require.NoError(t, Overwrite(s).Key("x").SetNewOverwriteRestrictions(RestrictRestrictions).Commit())
	assert.ErrorIs(t, Overwrite(s).Key("x").SetNewOverwriteRestrictions(RestrictUnit).Commit(), errs.ErrSchema)

	assert.Equal(t, []string{"default", "maxInc"}, (RestrictDefault | RestrictMaxInc).Names())
	r, ok := ParseRestriction("allowedstates")
	assert.True(t, ok)
	assert.Equal(t, RestrictAllowedStates, r)
}

func TestDefaultsHash(t *testing.T) {
	d := motorSchema(t).DefaultsHash()

	want := hash.New()
	require.NoError(t, want.Set("speed", hash.Float64(1500)))
	require.NoError(t, want.Set("mode", hash.Int32(2)))
	require.NoError(t, want.Set("running", hash.Bool(false)))
	require.NoError(t, want.Set("limits", hash.VectorInt32([]int32{0, 100})))
	require.NoError(t, want.Set("bus.address", hash.Uint16(1)))
	require.NoError(t, want.Set("link.tcp.port", hash.Uint16(502)))
	require.NoError(t, want.Set("filters", hash.Trees([]*hash.Hash{
		hash.MustFrom("lowpass.cutoff", float32(50)),
	})))
	require.NoError(t, want.Set("points", hash.Trees([]*hash.Hash{
		hash.MustFrom("label", "origin", "weight", int32(0)),
	})))
	assert.True(t, hash.EqualOrdered(want, d), "diff: %v", hash.Diff(want, d))
}

func TestCloneIsDeep(t *testing.T) {
	s := motorSchema(t)
	c := s.Clone()
	require.NoError(t, Overwrite(c).Key("speed").SetNewDefaultValue(1).Commit())
	require.NoError(t, Int32Element(c).Key("bus.extra").Commit())

	e, _ := s.Element("speed")
	assert.True(t, e.Default.Equal(hash.Float64(1500)))
	assert.False(t, s.Has("bus.extra"))
}

func TestMerge(t *testing.T) {
	s := motorSchema(t)
	ext := New("Ext")
	require.NoError(t, NodeElement(ext).Key("bus").Commit())
	require.NoError(t, Uint32Element(ext).Key("bus.baud").DefaultValue(9600).Alias("BAUD").Commit())
	require.NoError(t, StringElement(ext).Key("vendor").Commit())

	require.NoError(t, s.Merge(ext))
	assert.True(t, s.Has("bus.baud"))
	assert.Equal(t, "vendor", s.Keys()[s.Len()-1])
	path, ok := s.KeyForAlias("BAUD")
	assert.True(t, ok)
	assert.Equal(t, "bus.baud", path)

	bad := New("Bad")
	require.NoError(t, StringElement(bad).Key("bus").Commit())
	before := s.ToHash()
	assert.ErrorIs(t, s.Merge(bad), errs.ErrSchema)
	assert.True(t, hash.EqualOrdered(before, s.ToHash()))
}

func TestHashFormRoundTrip(t *testing.T) {
	s := motorSchema(t)
	h := s.ToHash()

	speedType, err := h.Attribute("speed", AttrValueType)
	require.NoError(t, err)
	assert.Equal(t, "FLOAT64", speedType.String())
	port, err := h.Attribute("link.tcp.port", AttrDefaultValue)
	require.NoError(t, err)
	assert.True(t, port.Equal(hash.Uint16(502)))

	back, err := FromHash("Motor", h)
	require.NoError(t, err)
	assert.True(t, hash.EqualOrdered(h, back.ToHash()))

	pts, err := back.Element("points")
	require.NoError(t, err)
	require.NotNil(t, pts.RowSchema)
	assert.Equal(t, []string{"label", "weight"}, pts.RowSchema.Keys())
}

func TestFromHashRejectsBadDescriptors(t *testing.T) {
	h := hash.MustFrom("x", nil)
	require.NoError(t, h.SetAttribute("x", AttrValueType, hash.String("WIDGET")))
	_, err := FromHash("", h)
	assert.ErrorIs(t, err, errs.ErrSchema)

	h = hash.MustFrom("x", nil)
	require.NoError(t, h.SetAttribute("x", AttrValueType, hash.String("INT32")))
	require.NoError(t, h.SetAttribute("x", AttrDefaultValue, hash.String("3")))
	_, err = FromHash("", h)
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestCheckValue(t *testing.T) {
	s := motorSchema(t)
	speed, _ := s.Element("speed")
	mode, _ := s.Element("mode")
	limits, _ := s.Element("limits")

	assert.NoError(t, speed.CheckValue(hash.Float64(3000)))
	assert.ErrorIs(t, speed.CheckValue(hash.Float64(3000.5)), errs.ErrConstraintViolation)
	assert.ErrorIs(t, speed.CheckValue(hash.Float64(-1)), errs.ErrConstraintViolation)
	assert.ErrorIs(t, mode.CheckValue(hash.Int32(4)), errs.ErrConstraintViolation)
	assert.ErrorIs(t, limits.CheckValue(hash.VectorInt32([]int32{1})), errs.ErrConstraintViolation)

	err := mode.CheckValue(hash.Int32(7))
	k, _ := errs.KindOf(err)
	assert.Equal(t, errs.ConstraintViolation, k)
}

func TestParseYAML(t *testing.T) {
	doc := `
version: "1.0"
root: Motor
elements:
  - key: name
    type: string
    assignment: mandatory
    access: init
  - key: speed
    type: float64
    unit: rpm
    minInc: 0
    maxInc: 3000
    default: 1500
    alias: SPD
    tags: [hw]
  - key: weights
    type: vector_float64
    default: [1, 2.5]
    maxSize: 4
  - key: mode
    type: int32
    options: [1, 2, 3]
    default: 2
    restrictions: [default]
  - key: bus
    type: node
    elements:
      - key: address
        type: uint16
        default: 1
  - key: link
    type: choice
    default: tcp
    elements:
      - key: tcp
        type: node
      - key: serial
        type: node
  - key: filters
    type: list
    default: [lowpass]
    elements:
      - key: lowpass
        type: node
  - key: points
    type: table
    rows:
      - key: label
        type: string
        assignment: mandatory
    default:
      - label: a
`
	s, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Motor", s.RootName())
	assert.Equal(t, []string{"name", "speed", "weights", "mode", "bus", "link", "filters", "points"}, s.Keys())

	w, _ := s.Element("weights")
	assert.True(t, w.Default.Equal(hash.VectorFloat64([]float64{1, 2.5})))

	mode, _ := s.Element("mode")
	assert.Equal(t, RestrictDefault, mode.Restrictions)

	name, _ := s.Element("name")
	assert.Equal(t, Mandatory, name.Assignment)
	assert.Equal(t, AccessInit, name.Access)

	got := s.DefaultsHash()
	label, err := hash.Lookup[string](got, "points[0].label")
	require.NoError(t, err)
	assert.Equal(t, "a", label)

	lists := cmp.Diff([]string{"lowpass"}, mustLookupKeys(t, got, "filters"))
	assert.Empty(t, lists)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind errs.Kind
	}{
		{"malformed", "elements: [", errs.SyntaxError},
		{"unknown field", "elements:\n  - key: a\n    type: int32\n    colour: red\n", errs.SyntaxError},
		{"unknown type", "elements:\n  - key: a\n    type: widget\n", errs.SchemaError},
		{"bad default", "elements:\n  - key: a\n    type: int8\n    default: 300\n", errs.SchemaError},
		{"missing key", "elements:\n  - type: int8\n", errs.SchemaError},
		{"children on leaf", "elements:\n  - key: a\n    type: int8\n    elements:\n      - key: b\n        type: int8\n", errs.SchemaError},
		{"unknown access", "elements:\n  - key: a\n    type: int8\n    access: sometimes\n", errs.SchemaError},
		{"unknown restriction", "elements:\n  - key: a\n    type: int8\n    restrictions: [colour]\n", errs.SchemaError},
		{"newer format", "version: \"2.0\"\nelements: []\n", errs.SchemaError},
		{"bad version", "version: one\nelements: []\n", errs.SchemaError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			k, ok := errs.KindOf(err)
			require.True(t, ok, "unclassified error %v", err)
			assert.Equal(t, tt.kind, k, "error: %v", err)
		})
	}
}

func mustHash(t *testing.T, h *hash.Hash, path string) *hash.Hash {
	t.Helper()
	sub, err := hash.Lookup[*hash.Hash](h, path)
	require.NoError(t, err)
	return sub
}

// mustLookupKeys returns the single key of every row of the vector at path.
func mustLookupKeys(t *testing.T, h *hash.Hash, path string) []string {
	t.Helper()
	rows, err := hash.Lookup[[]*hash.Hash](h, path)
	require.NoError(t, err)
	var keys []string
	for _, r := range rows {
		keys = append(keys, r.Keys()...)
	}
	return keys
}
