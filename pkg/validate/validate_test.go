package validate

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/log"
	"github.com/mash-protocol/hashcfg/pkg/schema"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) decisions(action log.Action) []string {
	var paths []string
	for _, e := range r.events {
		if e.Decision != nil && e.Decision.Action == action {
			paths = append(paths, e.Decision.Path)
		}
	}
	return paths
}

func motorSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New("Motor")
	must := func(err error) {
		t.Helper()
		require.NoError(t, err)
	}
	must(schema.StringElement(s).Key("name").Mandatory().Init().Commit())
	must(schema.Float64Element(s).Key("speed").MinInc(0).MaxInc(3000).DefaultValue(1500).Commit())
	must(schema.Int32Element(s).Key("mode").Options(1, 2, 3).DefaultValue(2).AllowedStates("OFF").Commit())
	must(schema.BoolElement(s).Key("running").ReadOnly().DefaultValue(false).Commit())
	must(schema.VectorInt32Element(s).Key("limits").MinSize(2).MaxSize(2).DefaultValue([]int32{0, 100}).Commit())
	must(schema.VectorFloat64Element(s).Key("gains").Commit())
	must(schema.StringElement(s).Key("serial").Internal().DefaultValue("S-0").Commit())
	must(schema.Int32Element(s).Key("blob").SkipValidation().Commit())
	must(schema.NodeElement(s).Key("bus").Commit())
	must(schema.Uint16Element(s).Key("bus.address").DefaultValue(1).Commit())
	must(schema.ChoiceElement(s).Key("link").DefaultValue("tcp").Commit())
	must(schema.NodeElement(s).Key("link.tcp").Commit())
	must(schema.Uint16Element(s).Key("link.tcp.port").DefaultValue(502).Commit())
	must(schema.NodeElement(s).Key("link.serial").Commit())
	must(schema.StringElement(s).Key("link.serial.device").Mandatory().Commit())
	must(schema.ListElement(s).Key("filters").DefaultValue("lowpass").MaxSize(2).Commit())
	must(schema.NodeElement(s).Key("filters.lowpass").Commit())
	must(schema.Float32Element(s).Key("filters.lowpass.cutoff").DefaultValue(50).Commit())
	must(schema.NodeElement(s).Key("filters.notch").Commit())

	rows := schema.New("")
	must(schema.StringElement(rows).Key("label").Mandatory().Commit())
	must(schema.Int32Element(rows).Key("weight").DefaultValue(1).Commit())
	must(schema.TableElement(s).Key("points").RowSchema(rows).MaxSize(4).
		DefaultValue(hash.MustFrom("label", "origin", "weight", int32(0))).Commit())
	return s
}

func get(t *testing.T, h *hash.Hash, path string) hash.Value {
	t.Helper()
	v, err := h.Get(path)
	require.NoError(t, err, path)
	return v
}

func TestDefaultsAreInjected(t *testing.T) {
	s := motorSchema(t)
	out, err := Validate(hash.MustFrom("name", "m1"), s, "", DefaultRules())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"name", "speed", "mode", "running", "limits", "serial", "bus", "link", "filters", "points",
	}, out.Keys())

	tests := []struct {
		path string
		want hash.Value
	}{
		{"name", hash.String("m1")},
		{"speed", hash.Float64(1500)},
		{"mode", hash.Int32(2)},
		{"running", hash.Bool(false)},
		{"limits", hash.VectorInt32([]int32{0, 100})},
		{"serial", hash.String("S-0")},
		{"bus.address", hash.Uint16(1)},
		{"link.tcp.port", hash.Uint16(502)},
		{"filters[0].lowpass.cutoff", hash.Float32(50)},
		{"points[0].label", hash.String("origin")},
		{"points[0].weight", hash.Int32(0)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := get(t, out, tt.path)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
	assert.False(t, out.Has("gains"), "no default, nothing injected")
	assert.False(t, out.Has("blob"))
}

func TestDefaultsNotInjected(t *testing.T) {
	rules := DefaultRules()
	rules.InjectDefaults = false
	out, err := Validate(hash.MustFrom("name", "m1", "bus.address", uint16(7)), motorSchema(t), "", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "bus"}, out.Keys())
	assert.True(t, get(t, out, "bus.address").Equal(hash.Uint16(7)))
}

func TestMandatory(t *testing.T) {
	s := motorSchema(t)

	_, err := Validate(hash.New(), s, "", DefaultRules())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrMissingMandatoryElement)
	assert.ErrorIs(t, err, &errs.Error{Kind: errs.MissingMandatoryElement, Path: "name"})

	rules := DefaultRules()
	rules.AllowMissingMandatory = true
	out, err := Validate(nil, s, "", rules)
	require.NoError(t, err)
	assert.False(t, out.Has("name"))
	assert.True(t, out.Has("speed"))
}

func TestStateGating(t *testing.T) {
	s := motorSchema(t)
	user := hash.MustFrom("name", "m1", "mode", int32(3))

	tests := []struct {
		name  string
		state string
		mode  Mode
		ok    bool
	}{
		{"allowed state", "OFF", ModeInitial, true},
		{"forbidden state", "ON", ModeInitial, false},
		{"no state given", "", ModeInitial, true},
		{"report ignores state", "ON", ModeReport, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			rules.Mode = tt.mode
			out, err := Validate(user, s, tt.state, rules)
			if !tt.ok {
				assert.ErrorIs(t, err, &errs.Error{Kind: errs.StateViolation, Path: "mode"})
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.True(t, get(t, out, "mode").Equal(hash.Int32(3)))
		})
	}
}

func TestUnknownKeys(t *testing.T) {
	s := motorSchema(t)
	user := hash.MustFrom("name", "m1", "extra", int32(1), "bus.ghost", true)

	_, err := Validate(user, s, "", DefaultRules())
	assert.ErrorIs(t, err, &errs.Error{Kind: errs.UnknownElement, Path: "bus.ghost"})

	rules := DefaultRules()
	rules.AllowUnknownKeys = true
	out, err := Validate(user, s, "", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "extra", "bus"}, out.Keys()[:3])
	assert.True(t, get(t, out, "extra").Equal(hash.Int32(1)))
	assert.True(t, get(t, out, "bus.ghost").Equal(hash.Bool(true)))
	assert.True(t, get(t, out, "bus.address").Equal(hash.Uint16(1)))
}

func TestOverwrittenDefaultIsUsed(t *testing.T) {
	s := motorSchema(t)
	require.NoError(t, schema.Overwrite(s).Key("speed").SetNewDefaultValue(float64(100)).SetNewMaxInc(float64(200)).Commit())

	out, err := Validate(hash.MustFrom("name", "m1"), s, "", DefaultRules())
	require.NoError(t, err)
	assert.True(t, get(t, out, "speed").Equal(hash.Float64(100)))

	_, err = Validate(hash.MustFrom("name", "m1", "speed", float64(250)), s, "", DefaultRules())
	assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "speed"})

	require.NoError(t, schema.Int32Element(s).Key("fixed").DefaultValue(5).
		OverwriteRestrictions(schema.RestrictDefault).Commit())
	err = schema.Overwrite(s).Key("fixed").SetNewDefaultValue(int32(6)).Commit()
	assert.ErrorIs(t, err, errs.ErrSchema)
	out, err = Validate(hash.MustFrom("name", "m1"), s, "", DefaultRules())
	require.NoError(t, err)
	assert.True(t, get(t, out, "fixed").Equal(hash.Int32(5)))
}

func TestAccessModes(t *testing.T) {
	s := motorSchema(t)

	tests := []struct {
		name string
		mode Mode
		user *hash.Hash
		path string
	}{
		{"read-only in initial", ModeInitial, hash.MustFrom("name", "m", "running", true), "running"},
		{"read-only in reconfigure", ModeReconfigure, hash.MustFrom("running", true), "running"},
		{"init-only in reconfigure", ModeReconfigure, hash.MustFrom("name", "m"), "name"},
		{"internal in reconfigure", ModeReconfigure, hash.MustFrom("serial", "S-9"), "serial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			rules.Mode = tt.mode
			rules.AllowMissingMandatory = true
			_, err := Validate(tt.user, s, "", rules)
			assert.ErrorIs(t, err, &errs.Error{Kind: errs.AccessViolation, Path: tt.path})
		})
	}

	t.Run("report accepts read-only", func(t *testing.T) {
		rules := DefaultRules()
		rules.Mode = ModeReport
		out, err := Validate(hash.MustFrom("name", "m", "running", true), s, "", rules)
		require.NoError(t, err)
		assert.True(t, get(t, out, "running").Equal(hash.Bool(true)))
	})

	t.Run("initial accepts init and internal", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "serial", "S-9"), s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "serial").Equal(hash.String("S-9")))
	})
}

func TestLeafChecks(t *testing.T) {
	s := motorSchema(t)

	tests := []struct {
		name  string
		key   string
		value any
		kind  errs.Kind
	}{
		{"wrong kind", "speed", "fast", errs.TypeMismatch},
		{"no implicit widening", "speed", int32(5), errs.TypeMismatch},
		{"above max", "speed", float64(3000.5), errs.ConstraintViolation},
		{"below min", "speed", float64(-1), errs.ConstraintViolation},
		{"not an option", "mode", int32(7), errs.ConstraintViolation},
		{"too long", "limits", []int32{1, 2, 3}, errs.ConstraintViolation},
		{"node given a scalar", "bus", int32(1), errs.TypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(hash.MustFrom("name", "m", tt.key, tt.value), s, "", DefaultRules())
			require.Error(t, err)
			k, ok := errs.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, k)
			assert.ErrorIs(t, err, &errs.Error{Kind: tt.kind, Path: tt.key})
		})
	}

	t.Run("boundary accepted", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "speed", float64(3000)), s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "speed").Equal(hash.Float64(3000)))
	})

	t.Run("empty vector takes declared kind", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "gains", []string{}), s, "", DefaultRules())
		require.NoError(t, err)
		v := get(t, out, "gains")
		assert.Equal(t, hash.KindVectorFloat64, v.Kind())
		assert.Equal(t, 0, v.Len())
	})

	t.Run("skipped element passes as is", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "blob", "anything"), s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "blob").Equal(hash.String("anything")))
	})
}

func TestCoercion(t *testing.T) {
	s := motorSchema(t)
	rec := &recordingLogger{}
	rules := DefaultRules()
	rules.CoerceTypes = true
	rules.Logger = rec

	out, err := Validate(hash.MustFrom("name", "m", "speed", int32(42), "mode", "3"), s, "", rules)
	require.NoError(t, err)
	assert.True(t, get(t, out, "speed").Equal(hash.Float64(42)))
	assert.True(t, get(t, out, "mode").Equal(hash.Int32(3)))
	assert.Equal(t, []string{"speed", "mode"}, rec.decisions(log.ActionCoerced))

	_, err = Validate(hash.MustFrom("name", "m", "speed", "fast"), s, "", rules)
	assert.ErrorIs(t, err, &errs.Error{Kind: errs.TypeMismatch, Path: "speed"})

	_, err = Validate(hash.MustFrom("name", "m", "mode", "7"), s, "", rules)
	assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "mode"}, "coerced values are still checked")
}

func TestChoice(t *testing.T) {
	s := motorSchema(t)

	t.Run("option name selects defaults", func(t *testing.T) {
		rules := DefaultRules()
		rules.AllowMissingMandatory = true
		out, err := Validate(hash.MustFrom("name", "m", "link", "serial"), s, "", rules)
		require.NoError(t, err)
		link, err := hash.Lookup[*hash.Hash](out, "link")
		require.NoError(t, err)
		assert.Equal(t, []string{"serial"}, link.Keys())
	})

	t.Run("mandatory inside option", func(t *testing.T) {
		_, err := Validate(hash.MustFrom("name", "m", "link", "serial"), s, "", DefaultRules())
		assert.ErrorIs(t, err, &errs.Error{Kind: errs.MissingMandatoryElement, Path: "link.serial.device"})
	})

	t.Run("hash selects option", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "link.serial.device", "/dev/ttyS0"), s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "link.serial.device").Equal(hash.String("/dev/ttyS0")))
		assert.False(t, out.Has("link.tcp"))
	})

	t.Run("none value selects option", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "link.tcp", nil), s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "link.tcp.port").Equal(hash.Uint16(502)))
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := Validate(hash.MustFrom("name", "m", "link", "udp"), s, "", DefaultRules())
		assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "link"})
	})

	t.Run("two options", func(t *testing.T) {
		user := hash.MustFrom("name", "m", "link.tcp.port", uint16(1), "link.serial.device", "x")
		_, err := Validate(user, s, "", DefaultRules())
		assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "link"})
	})
}

func TestChoiceDefaultMustBeDeclared(t *testing.T) {
	s := schema.New("Broken")
	require.NoError(t, schema.ChoiceElement(s).Key("c").DefaultValue("nope").Commit())
	require.NoError(t, schema.NodeElement(s).Key("c.a").Commit())

	rec := &recordingLogger{}
	rules := DefaultRules()
	rules.Logger = rec
	_, err := Validate(hash.New(), s, "", rules)
	assert.ErrorIs(t, err, errs.ErrSchema)

	var schemaEvents int
	for _, e := range rec.events {
		if e.Category == log.CategoryError && e.Layer == log.LayerSchema {
			schemaEvents++
		}
	}
	assert.Equal(t, 1, schemaEvents)
}

func TestList(t *testing.T) {
	s := motorSchema(t)

	t.Run("names build rows", func(t *testing.T) {
		out, err := Validate(hash.MustFrom("name", "m", "filters", []string{"notch", "lowpass"}), s, "", DefaultRules())
		require.NoError(t, err)
		rows, err := hash.Lookup[[]*hash.Hash](out, "filters")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"notch"}, rows[0].Keys())
		assert.True(t, get(t, out, "filters[1].lowpass.cutoff").Equal(hash.Float32(50)))
	})

	t.Run("rows keep values", func(t *testing.T) {
		user := hash.New()
		require.NoError(t, user.Set("name", hash.String("m")))
		require.NoError(t, user.Set("filters", hash.Trees([]*hash.Hash{
			hash.MustFrom("lowpass.cutoff", float32(10)),
		})))
		out, err := Validate(user, s, "", DefaultRules())
		require.NoError(t, err)
		assert.True(t, get(t, out, "filters[0].lowpass.cutoff").Equal(hash.Float32(10)))
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := Validate(hash.MustFrom("name", "m", "filters", []string{"lowpass", "bandpass"}), s, "", DefaultRules())
		assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "filters[1]"})
	})

	t.Run("too many entries", func(t *testing.T) {
		_, err := Validate(hash.MustFrom("name", "m", "filters", []string{"notch", "notch", "notch"}), s, "", DefaultRules())
		assert.ErrorIs(t, err, &errs.Error{Kind: errs.ConstraintViolation, Path: "filters"})
	})
}

func TestTable(t *testing.T) {
	s := motorSchema(t)
	withPoints := func(rows ...*hash.Hash) *hash.Hash {
		h := hash.MustFrom("name", "m")
		require.NoError(t, h.Set("points", hash.Trees(rows)))
		return h
	}

	out, err := Validate(withPoints(hash.MustFrom("label", "a"), hash.MustFrom("label", "b", "weight", int32(9))), s, "", DefaultRules())
	require.NoError(t, err)
	assert.True(t, get(t, out, "points[0].weight").Equal(hash.Int32(1)))
	assert.True(t, get(t, out, "points[1].weight").Equal(hash.Int32(9)))

	tests := []struct {
		name string
		rows []*hash.Hash
		want *errs.Error
	}{
		{"missing row key", []*hash.Hash{hash.MustFrom("weight", int32(1))}, &errs.Error{Kind: errs.MissingMandatoryElement, Path: "points[0].label"}},
		{"unknown row key", []*hash.Hash{hash.MustFrom("label", "a", "x", 1)}, &errs.Error{Kind: errs.UnknownElement, Path: "points[0].x"}},
		{"row type", []*hash.Hash{hash.MustFrom("label", "a"), hash.MustFrom("label", int32(1))}, &errs.Error{Kind: errs.TypeMismatch, Path: "points[1].label"}},
		{"too many rows", []*hash.Hash{hash.New(), hash.New(), hash.New(), hash.New(), hash.New()}, &errs.Error{Kind: errs.ConstraintViolation, Path: "points"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(withPoints(tt.rows...), s, "", DefaultRules())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCollectAll(t *testing.T) {
	s := motorSchema(t)
	user := hash.MustFrom("speed", float64(4000), "mode", int32(7), "extra", true)

	_, err := Validate(user, s, "", DefaultRules())
	var single *errs.Error
	require.ErrorAs(t, err, &single)
	assert.Equal(t, errs.MissingMandatoryElement, single.Kind)

	rules := DefaultRules()
	rules.CollectAll = true
	_, err = Validate(user, s, "", rules)
	var list errs.List
	require.True(t, errors.As(err, &list))
	assert.Equal(t, []errs.Kind{
		errs.MissingMandatoryElement,
		errs.ConstraintViolation,
		errs.ConstraintViolation,
		errs.UnknownElement,
	}, list.Kinds())
	paths := make([]string, len(list))
	for i, e := range list {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{"name", "speed", "mode", "extra"}, paths)
}

func TestRootedConfiguration(t *testing.T) {
	s := motorSchema(t)
	rules := DefaultRules()
	rules.AllowUnrootedConfiguration = false

	out, err := Validate(hash.MustFrom("Motor.name", "m"), s, "", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor"}, out.Keys())
	assert.True(t, get(t, out, "Motor.speed").Equal(hash.Float64(1500)))

	tests := []struct {
		name string
		user *hash.Hash
		want *errs.Error
	}{
		{"empty", hash.New(), &errs.Error{Kind: errs.MissingMandatoryElement, Path: "Motor"}},
		{"wrong root", hash.MustFrom("Pump.name", "p"), &errs.Error{Kind: errs.UnknownElement, Path: "Pump"}},
		{"second key", hash.MustFrom("Motor.name", "m", "Pump", 1), &errs.Error{Kind: errs.UnknownElement}},
		{"root not a hash", hash.MustFrom("Motor", 1), &errs.Error{Kind: errs.TypeMismatch, Path: "Motor"}},
		{"nested error path", hash.MustFrom("Motor.name", "m", "Motor.speed", "x"), &errs.Error{Kind: errs.TypeMismatch, Path: "Motor.speed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.user, s, "", rules)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTimestamps(t *testing.T) {
	s := motorSchema(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := at.Add(-time.Hour)

	user := hash.MustFrom("name", "m", "speed", float64(10))
	require.NoError(t, user.SetAttribute("speed", TimestampAttribute, hash.Timestamp(earlier)))

	rules := DefaultRules()
	rules.InjectTimestamps = true
	rules.Now = func() time.Time { return at }

	out, err := Validate(user, s, "", rules)
	require.NoError(t, err)
	ts, err := out.Attribute("name", TimestampAttribute)
	require.NoError(t, err)
	assert.True(t, ts.Equal(hash.Timestamp(at)))
	ts, err = out.Attribute("speed", TimestampAttribute)
	require.NoError(t, err)
	assert.True(t, ts.Equal(hash.Timestamp(earlier)), "existing stamps are kept")
	ts, err = out.Attribute("bus.address", TimestampAttribute)
	require.NoError(t, err)
	assert.True(t, ts.Equal(hash.Timestamp(at)), "defaults are stamped")
	assert.False(t, out.HasAttribute("bus", TimestampAttribute), "nodes are not stamped")

	rules.ForceTimestamps = true
	out, err = Validate(user, s, "", rules)
	require.NoError(t, err)
	ts, err = out.Attribute("speed", TimestampAttribute)
	require.NoError(t, err)
	assert.True(t, ts.Equal(hash.Timestamp(at)))
}

func TestInputIsNotModified(t *testing.T) {
	s := motorSchema(t)
	before := s.ToHash()
	user := hash.MustFrom("name", "m", "limits", []int32{1, 2}, "bus.address", uint16(3))
	require.NoError(t, user.SetAttribute("name", "origin", hash.String("cli")))
	snapshot := user.Clone()

	out, err := Validate(user, s, "", DefaultRules())
	require.NoError(t, err)
	assert.True(t, hash.EqualOrdered(snapshot, user))
	assert.True(t, hash.Equal(before, s.ToHash()))

	attr, err := out.Attribute("name", "origin")
	require.NoError(t, err)
	assert.True(t, attr.Equal(hash.String("cli")), "attributes are carried over")

	require.NoError(t, out.Set("bus.address", hash.Uint16(99)))
	assert.True(t, get(t, user, "bus.address").Equal(hash.Uint16(3)))
}

func TestValidationIsIdempotent(t *testing.T) {
	s := motorSchema(t)
	first, err := Validate(hash.MustFrom("name", "m", "link", "tcp"), s, "", DefaultRules())
	require.NoError(t, err)
	report := DefaultRules()
	report.Mode = ModeReport
	second, err := Validate(first, s, "", report)
	require.NoError(t, err)
	assert.True(t, hash.EqualOrdered(first, second), cmp.Diff(first.Paths(), second.Paths()))
}

func TestHasReconfigurable(t *testing.T) {
	s := motorSchema(t)
	v := New(DefaultRules())

	_, err := v.Validate(s, hash.MustFrom("name", "m"), "")
	require.NoError(t, err)
	assert.False(t, v.HasReconfigurable(), "only an init-only leaf was supplied")

	_, err = v.Validate(s, hash.MustFrom("name", "m", "speed", float64(1)), "")
	require.NoError(t, err)
	assert.True(t, v.HasReconfigurable())
	assert.Equal(t, DefaultRules().InjectDefaults, v.Rules().InjectDefaults)
}

func TestHasReconfigurableIgnoresDefaultRows(t *testing.T) {
	s := schema.New("Stage")
	require.NoError(t, schema.StringElement(s).Key("name").Init().Commit())
	rows := schema.New("")
	require.NoError(t, schema.StringElement(rows).Key("label").Commit())
	require.NoError(t, schema.TableElement(s).Key("points").RowSchema(rows).
		DefaultValue(hash.MustFrom("label", "origin")).Commit())

	v := New(DefaultRules())
	out, err := v.Validate(s, hash.MustFrom("name", "m"), "")
	require.NoError(t, err)
	assert.True(t, out.Has("points[0].label"), "default row is injected")
	assert.False(t, v.HasReconfigurable(), "injected rows are not user input")

	_, err = v.Validate(s, hash.MustFrom("name", "m",
		"points", hash.Trees([]*hash.Hash{hash.MustFrom("label", "a")})), "")
	require.NoError(t, err)
	assert.True(t, v.HasReconfigurable(), "a supplied table counts")
}

func TestRunEvents(t *testing.T) {
	s := motorSchema(t)
	rec := &recordingLogger{}
	rules := DefaultRules()
	rules.Logger = rec
	rules.Mode = ModeInitial

	_, err := Validate(hash.MustFrom("name", "m", "mode", int32(9)), s, "OFF", rules)
	require.Error(t, err)
	require.GreaterOrEqual(t, len(rec.events), 2)

	first, last := rec.events[0], rec.events[len(rec.events)-1]
	require.NotNil(t, first.Run)
	assert.Equal(t, log.RunStarted, first.Run.Phase)
	assert.Equal(t, "initial", first.Run.Mode)
	assert.Equal(t, "OFF", first.Run.State)
	assert.Equal(t, "Motor", first.Source)
	require.NotNil(t, last.Run)
	assert.Equal(t, log.RunFinished, last.Run.Phase)
	assert.Equal(t, 1, last.Run.Errors)
	assert.NotNil(t, last.Run.Duration)

	for _, e := range rec.events {
		assert.Equal(t, first.RunID, e.RunID)
		assert.Equal(t, log.LayerValidation, e.Layer)
	}
	assert.Equal(t, []string{"name"}, rec.decisions(log.ActionAccepted))
	assert.Equal(t, []string{"mode"}, rec.decisions(log.ActionRejected))
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want Rules
	}{
		{"empty keeps defaults", "", DefaultRules()},
		{"overrides", "collectAll: true\nmode: reconfigure\ninjectDefaults: false\n", Rules{
			CollectAll:                 true,
			Mode:                       ModeReconfigure,
			AllowUnrootedConfiguration: true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRules([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want.CollectAll, got.CollectAll)
			assert.Equal(t, tt.want.Mode, got.Mode)
			assert.Equal(t, tt.want.InjectDefaults, got.InjectDefaults)
			assert.Equal(t, tt.want.AllowUnrootedConfiguration, got.AllowUnrootedConfiguration)
		})
	}

	for _, bad := range []string{"colectAll: true\n", "mode: sideways\n", "collectAll: [\n"} {
		_, err := ParseRules([]byte(bad))
		assert.ErrorIs(t, err, errs.ErrSyntax, bad)
	}
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeInitial, ModeReconfigure, ModeReport} {
		text, err := m.MarshalText()
		require.NoError(t, err)
		var back Mode
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
	_, ok := ParseMode("bogus")
	assert.False(t, ok)
}
