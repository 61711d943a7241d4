package validate

import (
	"errors"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
	"github.com/mash-protocol/hashcfg/pkg/log"
	"github.com/mash-protocol/hashcfg/pkg/schema"
)

// TimestampAttribute names the attribute injected timestamps are stored in.
const TimestampAttribute = "timestamp"

// Validator checks configurations against schemas with a fixed set of
// rules. It remembers facts about its last pass, so a Validator must not be
// shared between goroutines; create one per goroutine instead.
type Validator struct {
	rules             Rules
	hasReconfigurable bool
}

// New creates a validator.
func New(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Rules returns the rules the validator applies.
func (v *Validator) Rules() Rules { return v.rules }

// HasReconfigurable reports whether the last pass accepted a
// reconfigurable leaf.
func (v *Validator) HasReconfigurable() bool { return v.hasReconfigurable }

// Validate checks user against s in the given lifecycle state and returns
// the validated configuration. Neither user nor s is modified.
//
// Without CollectAll the first violation is returned. With CollectAll every
// violation is returned as an errs.List in traversal order.
func (v *Validator) Validate(s *schema.Schema, user *hash.Hash, state string) (*hash.Hash, error) {
	if user == nil {
		user = hash.New()
	}
	r := newRun(v.rules, s, state)
	out := r.root(s, user)
	v.hasReconfigurable = r.hasReconfigurable
	if err := r.finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks user against s with a one-off Validator.
func Validate(user *hash.Hash, s *schema.Schema, state string, rules Rules) (*hash.Hash, error) {
	return New(rules).Validate(s, user, state)
}

// policy is what may differ between levels of one pass: table rows are
// validated with their own, fixed policy.
type policy struct {
	allowUnknown bool
	allowMissing bool
	inject       bool
	mode         Mode
}

var rowPolicy = policy{inject: true, mode: ModeInitial}

type run struct {
	rules  Rules
	state  string
	now    time.Time
	start  time.Time
	events events

	violations        errs.List
	stopped           bool
	hasReconfigurable bool

	// injecting is non-zero while default rows are validated; their leaves
	// were not supplied by the user.
	injecting int
}

func newRun(rules Rules, s *schema.Schema, state string) *run {
	now := time.Now
	if rules.Now != nil {
		now = rules.Now
	}
	r := &run{
		rules: rules,
		state: state,
		now:   now(),
		start: time.Now(),
		events: events{
			logger: log.OrNoop(rules.Logger),
			runID:  log.NewRunID(),
			source: s.RootName(),
		},
	}
	r.events.started(rules.Mode, state)
	return r
}

func (r *run) finish() error {
	r.events.finished(r.rules.Mode, r.state, len(r.violations), time.Since(r.start))
	if len(r.violations) == 0 {
		return nil
	}
	if !r.rules.CollectAll {
		return r.violations[0]
	}
	return r.violations
}

func (r *run) fail(e *errs.Error) {
	r.violations = append(r.violations, e)
	r.events.rejected(e)
	if !r.rules.CollectAll {
		r.stopped = true
	}
}

func (r *run) root(s *schema.Schema, user *hash.Hash) *hash.Hash {
	p := policy{
		allowUnknown: r.rules.AllowUnknownKeys,
		allowMissing: r.rules.AllowMissingMandatory,
		inject:       r.rules.InjectDefaults,
		mode:         r.rules.Mode,
	}
	if r.rules.AllowUnrootedConfiguration {
		return r.level(s, "", "", user, p)
	}

	name := s.RootName()
	keys := user.Keys()
	switch {
	case len(keys) == 0:
		r.fail(errs.New(errs.MissingMandatoryElement, name, "expected a configuration rooted at %q", name))
		return nil
	case len(keys) != 1 || keys[0] != name:
		r.fail(errs.New(errs.UnknownElement, keys[0], "expected a single root %q", name))
		return nil
	}
	n, _ := user.Node(name)
	inner, ok := n.Hash()
	if !ok {
		r.fail(errs.New(errs.TypeMismatch, name, "root must be a hash, got %s", n.Value().Kind()))
		return nil
	}
	out := hash.New()
	rn, _ := out.Insert(name, hash.Tree(r.level(s, "", name, inner, p)))
	copyAttributes(rn, n.Attributes())
	return out
}

type item struct {
	key   string
	value hash.Value
	attrs *hash.Attributes
}

// level validates one hash against the children of spath. dpath is the
// location of user in the configuration, used for errors.
func (r *run) level(s *schema.Schema, spath, dpath string, user *hash.Hash, p policy) *hash.Hash {
	elems, _ := s.Children(spath)
	declared := make(map[string]bool, len(elems))
	accepted := make(map[string]item, user.Len())
	var injected []item

	for i := range elems {
		e := &elems[i]
		declared[e.Key] = true
		if r.stopped {
			continue
		}
		dp := hash.JoinPath(dpath, e.Key)
		n, err := user.Node(e.Key)
		if err != nil {
			if v, ok := r.missing(s, e, dp, p); ok {
				injected = append(injected, item{key: e.Key, value: v, attrs: r.stamp(nil, e)})
			}
			continue
		}
		if v, ok := r.present(s, e, n.Value(), dp, p); ok {
			accepted[e.Key] = item{key: e.Key, value: v, attrs: r.stamp(n.Attributes(), e)}
		}
	}

	for key, n := range user.All() {
		if r.stopped {
			break
		}
		if declared[key] {
			continue
		}
		dp := hash.JoinPath(dpath, key)
		if !p.allowUnknown {
			r.fail(errs.New(errs.UnknownElement, dp, "not declared in the schema"))
			continue
		}
		r.events.decision(dp, log.ActionPassedThrough, n.Value().Kind(), "")
		accepted[key] = item{key: key, value: n.Value().Clone(), attrs: n.Attributes().Clone()}
	}

	out := hash.New()
	for _, key := range user.Keys() {
		if it, ok := accepted[key]; ok {
			insert(out, it)
		}
	}
	for _, it := range injected {
		insert(out, it)
	}
	return out
}

func insert(h *hash.Hash, it item) {
	n, err := h.Insert(it.key, it.value)
	if err == nil {
		copyAttributes(n, it.attrs)
	}
}

func copyAttributes(n *hash.Node, attrs *hash.Attributes) {
	for name, v := range attrs.All() {
		n.Attributes().Set(name, v.Clone())
	}
}

// stamp copies attrs and adds a timestamp to leaves when configured.
func (r *run) stamp(attrs *hash.Attributes, e *schema.Element) *hash.Attributes {
	out := attrs.Clone()
	if !r.rules.InjectTimestamps || !e.IsLeaf() {
		return out
	}
	if r.rules.ForceTimestamps || !out.Has(TimestampAttribute) {
		out.Set(TimestampAttribute, hash.Timestamp(r.now))
	}
	return out
}

// missing handles an element absent from the user hash. It returns the
// value to inject, if any.
func (r *run) missing(s *schema.Schema, e *schema.Element, dp string, p policy) (hash.Value, bool) {
	if e.NodeType == schema.HashNode {
		// Mandatory children must be reported even when nothing is injected.
		sub := r.level(s, e.Path, dp, hash.New(), p)
		if !p.inject {
			return hash.Value{}, false
		}
		r.events.decision(dp, log.ActionDefaulted, hash.KindHash, "")
		return hash.Tree(sub), true
	}

	if e.Assignment == schema.Mandatory && !p.allowMissing {
		r.fail(errs.New(errs.MissingMandatoryElement, dp, "missing mandatory element"))
		return hash.Value{}, false
	}
	if !p.inject || !e.HasDefault() {
		return hash.Value{}, false
	}

	var v hash.Value
	switch e.NodeType {
	case schema.ChoiceNode:
		name, _ := hash.Extract[string](e.Default)
		opt, ok := r.option(s, e, name, dp, true)
		if !ok {
			return hash.Value{}, false
		}
		v = hash.Tree(single(name, r.level(s, opt, hash.JoinPath(dp, name), hash.New(), p)))
	case schema.ListNode:
		names, _ := hash.Extract[[]string](e.Default)
		rows := make([]*hash.Hash, 0, len(names))
		for i, name := range names {
			opt, ok := r.option(s, e, name, dp, true)
			if !ok {
				return hash.Value{}, false
			}
			sub := r.level(s, opt, hash.JoinPath(hash.IndexPath(dp, i), name), hash.New(), p)
			rows = append(rows, single(name, sub))
		}
		v = hash.Trees(rows)
	default:
		v = e.Default.Clone()
		if e.IsTable() {
			r.injecting++
			v = r.rows(e, v, dp)
			r.injecting--
		}
	}
	r.events.decision(dp, log.ActionDefaulted, v.Kind(), "")
	return v, true
}

// present validates a supplied value.
func (r *run) present(s *schema.Schema, e *schema.Element, v hash.Value, dp string, p policy) (hash.Value, bool) {
	if e.SkipValidation {
		r.events.decision(dp, log.ActionPassedThrough, v.Kind(), "")
		return v.Clone(), true
	}
	if err := checkAccess(e, dp, p.mode); err != nil {
		r.fail(err)
		return hash.Value{}, false
	}
	if p.mode != ModeReport && !e.StateAllowed(r.state) {
		r.fail(errs.New(errs.StateViolation, dp, "not writable in state %q, allowed %v", r.state, e.AllowedStates))
		return hash.Value{}, false
	}

	switch e.NodeType {
	case schema.HashNode:
		sub, err := hash.Extract[*hash.Hash](v)
		if err != nil {
			r.fail(errs.New(errs.TypeMismatch, dp, "expected a hash, got %s", v.Kind()))
			return hash.Value{}, false
		}
		return hash.Tree(r.level(s, e.Path, dp, sub, p)), true
	case schema.ChoiceNode:
		return r.choice(s, e, v, dp, p)
	case schema.ListNode:
		return r.list(s, e, v, dp, p)
	default:
		return r.leaf(e, v, dp)
	}
}

func checkAccess(e *schema.Element, dp string, mode Mode) *errs.Error {
	switch {
	case e.Access == schema.AccessReadOnly && mode != ModeReport:
		return errs.New(errs.AccessViolation, dp, "read-only element cannot be configured")
	case e.Access == schema.AccessInit && mode == ModeReconfigure:
		return errs.New(errs.AccessViolation, dp, "init-only element cannot be reconfigured")
	case e.Assignment == schema.Internal && mode == ModeReconfigure:
		return errs.New(errs.AccessViolation, dp, "internal element cannot be reconfigured")
	}
	return nil
}

func (r *run) leaf(e *schema.Element, v hash.Value, dp string) (hash.Value, bool) {
	action := log.ActionAccepted
	if v.Kind() != e.ValueKind {
		switch {
		case e.ValueKind.IsVector() && v.Kind() == hash.KindVectorString && v.Len() == 0:
			v = emptyVector(e.ValueKind)
		case r.rules.CoerceTypes:
			c, err := v.Convert(e.ValueKind)
			if err != nil {
				r.fail(errs.Wrap(errs.TypeMismatch, dp, err, "expected %s, got %s", e.ValueKind, v.Kind()))
				return hash.Value{}, false
			}
			v, action = c, log.ActionCoerced
		default:
			r.fail(errs.New(errs.TypeMismatch, dp, "expected %s, got %s", e.ValueKind, v.Kind()))
			return hash.Value{}, false
		}
	}
	if err := e.CheckValue(v); err != nil {
		r.fail(located(err, dp))
		return hash.Value{}, false
	}
	if e.IsTable() {
		v = r.rows(e, v, dp)
	} else {
		v = v.Clone()
	}
	if e.Access == schema.AccessReconfigurable && r.injecting == 0 {
		r.hasReconfigurable = true
	}
	r.events.decision(dp, action, v.Kind(), "")
	return v, true
}

// rows validates each row of a table against its row schema.
func (r *run) rows(e *schema.Element, v hash.Value, dp string) hash.Value {
	rows, _ := hash.Extract[[]*hash.Hash](v)
	out := make([]*hash.Hash, len(rows))
	for i, row := range rows {
		if row == nil {
			row = hash.New()
		}
		out[i] = r.level(e.RowSchema, "", hash.IndexPath(dp, i), row, rowPolicy)
	}
	return hash.Trees(out)
}

func emptyVector(kind hash.Kind) hash.Value {
	if kind == hash.KindVectorHash {
		return hash.Trees(nil)
	}
	v, _ := hash.VectorString(nil).Convert(kind)
	return v
}

// option resolves an option name of a choice or list to its schema path.
// Unknown names in a declared default are schema errors.
func (r *run) option(s *schema.Schema, e *schema.Element, name, dp string, fromDefault bool) (string, bool) {
	path := hash.JoinPath(e.Path, name)
	if name != "" && hash.ValidKey(name) && s.Has(path) {
		return path, true
	}
	options, _ := s.Children(e.Path)
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Key
	}
	if fromDefault {
		err := errs.New(errs.SchemaError, dp, "default option %q is not declared, options %v", name, names)
		r.events.schemaError(err)
		r.fail(err)
		return "", false
	}
	r.fail(errs.New(errs.ConstraintViolation, dp, "option %q is not one of %v", name, names))
	return "", false
}

// selection reads one option from a single-key hash. A NONE value selects
// the option with an empty configuration.
func selection(h *hash.Hash) (string, *hash.Hash, *hash.Attributes, error) {
	if h.Len() != 1 {
		return "", nil, nil, errors.New("exactly one option must be selected")
	}
	name := h.Keys()[0]
	n, _ := h.Node(name)
	if n.Value().Kind() == hash.KindNone {
		return name, hash.New(), n.Attributes(), nil
	}
	sub, ok := n.Hash()
	if !ok {
		return "", nil, nil, errs.New(errs.TypeMismatch, "", "option %q must hold a hash, got %s", name, n.Value().Kind())
	}
	return name, sub, n.Attributes(), nil
}

func (r *run) choice(s *schema.Schema, e *schema.Element, v hash.Value, dp string, p policy) (hash.Value, bool) {
	var (
		name  string
		sub   = hash.New()
		attrs *hash.Attributes
	)
	switch v.Kind() {
	case hash.KindString:
		name, _ = hash.Extract[string](v)
	case hash.KindHash:
		h, _ := hash.Extract[*hash.Hash](v)
		var err error
		if name, sub, attrs, err = selection(h); err != nil {
			r.fail(selectionError(err, dp))
			return hash.Value{}, false
		}
	default:
		r.fail(errs.New(errs.TypeMismatch, dp, "expected an option name or a hash, got %s", v.Kind()))
		return hash.Value{}, false
	}
	opt, ok := r.option(s, e, name, dp, false)
	if !ok {
		return hash.Value{}, false
	}
	out := single(name, r.level(s, opt, hash.JoinPath(dp, name), sub, p))
	n, _ := out.Node(name)
	copyAttributes(n, attrs)
	r.events.decision(dp, log.ActionAccepted, hash.KindHash, "")
	return hash.Tree(out), true
}

func (r *run) list(s *schema.Schema, e *schema.Element, v hash.Value, dp string, p policy) (hash.Value, bool) {
	type selected struct {
		name  string
		sub   *hash.Hash
		attrs *hash.Attributes
	}
	var sel []selected
	switch v.Kind() {
	case hash.KindVectorString:
		names, _ := hash.Extract[[]string](v)
		for _, name := range names {
			sel = append(sel, selected{name: name, sub: hash.New()})
		}
	case hash.KindVectorHash:
		rows, _ := hash.Extract[[]*hash.Hash](v)
		for i, row := range rows {
			name, sub, attrs, err := selection(row)
			if err != nil {
				r.fail(selectionError(err, hash.IndexPath(dp, i)))
				return hash.Value{}, false
			}
			sel = append(sel, selected{name, sub, attrs})
		}
	default:
		r.fail(errs.New(errs.TypeMismatch, dp, "expected option names or hashes, got %s", v.Kind()))
		return hash.Value{}, false
	}
	if err := e.CheckValue(v); err != nil {
		r.fail(located(err, dp))
		return hash.Value{}, false
	}

	out := make([]*hash.Hash, 0, len(sel))
	for i, it := range sel {
		if r.stopped {
			break
		}
		opt, ok := r.option(s, e, it.name, hash.IndexPath(dp, i), false)
		if !ok {
			continue
		}
		row := single(it.name, r.level(s, opt, hash.JoinPath(hash.IndexPath(dp, i), it.name), it.sub, p))
		n, _ := row.Node(it.name)
		copyAttributes(n, it.attrs)
		out = append(out, row)
	}
	r.events.decision(dp, log.ActionAccepted, hash.KindVectorHash, "")
	return hash.Trees(out), true
}

func single(key string, h *hash.Hash) *hash.Hash {
	out := hash.New()
	_, _ = out.Insert(key, hash.Tree(h))
	return out
}

func selectionError(err error, dp string) *errs.Error {
	if k, ok := errs.KindOf(err); ok && k == errs.TypeMismatch {
		return located(err, dp)
	}
	return errs.New(errs.ConstraintViolation, dp, "%v", err)
}

// located returns err as an *errs.Error at path.
func located(err error, path string) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithPath(path)
	}
	return errs.Wrap(errs.KindUnknown, path, err, "%v", err)
}
