package text

import (
	"bytes"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// Decoder reads hashes from a stream of YAML documents.
type Decoder struct {
	dec *yaml.Decoder
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: yaml.NewDecoder(r)}
}

// Decode reads the next document. It returns io.EOF when the stream is
// exhausted.
func (d *Decoder) Decode() (*hash.Hash, error) {
	var doc yaml.Node
	if err := d.dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, syntaxError(err)
	}
	return UnmarshalNode(&doc)
}

// Unmarshal parses a single YAML document. Empty input yields an empty hash.
func Unmarshal(data []byte) (*hash.Hash, error) {
	h, err := NewDecoder(bytes.NewReader(data)).Decode()
	if err == io.EOF {
		return hash.New(), nil
	}
	return h, err
}

// UnmarshalNode converts a parsed YAML node into a hash. The node must be a
// document or a mapping.
func UnmarshalNode(n *yaml.Node) (*hash.Hash, error) {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return hash.New(), nil
		}
		n = n.Content[0]
	}
	n = resolveAlias(n)
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return hash.New(), nil
	}
	return decodeHash(n, "")
}

var yamlLine = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// syntaxError maps a yaml.v3 parse error to errs.SyntaxError.
func syntaxError(err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return errs.Wrap(errs.SyntaxError, "", err, "yaml")
	}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return errs.Syntax(line, 0, "%s", m[2])
	}
	return errs.Wrap(errs.SyntaxError, "", err, "yaml")
}

func syntaxAt(n *yaml.Node, path, format string, args ...any) error {
	e := errs.Syntax(n.Line, n.Column, format, args...)
	e.Path = path
	return e
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func decodeHash(n *yaml.Node, path string) (*hash.Hash, error) {
	if n.Kind != yaml.MappingNode {
		return nil, syntaxAt(n, path, "expected a mapping")
	}
	h := hash.New()
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn := resolveAlias(n.Content[i])
		if kn.Kind != yaml.ScalarNode {
			return nil, syntaxAt(kn, path, "mapping key must be a scalar")
		}
		key := kn.Value
		p := hash.JoinPath(path, key)
		if !hash.ValidKey(key) {
			return nil, syntaxAt(kn, path, "invalid key %q", key)
		}
		if h.Has(key) {
			return nil, syntaxAt(kn, path, "duplicate key %q", key)
		}
		if err := decodeNode(h, key, resolveAlias(n.Content[i+1]), p); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// decodeNode inserts key into h, unwrapping an !attributed wrapper.
func decodeNode(h *hash.Hash, key string, n *yaml.Node, path string) error {
	if n.Tag != attributedTag {
		v, err := decodeValue(n, path)
		if err != nil {
			return err
		}
		_, err = h.Insert(key, v)
		return err
	}

	if n.Kind != yaml.MappingNode {
		return syntaxAt(n, path, "%s needs a mapping", attributedTag)
	}
	var attrsNode, valueNode *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch k := n.Content[i].Value; k {
		case "attrs":
			attrsNode = resolveAlias(n.Content[i+1])
		case "value":
			valueNode = resolveAlias(n.Content[i+1])
		default:
			return syntaxAt(n.Content[i], path, "unexpected %q in %s", k, attributedTag)
		}
	}
	if attrsNode == nil || valueNode == nil {
		return syntaxAt(n, path, "%s needs attrs and value", attributedTag)
	}
	if attrsNode.Kind != yaml.MappingNode {
		return syntaxAt(attrsNode, path, "attrs must be a mapping")
	}

	v, err := decodeValue(valueNode, path)
	if err != nil {
		return err
	}
	node, err := h.Insert(key, v)
	if err != nil {
		return err
	}
	attrs := node.Attributes()
	for i := 0; i+1 < len(attrsNode.Content); i += 2 {
		an := attrsNode.Content[i]
		if an.Value == "" || attrs.Has(an.Value) {
			return syntaxAt(an, path, "invalid or duplicate attribute %q", an.Value)
		}
		av, err := decodeValue(resolveAlias(attrsNode.Content[i+1]), path)
		if err != nil {
			return err
		}
		attrs.Set(an.Value, av)
	}
	return nil
}

func decodeValue(n *yaml.Node, path string) (hash.Value, error) {
	tag := n.ShortTag()
	kind, tagged := hash.KindUnknown, false
	if len(tag) > 1 && tag[0] == '!' && tag[1] != '!' {
		k, ok := hash.ParseKind(tag[1:])
		if !ok {
			return hash.Value{}, syntaxAt(n, path, "unknown tag %s", tag)
		}
		kind, tagged = k, true
	}
	if !tagged {
		return inferValue(n, path)
	}

	switch {
	case kind == hash.KindNone:
		if n.Kind != yaml.ScalarNode {
			return hash.Value{}, syntaxAt(n, path, "%s must be a scalar", tag)
		}
		return hash.None(), nil
	case kind == hash.KindHash:
		h, err := decodeHash(n, path)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Tree(h), nil
	case kind == hash.KindVectorHash:
		if n.Kind != yaml.SequenceNode {
			return hash.Value{}, syntaxAt(n, path, "%s must be a sequence", tag)
		}
		out := make([]*hash.Hash, len(n.Content))
		for i, e := range n.Content {
			h, err := decodeHash(resolveAlias(e), hash.IndexPath(path, i))
			if err != nil {
				return hash.Value{}, err
			}
			out[i] = h
		}
		return hash.Trees(out), nil
	case kind.IsVector():
		if n.Kind != yaml.SequenceNode {
			return hash.Value{}, syntaxAt(n, path, "%s must be a sequence", tag)
		}
		elems := make([]hash.Value, len(n.Content))
		for i, e := range n.Content {
			e = resolveAlias(e)
			if e.Kind != yaml.ScalarNode {
				return hash.Value{}, syntaxAt(e, path, "%s element must be a scalar", tag)
			}
			v, err := parseScalar(kind.Elem(), e.Value)
			if err != nil {
				return hash.Value{}, syntaxAt(e, path, "bad %s element: %v", tag, err)
			}
			elems[i] = v
		}
		if len(elems) == 0 {
			return hash.VectorString(nil).Convert(kind)
		}
		v, err := hash.VectorFrom(elems)
		if err != nil {
			return hash.Value{}, syntaxAt(n, path, "%v", err)
		}
		return v, nil
	default:
		if n.Kind != yaml.ScalarNode {
			return hash.Value{}, syntaxAt(n, path, "%s must be a scalar", tag)
		}
		v, err := parseScalar(kind, n.Value)
		if err != nil {
			return hash.Value{}, syntaxAt(n, path, "bad %s literal %q: %v", tag, n.Value, err)
		}
		return v, nil
	}
}

// inferValue picks a kind for untagged, hand-written input.
func inferValue(n *yaml.Node, path string) (hash.Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		h, err := decodeHash(n, path)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Tree(h), nil
	case yaml.SequenceNode:
		return inferVector(n, path)
	case yaml.ScalarNode:
	default:
		return hash.Value{}, syntaxAt(n, path, "unsupported node")
	}

	switch n.ShortTag() {
	case "!!null":
		return hash.None(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return hash.Value{}, syntaxAt(n, path, "%v", err)
		}
		return hash.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return hash.Int32(int32(i)), nil
			}
			return hash.Int64(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return hash.Value{}, syntaxAt(n, path, "%v", err)
		}
		return hash.Uint64(u), nil
	case "!!float":
		f, err := parseFloat(n.Value, 64)
		if err != nil {
			return hash.Value{}, syntaxAt(n, path, "%v", err)
		}
		return hash.Float64(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return hash.Value{}, syntaxAt(n, path, "%v", err)
		}
		return hash.Timestamp(t.UTC()), nil
	case "!!binary":
		return parseScalarAt(n, path, hash.KindBytes)
	default:
		return hash.String(n.Value), nil
	}
}

func parseScalarAt(n *yaml.Node, path string, kind hash.Kind) (hash.Value, error) {
	v, err := parseScalar(kind, n.Value)
	if err != nil {
		return hash.Value{}, syntaxAt(n, path, "%v", err)
	}
	return v, nil
}

// inferVector infers a vector from an untagged sequence. Mappings make a
// vector of hashes; numbers widen to the smallest common kind.
func inferVector(n *yaml.Node, path string) (hash.Value, error) {
	if len(n.Content) == 0 {
		return hash.VectorString(nil), nil
	}
	if resolveAlias(n.Content[0]).Kind == yaml.MappingNode {
		out := make([]*hash.Hash, len(n.Content))
		for i, e := range n.Content {
			h, err := decodeHash(resolveAlias(e), hash.IndexPath(path, i))
			if err != nil {
				return hash.Value{}, err
			}
			out[i] = h
		}
		return hash.Trees(out), nil
	}

	elems := make([]hash.Value, len(n.Content))
	target := hash.KindUnknown
	for i, e := range n.Content {
		e = resolveAlias(e)
		if e.Kind != yaml.ScalarNode {
			return hash.Value{}, syntaxAt(e, path, "nested sequences are not supported")
		}
		v, err := inferValue(e, path)
		if err != nil {
			return hash.Value{}, err
		}
		elems[i] = v
		target = widen(target, v.Kind())
	}
	for i, e := range elems {
		if e.Kind() == target {
			continue
		}
		if target == hash.KindString {
			elems[i] = hash.String(resolveAlias(n.Content[i]).Value)
			continue
		}
		c, err := e.Convert(target)
		if err != nil {
			return hash.Value{}, syntaxAt(n.Content[i], path, "mixed sequence: %v", err)
		}
		elems[i] = c
	}
	v, err := hash.VectorFrom(elems)
	if err != nil {
		return hash.Value{}, syntaxAt(n, path, "%v", err)
	}
	return v, nil
}

// widen returns the kind able to hold both a and b when both are numbers,
// or b when the kinds agree. Anything else falls back to strings.
func widen(a, b hash.Kind) hash.Kind {
	switch {
	case a == hash.KindUnknown || a == b:
		return b
	case a.IsNumeric() && b.IsNumeric():
		if a.IsFloat() || b.IsFloat() {
			return hash.KindFloat64
		}
		if a == hash.KindUint64 || b == hash.KindUint64 {
			return hash.KindUint64
		}
		return hash.KindInt64
	default:
		return hash.KindString
	}
}
