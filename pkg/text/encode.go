package text

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 2

// Option configures an Encoder.
type Option func(*Encoder)

// WithIndent sets the number of spaces per nesting level.
func WithIndent(n int) Option {
	return func(e *Encoder) { e.indent = n }
}

// Encoder writes hashes as YAML documents, one document per Encode call.
type Encoder struct {
	enc    *yaml.Encoder
	indent int
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	e := &Encoder{indent: DefaultIndent}
	for _, opt := range opts {
		opt(e)
	}
	e.enc = yaml.NewEncoder(w)
	e.enc.SetIndent(e.indent)
	return e
}

// Encode writes h as one YAML document.
func (e *Encoder) Encode(h *hash.Hash) error {
	return e.enc.Encode(MarshalNode(h))
}

// Close flushes buffered output.
func (e *Encoder) Close() error {
	return e.enc.Close()
}

// Marshal renders h as a YAML document.
func Marshal(h *hash.Hash, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, opts...)
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalNode builds the YAML node tree for h. Nested hashes are untagged
// mappings; every other value carries its kind tag.
func MarshalNode(h *hash.Hash) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for key, n := range h.All() {
		m.Content = append(m.Content, keyNode(key), nodeValue(n))
	}
	return m
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// nodeValue renders a node's value, wrapped with its attributes if it has any.
func nodeValue(n *hash.Node) *yaml.Node {
	v := valueNode(n.Value())
	attrs := n.Attributes()
	if attrs.Len() == 0 {
		return v
	}
	am := &yaml.Node{Kind: yaml.MappingNode}
	for name, av := range attrs.All() {
		am.Content = append(am.Content, keyNode(name), valueNode(av))
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  attributedTag,
		Content: []*yaml.Node{
			keyNode("attrs"), am,
			keyNode("value"), v,
		},
	}
}

func valueNode(v hash.Value) *yaml.Node {
	k := v.Kind()
	switch {
	case k == hash.KindNone:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: kindTag(k), Value: "null"}
	case k == hash.KindHash:
		h, _ := hash.Extract[*hash.Hash](v)
		return MarshalNode(h)
	case k == hash.KindVectorHash:
		hs, _ := hash.Extract[[]*hash.Hash](v)
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: kindTag(k)}
		for _, h := range hs {
			seq.Content = append(seq.Content, MarshalNode(h))
		}
		return seq
	case k.IsVector():
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: kindTag(k), Style: yaml.FlowStyle}
		elemTag := ""
		if k == hash.KindVectorString {
			elemTag = "!!str"
		}
		for _, e := range v.Elements() {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: elemTag, Value: formatScalar(e)})
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: kindTag(k), Value: formatScalar(v)}
	}
}

// String renders h as YAML and never fails; unrenderable trees (invalid
// UTF-8 in strings) yield the error text.
func String(h *hash.Hash) string {
	b, err := Marshal(h)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}
