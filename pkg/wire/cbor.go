package wire

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/hashcfg/pkg/errs"
	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// encMode is the CBOR encoder mode for tree interchange.
// Configured for deterministic output.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for tree interchange.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient on framing details, strict on limits: a node costs a few
	// nesting levels, so the limit follows MaxDepth.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		UTF8:              cbor.UTF8DecodeInvalid,
		MaxNestedLevels:   4*MaxDepth + 16,
		MaxArrayElements:  math.MaxInt32,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// cborNode is one hash node: [key, tag, value, attrs].
type cborNode struct {
	_     struct{} `cbor:",toarray"`
	Key   string
	Tag   uint8
	Value cbor.RawMessage
	Attrs []cborAttr
}

// cborAttr is one attribute: [name, tag, value].
type cborAttr struct {
	_     struct{} `cbor:",toarray"`
	Name  string
	Tag   uint8
	Value cbor.RawMessage
}

var cborNull = []byte{0xf6}

// MarshalCBOR encodes a hash as CBOR. Nodes travel as arrays so key order
// and attributes survive; values are native CBOR items except timestamps
// ([seconds, nanoseconds]) and complex numbers ([real, imag]).
func MarshalCBOR(h *hash.Hash) ([]byte, error) {
	nodes, err := cborNodes(h, 0)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(nodes)
}

// UnmarshalCBOR decodes a hash written by MarshalCBOR. Malformed input fails
// with errs.CorruptData.
func UnmarshalCBOR(data []byte) (*hash.Hash, error) {
	return decodeCBORHash(data, "", 0)
}

func cborNodes(h *hash.Hash, depth int) ([]cborNode, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnencodable, MaxDepth)
	}
	nodes := make([]cborNode, 0, h.Len())
	for key, n := range h.All() {
		raw, err := cborValue(n.Value(), depth)
		if err != nil {
			return nil, err
		}
		attrs := make([]cborAttr, 0, n.Attributes().Len())
		for name, av := range n.Attributes().All() {
			araw, err := cborValue(av, depth)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, cborAttr{Name: name, Tag: uint8(av.Kind()), Value: araw})
		}
		nodes = append(nodes, cborNode{Key: key, Tag: uint8(n.Value().Kind()), Value: raw, Attrs: attrs})
	}
	return nodes, nil
}

func cborValue(v hash.Value, depth int) (cbor.RawMessage, error) {
	var item any
	switch d := v.Interface().(type) {
	case nil:
		return cborNull, nil
	case complex64:
		item = []float32{real(d), imag(d)}
	case complex128:
		item = []float64{real(d), imag(d)}
	case time.Time:
		item = []int64{d.Unix(), int64(d.Nanosecond())}
	case *hash.Hash:
		nodes, err := cborNodes(d, depth+1)
		if err != nil {
			return nil, err
		}
		item = nodes
	case []*hash.Hash:
		vec := make([][]cborNode, len(d))
		for i, e := range d {
			nodes, err := cborNodes(e, depth+1)
			if err != nil {
				return nil, err
			}
			vec[i] = nodes
		}
		item = vec
	default:
		item = d
	}
	b, err := encMode.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return b, nil
}

func decodeCBORHash(data []byte, path string, depth int) (*hash.Hash, error) {
	if depth > MaxDepth {
		return nil, errs.New(errs.CorruptData, path, "nesting deeper than %d", MaxDepth)
	}
	var nodes []cborNode
	if err := decMode.Unmarshal(data, &nodes); err != nil {
		return nil, errs.Wrap(errs.CorruptData, path, err, "cbor")
	}
	h := hash.New()
	for _, cn := range nodes {
		p := hash.JoinPath(path, cn.Key)
		v, err := decodeCBORValue(hash.Kind(cn.Tag), cn.Value, p, depth)
		if err != nil {
			return nil, err
		}
		n, err := h.Insert(cn.Key, v)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptData, p, err, "node")
		}
		attrs := n.Attributes()
		for _, ca := range cn.Attrs {
			if ca.Name == "" || attrs.Has(ca.Name) {
				return nil, errs.New(errs.CorruptData, p, "invalid or duplicate attribute %q", ca.Name)
			}
			av, err := decodeCBORValue(hash.Kind(ca.Tag), ca.Value, p, depth)
			if err != nil {
				return nil, err
			}
			attrs.Set(ca.Name, av)
		}
	}
	return h, nil
}

func decodeCBORValue(kind hash.Kind, raw cbor.RawMessage, path string, depth int) (hash.Value, error) {
	corrupt := func(err error) (hash.Value, error) {
		return hash.Value{}, errs.Wrap(errs.CorruptData, path, err, "%s value", kind)
	}
	switch kind {
	case hash.KindNone:
		if !bytes.Equal(raw, cborNull) {
			return corrupt(fmt.Errorf("expected null"))
		}
		return hash.None(), nil
	case hash.KindComplex64:
		var parts []float32
		if err := decMode.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			return corrupt(err)
		}
		return hash.Complex64(complex(parts[0], parts[1])), nil
	case hash.KindComplex128:
		var parts []float64
		if err := decMode.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			return corrupt(err)
		}
		return hash.Complex128(complex(parts[0], parts[1])), nil
	case hash.KindTimestamp:
		var parts []int64
		if err := decMode.Unmarshal(raw, &parts); err != nil || len(parts) != 2 || parts[1] < 0 || parts[1] >= 1e9 {
			return corrupt(err)
		}
		return hash.Timestamp(time.Unix(parts[0], parts[1]).UTC()), nil
	case hash.KindHash:
		h, err := decodeCBORHash(raw, path, depth+1)
		if err != nil {
			return hash.Value{}, err
		}
		return hash.Tree(h), nil
	case hash.KindVectorHash:
		var elems []cbor.RawMessage
		if err := decMode.Unmarshal(raw, &elems); err != nil {
			return corrupt(err)
		}
		out := make([]*hash.Hash, len(elems))
		for i, e := range elems {
			h, err := decodeCBORHash(e, hash.IndexPath(path, i), depth+1)
			if err != nil {
				return hash.Value{}, err
			}
			out[i] = h
		}
		return hash.Trees(out), nil
	}

	target := cborTarget(kind)
	if target == nil {
		return hash.Value{}, errs.New(errs.CorruptData, path, "unknown type tag %d", uint8(kind))
	}
	if err := decMode.Unmarshal(raw, target); err != nil {
		return corrupt(err)
	}
	v, err := hash.MakeValue(kind, derefTarget(target))
	if err != nil {
		return corrupt(err)
	}
	return v, nil
}

// cborTarget returns a pointer to the Go type that decodes kind exactly.
func cborTarget(kind hash.Kind) any {
	switch kind {
	case hash.KindBool:
		return new(bool)
	case hash.KindInt8:
		return new(int8)
	case hash.KindInt16:
		return new(int16)
	case hash.KindInt32:
		return new(int32)
	case hash.KindInt64:
		return new(int64)
	case hash.KindUint8:
		return new(uint8)
	case hash.KindUint16:
		return new(uint16)
	case hash.KindUint32:
		return new(uint32)
	case hash.KindUint64:
		return new(uint64)
	case hash.KindFloat32:
		return new(float32)
	case hash.KindFloat64:
		return new(float64)
	case hash.KindString:
		return new(string)
	case hash.KindBytes, hash.KindVectorUint8:
		return new([]byte)
	case hash.KindVectorBool:
		return new([]bool)
	case hash.KindVectorInt8:
		return new([]int8)
	case hash.KindVectorInt16:
		return new([]int16)
	case hash.KindVectorInt32:
		return new([]int32)
	case hash.KindVectorInt64:
		return new([]int64)
	case hash.KindVectorUint16:
		return new([]uint16)
	case hash.KindVectorUint32:
		return new([]uint32)
	case hash.KindVectorUint64:
		return new([]uint64)
	case hash.KindVectorFloat32:
		return new([]float32)
	case hash.KindVectorFloat64:
		return new([]float64)
	case hash.KindVectorString:
		return new([]string)
	}
	return nil
}

func derefTarget(p any) any {
	switch t := p.(type) {
	case *bool:
		return *t
	case *int8:
		return *t
	case *int16:
		return *t
	case *int32:
		return *t
	case *int64:
		return *t
	case *uint8:
		return *t
	case *uint16:
		return *t
	case *uint32:
		return *t
	case *uint64:
		return *t
	case *float32:
		return *t
	case *float64:
		return *t
	case *string:
		return *t
	case *[]byte:
		return *t
	case *[]bool:
		return *t
	case *[]int8:
		return *t
	case *[]int16:
		return *t
	case *[]int32:
		return *t
	case *[]int64:
		return *t
	case *[]uint16:
		return *t
	case *[]uint32:
		return *t
	case *[]uint64:
		return *t
	case *[]float32:
		return *t
	case *[]float64:
		return *t
	case *[]string:
		return *t
	}
	return nil
}
