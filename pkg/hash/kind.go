package hash

import "strings"

// Kind identifies the type of a Value.
//
// The numeric values are the binary wire tags; new kinds must be appended.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNone
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindComplex64
	KindComplex128
	KindString
	KindBytes
	KindTimestamp
	KindVectorBool
	KindVectorInt8
	KindVectorInt16
	KindVectorInt32
	KindVectorInt64
	KindVectorUint8
	KindVectorUint16
	KindVectorUint32
	KindVectorUint64
	KindVectorFloat32
	KindVectorFloat64
	KindVectorString
	KindHash
	KindVectorHash

	kindCount
)

var kindNames = [...]string{
	KindUnknown:       "UNKNOWN",
	KindNone:          "NONE",
	KindBool:          "BOOL",
	KindInt8:          "INT8",
	KindInt16:         "INT16",
	KindInt32:         "INT32",
	KindInt64:         "INT64",
	KindUint8:         "UINT8",
	KindUint16:        "UINT16",
	KindUint32:        "UINT32",
	KindUint64:        "UINT64",
	KindFloat32:       "FLOAT32",
	KindFloat64:       "FLOAT64",
	KindComplex64:     "COMPLEX64",
	KindComplex128:    "COMPLEX128",
	KindString:        "STRING",
	KindBytes:         "BYTES",
	KindTimestamp:     "TIMESTAMP",
	KindVectorBool:    "VECTOR_BOOL",
	KindVectorInt8:    "VECTOR_INT8",
	KindVectorInt16:   "VECTOR_INT16",
	KindVectorInt32:   "VECTOR_INT32",
	KindVectorInt64:   "VECTOR_INT64",
	KindVectorUint8:   "VECTOR_UINT8",
	KindVectorUint16:  "VECTOR_UINT16",
	KindVectorUint32:  "VECTOR_UINT32",
	KindVectorUint64:  "VECTOR_UINT64",
	KindVectorFloat32: "VECTOR_FLOAT32",
	KindVectorFloat64: "VECTOR_FLOAT64",
	KindVectorString:  "VECTOR_STRING",
	KindHash:          "HASH",
	KindVectorHash:    "VECTOR_HASH",
}

// String returns the kind literal, e.g. "VECTOR_INT32".
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// ParseKind returns the kind for a literal. Matching is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k := KindNone; k < kindCount; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k > KindUnknown && k < kindCount
}

// IsInteger reports whether k is a signed or unsigned integer scalar.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUint64
}

// IsSigned reports whether k is a signed integer scalar.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsFloat reports whether k is a floating point scalar.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsComplex reports whether k is a complex scalar.
func (k Kind) IsComplex() bool {
	return k == KindComplex64 || k == KindComplex128
}

// IsNumeric reports whether k is an integer or floating point scalar.
// Complex numbers are not ordered and do not count.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat()
}

// IsScalar reports whether k holds a single non-container value.
func (k Kind) IsScalar() bool {
	return k >= KindBool && k <= KindTimestamp
}

// IsVector reports whether k is a sequence, including vectors of hashes.
func (k Kind) IsVector() bool {
	return (k >= KindVectorBool && k <= KindVectorString) || k == KindVectorHash
}

// Elem returns the element kind of a vector kind, or KindUnknown.
func (k Kind) Elem() Kind {
	switch {
	case k == KindVectorBool:
		return KindBool
	case k >= KindVectorInt8 && k <= KindVectorFloat64:
		return KindInt8 + (k - KindVectorInt8)
	case k == KindVectorString:
		return KindString
	case k == KindVectorHash:
		return KindHash
	default:
		return KindUnknown
	}
}

// VectorOf returns the vector kind holding elements of kind k, or KindUnknown.
func VectorOf(k Kind) Kind {
	switch {
	case k == KindBool:
		return KindVectorBool
	case k >= KindInt8 && k <= KindFloat64:
		return KindVectorInt8 + (k - KindInt8)
	case k == KindString:
		return KindVectorString
	case k == KindHash:
		return KindVectorHash
	default:
		return KindUnknown
	}
}

// bits returns the width of a numeric scalar kind.
func (k Kind) bits() int {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat32:
		return 32
	case KindComplex64:
		return 64
	case KindComplex128:
		return 128
	default:
		return 64
	}
}
