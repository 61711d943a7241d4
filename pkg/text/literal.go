package text

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/hash"
)

// tagPrefix starts every kind tag, e.g. "!int32".
const tagPrefix = "!"

// attributedTag marks a node rendered together with its attributes.
const attributedTag = "!attributed"

func kindTag(k hash.Kind) string {
	return tagPrefix + strings.ToLower(k.String())
}

// formatFloat renders f with the fewest digits that parse back exactly.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func parseFloat(s string, bits int) (float64, error) {
	switch strings.ToLower(s) {
	case ".nan", "nan":
		return math.NaN(), nil
	case ".inf", "+.inf", "inf", "+inf":
		return math.Inf(1), nil
	case "-.inf", "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), bits)
}

// intBase picks the base of an integer literal: decimal unless it carries a
// 0x, 0o or 0b prefix. A leading zero alone does not mean octal.
func intBase(s string) int {
	u := strings.TrimLeft(s, "+-")
	if len(u) > 2 && u[0] == '0' {
		switch u[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			return 0
		}
	}
	return 10
}

func parseInt(s string, bits int) (int64, error) {
	s = strings.ReplaceAll(s, "_", "")
	return strconv.ParseInt(s, intBase(s), bits)
}

func parseUint(s string, bits int) (uint64, error) {
	s = strings.ReplaceAll(s, "_", "")
	return strconv.ParseUint(strings.TrimPrefix(s, "+"), intBase(s), bits)
}

// formatScalar renders a scalar payload as a literal.
func formatScalar(v hash.Value) string {
	switch d := v.Interface().(type) {
	case bool:
		return strconv.FormatBool(d)
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return fmt.Sprint(d)
	case float32:
		return formatFloat(float64(d), 32)
	case float64:
		return formatFloat(d, 64)
	case complex64:
		return strconv.FormatComplex(complex128(d), 'g', -1, 64)
	case complex128:
		return strconv.FormatComplex(d, 'g', -1, 128)
	case string:
		return d
	case []byte:
		return base64.StdEncoding.EncodeToString(d)
	case time.Time:
		return formatTimestamp(d)
	}
	return ""
}

// formatTimestamp renders t as RFC 3339 when the year fits in four digits
// and as "<unix-seconds>.<nanoseconds>" otherwise.
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t.UTC(), nil
	}
	sec, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 9 {
		return time.Time{}, err
	}
	secs, serr := strconv.ParseInt(sec, 10, 64)
	nsec, nerr := strconv.ParseUint(frac, 10, 32)
	if serr != nil || nerr != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, int64(nsec)).UTC(), nil
}

// parseScalar parses a literal of a scalar kind.
func parseScalar(kind hash.Kind, s string) (hash.Value, error) {
	switch kind {
	case hash.KindBool:
		b, err := strconv.ParseBool(s)
		return hash.Bool(b), err
	case hash.KindInt8:
		i, err := parseInt(s, 8)
		return hash.Int8(int8(i)), err
	case hash.KindInt16:
		i, err := parseInt(s, 16)
		return hash.Int16(int16(i)), err
	case hash.KindInt32:
		i, err := parseInt(s, 32)
		return hash.Int32(int32(i)), err
	case hash.KindInt64:
		i, err := parseInt(s, 64)
		return hash.Int64(i), err
	case hash.KindUint8:
		u, err := parseUint(s, 8)
		return hash.Uint8(uint8(u)), err
	case hash.KindUint16:
		u, err := parseUint(s, 16)
		return hash.Uint16(uint16(u)), err
	case hash.KindUint32:
		u, err := parseUint(s, 32)
		return hash.Uint32(uint32(u)), err
	case hash.KindUint64:
		u, err := parseUint(s, 64)
		return hash.Uint64(u), err
	case hash.KindFloat32:
		f, err := parseFloat(s, 32)
		return hash.Float32(float32(f)), err
	case hash.KindFloat64:
		f, err := parseFloat(s, 64)
		return hash.Float64(f), err
	case hash.KindComplex64:
		c, err := strconv.ParseComplex(s, 64)
		return hash.Complex64(complex64(c)), err
	case hash.KindComplex128:
		c, err := strconv.ParseComplex(s, 128)
		return hash.Complex128(c), err
	case hash.KindString:
		return hash.String(s), nil
	case hash.KindBytes:
		b, err := base64.StdEncoding.DecodeString(s)
		return hash.Bytes(b), err
	case hash.KindTimestamp:
		t, err := parseTimestamp(s)
		return hash.Timestamp(t), err
	}
	return hash.Value{}, fmt.Errorf("%s is not a scalar kind", kind)
}
