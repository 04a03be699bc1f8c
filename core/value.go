package core

import (
	"cmp"
	"fmt"
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	NullKind Kind = iota
	StringKind
	NumberKind
	DateKind
	URLKind
	BooleanKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "Null"
	case StringKind:
		return "String"
	case NumberKind:
		return "Number"
	case DateKind:
		return "Date"
	case URLKind:
		return "Url"
	case BooleanKind:
		return "Boolean"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	date time.Time
	b    bool
}

func String(s string) Value  { return Value{kind: StringKind, str: s} }
func Number(n float64) Value { return Value{kind: NumberKind, num: n} }
func Date(t time.Time) Value { return Value{kind: DateKind, date: t.UTC().Round(0)} }
func URL(u string) Value     { return Value{kind: URLKind, str: u} }
func Boolean(b bool) Value   { return Value{kind: BooleanKind, b: b} }
func Null() Value            { return Value{} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

// Text returns the payload of a String or Url value.
func (v Value) Text() (string, bool) {
	if v.kind == StringKind || v.kind == URLKind {
		return v.str, true
	}
	return "", false
}

func (v Value) Number() (float64, bool) {
	return v.num, v.kind == NumberKind
}

func (v Value) Time() (time.Time, bool) {
	return v.date, v.kind == DateKind
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == BooleanKind
}

// DataType reports the column type this value belongs to. Null has none.
func (v Value) DataType() (DataType, bool) {
	switch v.kind {
	case StringKind:
		return StringType, true
	case NumberKind:
		return NumberType, true
	case DateKind:
		return DateType, true
	case URLKind:
		return URLType, true
	case BooleanKind:
		return BooleanType, true
	default:
		return 0, false
	}
}

// Compare orders two values of the same kind. Null compares equal only to
// Null; any other pairing of kinds returns ErrMismatchDataType.
func (v Value) Compare(other Value) (int, error) {
	if v.kind != other.kind {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrMismatchDataType, v.kind, other.kind)
	}

	switch v.kind {
	case NullKind:
		return 0, nil
	case StringKind, URLKind:
		return cmp.Compare(v.str, other.str), nil
	case NumberKind:
		return cmp.Compare(v.num, other.num), nil
	case DateKind:
		return v.date.Compare(other.date), nil
	case BooleanKind:
		switch {
		case v.b == other.b:
			return 0, nil
		case !v.b:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, fmt.Errorf("%w: unknown kind %s", ErrMismatchDataType, v.kind)
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	c, err := v.Compare(other)
	return err == nil && c == 0
}

// CompareNullsFirst is Compare with Null ordered before every other kind.
// Mismatches between two non-null kinds still return an error.
func (v Value) CompareNullsFirst(other Value) (int, error) {
	switch {
	case v.kind == NullKind && other.kind == NullKind:
		return 0, nil
	case v.kind == NullKind:
		return -1, nil
	case other.kind == NullKind:
		return 1, nil
	}
	return v.Compare(other)
}

func (v Value) String() string {
	switch v.kind {
	case StringKind, URLKind:
		return v.str
	case NumberKind:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case DateKind:
		return v.date.Format("2006-01-02 15:04:05 MST")
	case BooleanKind:
		return strconv.FormatBool(v.b)
	default:
		return "Null"
	}
}
