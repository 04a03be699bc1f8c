package core

import (
	"fmt"
	"strings"
)

type DataType int

const (
	StringType DataType = iota
	NumberType
	DateType
	URLType
	BooleanType
)

func (dt DataType) String() string {
	switch dt {
	case StringType:
		return "String"
	case NumberType:
		return "Number"
	case DateType:
		return "Date"
	case URLType:
		return "Url"
	case BooleanType:
		return "Boolean"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// Kind returns the value kind stored in columns of this type.
func (dt DataType) Kind() Kind {
	switch dt {
	case StringType:
		return StringKind
	case NumberType:
		return NumberKind
	case DateType:
		return DateKind
	case URLType:
		return URLKind
	case BooleanType:
		return BooleanKind
	default:
		return NullKind
	}
}

// ParseDataType maps a type name to a DataType. Unknown names fall back to
// NumberType.
func ParseDataType(name string) DataType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "number", "num", "float", "int":
		return NumberType
	case "date", "timestamp":
		return DateType
	case "url":
		return URLType
	case "boolean", "bool":
		return BooleanType
	case "string", "str", "text":
		return StringType
	default:
		return NumberType
	}
}

type Column struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	PrimaryKey bool     `json:"primaryKey"`
}

// Identity identifies the author of commits written by git-backed stores.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Database struct {
	Name string `json:"name"`
}
