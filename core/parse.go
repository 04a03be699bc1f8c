package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", time.RFC3339}

// ParseValue turns free-form text into the most specific Value it fits:
// Boolean, then Number, then Date (YYYY-MM-DD), then Url, else String.
func ParseValue(text string) Value {
	switch strings.ToLower(text) {
	case "true":
		return Boolean(true)
	case "false":
		return Boolean(false)
	}

	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return Number(n)
	}

	if d, err := time.Parse("2006-01-02", text); err == nil {
		return Date(d)
	}

	if u, err := url.Parse(text); err == nil && u.Scheme != "" && u.Host != "" {
		return URL(u.String())
	}

	return String(text)
}

// ParseTypedValue parses text for a column of the given type. "null"
// (any case) yields Null for every type.
func ParseTypedValue(text string, dt DataType) (Value, error) {
	if strings.EqualFold(text, "null") {
		return Null(), nil
	}

	switch dt {
	case StringType:
		return String(text), nil
	case URLType:
		u, err := url.Parse(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a url: %w", ErrMismatchDataType, text, err)
		}
		return URL(u.String()), nil
	case NumberType:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrMismatchDataType, text)
		}
		return Number(n), nil
	case DateType:
		d, err := parseDate(text)
		if err != nil {
			return Value{}, err
		}
		return Date(d), nil
	case BooleanType:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrMismatchDataType, text)
		}
		return Boolean(b), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown type %s", ErrMismatchDataType, dt)
	}
}

func parseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, text); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrMismatchDataType, text)
}

// ParseFilterCondition parses the textual form of a condition:
//
//	< 5, <= 5, = abc, != 5, > 2024-01-01, >= 5
//	between numbers 1 10
//	between dates 2024-01-01 2024-12-31
//	true, false, null, not null
func ParseFilterCondition(input string) (FilterCondition, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return FilterCondition{}, fmt.Errorf("empty condition")
	}

	op := strings.ToLower(fields[0])
	switch op {
	case "<", "<=", "=", "!=", ">", ">=":
		if len(fields) < 2 {
			return FilterCondition{}, fmt.Errorf("condition %q is missing a value", input)
		}
		v := ParseValue(strings.Join(fields[1:], " "))
		switch op {
		case "<":
			return LessThan(v), nil
		case "<=":
			return LessThanOrEqualTo(v), nil
		case "=":
			return Equal(v), nil
		case "!=":
			return NotEqual(v), nil
		case ">":
			return GreaterThan(v), nil
		default:
			return GreaterThanOrEqualTo(v), nil
		}
	case "between":
		if len(fields) != 4 {
			return FilterCondition{}, fmt.Errorf("range condition %q needs a kind and two bounds", input)
		}
		switch strings.ToLower(fields[1]) {
		case "numbers":
			lo, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return FilterCondition{}, fmt.Errorf("invalid lower bound %q: %w", fields[2], err)
			}
			hi, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return FilterCondition{}, fmt.Errorf("invalid upper bound %q: %w", fields[3], err)
			}
			return NumberBetween(lo, hi), nil
		case "dates":
			lo, err := parseDate(fields[2])
			if err != nil {
				return FilterCondition{}, err
			}
			hi, err := parseDate(fields[3])
			if err != nil {
				return FilterCondition{}, err
			}
			return DateBetween(lo, hi), nil
		}
		return FilterCondition{}, fmt.Errorf("unknown range kind %q", fields[1])
	}

	switch strings.ToLower(strings.Join(fields, " ")) {
	case "true", "is true":
		return IsTrue(), nil
	case "false", "is false":
		return IsFalse(), nil
	case "null", "is null":
		return IsNull(), nil
	case "not null", "is not null":
		return NotNull(), nil
	}

	return FilterCondition{}, fmt.Errorf("unrecognised condition %q", input)
}
