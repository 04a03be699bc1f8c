package core

import (
	"fmt"
	"time"
)

type Operator int

const (
	OpLessThan Operator = iota
	OpLessThanOrEqualTo
	OpGreaterThan
	OpGreaterThanOrEqualTo
	OpEqual
	OpNotEqual
	OpTrue
	OpFalse
	OpNull
	OpNotNull
	OpNumberBetween
	OpDateBetween
)

// FilterCondition is a predicate on a single column. Value carries the
// comparison operand; Upper is only set for the between operators, where
// Value is the inclusive lower bound.
type FilterCondition struct {
	Op    Operator
	Value Value
	Upper Value
}

func LessThan(v Value) FilterCondition {
	return FilterCondition{Op: OpLessThan, Value: v}
}

func LessThanOrEqualTo(v Value) FilterCondition {
	return FilterCondition{Op: OpLessThanOrEqualTo, Value: v}
}

func GreaterThan(v Value) FilterCondition {
	return FilterCondition{Op: OpGreaterThan, Value: v}
}

func GreaterThanOrEqualTo(v Value) FilterCondition {
	return FilterCondition{Op: OpGreaterThanOrEqualTo, Value: v}
}

func Equal(v Value) FilterCondition {
	return FilterCondition{Op: OpEqual, Value: v}
}

func NotEqual(v Value) FilterCondition {
	return FilterCondition{Op: OpNotEqual, Value: v}
}

func IsTrue() FilterCondition  { return FilterCondition{Op: OpTrue} }
func IsFalse() FilterCondition { return FilterCondition{Op: OpFalse} }
func IsNull() FilterCondition  { return FilterCondition{Op: OpNull} }
func NotNull() FilterCondition { return FilterCondition{Op: OpNotNull} }

func NumberBetween(lo, hi float64) FilterCondition {
	return FilterCondition{Op: OpNumberBetween, Value: Number(lo), Upper: Number(hi)}
}

func DateBetween(lo, hi time.Time) FilterCondition {
	return FilterCondition{Op: OpDateBetween, Value: Date(lo), Upper: Date(hi)}
}

// IsComparison reports whether the operator compares against Value.
func (c FilterCondition) IsComparison() bool {
	switch c.Op {
	case OpLessThan, OpLessThanOrEqualTo, OpGreaterThan, OpGreaterThanOrEqualTo, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// CheckColumn verifies that the condition can be evaluated against a column
// of the given type.
func (c FilterCondition) CheckColumn(dt DataType) error {
	switch c.Op {
	case OpNull, OpNotNull:
		return nil
	case OpTrue, OpFalse:
		if dt != BooleanType {
			return MismatchedConditionType(BooleanType.String()+" column", c)
		}
		return nil
	case OpNumberBetween:
		if dt != NumberType || c.Value.Kind() != NumberKind || c.Upper.Kind() != NumberKind {
			return MismatchedConditionType("Number range on a Number column", c)
		}
		return nil
	case OpDateBetween:
		if dt != DateType || c.Value.Kind() != DateKind || c.Upper.Kind() != DateKind {
			return MismatchedConditionType("Date range on a Date column", c)
		}
		return nil
	}

	if !c.IsComparison() {
		return ActionNotImplemented(fmt.Sprintf("operator %d", int(c.Op)))
	}
	if c.Value.Kind() != dt.Kind() {
		return MismatchedConditionType(dt.String(), c)
	}
	return nil
}

// Matches evaluates the condition against one cell. Null cells only match
// OpNull; every comparison against a Null cell is false.
func (c FilterCondition) Matches(v Value) (bool, error) {
	switch c.Op {
	case OpNull:
		return v.IsNull(), nil
	case OpNotNull:
		return !v.IsNull(), nil
	case OpTrue:
		b, ok := v.Bool()
		return ok && b, nil
	case OpFalse:
		b, ok := v.Bool()
		return ok && !b, nil
	}

	if v.IsNull() {
		return false, nil
	}

	if c.Op == OpNumberBetween || c.Op == OpDateBetween {
		lo, err := v.Compare(c.Value)
		if err != nil {
			return false, MismatchedConditionType(v.Kind().String()+" range", c)
		}
		hi, err := v.Compare(c.Upper)
		if err != nil {
			return false, MismatchedConditionType(v.Kind().String()+" range", c)
		}
		return lo >= 0 && hi <= 0, nil
	}

	res, err := v.Compare(c.Value)
	if err != nil {
		return false, MismatchedConditionType(v.Kind().String(), c)
	}

	switch c.Op {
	case OpLessThan:
		return res < 0, nil
	case OpLessThanOrEqualTo:
		return res <= 0, nil
	case OpGreaterThan:
		return res > 0, nil
	case OpGreaterThanOrEqualTo:
		return res >= 0, nil
	case OpEqual:
		return res == 0, nil
	case OpNotEqual:
		return res != 0, nil
	default:
		return false, ActionNotImplemented(fmt.Sprintf("operator %d", int(c.Op)))
	}
}

func (c FilterCondition) String() string {
	switch c.Op {
	case OpLessThan:
		return "< " + c.Value.String()
	case OpLessThanOrEqualTo:
		return "<= " + c.Value.String()
	case OpGreaterThan:
		return "> " + c.Value.String()
	case OpGreaterThanOrEqualTo:
		return ">= " + c.Value.String()
	case OpEqual:
		return "= " + c.Value.String()
	case OpNotEqual:
		return "!= " + c.Value.String()
	case OpTrue:
		return "is true"
	case OpFalse:
		return "is false"
	case OpNull:
		return "is null"
	case OpNotNull:
		return "is not null"
	case OpNumberBetween, OpDateBetween:
		return fmt.Sprintf("between [%s, %s]", c.Value, c.Upper)
	default:
		return fmt.Sprintf("Operator(%d)", int(c.Op))
	}
}
