// Package core provides core types used throughout SequelDB.
//
// The package defines the cell Value, column schema, filter and sort
// conditions, and the sentinel errors every operation wraps.
//
// # Values
//
// A Value is a tagged union over String, Number, Date, Url, Boolean and
// Null. Values of the same kind are ordered; comparing different kinds is
// an error:
//
//	core.Number(1).Compare(core.Number(2))   // -1, nil
//	core.Number(1).Compare(core.String("a")) // 0, ErrMismatchDataType
//
// # Column Types
//
// Supported column types:
//   - StringType: free text
//   - NumberType: float64
//   - DateType: UTC timestamps
//   - URLType: absolute URLs
//   - BooleanType: true/false
//
// # Conditions
//
//	cond := core.NumberBetween(18, 65)
//	cond, err := core.ParseFilterCondition("between dates 2024-01-01 2024-12-31")
//
// # Errors
//
// Callers test errors with errors.Is against ErrInvalidColumn,
// ErrDuplicatePrimaryKey and the other sentinels in errors.go.
package core
