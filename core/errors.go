package core

import (
	"errors"
	"fmt"
	"strings"
)

// Every error returned by the engine wraps exactly one of these.
var (
	ErrPrimaryKeyRequired      = errors.New("at least one primary key is required for this operation")
	ErrMissingPrimaryKeys      = errors.New("missing primary keys")
	ErrMismatchDataType        = errors.New("mismatched data type")
	ErrInvalidColumn           = errors.New("invalid column")
	ErrDuplicatePrimaryKey     = errors.New("duplicate primary key")
	ErrMandatoryColumn         = errors.New("mandatory column")
	ErrMismatchedConditionType = errors.New("mismatched condition type")
	ErrActionNotImplemented    = errors.New("action not implemented")
	ErrStorageFailure          = errors.New("storage failure")
)

func MissingPrimaryKeys(names []string) error {
	return fmt.Errorf("%w: %s", ErrMissingPrimaryKeys, strings.Join(names, ", "))
}

func MismatchDataType(expected DataType, actual Kind) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrMismatchDataType, expected, actual)
}

func InvalidColumn(name string) error {
	return fmt.Errorf("%w: the column '%s' does not exist", ErrInvalidColumn, name)
}

func DuplicatePrimaryKey(column string) error {
	return fmt.Errorf("%w: value already exists in column '%s'", ErrDuplicatePrimaryKey, column)
}

func MandatoryColumn(column string) error {
	return fmt.Errorf("%w: '%s' is a primary key", ErrMandatoryColumn, column)
}

func MismatchedConditionType(expected string, actual FilterCondition) error {
	return fmt.Errorf("%w: expected %s, got '%s'", ErrMismatchedConditionType, expected, actual)
}

func ActionNotImplemented(description string) error {
	return fmt.Errorf("%w: %s", ErrActionNotImplemented, description)
}

// StorageFailure wraps an I/O or codec error for the blob at path.
func StorageFailure(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, path, err)
}
