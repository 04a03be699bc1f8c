package main

import (
	"fmt"
	"strings"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/db"
)

// parseColumns reads name:type[:pk] definitions.
func parseColumns(defs []string) ([]core.Column, error) {
	columns := make([]core.Column, 0, len(defs))
	for _, def := range defs {
		parts := strings.Split(def, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid column %q, expected name:type or name:type:pk", def)
		}

		col := core.Column{Name: parts[0], Type: core.ParseDataType(parts[1])}
		if len(parts) == 3 {
			if !strings.EqualFold(parts[2], "pk") {
				return nil, fmt.Errorf("invalid column %q: unknown flag %q", def, parts[2])
			}
			col.PrimaryKey = true
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// parseWhere splits "<column> <condition>". An empty filter returns an
// empty column.
func parseWhere(where string) (string, core.FilterCondition, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return "", core.FilterCondition{}, nil
	}

	column, rest, ok := strings.Cut(where, " ")
	if !ok {
		return "", core.FilterCondition{}, fmt.Errorf("filter %q needs a column and a condition", where)
	}
	cond, err := core.ParseFilterCondition(rest)
	if err != nil {
		return "", core.FilterCondition{}, err
	}
	return column, cond, nil
}

// parseAssignment reads column=value, typing the value by the column.
func parseAssignment(table *db.Table, assignment string) (string, core.Value, error) {
	name, text, ok := strings.Cut(assignment, "=")
	if !ok {
		return "", core.Value{}, fmt.Errorf("invalid assignment %q, expected column=value", assignment)
	}

	col, ok := table.Column(name)
	if !ok {
		return "", core.Value{}, core.InvalidColumn(name)
	}
	value, err := core.ParseTypedValue(text, col.Type)
	if err != nil {
		return "", core.Value{}, err
	}
	return name, value, nil
}
