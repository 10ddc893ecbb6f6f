package main

import (
	"fmt"
	"strings"
)

type templateCondition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

var operators = map[string]string{
	"equals":           "=",
	"not_equals":       "!=",
	"greater_than":     ">",
	"less_than":        "<",
	"greater_or_equal": ">=",
	"less_or_equal":    "<=",
	"contains":         "LIKE",
	"starts_with":      "LIKE",
}

// buildSelect renders a template into a parameterized SELECT. Table and
// field names must exist in the sandbox schema; values only ever travel
// as bind parameters.
func buildSelect(table string, fields []string, conditions []templateCondition, sortBy, sortDir string, schema map[string]map[string]bool) (string, []any, error) {
	columns, ok := schema[table]
	if !ok {
		return "", nil, fmt.Errorf("unknown table %q", table)
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("at least one field is required")
	}
	for _, f := range fields {
		if !columns[f] {
			return "", nil, fmt.Errorf("unknown field %q on table %q", f, table)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(fields, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	var args []any
	for i, c := range conditions {
		op, ok := operators[c.Operator]
		if !ok {
			return "", nil, fmt.Errorf("unknown operator %q", c.Operator)
		}
		if !columns[c.Field] {
			return "", nil, fmt.Errorf("unknown field %q on table %q", c.Field, table)
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s %s ?", c.Field, op)

		switch c.Operator {
		case "contains":
			args = append(args, fmt.Sprintf("%%%v%%", c.Value))
		case "starts_with":
			args = append(args, fmt.Sprintf("%v%%", c.Value))
		default:
			args = append(args, c.Value)
		}
	}

	if sortBy != "" {
		if !columns[sortBy] {
			return "", nil, fmt.Errorf("unknown sort field %q on table %q", sortBy, table)
		}
		dir := "ASC"
		if strings.EqualFold(sortDir, "desc") {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", sortBy, dir)
	}

	return sb.String(), args, nil
}
