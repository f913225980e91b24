// Package transfer moves the four-table graph in and out of the store as
// JSON: export, strict decoding, and reconciling import by natural key.
package transfer

import (
	"fmt"
	"strings"
)

// ValidationError describes why an import payload was rejected. Nothing is
// written when one is returned.
type ValidationError struct {
	// Entity is the collection ("categories", "tasks", "check_items",
	// "task_checks", "legacy") or empty for file-level problems.
	Entity string

	// Index is the offending row, or -1 when the problem is not tied to a row.
	Index int

	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid import data")
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.Index >= 0 {
			fmt.Fprintf(&b, "[%d]", e.Index)
		}
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func invalid(entity string, index int, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Index:  index,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
