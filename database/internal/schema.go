package internal

import (
	"fmt"
	"slices"
	"strings"
)

// Column is one column as the metadata table declares it. Type is the
// lower-cased type name the database reports.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Schema is the layout a repository reads and writes.
type Schema struct {
	Columns    []Column
	PrimaryKey []string
}

// SchemaError reports how a table differs from a Schema.
type SchemaError struct {
	Table      string
	Missing    []string
	Mismatched []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s schema validation failed:\n", e.Table)

	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "  missing columns: %s\n", strings.Join(e.Missing, ", "))
	}

	if len(e.Mismatched) > 0 {
		b.WriteString("  mismatched columns:\n")
		for _, msg := range e.Mismatched {
			fmt.Fprintf(&b, "    - %s\n", msg)
		}
	}

	return b.String()
}

// Check compares the columns and primary key found on table with s. Extra
// columns are allowed so operators can add their own.
func (s Schema) Check(table string, found map[string]Column, primaryKey []string) error {
	e := &SchemaError{Table: table}

	for _, want := range s.Columns {
		got, ok := found[want.Name]
		if !ok {
			e.Missing = append(e.Missing, want.Name)
			continue
		}

		if got.Type != want.Type {
			e.Mismatched = append(e.Mismatched,
				fmt.Sprintf("%s: expected %s, got %s", want.Name, want.Type, got.Type))
		}

		if got.Nullable != want.Nullable {
			e.Mismatched = append(e.Mismatched,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", want.Name, want.Nullable, got.Nullable))
		}
	}

	if len(e.Missing) == 0 && !slices.Equal(primaryKey, s.PrimaryKey) {
		e.Mismatched = append(e.Mismatched,
			fmt.Sprintf("primary key: expected (%s), got (%s)",
				strings.Join(s.PrimaryKey, ", "), strings.Join(primaryKey, ", ")))
	}

	if len(e.Missing) > 0 || len(e.Mismatched) > 0 {
		return e
	}

	return nil
}
