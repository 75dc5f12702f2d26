// SPDX-License-Identifier: Apache-2.0

// Package procanalyzer derives a ProcedureModel (parameters, table-type
// bindings, result-set shapes) from the raw T-SQL body of a stored
// procedure.
package procanalyzer

import (
	"strconv"

	"github.com/oapi-codegen/nullable"
)

// ReferenceKind classifies what a ResultColumn.Reference points at.
type ReferenceKind int

const (
	ReferenceKindUnspecified ReferenceKind = iota
	ReferenceKindFunction
	ReferenceKindTable
	ReferenceKindView
)

// Reference is a pointer from a column to the catalog object that produced
// it, used by MetadataEnricher to fill in SQL type information.
type Reference struct {
	Kind   ReferenceKind
	Schema string
	Name   string
}

// Descriptor identifies the procedure a model was derived from.
type Descriptor struct {
	Schema string
	Name   string
}

// Parameter is a scalar stored-procedure parameter.
type Parameter struct {
	Name        string
	SQLTypeName string
	MaxLength   *int
	Precision   *int
	Scale       *int
	IsNullable  bool
	HasDefault  bool

	// Default distinguishes "no default clause" (unset), "DEFAULT NULL"
	// (explicitly null), and "DEFAULT <literal>" (a set value) — a plain
	// *string collapses the first two cases, which matters when the
	// procedure's caller needs to tell "omit the argument" apart from
	// "pass NULL".
	Default nullable.Nullable[string]
}

// TableTypeParameter is a parameter whose declared type is a user-defined
// table type; it is tracked separately from Parameter so table-valued
// arguments never leak into the scalar parameter list.
type TableTypeParameter struct {
	ParameterName   string
	Schema          string
	Name            string
	NormalizedTypeRef string
}

// ResultColumn is one projected column of a result set. It may nest
// arbitrarily deep for FOR JSON / JSON_QUERY subquery projections.
type ResultColumn struct {
	Name                  string
	Alias                 string
	SourceSchema          string
	SourceTable           string
	SourceColumn          string
	SQLTypeName           string
	MaxLength             *int
	Precision             *int
	Scale                 *int
	IsNullable            bool
	ReturnsJSON           bool
	ReturnsJSONArray      bool
	IsNestedJSON          bool
	JSONRootProperty      string
	JSONIncludeNullValues bool
	Reference             *Reference
	Columns                []ResultColumn
}

// ResultSet is one shape-contributing SELECT (including MERGE OUTPUT and
// FOR JSON projections) within a procedure.
type ResultSet struct {
	Name                  string
	ReturnsJSON           bool
	ReturnsJSONArray      bool
	JSONRootProperty      string
	JSONIncludeNullValues bool
	Columns                []ResultColumn
}

// Model is the full analysis output for one stored procedure.
type Model struct {
	Descriptor          Descriptor
	Parameters          []Parameter
	TableTypeParameters []TableTypeParameter
	ResultSets          []ResultSet
	DefinitionHash      string

	// Diagnostics records non-fatal parse issues; a non-empty Diagnostics
	// with an otherwise empty ResultSets slice means the procedure could
	// not be fully understood but the run still produced a best-effort
	// model, per the parse-errors-are-non-fatal contract.
	Diagnostics []string
}

// dedupeColumnName returns name if it is unused in seen, else appends the
// smallest integer suffix (1, 2, …) that makes it unique, first-wins.
func dedupeColumnName(name string, seen map[string]int) string {
	count, exists := seen[name]
	seen[name] = count + 1
	if !exists {
		return name
	}
	return name + strconv.Itoa(count)
}
