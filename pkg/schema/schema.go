// SPDX-License-Identifier: Apache-2.0

// Package schema holds the catalog value types shared by every Xtraq
// component: the identity of a schema object, the metadata a CatalogReader
// returns for it, and the cached column/function rows MetadataEnricher reads
// back when filling gaps in an inferred result set.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the catalog object kinds Xtraq tracks.
type Kind int

const (
	KindUnspecified Kind = iota
	KindTable
	KindView
	KindStoredProcedure
	KindScalarFunction
	KindTableValuedFunction
	KindUserDefinedTableType
	KindUserDefinedDataType
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "Table"
	case KindView:
		return "View"
	case KindStoredProcedure:
		return "StoredProcedure"
	case KindScalarFunction:
		return "ScalarFunction"
	case KindTableValuedFunction:
		return "TableValuedFunction"
	case KindUserDefinedTableType:
		return "UserDefinedTableType"
	case KindUserDefinedDataType:
		return "UserDefinedDataType"
	default:
		return "Unspecified"
	}
}

// Ref identifies a single catalog object. Comparison is case-insensitive on
// Schema and Name, per spec.
type Ref struct {
	Kind   Kind
	Schema string
	Name   string
}

// FullName returns "{schema}.{name}".
func (r Ref) FullName() string {
	return fmt.Sprintf("%s.%s", r.Schema, r.Name)
}

// key returns the case-folded identity used for map keys and equality.
func (r Ref) key() string {
	return fmt.Sprintf("%d|%s|%s", r.Kind, strings.ToLower(r.Schema), strings.ToLower(r.Name))
}

// Equal reports whether two refs identify the same object, ignoring case.
func (r Ref) Equal(other Ref) bool {
	return r.key() == other.key()
}

// Key returns a stable, comparable identity for use as a map key. Two refs
// that are Equal always produce the same Key.
func (r Ref) Key() string { return r.key() }

func (r Ref) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.FullName())
}

// ObjectMetadata is what a CatalogReader reports for a single changed or
// existing object.
type ObjectMetadata struct {
	Ref         Ref
	ObjectID    int32
	ModifiedUTC time.Time
}

// NormalizeModifiedUTC reinterprets a time value lacking timezone
// information as UTC, per spec.md 3: "normalize: if kind=unspecified,
// reinterpret ticks as UTC without offset conversion". This strips any
// offset the source may have attached without shifting the wall-clock
// reading.
func NormalizeModifiedUTC(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Column is a cached column row, as returned by CatalogReader.readTableColumns
// and consulted by MetadataEnricher.
type Column struct {
	Name        string
	SQLTypeName string
	MaxLength   *int
	Precision   *int
	Scale       *int
	IsNullable  bool
}

// Table is the cached shape of a table or view used to enrich MERGE OUTPUT
// result columns and plain table-sourced columns.
type Table struct {
	Ref     Ref
	Columns []Column
}

// GetColumn returns the column with the given name (case-insensitive), or
// nil if the table has no such column.
func (t *Table) GetColumn(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// Function is the cached shape of a scalar or table-valued function, as
// returned by CatalogReader.readFunctionMetadata.
type Function struct {
	Ref                   Ref
	IsTableValued         bool
	IsEncrypted           bool
	ReturnSQLType         string
	ReturnMaxLength       *int
	ReturnIsNullable      bool
	ReturnsJSON           bool
	ReturnsJSONArray      bool
	JSONRootProperty      string
	JSONIncludeNullValues bool
	Parameters            []Parameter
	Columns               []Column
	Dependencies          []string
}

// Parameter is a stored procedure or function scalar parameter.
type Parameter struct {
	Name        string
	SQLTypeName string
	MaxLength   *int
	Precision   *int
	Scale       *int
	IsNullable  bool
	HasDefault  bool
}

// GetColumn returns the TVF return column with the given name
// (case-insensitive), or nil.
func (f *Function) GetColumn(name string) *Column {
	for i := range f.Columns {
		if strings.EqualFold(f.Columns[i].Name, name) {
			return &f.Columns[i]
		}
	}
	return nil
}
