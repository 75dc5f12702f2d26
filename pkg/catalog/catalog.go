// SPDX-License-Identifier: Apache-2.0

// Package catalog defines the read-only CatalogReader port that insulates
// every other component from concrete SQL Server I/O (sys.* catalog views,
// connection management, authentication). Concrete wiring is out of scope;
// this package ships the port, an in-memory fake, and a retrying decorator.
package catalog

import (
	"context"
	"time"

	"github.com/nuetzliches/xtraq/pkg/schema"
)

// ChangeSet is the result of a single listObjectsModifiedSince call.
type ChangeSet struct {
	Modified []schema.ObjectMetadata
	Removed  []schema.Ref
}

// ProcedureDefinition is the raw T-SQL body of a stored procedure plus its
// last-modified timestamp, as read straight from the catalog.
type ProcedureDefinition struct {
	SQL         string
	ModifiedUTC time.Time
}

// UDTRow is a single row from sys.types describing a user-defined table or
// scalar type, as needed to resolve TableTypeParameter references.
type UDTRow struct {
	Ref       schema.Ref
	BaseType  string
	IsTableType bool
}

// Reader is the read-only port every orchestrator component depends on.
// Implementations must treat ctx cancellation as authoritative and report
// transient connectivity failures as *UnavailableError so callers can retry.
type Reader interface {
	// ListObjectsModifiedSince returns objects of kind changed since `since`
	// (a nil since forces a full scan), restricted to schemaFilter when
	// non-empty.
	ListObjectsModifiedSince(ctx context.Context, kind schema.Kind, since *time.Time, schemaFilter map[string]struct{}) (ChangeSet, error)

	// ReadDependencies returns the direct dependencies of ref.
	ReadDependencies(ctx context.Context, ref schema.Ref) ([]schema.Ref, error)

	// ReadMaxModificationTime returns the most recent modification
	// timestamp across every tracked object kind.
	ReadMaxModificationTime(ctx context.Context) (time.Time, error)

	// ReadProcedureDefinition returns the raw SQL body for a stored
	// procedure.
	ReadProcedureDefinition(ctx context.Context, ref schema.Ref) (ProcedureDefinition, error)

	// ReadTableColumns returns the column metadata for a table or view.
	ReadTableColumns(ctx context.Context, schemaName, table string) ([]schema.Column, error)

	// ReadFunctionMetadata returns the cached shape of a scalar or
	// table-valued function, or nil if ref does not resolve to a function.
	ReadFunctionMetadata(ctx context.Context, ref schema.Ref) (*schema.Function, error)

	// ReadUserDefinedTypes returns every user-defined type row known to the
	// catalog.
	ReadUserDefinedTypes(ctx context.Context) ([]UDTRow, error)
}

// UnavailableError reports a transient catalog connectivity failure.
// RetryingReader retries operations that fail with this error.
type UnavailableError struct {
	Op    string
	Cause error
}

func (e *UnavailableError) Error() string {
	if e.Cause == nil {
		return "catalog unavailable: " + e.Op
	}
	return "catalog unavailable: " + e.Op + ": " + e.Cause.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Cause }
