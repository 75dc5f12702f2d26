// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nuetzliches/xtraq/pkg/schema"
)

// Fake is an in-memory Reader used by tests and by the debug cmd/ wiring.
// It never fails unless Err is set, and performs no I/O.
type Fake struct {
	Objects      map[string]schema.ObjectMetadata
	Dependencies map[string][]schema.Ref
	Procedures   map[string]ProcedureDefinition
	Tables       map[string][]schema.Column
	Functions    map[string]*schema.Function
	UDTs         []UDTRow
	MaxModified  time.Time

	// Removed accumulates refs dropped via RemoveObject; each
	// ListObjectsModifiedSince call reports and clears the entries matching
	// its kind and schemaFilter, simulating a one-shot catalog diff.
	Removed []schema.Ref

	// Err, when non-nil, is returned by every method (wrapped in
	// *UnavailableError if it isn't already one).
	Err error
}

// NewFake returns an empty fake reader ready for population.
func NewFake() *Fake {
	return &Fake{
		Objects:      map[string]schema.ObjectMetadata{},
		Dependencies: map[string][]schema.Ref{},
		Procedures:   map[string]ProcedureDefinition{},
		Tables:       map[string][]schema.Column{},
		Functions:    map[string]*schema.Function{},
	}
}

// PutObject registers (or updates) a tracked catalog object.
func (f *Fake) PutObject(meta schema.ObjectMetadata) {
	f.Objects[meta.Ref.Key()] = meta
	if meta.ModifiedUTC.After(f.MaxModified) {
		f.MaxModified = meta.ModifiedUTC
	}
}

// RemoveObject deletes a tracked object, simulating a catalog drop. The
// removal is queued and surfaces once through the next matching
// ListObjectsModifiedSince call.
func (f *Fake) RemoveObject(ref schema.Ref) {
	delete(f.Objects, ref.Key())
	delete(f.Dependencies, ref.Key())
	f.Removed = append(f.Removed, ref)
}

func (f *Fake) err(op string) error {
	if f.Err == nil {
		return nil
	}
	if ue, ok := f.Err.(*UnavailableError); ok {
		return ue
	}
	return &UnavailableError{Op: op, Cause: f.Err}
}

func (f *Fake) ListObjectsModifiedSince(_ context.Context, kind schema.Kind, since *time.Time, schemaFilter map[string]struct{}) (ChangeSet, error) {
	if err := f.err("ListObjectsModifiedSince"); err != nil {
		return ChangeSet{}, err
	}

	var result ChangeSet
	keys := make([]string, 0, len(f.Objects))
	for k := range f.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		meta := f.Objects[k]
		if meta.Ref.Kind != kind {
			continue
		}
		if len(schemaFilter) > 0 {
			if _, ok := schemaFilter[strings.ToLower(meta.Ref.Schema)]; !ok {
				continue
			}
		}
		if since != nil && !meta.ModifiedUTC.After(*since) {
			continue
		}
		result.Modified = append(result.Modified, meta)
	}

	remaining := f.Removed[:0]
	for _, ref := range f.Removed {
		if ref.Kind != kind {
			remaining = append(remaining, ref)
			continue
		}
		if len(schemaFilter) > 0 {
			if _, ok := schemaFilter[strings.ToLower(ref.Schema)]; !ok {
				remaining = append(remaining, ref)
				continue
			}
		}
		result.Removed = append(result.Removed, ref)
	}
	f.Removed = remaining

	return result, nil
}

func (f *Fake) ReadDependencies(_ context.Context, ref schema.Ref) ([]schema.Ref, error) {
	if err := f.err("ReadDependencies"); err != nil {
		return nil, err
	}
	return append([]schema.Ref(nil), f.Dependencies[ref.Key()]...), nil
}

func (f *Fake) ReadMaxModificationTime(_ context.Context) (time.Time, error) {
	if err := f.err("ReadMaxModificationTime"); err != nil {
		return time.Time{}, err
	}
	return f.MaxModified, nil
}

func (f *Fake) ReadProcedureDefinition(_ context.Context, ref schema.Ref) (ProcedureDefinition, error) {
	if err := f.err("ReadProcedureDefinition"); err != nil {
		return ProcedureDefinition{}, err
	}
	def, ok := f.Procedures[ref.Key()]
	if !ok {
		return ProcedureDefinition{}, &NotFoundError{Ref: ref}
	}
	return def, nil
}

func (f *Fake) ReadTableColumns(_ context.Context, schemaName, table string) ([]schema.Column, error) {
	if err := f.err("ReadTableColumns"); err != nil {
		return nil, err
	}
	ref := schema.Ref{Kind: schema.KindTable, Schema: schemaName, Name: table}
	return append([]schema.Column(nil), f.Tables[ref.Key()]...), nil
}

func (f *Fake) ReadFunctionMetadata(_ context.Context, ref schema.Ref) (*schema.Function, error) {
	if err := f.err("ReadFunctionMetadata"); err != nil {
		return nil, err
	}
	return f.Functions[ref.Key()], nil
}

func (f *Fake) ReadUserDefinedTypes(_ context.Context) ([]UDTRow, error) {
	if err := f.err("ReadUserDefinedTypes"); err != nil {
		return nil, err
	}
	return append([]UDTRow(nil), f.UDTs...), nil
}

// NotFoundError reports that ref does not resolve to any known procedure
// definition.
type NotFoundError struct {
	Ref schema.Ref
}

func (e *NotFoundError) Error() string {
	return "catalog object not found: " + e.Ref.FullName()
}
