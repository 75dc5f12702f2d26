// SPDX-License-Identifier: Apache-2.0

// Package enrich fills in the SQL type information ProcedureAstAnalyzer
// could not infer purely from syntax: function return types, table column
// types, parameter types, and a handful of well-known leaf-name fallbacks.
package enrich

import (
	"context"
	"strings"

	"github.com/nuetzliches/xtraq/pkg/catalog"
	"github.com/nuetzliches/xtraq/pkg/procanalyzer"
	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/xtraqlog"
)

// GapReporter is a callback shape for per-column gap reports that a caller
// can feed into a xtraqlog.WarningAggregator. Enricher does not call one; it
// reports each unresolved column through Logger.LogEnrichmentGap.
type GapReporter func(column, reason string)

// Enricher fills ResultColumn.SQLTypeName (and friends) from catalog
// metadata, a procedure's own parameters, and well-known fallbacks.
type Enricher struct {
	Reader catalog.Reader
	Logger xtraqlog.Logger
}

// New returns an Enricher backed by reader. A nil logger defaults to a
// no-op logger.
func New(reader catalog.Reader, logger xtraqlog.Logger) *Enricher {
	if logger == nil {
		logger = xtraqlog.NewNoopLogger()
	}
	return &Enricher{Reader: reader, Logger: logger}
}

// Enrich walks every result set of model depth-first, filling gaps in
// place. procedureFullName is used only for diagnostic logging.
func (e *Enricher) Enrich(ctx context.Context, procedureFullName string, model *procanalyzer.Model) {
	for i := range model.ResultSets {
		rs := &model.ResultSets[i]
		for j := range rs.Columns {
			e.enrichColumn(ctx, procedureFullName, model.Parameters, &rs.Columns[j])
		}
	}
}

func (e *Enricher) enrichColumn(ctx context.Context, procedureFullName string, params []procanalyzer.Parameter, col *procanalyzer.ResultColumn) {
	if col.SQLTypeName == "" {
		e.resolveColumn(ctx, procedureFullName, params, col)
	}
	for i := range col.Columns {
		e.enrichColumn(ctx, procedureFullName, params, &col.Columns[i])
	}
}

func (e *Enricher) resolveColumn(ctx context.Context, procedureFullName string, params []procanalyzer.Parameter, col *procanalyzer.ResultColumn) {
	switch {
	case col.Reference != nil && col.Reference.Kind == procanalyzer.ReferenceKindFunction:
		if e.resolveFromFunction(ctx, col) {
			return
		}
	case col.SourceSchema != "" && col.SourceTable != "" && col.SourceColumn != "":
		if e.resolveFromTable(ctx, col) {
			return
		}
	}

	if e.resolveFromParameter(params, col) {
		return
	}

	if e.resolveWellKnownFallback(col) {
		return
	}

	e.Logger.LogEnrichmentGap(procedureFullName, col.Name, "no catalog, parameter, or fallback source")
}

func (e *Enricher) resolveFromFunction(ctx context.Context, col *procanalyzer.ResultColumn) bool {
	if e.Reader == nil || col.Reference == nil {
		return false
	}
	ref := schema.Ref{Kind: schema.KindScalarFunction, Schema: col.Reference.Schema, Name: col.Reference.Name}
	fn, err := e.Reader.ReadFunctionMetadata(ctx, ref)
	if err != nil || fn == nil {
		return false
	}
	if fn.IsTableValued {
		if match := fn.GetColumn(col.Name); match != nil {
			applyColumnType(col, *match)
			return true
		}
		return false
	}
	col.SQLTypeName = fn.ReturnSQLType
	col.MaxLength = fn.ReturnMaxLength
	col.IsNullable = fn.ReturnIsNullable
	return col.SQLTypeName != ""
}

func (e *Enricher) resolveFromTable(ctx context.Context, col *procanalyzer.ResultColumn) bool {
	if e.Reader == nil {
		return false
	}
	cols, err := e.Reader.ReadTableColumns(ctx, col.SourceSchema, col.SourceTable)
	if err != nil {
		return false
	}
	for _, tc := range cols {
		if strings.EqualFold(tc.Name, col.SourceColumn) {
			applyColumnType(col, tc)
			return true
		}
	}
	return false
}

func applyColumnType(col *procanalyzer.ResultColumn, src schema.Column) {
	if col.SQLTypeName == "" {
		col.SQLTypeName = src.SQLTypeName
	}
	if col.MaxLength == nil {
		col.MaxLength = src.MaxLength
	}
	if col.Precision == nil {
		col.Precision = src.Precision
	}
	if col.Scale == nil {
		col.Scale = src.Scale
	}
	col.IsNullable = src.IsNullable
}

// resolveFromParameter matches col's leaf name against procedure
// parameters: exact match first, then suffix match, then longest-prefix
// match against the dotted column name.
func (e *Enricher) resolveFromParameter(params []procanalyzer.Parameter, col *procanalyzer.ResultColumn) bool {
	leaf := leafSegment(col.Name)

	for _, p := range params {
		if strings.EqualFold(p.Name, leaf) {
			applyParameterType(col, p)
			return true
		}
	}
	for _, p := range params {
		if strings.HasSuffix(strings.ToLower(leaf), strings.ToLower(p.Name)) {
			applyParameterType(col, p)
			return true
		}
	}

	best := -1
	var bestParam *procanalyzer.Parameter
	for i := range params {
		p := &params[i]
		if strings.HasPrefix(strings.ToLower(col.Name), strings.ToLower(p.Name)) && len(p.Name) > best {
			best = len(p.Name)
			bestParam = p
		}
	}
	if bestParam != nil {
		applyParameterType(col, *bestParam)
		return true
	}
	return false
}

func applyParameterType(col *procanalyzer.ResultColumn, p procanalyzer.Parameter) {
	col.SQLTypeName = p.SQLTypeName
	col.MaxLength = p.MaxLength
	col.Precision = p.Precision
	col.Scale = p.Scale
	col.IsNullable = p.IsNullable
}

func leafSegment(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

// wellKnownFallbacks maps a lower-cased leaf column name to its fallback
// SQL type. dateTime is handled separately since its resolution depends on
// the first dotted segment, not the leaf alone.
var wellKnownFallbacks = map[string]string{
	"rowversion":  "rowversion",
	"displayname": "nvarchar(256)",
	"username":    "nvarchar(256)",
	"userid":      "int",
	"initials":    "nvarchar(10)",
}

func (e *Enricher) resolveWellKnownFallback(col *procanalyzer.ResultColumn) bool {
	leaf := strings.ToLower(leafSegment(col.Name))

	if leaf == "datetime" {
		first := strings.ToLower(firstDottedSegment(col.Name))
		switch first {
		case "created":
			col.SQLTypeName = "datetime2"
			col.IsNullable = false
			return true
		case "updated":
			col.SQLTypeName = "datetime2"
			col.IsNullable = true
			return true
		}
		return false
	}

	if sqlType, ok := wellKnownFallbacks[leaf]; ok {
		col.SQLTypeName = sqlType
		return true
	}
	return false
}

func firstDottedSegment(name string) string {
	idx := strings.Index(name, ".")
	if idx < 0 {
		return name
	}
	return name[:idx]
}
