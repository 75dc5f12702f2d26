// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"sort"
	"strings"

	"github.com/nuetzliches/xtraq/pkg/procanalyzer"
	"github.com/nuetzliches/xtraq/pkg/schema"
)

// Writer assembles and persists canonical procedure/function/table/type
// documents, keeping index.json in sync with the procedures currently on
// disk.
type Writer struct {
	Store *Store
}

// NewWriter returns a Writer backed by store.
func NewWriter(store *Store) *Writer {
	return &Writer{Store: store}
}

// WriteProcedure converts model into its canonical document, writes it
// atomically, and refreshes index.json to include it.
func (w *Writer) WriteProcedure(ref schema.Ref, model procanalyzer.Model) error {
	doc := ProcedureDocFromModel(model)
	path := w.Store.ProcedurePath(ref)
	if err := Save(path, doc); err != nil {
		return err
	}
	return w.updateIndex(ref, doc)
}

// RemoveProcedure deletes a procedure's snapshot file and drops its entry
// from index.json.
func (w *Writer) RemoveProcedure(ref schema.Ref) error {
	if err := Remove(w.Store.ProcedurePath(ref)); err != nil {
		return err
	}
	idx := w.loadIndex()
	filtered := idx.Procedures[:0]
	for _, e := range idx.Procedures {
		if strings.EqualFold(e.Schema, ref.Schema) && strings.EqualFold(e.Name, ref.Name) {
			continue
		}
		filtered = append(filtered, e)
	}
	idx.Procedures = filtered
	return Save(w.Store.IndexPath(), idx)
}

func (w *Writer) loadIndex() IndexDoc {
	var idx IndexDoc
	_, _ = Load(w.Store.IndexPath(), &idx)
	return idx
}

func (w *Writer) updateIndex(ref schema.Ref, doc ProcedureDoc) error {
	idx := w.loadIndex()

	entry := IndexEntry{Schema: ref.Schema, Name: ref.Name, ResultSets: indexResultSets(doc.ResultSets)}

	replaced := false
	for i, e := range idx.Procedures {
		if strings.EqualFold(e.Schema, ref.Schema) && strings.EqualFold(e.Name, ref.Name) {
			idx.Procedures[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Procedures = append(idx.Procedures, entry)
	}

	sort.SliceStable(idx.Procedures, func(i, j int) bool {
		a, b := idx.Procedures[i], idx.Procedures[j]
		if !strings.EqualFold(a.Schema, b.Schema) {
			return strings.ToLower(a.Schema) < strings.ToLower(b.Schema)
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	return Save(w.Store.IndexPath(), idx)
}

func indexResultSets(sets []ResultSetDoc) []IndexResultSetDoc {
	out := make([]IndexResultSetDoc, len(sets))
	for i, s := range sets {
		out[i] = IndexResultSetDoc{Columns: indexColumns(s.Columns)}
	}
	return out
}

func indexColumns(cols []ResultColumnDoc) []IndexColumnDoc {
	out := make([]IndexColumnDoc, len(cols))
	for i, c := range cols {
		out[i] = IndexColumnDoc{Name: c.Name, Columns: indexColumns(c.Columns)}
	}
	return out
}

// ProcedureDocFromModel converts an analyzer Model into its canonical
// on-disk document shape, pruning the nil/empty optional fields the writer
// contract requires.
func ProcedureDocFromModel(model procanalyzer.Model) ProcedureDoc {
	doc := ProcedureDoc{
		Schema:         model.Descriptor.Schema,
		Name:           model.Descriptor.Name,
		DefinitionHash: model.DefinitionHash,
	}
	for _, p := range model.Parameters {
		doc.Parameters = append(doc.Parameters, ParameterDoc{
			Name: p.Name, SQLTypeName: p.SQLTypeName, MaxLength: p.MaxLength,
			Precision: p.Precision, Scale: p.Scale, IsNullable: p.IsNullable, HasDefault: p.HasDefault,
		})
	}
	for _, rs := range model.ResultSets {
		doc.ResultSets = append(doc.ResultSets, resultSetDocFromModel(rs))
	}
	for _, tp := range model.TableTypeParameters {
		doc.RequiredTypeRefs = append(doc.RequiredTypeRefs, tp.NormalizedTypeRef)
	}
	doc.RequiredTableRefs = requiredTableRefs(model.ResultSets)
	return doc
}

// requiredTableRefs collects the distinct "schema.table"/"table" source
// tables referenced anywhere across a procedure's result sets (including
// nested FOR JSON/JSON_QUERY columns and MERGE OUTPUT target columns),
// sorted case-insensitively, mirroring how RequiredTypeRefs is derived from
// the model's table-type parameters.
func requiredTableRefs(sets []procanalyzer.ResultSet) []string {
	seen := map[string]struct{}{}
	var refs []string
	var walk func(cols []procanalyzer.ResultColumn)
	walk = func(cols []procanalyzer.ResultColumn) {
		for _, c := range cols {
			if c.SourceTable != "" {
				ref := c.SourceTable
				if c.SourceSchema != "" {
					ref = c.SourceSchema + "." + c.SourceTable
				}
				key := strings.ToLower(ref)
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					refs = append(refs, ref)
				}
			}
			walk(c.Columns)
		}
	}
	for _, rs := range sets {
		walk(rs.Columns)
	}
	sort.Slice(refs, func(i, j int) bool { return strings.ToLower(refs[i]) < strings.ToLower(refs[j]) })
	return refs
}

func resultSetDocFromModel(rs procanalyzer.ResultSet) ResultSetDoc {
	doc := ResultSetDoc{
		Name: rs.Name, ReturnsJSON: rs.ReturnsJSON, ReturnsJSONArray: rs.ReturnsJSONArray,
		JSONRootProperty: rs.JSONRootProperty, JSONIncludeNullValues: rs.JSONIncludeNullValues,
	}
	for _, c := range rs.Columns {
		doc.Columns = append(doc.Columns, columnDocFromModel(c))
	}
	return doc
}

func columnDocFromModel(c procanalyzer.ResultColumn) ResultColumnDoc {
	doc := ResultColumnDoc{
		Name: c.Name, Alias: c.Alias, SourceSchema: c.SourceSchema, SourceTable: c.SourceTable,
		SourceColumn: c.SourceColumn, SQLTypeName: c.SQLTypeName, MaxLength: c.MaxLength,
		Precision: c.Precision, Scale: c.Scale, IsNullable: c.IsNullable,
		ReturnsJSON: c.ReturnsJSON, ReturnsJSONArray: c.ReturnsJSONArray, IsNestedJSON: c.IsNestedJSON,
		JSONRootProperty: c.JSONRootProperty, JSONIncludeNullValues: c.JSONIncludeNullValues,
	}
	if c.Reference != nil {
		doc.Reference = &ReferenceDoc{Kind: referenceKindName(c.Reference.Kind), Schema: c.Reference.Schema, Name: c.Reference.Name}
	}
	for _, child := range c.Columns {
		doc.Columns = append(doc.Columns, columnDocFromModel(child))
	}
	return doc
}

func referenceKindName(k procanalyzer.ReferenceKind) string {
	switch k {
	case procanalyzer.ReferenceKindFunction:
		return "Function"
	case procanalyzer.ReferenceKindTable:
		return "Table"
	case procanalyzer.ReferenceKindView:
		return "View"
	default:
		return "Unspecified"
	}
}

