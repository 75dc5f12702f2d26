// SPDX-License-Identifier: Apache-2.0

package snapshot

// ResultColumnDoc is the canonical JSON shape of a procedure/function
// result column, mirroring procanalyzer.ResultColumn with omitempty tags
// so empty optional fields are pruned from the written document.
type ResultColumnDoc struct {
	Name                  string             `json:"Name"`
	Alias                 string             `json:"Alias,omitempty"`
	SourceSchema          string             `json:"SourceSchema,omitempty"`
	SourceTable           string             `json:"SourceTable,omitempty"`
	SourceColumn          string             `json:"SourceColumn,omitempty"`
	SQLTypeName           string             `json:"SqlTypeName,omitempty"`
	MaxLength             *int               `json:"MaxLength,omitempty"`
	Precision             *int               `json:"Precision,omitempty"`
	Scale                 *int               `json:"Scale,omitempty"`
	IsNullable            bool               `json:"IsNullable,omitempty"`
	ReturnsJSON           bool               `json:"ReturnsJson,omitempty"`
	ReturnsJSONArray      bool               `json:"ReturnsJsonArray,omitempty"`
	IsNestedJSON          bool               `json:"IsNestedJson,omitempty"`
	JSONRootProperty      string             `json:"JsonRootProperty,omitempty"`
	JSONIncludeNullValues bool               `json:"JsonIncludeNullValues,omitempty"`
	Reference             *ReferenceDoc      `json:"Reference,omitempty"`
	Columns                []ResultColumnDoc `json:"Columns,omitempty"`
}

// ReferenceDoc is the canonical JSON shape of a column's catalog reference.
type ReferenceDoc struct {
	Kind   string `json:"Kind"`
	Schema string `json:"Schema,omitempty"`
	Name   string `json:"Name,omitempty"`
}

// ParameterDoc is the canonical JSON shape of a scalar procedure parameter.
type ParameterDoc struct {
	Name        string `json:"Name"`
	SQLTypeName string `json:"SqlTypeName,omitempty"`
	MaxLength   *int   `json:"MaxLength,omitempty"`
	Precision   *int   `json:"Precision,omitempty"`
	Scale       *int   `json:"Scale,omitempty"`
	IsNullable  bool   `json:"IsNullable,omitempty"`
	HasDefault  bool   `json:"HasDefault,omitempty"`
}

// ResultSetDoc is the canonical JSON shape of one procedure result set.
type ResultSetDoc struct {
	Name                  string             `json:"Name,omitempty"`
	ReturnsJSON           bool               `json:"ReturnsJson,omitempty"`
	ReturnsJSONArray      bool               `json:"ReturnsJsonArray,omitempty"`
	JSONRootProperty      string             `json:"JsonRootProperty,omitempty"`
	JSONIncludeNullValues bool               `json:"JsonIncludeNullValues,omitempty"`
	Columns                []ResultColumnDoc `json:"Columns"`
}

// ProcedureDoc is the canonical procedure snapshot document.
type ProcedureDoc struct {
	Schema           string         `json:"Schema"`
	Name             string         `json:"Name"`
	Parameters       []ParameterDoc `json:"Parameters,omitempty"`
	ResultSets       []ResultSetDoc `json:"ResultSets,omitempty"`
	RequiredTypeRefs []string       `json:"RequiredTypeRefs,omitempty"`
	RequiredTableRefs []string      `json:"RequiredTableRefs,omitempty"`
	DefinitionHash   string         `json:"DefinitionHash"`
}

// FunctionDoc is the canonical function snapshot document.
type FunctionDoc struct {
	Schema                string            `json:"Schema"`
	Name                  string            `json:"Name"`
	IsTableValued         bool              `json:"IsTableValued,omitempty"`
	IsEncrypted           bool              `json:"IsEncrypted,omitempty"`
	ReturnSQLType         string            `json:"ReturnSqlType,omitempty"`
	ReturnMaxLength       *int              `json:"ReturnMaxLength,omitempty"`
	ReturnIsNullable      bool              `json:"ReturnIsNullable,omitempty"`
	ReturnsJSON           bool              `json:"ReturnsJson,omitempty"`
	ReturnsJSONArray      bool              `json:"ReturnsJsonArray,omitempty"`
	JSONRootProperty      string            `json:"JsonRootProperty,omitempty"`
	JSONIncludeNullValues bool              `json:"JsonIncludeNullValues,omitempty"`
	Parameters             []ParameterDoc    `json:"Parameters,omitempty"`
	Columns                 []ResultColumnDoc `json:"Columns,omitempty"`
	Dependencies            []string          `json:"Dependencies,omitempty"`
}

// TableDoc is the canonical table/view snapshot document.
type TableDoc struct {
	Schema  string    `json:"Schema"`
	Name    string    `json:"Name"`
	Columns []ColumnDoc `json:"Columns"`
}

// ColumnDoc is the canonical JSON shape of a cached table column.
type ColumnDoc struct {
	Name        string `json:"Name"`
	SQLTypeName string `json:"SqlTypeName"`
	MaxLength   *int   `json:"MaxLength,omitempty"`
	Precision   *int   `json:"Precision,omitempty"`
	Scale       *int   `json:"Scale,omitempty"`
	IsNullable  bool   `json:"IsNullable,omitempty"`
}

// IndexColumnDoc is the roll-up column shape used in index.json, a
// structural subset of ResultColumnDoc.
type IndexColumnDoc struct {
	Name    string           `json:"Name"`
	Columns []IndexColumnDoc `json:"Columns,omitempty"`
}

// IndexResultSetDoc is one result set entry within index.json.
type IndexResultSetDoc struct {
	Columns []IndexColumnDoc `json:"Columns"`
}

// IndexEntry is one procedure's roll-up entry within index.json.
type IndexEntry struct {
	Schema     string              `json:"Schema"`
	Name       string              `json:"Name"`
	ResultSets []IndexResultSetDoc `json:"ResultSets"`
}

// IndexDoc is the full index.json roll-up document.
type IndexDoc struct {
	Procedures []IndexEntry `json:"Procedures"`
}
