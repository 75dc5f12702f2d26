// SPDX-License-Identifier: Apache-2.0

package procanalyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/nuetzliches/xtraq/pkg/tsql"
)

// Analyze parses the raw T-SQL body of a stored procedure and derives a
// Model. Parse errors are non-fatal: a best-effort model (possibly with
// empty ResultSets) is always returned, with the problem recorded in
// Diagnostics, per the "failure semantics" contract. Analyze never returns
// an error, so one procedure's parse problem cannot abort the broader refresh.
func Analyze(declaredSchema, sql string) Model {
	tokens := tsql.Lex(sql)

	model := Model{DefinitionHash: DefinitionHash(sql)}

	header, ok := tsql.ParseCreateProcedureHeader(tokens)
	if !ok {
		model.Diagnostics = append(model.Diagnostics, "could not parse CREATE PROCEDURE header")
		return model
	}

	schemaName := header.Schema
	if schemaName == "" {
		schemaName = declaredSchema
	}
	model.Descriptor = Descriptor{Schema: schemaName, Name: header.Name}

	for _, p := range header.Parameters {
		if p.IsTableType {
			model.TableTypeParameters = append(model.TableTypeParameters, TableTypeParameter{
				ParameterName:     p.Name,
				Schema:            p.TypeSchema,
				Name:              p.TypeName,
				NormalizedTypeRef: p.TypeSchema + "." + p.TypeName,
			})
			continue
		}
		model.Parameters = append(model.Parameters, Parameter{
			Name:        p.Name,
			SQLTypeName: p.SQLTypeName,
			IsNullable:  p.IsNullable,
			HasDefault:  p.HasDefault,
			Default:     defaultValueOf(p),
		})
	}

	// The header parser stops at the parameter list; re-lex the body after
	// the signature's trailing AS so statement splitting never re-parses
	// the header's own parens as a statement.
	bodyTokens := bodyAfterHeader(tokens)
	ctes := tsql.ParseCTEs(bodyTokens)

	for _, stmt := range tsql.SplitStatements(bodyTokens) {
		if stmt.IsDynamic {
			continue
		}
		switch stmt.Kind {
		case tsql.StatementSelect:
			if rs, ok := analyzeSelectStatement(stmt.Tokens, ctes); ok {
				model.ResultSets = append(model.ResultSets, rs)
			}
		case tsql.StatementMerge:
			if rs, ok := analyzeMergeStatement(stmt.Tokens); ok {
				model.ResultSets = append(model.ResultSets, rs)
			}
		}
	}

	nameResultSets(&model)
	return model
}

// defaultValueOf converts a parsed parameter's default-value clause into the
// three states a DEFAULT clause can express: no clause at all (unset),
// DEFAULT NULL (explicit null), or DEFAULT <literal> (a set value).
func defaultValueOf(p tsql.ParameterDecl) nullable.Nullable[string] {
	if !p.HasDefault {
		return nullable.Nullable[string]{}
	}
	if strings.EqualFold(strings.TrimSpace(p.DefaultText), "NULL") {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(p.DefaultText)
}

// bodyAfterHeader returns every token starting after the first top-level
// AS keyword, which always follows a CREATE PROCEDURE parameter list.
func bodyAfterHeader(tokens []tsql.Token) []tsql.Token {
	depth := 0
	for i, t := range tokens {
		if t.Kind == tsql.KindPunct && t.Text == "(" {
			depth++
		}
		if t.Kind == tsql.KindPunct && t.Text == ")" {
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && t.Kind == tsql.KindKeyword && t.Text == "AS" {
			return tokens[i+1:]
		}
	}
	return nil
}

func analyzeSelectStatement(stmtTokens []tsql.Token, ctes map[string]tsql.TableRef) (ResultSet, bool) {
	forJSON, trimmed, hasForJSON := tsql.ExtractForJSON(stmtTokens)
	items, from := tsql.ParseSelectList(trimmed)
	if items == nil && from == nil {
		return ResultSet{}, false
	}

	if from != nil {
		if base, isCTE := ctes[from.Name]; isCTE {
			from = &base
		}
	}

	rs := ResultSet{}
	if hasForJSON {
		rs.ReturnsJSON = true
		rs.ReturnsJSONArray = !forJSON.WithoutArrayWrapper
		rs.JSONRootProperty = forJSON.RootLiteral
		rs.JSONIncludeNullValues = forJSON.IncludeNullValues
	}

	seen := map[string]int{}
	for _, item := range items {
		rs.Columns = append(rs.Columns, buildResultColumn(item, from, seen))
	}
	return rs, true
}

func analyzeMergeStatement(stmtTokens []tsql.Token) (ResultSet, bool) {
	out, ok := tsql.ParseMergeOutput(stmtTokens)
	if !ok {
		return ResultSet{}, false
	}

	rs := ResultSet{}
	seen := map[string]int{}
	for _, item := range out.Items {
		if isDollarAction(item) {
			rs.Columns = append(rs.Columns, ResultColumn{
				Name:        dedupeColumnName("$action", seen),
				SQLTypeName: "nvarchar(10)",
				IsNullable:  false,
			})
			continue
		}
		col := buildResultColumn(item, out.Target, seen)
		// inserted./deleted. columns are rows of the MERGE target table.
		if out.Target != nil && (strings.EqualFold(col.SourceTable, "inserted") || strings.EqualFold(col.SourceTable, "deleted")) {
			col.SourceTable = out.Target.Name
		}
		rs.Columns = append(rs.Columns, col)
	}
	return rs, true
}

// isDollarAction reports whether item is the MERGE OUTPUT `$action`
// pseudo-column, which the lexer tokenizes as a lone "$" punct followed by
// the identifier "action". The select-item parser splits an unaliased
// `$action` into expr "$" with bare alias "action", so that shape matches too.
func isDollarAction(item tsql.SelectItem) bool {
	expr := item.Expr
	if len(expr) == 1 && expr[0].Kind == tsql.KindPunct && expr[0].Text == "$" {
		return strings.EqualFold(item.Alias, "action")
	}
	return len(expr) == 2 && expr[0].Kind == tsql.KindPunct && expr[0].Text == "$" &&
		expr[1].Kind == tsql.KindIdent && strings.EqualFold(expr[1].Text, "action")
}

func buildResultColumn(item tsql.SelectItem, from *tsql.TableRef, seen map[string]int) ResultColumn {
	col := ResultColumn{}

	name, sourceTable, sourceColumn := deriveColumnIdentity(item, from)
	col.Name = dedupeColumnName(name, seen)
	col.Alias = item.Alias
	col.SourceTable = sourceTable
	col.SourceColumn = sourceColumn
	if from != nil {
		col.SourceSchema = from.Schema
	}

	if item.FunctionRef != nil {
		col.Reference = &Reference{Kind: ReferenceKindFunction, Schema: item.FunctionRef.Schema, Name: item.FunctionRef.Name}
	} else if sqlType, maxLength, ok := literalSQLType(item.Expr); ok {
		col.SQLTypeName = sqlType
		col.MaxLength = maxLength
		col.IsNullable = false
	}

	if item.JSONQuery != nil {
		if nested, ok := analyzeSelectStatement(item.JSONQuery, nil); ok {
			col.IsNestedJSON = true
			col.ReturnsJSON = true
			col.ReturnsJSONArray = nested.ReturnsJSONArray
			col.JSONRootProperty = nested.JSONRootProperty
			col.JSONIncludeNullValues = nested.JSONIncludeNullValues
			col.Columns = nested.Columns
		}
	}

	return col
}

// deriveColumnIdentity derives the reported column name and, where the
// expression is a simple (possibly table/alias-qualified) column
// reference, its source table/column.
func deriveColumnIdentity(item tsql.SelectItem, from *tsql.TableRef) (name, sourceTable, sourceColumn string) {
	if item.Alias != "" {
		name = item.Alias
	}

	expr := item.Expr
	switch {
	case len(expr) == 1 && (expr[0].Kind == tsql.KindIdent || expr[0].Kind == tsql.KindQuotedIdent):
		sourceColumn = expr[0].Text
		if from != nil {
			sourceTable = from.Name
		}
		if name == "" {
			name = sourceColumn
		}
	case len(expr) == 3 && isDotExpr(expr):
		prefix := expr[0].Text
		sourceColumn = expr[2].Text
		if from != nil && (strings.EqualFold(prefix, from.Alias) || strings.EqualFold(prefix, from.Name)) {
			sourceTable = from.Name
		} else {
			sourceTable = prefix
		}
		if name == "" {
			name = sourceColumn
		}
	default:
		if name == "" {
			name = "Column"
		}
	}
	return name, sourceTable, sourceColumn
}

// literalSQLType recognizes a select-list expression that is nothing but a
// single literal — an integer literal, or a (optionally N-prefixed) string
// literal — and reports the SQL type a column projecting it would carry.
// Columns without this shape (expressions, qualified references, function
// calls) return ok=false and are left for catalog/parameter enrichment.
func literalSQLType(expr []tsql.Token) (sqlType string, maxLength *int, ok bool) {
	const defaultStringLength = 32

	switch {
	case len(expr) == 1 && expr[0].Kind == tsql.KindNumber && !strings.Contains(expr[0].Text, "."):
		return "int", nil, true
	case len(expr) == 1 && expr[0].Kind == tsql.KindString:
		n := defaultStringLength
		return fmt.Sprintf("varchar(%d)", n), &n, true
	case len(expr) == 2 && expr[0].Kind == tsql.KindIdent && strings.EqualFold(expr[0].Text, "N") && expr[1].Kind == tsql.KindString:
		n := defaultStringLength
		return fmt.Sprintf("nvarchar(%d)", n), &n, true
	default:
		return "", nil, false
	}
}

func isDotExpr(expr []tsql.Token) bool {
	return len(expr) == 3 && expr[1].Kind == tsql.KindPunct && expr[1].Text == "."
}

// nameResultSets assigns a default name to each result set: the FOR JSON
// ROOT literal when present, else the base table name when every column
// that has a source table names the same one (columns without a source
// table are ignored), else empty.
func nameResultSets(model *Model) {
	for i := range model.ResultSets {
		rs := &model.ResultSets[i]
		if rs.JSONRootProperty != "" {
			rs.Name = rs.JSONRootProperty
			continue
		}
		if table, ok := singleSourceTable(rs.Columns); ok {
			rs.Name = table
		}
	}
}

func singleSourceTable(cols []ResultColumn) (string, bool) {
	table := ""
	for _, c := range cols {
		if c.SourceTable == "" {
			continue
		}
		if table == "" {
			table = c.SourceTable
			continue
		}
		if table != c.SourceTable {
			return "", false
		}
	}
	return table, table != ""
}

// DefinitionHash computes the SHA-256 hex digest of sql after normalizing
// line endings to LF, trimming trailing whitespace per line, and removing
// trailing empty lines.
func DefinitionHash(sql string) string {
	normalized := normalizeDefinition(sql)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeDefinition(sql string) string {
	sql = strings.ReplaceAll(sql, "\r\n", "\n")
	sql = strings.ReplaceAll(sql, "\r", "\n")
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
