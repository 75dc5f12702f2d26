// SPDX-License-Identifier: Apache-2.0

// Package jsonfunc extracts the JSON-shape flags and structural column
// projection of a scalar or table-valued function whose body returns a
// FOR JSON result, reusing pkg/tsql's statement and SELECT parsing.
package jsonfunc

import (
	"github.com/nuetzliches/xtraq/pkg/tsql"
)

// Column is one structural (untyped) projected column; type inference is
// deliberately out of scope here and left to pkg/enrich.
type Column struct {
	Name    string
	Columns []Column
}

// Extraction is the structural JSON-shape analysis of one function body.
type Extraction struct {
	ReturnsJSON           bool
	ReturnsJSONArray      bool
	JSONRootProperty      string
	JSONIncludeNullValues bool
	Columns               []Column
}

// Extract scans a function body for a terminal `RETURN (SELECT … FOR
// JSON …)` (scalar functions) or a top-level FOR JSON SELECT (inline
// table-valued functions) and derives its JSON-shape flags.
func Extract(body string) Extraction {
	tokens := tsql.Lex(body)

	stmt, ok := findJSONReturningStatement(tokens)
	if !ok {
		return Extraction{}
	}

	forJSON, trimmed, hasForJSON := tsql.ExtractForJSON(stmt)
	if !hasForJSON {
		return Extraction{}
	}

	items, _ := tsql.ParseSelectList(trimmed)

	ext := Extraction{
		ReturnsJSON:           true,
		ReturnsJSONArray:      !forJSON.WithoutArrayWrapper,
		JSONRootProperty:      forJSON.RootLiteral,
		JSONIncludeNullValues: forJSON.IncludeNullValues,
	}
	for _, item := range items {
		ext.Columns = append(ext.Columns, columnFromItem(item))
	}
	return ext
}

func columnFromItem(item tsql.SelectItem) Column {
	name := item.Alias
	if name == "" && len(item.Expr) > 0 {
		name = item.Expr[len(item.Expr)-1].Text
	}

	col := Column{Name: name}
	if item.JSONQuery != nil {
		if _, trimmed, ok := tsql.ExtractForJSON(item.JSONQuery); ok {
			nestedItems, _ := tsql.ParseSelectList(trimmed)
			for _, nested := range nestedItems {
				col.Columns = append(col.Columns, columnFromItem(nested))
			}
		}
	}
	return col
}

// findJSONReturningStatement returns the first top-level statement (after
// a RETURN keyword, or the bare SELECT for inline TVFs) that ends in a FOR
// JSON clause.
func findJSONReturningStatement(tokens []tsql.Token) ([]tsql.Token, bool) {
	for _, stmt := range tsql.SplitStatements(stripReturn(tokens)) {
		if stmt.Kind != tsql.StatementSelect {
			continue
		}
		if _, _, ok := tsql.ExtractForJSON(stmt.Tokens); ok {
			return stmt.Tokens, true
		}
	}
	return nil, false
}

// stripReturn drops a leading RETURN keyword and any enclosing parens so
// `RETURN (SELECT … FOR JSON …)` parses as a plain SELECT statement.
func stripReturn(tokens []tsql.Token) []tsql.Token {
	for i, t := range tokens {
		if t.Kind == tsql.KindKeyword && t.Text == "RETURN" {
			rest := tokens[i+1:]
			if len(rest) >= 2 && rest[0].Kind == tsql.KindPunct && rest[0].Text == "(" {
				depth := 0
				for j, r := range rest {
					if r.Kind == tsql.KindPunct && r.Text == "(" {
						depth++
					}
					if r.Kind == tsql.KindPunct && r.Text == ")" {
						depth--
						if depth == 0 {
							return rest[1:j]
						}
					}
				}
			}
			return rest
		}
	}
	return tokens
}
