// SPDX-License-Identifier: Apache-2.0

package tsql

import "strings"

// ReferenceKind classifies what a SelectItem.FunctionRef points at.
type ReferenceKind int

const (
	ReferenceKindFunction ReferenceKind = iota
)

// Reference is a pointer from a projected column to the function that
// produced it; procanalyzer converts this into its own Reference type.
type Reference struct {
	Kind   ReferenceKind
	Schema string
	Name   string
}

// ForJSONClause is a trailing `FOR JSON PATH|AUTO [, ROOT('x')]
// [, WITHOUT_ARRAY_WRAPPER] [, INCLUDE_NULL_VALUES]` suffix.
type ForJSONClause struct {
	Mode                string
	RootLiteral         string
	RootIsDynamic       bool
	WithoutArrayWrapper bool
	IncludeNullValues   bool
}

// ExtractForJSON looks for a top-level (paren-depth 0) `FOR JSON` clause at
// the end of stmtTokens and returns it along with the tokens preceding it.
// ok is false if no FOR JSON clause is present.
func ExtractForJSON(stmtTokens []Token) (ForJSONClause, []Token, bool) {
	idx, depth := -1, 0
	for i, t := range stmtTokens {
		switch {
		case t.Kind == KindPunct && t.Text == "(":
			depth++
		case t.Kind == KindPunct && t.Text == ")":
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.Kind == KindKeyword && t.Text == "FOR":
			if i+1 < len(stmtTokens) && stmtTokens[i+1].Kind == KindKeyword && stmtTokens[i+1].Text == "JSON" {
				idx = i
			}
		}
	}
	if idx < 0 {
		return ForJSONClause{}, stmtTokens, false
	}

	c := &cursor{tokens: stmtTokens, pos: idx}
	c.next() // FOR
	c.next() // JSON

	clause := ForJSONClause{}
	if c.peekKeyword("PATH") || c.peekKeyword("AUTO") {
		clause.Mode = c.next().Text
	}

	for c.peekPunct(",") {
		c.next()
		switch {
		case c.peekKeyword("ROOT"):
			c.next()
			if c.peekPunct("(") {
				c.next()
				if c.peekKind(KindString) {
					clause.RootLiteral = c.next().Text
				} else if c.peekKind(KindVariable) {
					c.next()
					clause.RootIsDynamic = true
				}
				if c.peekPunct(")") {
					c.next()
				}
			}
		case c.peekKeyword("WITHOUT_ARRAY_WRAPPER"):
			c.next()
			clause.WithoutArrayWrapper = true
		case c.peekKeyword("INCLUDE_NULL_VALUES"):
			c.next()
			clause.IncludeNullValues = true
		default:
			// Unrecognized option token; skip forward defensively so a
			// malformed clause doesn't loop.
			if c.atEnd() {
				break
			}
			c.next()
		}
	}

	return clause, stmtTokens[:idx], true
}

// SelectItem is one projected column of a SELECT's select-list.
type SelectItem struct {
	Expr  []Token
	Alias string
	// FunctionRef is set when Expr is a single qualified function call
	// `schema.fn(args)`.
	FunctionRef *Reference
	// JSONQuery is set when Expr is `JSON_QUERY((SELECT … FOR JSON …))`,
	// carrying the inner select's own tokens for recursive analysis.
	JSONQuery []Token
}

// TableRef names a table or view referenced in a FROM clause.
type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

// ParseSelectList walks the outermost SELECT of stmtTokens (after any FOR
// JSON suffix has been stripped by the caller) and returns its projection
// items plus the first FROM-clause table, which MetadataEnricher treats as
// the default source for unqualified columns.
func ParseSelectList(stmtTokens []Token) ([]SelectItem, *TableRef) {
	c := &cursor{tokens: stmtTokens}

	// Skip a leading CTE prologue; callers wanting CTE dereferencing use
	// ParseCTEs separately.
	if c.peekKeyword("WITH") {
		skipCTEPrologue(c)
	}
	if !c.acceptKeyword("SELECT") {
		return nil, nil
	}
	c.acceptKeyword("DISTINCT")
	c.acceptKeyword("ALL")

	items := splitSelectItems(collectUntilKeyword(c, "FROM"))

	var from *TableRef
	if c.peekKeyword("FROM") {
		c.next()
		from = parseTableRef(c)
	}

	return items, from
}

// collectUntilKeyword returns the tokens from c's current position up to
// (not including) the next top-level occurrence of kw.
func collectUntilKeyword(c *cursor, kw string) []Token {
	start := c.pos
	depth := 0
	for !c.atEnd() {
		t := c.tokens[c.pos]
		if t.Kind == KindPunct && t.Text == "(" {
			depth++
		}
		if t.Kind == KindPunct && t.Text == ")" {
			if depth == 0 {
				break
			}
			depth--
		}
		if depth == 0 && t.Kind == KindKeyword && t.Text == kw {
			break
		}
		c.pos++
	}
	return c.tokens[start:c.pos]
}

func splitSelectItems(tokens []Token) []SelectItem {
	var items []SelectItem
	depth := 0
	start := 0
	flush := func(end int) {
		if end > start {
			items = append(items, parseSelectItem(tokens[start:end]))
		}
	}
	for i, t := range tokens {
		switch {
		case t.Kind == KindPunct && t.Text == "(":
			depth++
		case t.Kind == KindPunct && t.Text == ")":
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.Kind == KindPunct && t.Text == ",":
			flush(i)
			start = i + 1
		}
	}
	flush(len(tokens))
	return items
}

func parseSelectItem(expr []Token) SelectItem {
	item := SelectItem{Expr: expr}

	// Trailing "AS alias" or bare "alias" (last bare identifier not part of
	// a dotted/function chain).
	if n := len(expr); n >= 2 {
		last := expr[n-1]
		if (last.Kind == KindIdent || last.Kind == KindQuotedIdent) {
			if expr[n-2].Kind == KindKeyword && expr[n-2].Text == "AS" {
				item.Alias = last.Text
				item.Expr = expr[:n-2]
			} else if n >= 2 && !isPunct(expr[n-2], ".") && !isPunct(expr[n-2], "(") {
				// bare alias only if preceded by something other than a
				// dot or open-paren (avoids treating a function name as
				// its own alias).
				if looksLikeBareAlias(expr[:n-1]) {
					item.Alias = last.Text
					item.Expr = expr[:n-1]
				}
			}
		}
	}

	if ref, jsonq, ok := detectReferenceOrJSONQuery(item.Expr); ok {
		item.FunctionRef = ref
		item.JSONQuery = jsonq
	}

	return item
}

func looksLikeBareAlias(prefix []Token) bool {
	return len(prefix) > 0
}

func isPunct(t Token, text string) bool {
	return t.Kind == KindPunct && t.Text == text
}

// detectReferenceOrJSONQuery recognizes `schema.fn(args)` function-valued
// columns and `JSON_QUERY((SELECT … FOR JSON …))` nested projections.
func detectReferenceOrJSONQuery(expr []Token) (*Reference, []Token, bool) {
	if len(expr) == 0 {
		return nil, nil, false
	}
	if expr[0].Kind == KindIdent && strings.EqualFold(expr[0].Text, "JSON_QUERY") {
		depth := 0
		for i, t := range expr {
			if t.Kind == KindPunct && t.Text == "(" {
				depth++
			}
			if t.Kind == KindPunct && t.Text == ")" {
				depth--
			}
			if depth >= 2 {
				// Inside the nested SELECT; collect until matching close.
				inner := expr[i:]
				return nil, stripOuterParens(inner), true
			}
		}
		return nil, nil, false
	}

	// schema.name(args) with nothing else at top level.
	if len(expr) >= 4 && expr[0].Kind == KindIdent && isPunct(expr[1], ".") &&
		(expr[2].Kind == KindIdent) && isPunct(expr[3], "(") {
		return &Reference{Kind: ReferenceKindFunction, Schema: expr[0].Text, Name: expr[2].Text}, nil, true
	}
	return nil, nil, false
}

// stripOuterParens removes one layer of enclosing parens from a token
// slice, if present, leaving the inner SELECT ready for recursive parsing.
func stripOuterParens(tokens []Token) []Token {
	if len(tokens) >= 2 && isPunct(tokens[0], "(") && isPunct(tokens[len(tokens)-1], ")") {
		return tokens[1 : len(tokens)-1]
	}
	return tokens
}

func parseTableRef(c *cursor) *TableRef {
	schema, name, ok := parseQualifiedName(c)
	if !ok {
		return nil
	}
	ref := &TableRef{Schema: schema, Name: name}
	c.acceptKeyword("AS")
	if alias, ok := c.identLike(); ok {
		ref.Alias = alias
	}
	return ref
}

// skipCTEPrologue consumes `WITH name AS ( … ) [, name2 AS ( … )]*` and
// leaves the cursor positioned at the trailing outer SELECT.
func skipCTEPrologue(c *cursor) {
	c.next() // WITH
	for {
		if _, ok := c.identLike(); !ok {
			return
		}
		c.acceptKeyword("AS")
		if c.peekPunct("(") {
			skipParenGroup(c)
		}
		if c.peekPunct(",") {
			c.next()
			continue
		}
		return
	}
}

func skipParenGroup(c *cursor) {
	depth := 0
	for !c.atEnd() {
		t := c.next()
		if t.Kind == KindPunct && t.Text == "(" {
			depth++
		}
		if t.Kind == KindPunct && t.Text == ")" {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// ParseCTEs returns a map of CTE alias -> the base TableRef its body
// selects from, dereferencing one level: `WITH Latest AS (SELECT … FROM
// dbo.Users) SELECT * FROM Latest` yields Latest -> {dbo, Users}.
func ParseCTEs(tokens []Token) map[string]TableRef {
	c := &cursor{tokens: tokens}
	if !c.peekKeyword("WITH") {
		return nil
	}
	c.next()

	ctes := map[string]TableRef{}
	for {
		name, ok := c.identLike()
		if !ok {
			break
		}
		c.acceptKeyword("AS")
		if !c.peekPunct("(") {
			break
		}
		start := c.pos
		c.next()
		depth := 1
		for !c.atEnd() && depth > 0 {
			t := c.next()
			if t.Kind == KindPunct && t.Text == "(" {
				depth++
			}
			if t.Kind == KindPunct && t.Text == ")" {
				depth--
			}
		}
		body := tokens[start+1 : c.pos-1]
		if _, from := ParseSelectList(body); from != nil {
			ctes[name] = *from
		}

		if c.peekPunct(",") {
			c.next()
			continue
		}
		break
	}
	return ctes
}
