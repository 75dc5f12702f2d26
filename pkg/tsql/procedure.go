// SPDX-License-Identifier: Apache-2.0

package tsql

import "strings"

// ParameterDecl is one parameter declared in a CREATE PROCEDURE or CREATE
// FUNCTION header.
type ParameterDecl struct {
	Name        string
	SQLTypeName string
	IsNullable  bool
	HasDefault  bool
	// DefaultText is the raw default-value expression (e.g. "NULL", "0",
	// "N''"), present only when HasDefault is true.
	DefaultText string
	IsTableType bool
	TypeSchema  string
	TypeName    string
}

// ProcedureHeader is the parsed signature of a CREATE PROCEDURE statement,
// up through its AS keyword.
type ProcedureHeader struct {
	Schema     string
	Name       string
	Parameters []ParameterDecl
}

// ParseCreateProcedureHeader scans tokens for a CREATE PROC[EDURE] header
// and returns its signature. ok is false if tokens does not begin with
// CREATE PROCEDURE/PROC.
func ParseCreateProcedureHeader(tokens []Token) (ProcedureHeader, bool) {
	p := &cursor{tokens: tokens}

	if !p.acceptKeyword("CREATE") {
		return ProcedureHeader{}, false
	}
	if !(p.acceptKeyword("PROCEDURE") || p.acceptKeyword("PROC")) {
		return ProcedureHeader{}, false
	}

	schema, name, ok := parseQualifiedName(p)
	if !ok {
		return ProcedureHeader{}, false
	}

	header := ProcedureHeader{Schema: schema, Name: name}

	if p.peekPunct("(") {
		p.next()
		header.Parameters = parseParameterList(p)
	} else {
		header.Parameters = parseParameterListNoParens(p)
	}

	return header, true
}

// parseQualifiedName reads `[schema.]name`, defaulting schema to "dbo".
func parseQualifiedName(p *cursor) (schema, name string, ok bool) {
	first, ok1 := p.identLike()
	if !ok1 {
		return "", "", false
	}
	if p.peekPunct(".") {
		p.next()
		second, ok2 := p.identLike()
		if !ok2 {
			return "", "", false
		}
		return first, second, true
	}
	return "dbo", first, true
}

func parseParameterList(p *cursor) []ParameterDecl {
	var params []ParameterDecl
	for {
		if p.peekPunct(")") {
			p.next()
			break
		}
		if p.atEnd() {
			break
		}
		decl, ok := parseOneParameter(p)
		if ok {
			params = append(params, decl)
		}
		if p.peekPunct(",") {
			p.next()
			continue
		}
		if p.peekPunct(")") {
			p.next()
			break
		}
		if !ok {
			p.next()
		}
	}
	return params
}

// parseParameterListNoParens handles the legacy T-SQL form where the
// parameter list is not parenthesized: `CREATE PROC x @a int, @b int AS …`.
func parseParameterListNoParens(p *cursor) []ParameterDecl {
	var params []ParameterDecl
	for p.peekKind(KindVariable) {
		decl, ok := parseOneParameter(p)
		if ok {
			params = append(params, decl)
		}
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	return params
}

func parseOneParameter(p *cursor) (ParameterDecl, bool) {
	if !p.peekKind(KindVariable) {
		return ParameterDecl{}, false
	}
	name := p.next().Text
	decl := ParameterDecl{Name: name}

	typeSchema, typeName, ok := parseQualifiedName(p)
	if !ok {
		return decl, true
	}

	var typeBuilder strings.Builder
	typeBuilder.WriteString(typeName)
	if p.peekPunct("(") {
		typeBuilder.WriteString("(")
		p.next()
		for !p.peekPunct(")") && !p.atEnd() {
			typeBuilder.WriteString(p.next().Raw)
		}
		if p.peekPunct(")") {
			p.next()
		}
		typeBuilder.WriteString(")")
	}
	decl.SQLTypeName = typeBuilder.String()
	decl.IsNullable = true

	for {
		switch {
		case p.peekKeyword("NULL"):
			p.next()
			decl.IsNullable = true
		case p.peekKeyword("NOT"):
			p.next()
			p.acceptKeyword("NULL")
			decl.IsNullable = false
		case p.peekKeyword("READONLY"):
			p.next()
			decl.IsTableType = true
			decl.TypeSchema = typeSchema
			decl.TypeName = typeName
		case p.peekPunct("="):
			p.next()
			decl.HasDefault = true
			// consume the default-value expression up to the next comma,
			// closing paren, or the AS that ends an unparenthesized list.
			var defaultExpr strings.Builder
			for !p.peekPunct(",") && !p.peekPunct(")") && !p.peekKeyword("AS") && !p.atEnd() {
				if defaultExpr.Len() > 0 {
					defaultExpr.WriteByte(' ')
				}
				defaultExpr.WriteString(p.next().Raw)
			}
			decl.DefaultText = defaultExpr.String()
		default:
			return decl, true
		}
	}
}

// cursor is a small token-stream reader used by the structural parsers in
// this package.
type cursor struct {
	tokens []Token
	pos    int
}

func (c *cursor) atEnd() bool {
	return c.pos >= len(c.tokens) || c.tokens[c.pos].Kind == KindEOF
}

func (c *cursor) next() Token {
	if c.atEnd() {
		return Token{Kind: KindEOF}
	}
	t := c.tokens[c.pos]
	c.pos++
	return t
}

func (c *cursor) peekKind(k Kind) bool {
	return !c.atEnd() && c.tokens[c.pos].Kind == k
}

func (c *cursor) peekPunct(text string) bool {
	return !c.atEnd() && c.tokens[c.pos].Kind == KindPunct && c.tokens[c.pos].Text == text
}

func (c *cursor) peekKeyword(text string) bool {
	return !c.atEnd() && c.tokens[c.pos].Kind == KindKeyword && c.tokens[c.pos].Text == text
}

func (c *cursor) acceptKeyword(text string) bool {
	if c.peekKeyword(text) {
		c.next()
		return true
	}
	return false
}

// identLike accepts an identifier or quoted identifier. Keywords are not
// accepted, so a keyword used as an unquoted object name must be bracketed.
func (c *cursor) identLike() (string, bool) {
	if c.atEnd() {
		return "", false
	}
	t := c.tokens[c.pos]
	if t.Kind == KindIdent || t.Kind == KindQuotedIdent {
		c.pos++
		return t.Text, true
	}
	return "", false
}
