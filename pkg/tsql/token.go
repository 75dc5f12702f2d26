// SPDX-License-Identifier: Apache-2.0

// Package tsql is a hand-rolled lexer and structural parser for the subset
// of T-SQL the procedure and function analyzers need to recognise: CREATE
// PROCEDURE/FUNCTION headers, top-level statement shape (SELECT, MERGE,
// dynamic EXEC), CTEs, and the FOR JSON / JSON_QUERY projections. No
// third-party T-SQL grammar exists in the Go ecosystem (pg_query_go parses
// PostgreSQL only), so this package implements the grammar itself.
package tsql

// Kind enumerates lexical token categories.
type Kind int

const (
	KindEOF Kind = iota
	KindKeyword
	KindIdent
	KindQuotedIdent // [Name]
	KindVariable    // @name
	KindString      // 'literal'
	KindNumber
	KindPunct // , ( ) ; . = etc.
	KindOther
)

// Token is a single lexical unit with its source position (byte offset).
type Token struct {
	Kind Kind
	Text string // normalized (unquoted/unescaped) text
	Raw  string // exact source text
	Pos  int
}

// keywords recognized by the lexer. T-SQL keywords are case-insensitive;
// Lex uppercases Text for KindKeyword tokens so callers can compare without
// repeating strings.ToUpper everywhere.
var keywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "AS": {}, "JOIN": {}, "INNER": {},
	"LEFT": {}, "RIGHT": {}, "OUTER": {}, "ON": {}, "GROUP": {}, "BY": {},
	"ORDER": {}, "HAVING": {}, "WITH": {}, "UNION": {}, "ALL": {}, "DISTINCT": {},
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "OUTPUT": {},
	"INTO": {}, "VALUES": {}, "SET": {}, "DECLARE": {}, "EXEC": {}, "EXECUTE": {},
	"BEGIN": {}, "END": {}, "IF": {}, "ELSE": {}, "WHILE": {}, "RETURN": {},
	"CREATE": {}, "PROCEDURE": {}, "PROC": {}, "FUNCTION": {}, "TABLE": {},
	"READONLY": {}, "NULL": {}, "NOT": {}, "DEFAULT": {}, "FOR": {}, "JSON": {},
	"PATH": {}, "AUTO": {}, "ROOT": {}, "WITHOUT_ARRAY_WRAPPER": {},
	"INCLUDE_NULL_VALUES": {}, "CASE": {}, "WHEN": {}, "THEN": {}, "TABLE_TYPE": {},
	"MATCHED": {}, "USING": {}, "AND": {}, "OR": {}, "ASC": {}, "DESC": {},
}
