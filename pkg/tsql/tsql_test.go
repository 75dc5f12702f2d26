// SPDX-License-Identifier: Apache-2.0

package tsql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/tsql"
)

func TestParseCreateProcedureHeaderExtractsParameters(t *testing.T) {
	t.Parallel()

	src := `CREATE PROCEDURE dbo.GetUser
		@userId int,
		@includeDeleted bit = 0,
		@ids dbo.IntListType READONLY
	AS
	BEGIN
		SELECT * FROM dbo.Users WHERE UserId = @userId
	END`

	header, ok := tsql.ParseCreateProcedureHeader(tsql.Lex(src))
	require.True(t, ok)

	assert.Equal(t, "dbo", header.Schema)
	assert.Equal(t, "GetUser", header.Name)
	require.Len(t, header.Parameters, 3)

	assert.Equal(t, "userId", header.Parameters[0].Name)
	assert.False(t, header.Parameters[0].HasDefault)

	assert.Equal(t, "includeDeleted", header.Parameters[1].Name)
	assert.True(t, header.Parameters[1].HasDefault)
	assert.Equal(t, "0", header.Parameters[1].DefaultText)

	assert.True(t, header.Parameters[2].IsTableType)
	assert.Equal(t, "dbo", header.Parameters[2].TypeSchema)
	assert.Equal(t, "IntListType", header.Parameters[2].TypeName)
}

func TestParseCreateProcedureHeaderCapturesExplicitNullDefault(t *testing.T) {
	t.Parallel()

	src := `CREATE PROCEDURE dbo.UpdateNote
		@note nvarchar(100) = NULL
	AS
	BEGIN
		SELECT 1
	END`

	header, ok := tsql.ParseCreateProcedureHeader(tsql.Lex(src))
	require.True(t, ok)
	require.Len(t, header.Parameters, 1)

	p := header.Parameters[0]
	assert.True(t, p.HasDefault)
	assert.Equal(t, "NULL", p.DefaultText)
}

func TestSplitStatementsClassifiesSelectAndExec(t *testing.T) {
	t.Parallel()

	src := `SELECT 1; EXEC dbo.DoSomething; EXEC(@dynamicSql)`
	stmts := tsql.SplitStatements(tsql.Lex(src))

	require.Len(t, stmts, 3)
	assert.Equal(t, tsql.StatementSelect, stmts[0].Kind)
	assert.Equal(t, tsql.StatementExec, stmts[1].Kind)
	assert.Equal(t, tsql.StatementExec, stmts[2].Kind)
	assert.True(t, stmts[2].IsDynamic)
}

func TestExtractForJSONParsesRootAndFlags(t *testing.T) {
	t.Parallel()

	src := `SELECT Id, Name FROM dbo.Users FOR JSON PATH, ROOT('users'), INCLUDE_NULL_VALUES`
	clause, _, ok := tsql.ExtractForJSON(tsql.Lex(src))

	require.True(t, ok)
	assert.Equal(t, "PATH", clause.Mode)
	assert.Equal(t, "users", clause.RootLiteral)
	assert.True(t, clause.IncludeNullValues)
	assert.False(t, clause.WithoutArrayWrapper)
}

func TestParseSelectListFindsFromTableAndAlias(t *testing.T) {
	t.Parallel()

	src := `SELECT u.Id AS UserId, u.Name FROM dbo.Users AS u`
	items, from := tsql.ParseSelectList(tsql.Lex(src))

	require.Len(t, items, 2)
	assert.Equal(t, "UserId", items[0].Alias)
	require.NotNil(t, from)
	assert.Equal(t, "dbo", from.Schema)
	assert.Equal(t, "Users", from.Name)
	assert.Equal(t, "u", from.Alias)
}

func TestParseCTEsDereferencesToBaseTable(t *testing.T) {
	t.Parallel()

	src := `WITH Latest AS (SELECT * FROM dbo.Users) SELECT * FROM Latest`
	ctes := tsql.ParseCTEs(tsql.Lex(src))

	require.Contains(t, ctes, "Latest")
	assert.Equal(t, "Users", ctes["Latest"].Name)
}

func TestParseMergeOutputCapturesTargetAndItems(t *testing.T) {
	t.Parallel()

	src := `MERGE INTO dbo.Users AS t USING dbo.Staging AS s ON t.Id = s.Id
		WHEN MATCHED THEN UPDATE SET t.Name = s.Name
		OUTPUT $action, inserted.Id, deleted.Name INTO @changes`

	out, ok := tsql.ParseMergeOutput(tsql.Lex(src))
	require.True(t, ok)
	require.NotNil(t, out.Target)
	assert.Equal(t, "Users", out.Target.Name)
	assert.Len(t, out.Items, 3)
}
