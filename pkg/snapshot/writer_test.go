// SPDX-License-Identifier: Apache-2.0

package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/procanalyzer"
	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

func TestWriteProcedureUpdatesIndex(t *testing.T) {
	t.Parallel()

	store := snapshot.New(t.TempDir())
	writer := snapshot.NewWriter(store)

	ref := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	model := procanalyzer.Model{
		Descriptor:     procanalyzer.Descriptor{Schema: "dbo", Name: "GetUser"},
		DefinitionHash: "abc123",
		ResultSets: []procanalyzer.ResultSet{{
			Columns: []procanalyzer.ResultColumn{{Name: "Id", SQLTypeName: "int"}},
		}},
	}

	require.NoError(t, writer.WriteProcedure(ref, model))

	var doc snapshot.ProcedureDoc
	ok, err := snapshot.Load(store.ProcedurePath(ref), &doc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", doc.DefinitionHash)

	var idx snapshot.IndexDoc
	ok, err = snapshot.Load(store.IndexPath(), &idx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, idx.Procedures, 1)
	assert.Equal(t, "GetUser", idx.Procedures[0].Name)
}

func TestRemoveProcedureDropsIndexEntry(t *testing.T) {
	t.Parallel()

	store := snapshot.New(t.TempDir())
	writer := snapshot.NewWriter(store)
	ref := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}

	require.NoError(t, writer.WriteProcedure(ref, procanalyzer.Model{Descriptor: procanalyzer.Descriptor{Schema: "dbo", Name: "GetUser"}}))
	require.NoError(t, writer.RemoveProcedure(ref))

	var idx snapshot.IndexDoc
	ok, err := snapshot.Load(store.IndexPath(), &idx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, idx.Procedures)
}

func TestProcedureDocFromModelDerivesRequiredTableRefs(t *testing.T) {
	t.Parallel()

	model := procanalyzer.Model{
		Descriptor: procanalyzer.Descriptor{Schema: "dbo", Name: "GetUserPayload"},
		ResultSets: []procanalyzer.ResultSet{
			{
				Columns: []procanalyzer.ResultColumn{
					{Name: "Id", SourceSchema: "dbo", SourceTable: "Users", SourceColumn: "Id"},
					{
						Name:         "Payload",
						IsNestedJSON: true,
						Columns: []procanalyzer.ResultColumn{
							{Name: "Email", SourceSchema: "sample", SourceTable: "UserContacts", SourceColumn: "Email"},
						},
					},
				},
			},
			{
				// MERGE OUTPUT columns repeat the same target table;
				// the derived list must dedupe case-insensitively.
				Columns: []procanalyzer.ResultColumn{
					{Name: "$action", SQLTypeName: "nvarchar(10)"},
					{Name: "Email", SourceSchema: "SAMPLE", SourceTable: "userContacts", SourceColumn: "Email"},
				},
			},
		},
	}

	doc := snapshot.ProcedureDocFromModel(model)
	assert.Equal(t, []string{"dbo.Users", "sample.UserContacts"}, doc.RequiredTableRefs)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	var doc snapshot.ProcedureDoc
	ok, err := snapshot.Load("/nonexistent/path/does-not-exist.json", &doc)
	require.NoError(t, err)
	assert.False(t, ok)
}
