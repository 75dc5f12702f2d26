// SPDX-License-Identifier: Apache-2.0

package invalidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/catalog"
	"github.com/nuetzliches/xtraq/pkg/invalidation"
	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

func TestAnalyzeAndInvalidateDetectsModifiedProcedure(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	proc := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	fake.PutObject(schema.ObjectMetadata{Ref: proc, ModifiedUTC: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	store := snapshot.New(t.TempDir())
	orch, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	result, err := orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Modified, 1)
	assert.Equal(t, "GetUser", result.Modified[0].Name)
	require.Len(t, result.RefreshPlan, 1)
	assert.Equal(t, "dbo", result.RefreshPlan[0].Schema)
	require.Len(t, result.RefreshPlan[0].Entries, 1)
	assert.Equal(t, invalidation.ReasonModified, result.RefreshPlan[0].Entries[0].Reason)
}

func TestAnalyzeAndInvalidatePropagatesToDependents(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	table := schema.Ref{Kind: schema.KindTable, Schema: "dbo", Name: "Users"}
	proc := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}

	fake.PutObject(schema.ObjectMetadata{Ref: table, ModifiedUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	fake.PutObject(schema.ObjectMetadata{Ref: proc, ModifiedUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	fake.Dependencies[proc.Key()] = []schema.Ref{table}

	store := snapshot.New(t.TempDir())
	orch, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	// First pass establishes the graph and cache baseline.
	_, err = orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	// Now only the table changes; the procedure must show up as a
	// dependency-reason invalidation even though its own catalog row is
	// unchanged.
	fake.PutObject(schema.ObjectMetadata{Ref: table, ModifiedUTC: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	result, err := orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Modified, 1)
	assert.Equal(t, "Users", result.Modified[0].Name)
	_, ok := result.Invalidated[proc.Key()]
	assert.True(t, ok)

	require.Len(t, result.RefreshPlan, 1)
	entries := result.RefreshPlan[0].Entries
	require.Len(t, entries, 2)
	// Modified-before-Dependency ordering: Users (Modified) first.
	assert.Equal(t, "Users", entries[0].Ref.Name)
	assert.Equal(t, invalidation.ReasonModified, entries[0].Reason)
	assert.Equal(t, "GetUser", entries[1].Ref.Name)
	assert.Equal(t, invalidation.ReasonDependency, entries[1].Reason)
}

func TestAnalyzeAndInvalidatePropagatesToDependentsAcrossRestart(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	table := schema.Ref{Kind: schema.KindTable, Schema: "dbo", Name: "Users"}
	proc := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}

	fake.PutObject(schema.ObjectMetadata{Ref: table, ModifiedUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	fake.PutObject(schema.ObjectMetadata{Ref: proc, ModifiedUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	fake.Dependencies[proc.Key()] = []schema.Ref{table}

	dir := t.TempDir()
	store := snapshot.New(dir)
	first, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	// First pass, first process: establishes the persisted cache/graph
	// baseline, then the orchestrator (and its in-memory graph) is
	// discarded, simulating a process restart.
	_, err = first.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	fake.PutObject(schema.ObjectMetadata{Ref: table, ModifiedUTC: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})

	second, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	result, err := second.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Modified, 1)
	assert.Equal(t, "Users", result.Modified[0].Name)
	_, ok := result.Invalidated[proc.Key()]
	assert.True(t, ok, "GetUser should be invalidated via the dependency edge hydrated from the persisted cache")
}

func TestAnalyzeAndInvalidateHandlesRemoval(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	proc := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	fake.PutObject(schema.ObjectMetadata{Ref: proc, ModifiedUTC: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})

	store := snapshot.New(t.TempDir())
	orch, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	_, err = orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	fake.RemoveObject(proc)
	fake.MaxModified = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	result, err := orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Removed, 1)
	assert.Equal(t, "GetUser", result.Removed[0].Name)

	_, stillCached := orch.Cache.Get(proc)
	assert.False(t, stillCached)
}

func TestAnalyzeAndInvalidateSkipsSchemasOutsideFilter(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	inScope := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	outOfScope := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "reporting", Name: "GetReport"}
	fake.PutObject(schema.ObjectMetadata{Ref: inScope, ModifiedUTC: time.Now().UTC()})
	fake.PutObject(schema.ObjectMetadata{Ref: outOfScope, ModifiedUTC: time.Now().UTC()})

	store := snapshot.New(t.TempDir())
	orch, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	result, err := orch.AnalyzeAndInvalidate(context.Background(), map[string]struct{}{"dbo": {}})
	require.NoError(t, err)

	require.Len(t, result.RefreshPlan, 1)
	assert.Equal(t, "dbo", result.RefreshPlan[0].Schema)
}

func TestInvalidateEvictsWithoutCatalogAccess(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	proc := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	fake.PutObject(schema.ObjectMetadata{Ref: proc, ModifiedUTC: time.Now().UTC()})

	store := snapshot.New(t.TempDir())
	orch, err := invalidation.Initialize(fake, store, nil)
	require.NoError(t, err)

	_, err = orch.AnalyzeAndInvalidate(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, orch.Invalidate([]schema.Ref{proc}))

	_, ok := orch.Cache.Get(proc)
	assert.False(t, ok)
}
