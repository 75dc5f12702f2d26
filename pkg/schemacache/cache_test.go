// SPDX-License-Identifier: Apache-2.0

package schemacache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/schemacache"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

func TestCacheRoundTripsThroughStore(t *testing.T) {
	t.Parallel()

	store := snapshot.New(t.TempDir())
	ref := schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "GetUser"}
	modified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	cache := schemacache.New()
	cache.UpdateLastModified(ref, modified)
	cache.SetDependencies(ref, []schema.Ref{{Kind: schema.KindTable, Schema: "dbo", Name: "Users"}})
	cache.SetReferenceTimestamp(modified)
	require.NoError(t, cache.Save(store))

	loaded, err := schemacache.Load(store)
	require.NoError(t, err)

	entry, ok := loaded.Get(ref)
	require.True(t, ok)
	assert.True(t, entry.LastModifiedUTC.Equal(modified))
	require.Len(t, entry.Dependencies, 1)
	assert.Equal(t, "Users", entry.Dependencies[0].Name)
	assert.True(t, loaded.ReferenceTimestamp().Equal(modified))
}

func TestLoadWithNoPersistedFileReturnsEmptyCache(t *testing.T) {
	t.Parallel()

	store := snapshot.New(t.TempDir())
	cache, err := schemacache.Load(store)
	require.NoError(t, err)
	assert.True(t, cache.ReferenceTimestamp().IsZero())
}

func TestRemoveDeletesEntry(t *testing.T) {
	t.Parallel()

	ref := schema.Ref{Kind: schema.KindTable, Schema: "dbo", Name: "Users"}
	cache := schemacache.New()
	cache.UpdateLastModified(ref, time.Now().UTC())
	cache.Remove(ref)

	_, ok := cache.Get(ref)
	assert.False(t, ok)
}
