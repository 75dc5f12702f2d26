// SPDX-License-Identifier: Apache-2.0

package depgraph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nuetzliches/xtraq/pkg/depgraph"
	"github.com/nuetzliches/xtraq/pkg/schema"
)

func testTimeout() <-chan time.Time {
	return time.After(2 * time.Second)
}

func ref(kind schema.Kind, schemaName, name string) schema.Ref {
	return schema.Ref{Kind: kind, Schema: schemaName, Name: name}
}

func TestTraverseDependentsFollowsTransitiveChain(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	table := ref(schema.KindTable, "dbo", "Users")
	view := ref(schema.KindView, "dbo", "ActiveUsers")
	proc := ref(schema.KindStoredProcedure, "dbo", "GetActiveUsers")

	g.SetDependencies(view, []schema.Ref{table})
	g.SetDependencies(proc, []schema.Ref{view})

	got := g.TraverseDependents(table)
	assert.ElementsMatch(t, []schema.Ref{view, proc}, got)
}

func TestTraverseDependentsIsCycleSafe(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	a := ref(schema.KindView, "dbo", "A")
	b := ref(schema.KindView, "dbo", "B")

	g.SetDependencies(a, []schema.Ref{b})
	g.SetDependencies(b, []schema.Ref{a})

	done := make(chan []schema.Ref, 1)
	go func() { done <- g.TraverseDependents(a) }()

	select {
	case got := <-done:
		assert.ElementsMatch(t, []schema.Ref{b}, got)
	case <-testTimeout():
		t.Fatal("TraverseDependents did not terminate on a cyclic graph")
	}
}

func TestSetDependenciesReplacesWholesale(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	view := ref(schema.KindView, "dbo", "ActiveUsers")
	tableA := ref(schema.KindTable, "dbo", "Users")
	tableB := ref(schema.KindTable, "dbo", "Accounts")

	g.SetDependencies(view, []schema.Ref{tableA})
	g.SetDependencies(view, []schema.Ref{tableB})

	assert.Empty(t, g.GetDependents(tableA))
	assert.ElementsMatch(t, []schema.Ref{view}, g.GetDependents(tableB))
}

func TestRemoveDeletesEdgesInBothDirections(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	view := ref(schema.KindView, "dbo", "ActiveUsers")
	table := ref(schema.KindTable, "dbo", "Users")

	g.SetDependencies(view, []schema.Ref{table})
	g.Remove(view)

	assert.Empty(t, g.GetDependents(table))
}
