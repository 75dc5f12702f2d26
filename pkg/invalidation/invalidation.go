// SPDX-License-Identifier: Apache-2.0

// Package invalidation implements the schema change-detection and
// dependency-graph orchestrator: it diffs live catalog objects against a
// persisted cache, invalidates transitive dependents, and emits a batched
// refresh plan.
package invalidation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nuetzliches/xtraq/pkg/catalog"
	"github.com/nuetzliches/xtraq/pkg/depgraph"
	"github.com/nuetzliches/xtraq/pkg/schema"
	"github.com/nuetzliches/xtraq/pkg/schemacache"
	"github.com/nuetzliches/xtraq/pkg/snapshot"
	"github.com/nuetzliches/xtraq/pkg/xtraqlog"
)

// orderedKinds is the deterministic scan order across object kinds.
var orderedKinds = []schema.Kind{
	schema.KindTable,
	schema.KindView,
	schema.KindUserDefinedDataType,
	schema.KindUserDefinedTableType,
	schema.KindScalarFunction,
	schema.KindTableValuedFunction,
	schema.KindStoredProcedure,
}

// RefreshReason classifies why an object appears in a refresh batch.
type RefreshReason int

const (
	ReasonModified RefreshReason = iota
	ReasonDependency
)

func (r RefreshReason) String() string {
	if r == ReasonModified {
		return "Modified"
	}
	return "Dependency"
}

// RefreshEntry is one object within a RefreshBatch.
type RefreshEntry struct {
	Ref    schema.Ref
	Reason RefreshReason
}

// RefreshBatch groups every refresh entry for a single schema.
type RefreshBatch struct {
	Schema  string
	Entries []RefreshEntry
}

// Result is the outcome of a single AnalyzeAndInvalidate call.
type Result struct {
	Modified               []schema.Ref
	Invalidated            map[string]schema.Ref
	Removed                []schema.Ref
	Skipped                []schema.Ref
	NextReferenceTimestamp time.Time
	RefreshPlan            []RefreshBatch
	ObjectsToRefresh       []schema.Ref
}

// Orchestrator ties together a CatalogReader, a persisted object cache, and
// an in-memory dependency graph to compute what must be re-analyzed.
type Orchestrator struct {
	Reader catalog.Reader
	Store  *snapshot.Store
	Graph  *depgraph.Graph
	Cache  *schemacache.Cache
	Logger xtraqlog.Logger
}

// Initialize loads the persisted object cache from disk. It is one-shot:
// call it once before the first AnalyzeAndInvalidate.
func Initialize(reader catalog.Reader, store *snapshot.Store, logger xtraqlog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = xtraqlog.NewNoopLogger()
	}
	cache, err := schemacache.Load(store)
	if err != nil {
		return nil, err
	}

	graph := depgraph.New()
	cache.EachDependency(func(ref schema.Ref, deps []schema.Ref) {
		graph.SetDependencies(ref, deps)
	})

	return &Orchestrator{
		Reader: reader,
		Store:  store,
		Graph:  graph,
		Cache:  cache,
		Logger: logger,
	}, nil
}

// AnalyzeAndInvalidate scans every object kind, diffs against the
// persisted cache, propagates invalidation through the dependency graph,
// and produces a batched refresh plan. schemaFilter restricts both the
// catalog scan and the resulting plan; a nil/empty filter means "all
// schemas".
func (o *Orchestrator) AnalyzeAndInvalidate(ctx context.Context, schemaFilter map[string]struct{}) (Result, error) {
	o.Logger.LogAnalyzeStart(sortedKeys(schemaFilter))

	var modified, removed []schema.Ref
	invalidated := map[string]schema.Ref{}
	reasonMap := map[string]RefreshReason{}

	recordInvalidated := func(refs []schema.Ref) {
		for _, r := range refs {
			invalidated[r.Key()] = r
			if _, already := reasonMap[r.Key()]; !already {
				reasonMap[r.Key()] = ReasonDependency
			}
		}
	}

	for _, kind := range orderedKinds {
		var since *time.Time
		if ts := o.Cache.ReferenceTimestamp(); !ts.IsZero() {
			since = &ts
		}

		changes, err := o.Reader.ListObjectsModifiedSince(ctx, kind, since, schemaFilter)
		if err != nil {
			return Result{}, err
		}

		for _, meta := range changes.Modified {
			meta.ModifiedUTC = schema.NormalizeModifiedUTC(meta.ModifiedUTC)

			if entry, ok := o.Cache.Get(meta.Ref); ok && !meta.ModifiedUTC.After(entry.LastModifiedUTC) {
				continue
			}

			modified = append(modified, meta.Ref)
			reasonMap[meta.Ref.Key()] = ReasonModified
			o.Cache.UpdateLastModified(meta.Ref, meta.ModifiedUTC)

			deps, err := o.Reader.ReadDependencies(ctx, meta.Ref)
			if err != nil {
				return Result{}, err
			}
			o.Graph.SetDependencies(meta.Ref, deps)
			o.Cache.SetDependencies(meta.Ref, deps)

			recordInvalidated(o.Graph.TraverseDependents(meta.Ref))
			o.Logger.LogObjectInvalidated(meta.Ref.FullName(), "Modified")
		}

		for _, ref := range changes.Removed {
			recordInvalidated(o.Graph.TraverseDependents(ref))
			o.Graph.Remove(ref)
			o.Cache.Remove(ref)
			removed = append(removed, ref)
			o.Logger.LogObjectInvalidated(ref.FullName(), "Removed")
		}
	}

	// A ref that is both modified and a dependent of another modified
	// object keeps reason=Modified. The modified loop above already sets
	// Modified unconditionally and recordInvalidated only sets Dependency
	// when no reason is recorded yet; this pass re-asserts Modified for
	// every modified ref after all kinds are scanned.
	for _, ref := range modified {
		reasonMap[ref.Key()] = ReasonModified
	}

	nextRef, err := o.Reader.ReadMaxModificationTime(ctx)
	if err != nil {
		return Result{}, err
	}
	o.Cache.SetReferenceTimestamp(nextRef)

	if err := o.Cache.Save(o.Store); err != nil {
		return Result{}, err
	}

	refsToPlan := map[string]schema.Ref{}
	for _, r := range modified {
		refsToPlan[r.Key()] = r
	}
	for k, r := range invalidated {
		refsToPlan[k] = r
	}

	plan, skipped := buildRefreshPlan(reasonMap, refsToPlan, schemaFilter)
	if err := persistRefreshPlan(o.Store, plan, len(modified), len(invalidated), len(removed), len(skipped)); err != nil {
		return Result{}, err
	}

	var objectsToRefresh []schema.Ref
	for _, batch := range plan {
		for _, e := range batch.Entries {
			objectsToRefresh = append(objectsToRefresh, e.Ref)
		}
	}

	result := Result{
		Modified:               modified,
		Invalidated:            invalidated,
		Removed:                removed,
		Skipped:                skipped,
		NextReferenceTimestamp: nextRef,
		RefreshPlan:            plan,
		ObjectsToRefresh:       objectsToRefresh,
	}

	o.Logger.LogAnalyzeComplete(len(modified), len(invalidated), len(removed))
	return result, nil
}

// Invalidate is a manual eviction path: it removes refs from the cache and
// dependency graph without consulting the catalog.
func (o *Orchestrator) Invalidate(refs []schema.Ref) error {
	for _, ref := range refs {
		o.Graph.Remove(ref)
		o.Cache.Remove(ref)
	}
	return o.Cache.Save(o.Store)
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// buildRefreshPlan groups refs by schema, filters by schemaFilter (moving
// excluded entries to skipped), and orders each batch Modified-first then
// by kind then by name case-insensitively; schemas are sorted
// case-insensitively ascending.
func buildRefreshPlan(reasonMap map[string]RefreshReason, refs map[string]schema.Ref, schemaFilter map[string]struct{}) ([]RefreshBatch, []schema.Ref) {
	bySchema := map[string][]RefreshEntry{}
	var skipped []schema.Ref

	for key, ref := range refs {
		if len(schemaFilter) > 0 {
			if _, ok := schemaFilter[strings.ToLower(ref.Schema)]; !ok {
				skipped = append(skipped, ref)
				continue
			}
		}
		bySchema[strings.ToLower(ref.Schema)] = append(bySchema[strings.ToLower(ref.Schema)], RefreshEntry{Ref: ref, Reason: reasonMap[key]})
	}

	var schemas []string
	for s := range bySchema {
		schemas = append(schemas, s)
	}
	sort.Strings(schemas)

	var plan []RefreshBatch
	for _, s := range schemas {
		entries := bySchema[s]
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.Reason != b.Reason {
				return a.Reason == ReasonModified
			}
			if a.Ref.Kind != b.Ref.Kind {
				return a.Ref.Kind < b.Ref.Kind
			}
			return strings.ToLower(a.Ref.Name) < strings.ToLower(b.Ref.Name)
		})
		plan = append(plan, RefreshBatch{Schema: entries[0].Ref.Schema, Entries: entries})
	}

	sort.SliceStable(skipped, func(i, j int) bool {
		return strings.ToLower(skipped[i].FullName()) < strings.ToLower(skipped[j].FullName())
	})

	return plan, skipped
}
