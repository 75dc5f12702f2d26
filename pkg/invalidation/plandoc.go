// SPDX-License-Identifier: Apache-2.0

package invalidation

import (
	"time"

	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

// planDocument is the on-disk shape of cache/schema-refresh-plan.json.
type planDocument struct {
	Version         int        `json:"Version"`
	GeneratedUTC    time.Time  `json:"GeneratedUtc"`
	Schemas         []string   `json:"Schemas"`
	ModifiedCount   int        `json:"ModifiedCount"`
	DependencyCount int        `json:"DependencyCount"`
	RemovedCount    int        `json:"RemovedCount"`
	SkippedCount    int        `json:"SkippedCount"`
	Batches         []batchDoc `json:"Batches"`
}

type batchDoc struct {
	Schema  string     `json:"Schema"`
	Entries []entryDoc `json:"Entries"`
}

// entryDoc's Object is the bare object name, not "schema.name" — every
// entry already lives inside a batchDoc scoped to one schema, so repeating
// the schema per entry would be redundant.
type entryDoc struct {
	Object string `json:"Object"`
	Type   string `json:"Type"`
	Reason string `json:"Reason"`
}

func persistRefreshPlan(store *snapshot.Store, plan []RefreshBatch, modifiedCount, dependencyCount, removedCount, skippedCount int) error {
	doc := planDocument{
		Version:         1,
		GeneratedUTC:    time.Now().UTC(),
		ModifiedCount:   modifiedCount,
		DependencyCount: dependencyCount,
		RemovedCount:    removedCount,
		SkippedCount:    skippedCount,
	}
	for _, batch := range plan {
		doc.Schemas = append(doc.Schemas, batch.Schema)
		bd := batchDoc{Schema: batch.Schema}
		for _, e := range batch.Entries {
			bd.Entries = append(bd.Entries, entryDoc{
				Object: e.Ref.Name,
				Type:   e.Ref.Kind.String(),
				Reason: e.Reason.String(),
			})
		}
		doc.Batches = append(doc.Batches, bd)
	}
	return snapshot.Save(store.RefreshPlanPath(), doc)
}
