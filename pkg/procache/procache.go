// SPDX-License-Identifier: Apache-2.0

// Package procache manages the fingerprinted procedure cache: a per-run
// snapshot of every known procedure's schema, name, and modification tick,
// keyed by a stable hash of the effective schema set, connection, and CLI
// version.
package procache

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/nuetzliches/xtraq/pkg/snapshot"
)

// ProcedureEntry is one tracked procedure's identity and last-known
// modification tick within a cache snapshot.
type ProcedureEntry struct {
	Schema        string `json:"Schema"`
	Name          string `json:"Name"`
	ModifiedTicks int64  `json:"ModifiedTicks"`
}

// Snapshot is the persisted shape of a single fingerprint's cache file.
type Snapshot struct {
	Fingerprint string           `json:"Fingerprint"`
	CreatedUTC  time.Time        `json:"CreatedUtc"`
	Procedures  []ProcedureEntry `json:"Procedures"`
}

// Controller manages load/save/invalidate of fingerprinted procedure cache
// files under the store's cache directory.
type Controller struct {
	Store *snapshot.Store
}

// New returns a Controller backed by store.
func New(store *snapshot.Store) *Controller {
	return &Controller{Store: store}
}

// Load returns the persisted snapshot for fingerprint, or ok=false if none
// exists or fingerprint is blank.
func (c *Controller) Load(fingerprint string) (Snapshot, bool, error) {
	if isBlank(fingerprint) {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	ok, err := snapshot.Load(c.Store.FingerprintCachePath(fingerprint), &snap)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save overwrites the cache file for fingerprint. A blank fingerprint is a
// no-op.
func (c *Controller) Save(fingerprint string, snap Snapshot) error {
	if isBlank(fingerprint) {
		return nil
	}
	return snapshot.Save(c.Store.FingerprintCachePath(fingerprint), snap)
}

// Invalidate deletes a single fingerprint's cache file. A blank fingerprint
// is a no-op.
func (c *Controller) Invalidate(fingerprint string) error {
	if isBlank(fingerprint) {
		return nil
	}
	return snapshot.Remove(c.Store.FingerprintCachePath(fingerprint))
}

// InvalidateAll deletes every *.json file directly under the cache
// directory (top level only).
func (c *Controller) InvalidateAll() error {
	return c.InvalidateByPattern("*")
}

// InvalidateByPattern deletes every top-level *.json file matching expr.
// expr is normalized per the controller's glob contract: a missing "*" is
// appended, and a missing ".json" suffix is appended, before the pattern is
// matched with filesystem glob semantics against the cache directory only
// (no recursion into subdirectories).
func (c *Controller) InvalidateByPattern(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	if !strings.Contains(expr, "*") {
		expr += "*"
	}
	if !strings.HasSuffix(expr, ".json") {
		expr += ".json"
	}

	dir := filepath.Dir(c.Store.ObjectCachePath())
	matches, err := filepath.Glob(filepath.Join(dir, expr))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := snapshot.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
