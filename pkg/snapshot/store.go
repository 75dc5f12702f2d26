// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the filesystem-backed, content-addressed JSON
// persistence layer shared by every cache and document Xtraq writes:
// per-object snapshots under snapshots/, the object cache and refresh plan
// under cache/, and the fingerprinted procedure cache.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nuetzliches/xtraq/pkg/schema"
)

// Store roots every document read/write at a project directory
// (<project>/.xtraq).
type Store struct {
	Root string
}

// New returns a Store rooted at projectDir/.xtraq.
func New(projectDir string) *Store {
	return &Store{Root: filepath.Join(projectDir, ".xtraq")}
}

// TablePath returns the snapshot path for a table or view.
func (s *Store) TablePath(ref schema.Ref) string {
	return filepath.Join(s.Root, "snapshots", "tables", ref.Schema+"."+ref.Name+".json")
}

// ProcedurePath returns the snapshot path for a stored procedure.
func (s *Store) ProcedurePath(ref schema.Ref) string {
	return filepath.Join(s.Root, "snapshots", "procedures", ref.Schema, ref.Name+".json")
}

// FunctionPath returns the snapshot path for a scalar or table-valued
// function.
func (s *Store) FunctionPath(ref schema.Ref) string {
	return filepath.Join(s.Root, "snapshots", "functions", ref.Schema+"."+ref.Name+".json")
}

// TypePath returns the snapshot path for a user-defined type.
func (s *Store) TypePath(ref schema.Ref) string {
	return filepath.Join(s.Root, "snapshots", "types", ref.Schema+"."+ref.Name+".json")
}

// IndexPath returns the roll-up document path.
func (s *Store) IndexPath() string {
	return filepath.Join(s.Root, "snapshots", "index.json")
}

// ObjectCachePath returns the per-object change-detection cache path.
func (s *Store) ObjectCachePath() string {
	return filepath.Join(s.Root, "cache", "schema-object-cache.json")
}

// RefreshPlanPath returns the persisted refresh plan path.
func (s *Store) RefreshPlanPath() string {
	return filepath.Join(s.Root, "cache", "schema-refresh-plan.json")
}

// FingerprintCachePath returns the fingerprinted procedure cache path for a
// given connection/schema fingerprint.
func (s *Store) FingerprintCachePath(fingerprint string) string {
	return filepath.Join(s.Root, "cache", sanitizeFingerprint(fingerprint)+".json")
}

// Save marshals v as indented, UTF-8 JSON with sorted map keys (the default
// encoding/json behaviour) and atomically replaces path: write to a temp
// file in the same directory, fsync, then rename.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Load unmarshals the JSON document at path into v. A missing file is not
// an error; v is left untouched and ok is false. Invalid JSON yields
// ok=false as well, per the store's tolerant-read contract — unknown
// fields are ignored by encoding/json already.
func Load(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// Remove deletes the document at path, if present. Missing files are not
// an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeFingerprint guards against path traversal in a fingerprint
// derived from user-controlled inputs (connection string, schema list).
func sanitizeFingerprint(fp string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, fp)
}
