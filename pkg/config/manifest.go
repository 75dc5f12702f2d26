// SPDX-License-Identifier: Apache-2.0

package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed xtraqconfig.schema.json
var manifestSchemaJSON string

var manifestSchema = mustCompileManifestSchema()

func mustCompileManifestSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchemaJSON))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("xtraqconfig.schema.json", doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile("xtraqconfig.schema.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// manifest is the parsed shape of a single .xtraqconfig file. Exactly one
// of (ProjectPath) or (Namespace/OutputDir/TargetFramework/BuildSchemas) is
// populated, enforced by manifestSchema before this struct is built.
type manifest struct {
	ProjectPath     string
	Namespace       string
	OutputDir       string
	TargetFramework string
	BuildSchemas    []string
}

func (m manifest) isRedirect() bool {
	return m.ProjectPath != ""
}

// loadManifest reads and schema-validates the .xtraqconfig file at path.
func loadManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return manifest{}, &ManifestShapeError{Path: path, Detail: err.Error()}
	}
	if err := manifestSchema.Validate(raw); err != nil {
		return manifest{}, &ManifestShapeError{Path: path, Detail: err.Error()}
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest{}, &ManifestShapeError{Path: path, Detail: err.Error()}
	}
	return m, nil
}

// findProjectRoot walks parents of startDir until it finds a directory
// containing .xtraqconfig, returning that directory. ProjectNotInitialised
// if the walk reaches the filesystem root without finding one.
func findProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, manifestFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &ProjectNotInitialisedError{StartDir: startDir}
		}
		dir = parent
	}
}

const manifestFileName = ".xtraqconfig"

// resolveRedirects follows a chain of ProjectPath redirects up to 10 hops,
// returning the final project root directory and, if the final manifest is
// a defaults manifest, its parsed contents. A cycle or hop overflow yields
// the last directory visited, per the redirect contract (not an error).
func resolveRedirects(rootDir string) (string, manifest, error) {
	const maxHops = 10

	visited := map[string]struct{}{}
	dir := rootDir

	for hop := 0; hop < maxHops; hop++ {
		if _, seen := visited[dir]; seen {
			return dir, manifest{}, nil
		}
		visited[dir] = struct{}{}

		m, err := loadManifest(filepath.Join(dir, manifestFileName))
		if err != nil {
			return "", manifest{}, err
		}
		if !m.isRedirect() {
			return dir, m, nil
		}
		if m.ProjectPath == "." {
			return dir, manifest{}, nil
		}

		next := m.ProjectPath
		if !filepath.IsAbs(next) {
			next = filepath.Join(dir, next)
		}
		dir = next
	}

	return dir, manifest{}, nil
}
