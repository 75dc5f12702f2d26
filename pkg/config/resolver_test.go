// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveReadsDefaultsManifestAndEnvFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), `{"Namespace":"Acme.Data","BuildSchemas":["dbo","sales"]}`)
	writeFile(t, filepath.Join(root, ".env"), "XTRAQ_GENERATOR_DB=Server=(local);Database=App;\n")

	sub := filepath.Join(root, "src", "project")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, err := config.Resolve(sub, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, "Acme.Data", cfg.Namespace)
	assert.Equal(t, []string{"dbo", "sales"}, cfg.BuildSchemas)
	assert.Equal(t, "Server=(local);Database=App;", cfg.GeneratorConnectionString)
	assert.Equal(t, "Xtraq", cfg.OutputDir)
}

func TestResolveFollowsProjectPathRedirect(t *testing.T) {
	outer := t.TempDir()
	inner := filepath.Join(outer, "project-root")
	writeFile(t, filepath.Join(outer, ".xtraqconfig"), `{"ProjectPath":"project-root"}`)
	writeFile(t, filepath.Join(inner, ".xtraqconfig"), `{"Namespace":"X.Y"}`)
	writeFile(t, filepath.Join(inner, ".env"), "XTRAQ_GENERATOR_DB=Server=(local);Database=App;\n")

	cfg, err := config.Resolve(outer, nil)
	require.NoError(t, err)

	assert.Equal(t, inner, cfg.ProjectRoot)
	assert.Equal(t, "X.Y", cfg.Namespace)
}

func TestResolveFailsWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Resolve(dir, nil)

	var notInit *config.ProjectNotInitialisedError
	require.ErrorAs(t, err, &notInit)
}

func TestResolveFailsOnMissingConnectionString(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), `{"Namespace":"Acme"}`)

	_, err := config.Resolve(root, nil)

	var missing *config.MissingConnectionStringError
	require.ErrorAs(t, err, &missing)
}

func TestResolveFailsOnInvalidSchemaIdentifier(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), "{}")

	_, err := config.Resolve(root, map[string]string{
		"XTRAQ_GENERATOR_DB":  "Server=(local);",
		"XTRAQ_BUILD_SCHEMAS": "dbo,1bad",
	})

	var invalidSchema *config.InvalidSchemaIdentifierError
	require.ErrorAs(t, err, &invalidSchema)
}

func TestResolveOverridesTakePrecedenceOverEnvFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), "{}")
	writeFile(t, filepath.Join(root, ".env"), "XTRAQ_GENERATOR_DB=FromEnvFile;\n")

	cfg, err := config.Resolve(root, map[string]string{"XTRAQ_GENERATOR_DB": "FromOverride;"})
	require.NoError(t, err)

	assert.Equal(t, "FromOverride;", cfg.GeneratorConnectionString)
}

func TestResolveSkipsEnvFileAndPublishWhenBootstrapDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), "{}")
	writeFile(t, filepath.Join(root, ".env"), "XTRAQ_GENERATOR_DB=FromEnvFile;\n")

	t.Setenv("XTRAQ_DISABLE_ENV_BOOTSTRAP", "true")
	require.NoError(t, os.Unsetenv("XTRAQ_PROJECT_ROOT"))

	_, err := config.Resolve(root, nil)

	var missing *config.MissingConnectionStringError
	require.ErrorAs(t, err, &missing, ".env bootstrap must be skipped, so the .env-only connection string is never seen")

	_, published := os.LookupEnv("XTRAQ_PROJECT_ROOT")
	assert.False(t, published, "XTRAQ_PROJECT_ROOT must not be published when bootstrap is disabled")
}

func TestResolveRejectsEnvFileWithNoMarkerKeys(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".xtraqconfig"), "{}")
	writeFile(t, filepath.Join(root, ".env"), "SOME_OTHER_KEY=value\n")

	_, err := config.Resolve(root, map[string]string{"XTRAQ_GENERATOR_DB": "Server=(local);"})

	var missingMarker *config.EnvFileMissingMarkerError
	require.ErrorAs(t, err, &missingMarker)
}
