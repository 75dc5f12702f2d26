// SPDX-License-Identifier: Apache-2.0

// Package config implements the ConfigResolver: strict-precedence settings
// resolution across explicit overrides, the process environment,
// .env/.env.local files, and the tracked .xtraqconfig manifest, including
// its redirect-chain and schema validation.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	namespaceRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	schemaRe         = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	invalidPathChars = regexp.MustCompile(`[<>:"|?*\x00-\x1f]`)
)

const defaultOutputDir = "Xtraq"

// Config is the fully resolved, validated effective settings for a single
// process invocation.
type Config struct {
	ProjectRoot               string
	ConfigPath                string
	GeneratorConnectionString string
	Namespace                 string
	OutputDir                 string
	TargetFramework           string
	BuildSchemas              []string
	JSONIncludeNullValues     bool
	Verbose                   bool
}

// Resolve computes the effective configuration for startDir, applying
// overrides with the highest precedence, then the process environment,
// then .env/.env.local, then tracked .xtraqconfig defaults. If the process
// environment's XTRAQ_DISABLE_ENV_BOOTSTRAP is truthy, the .env/.env.local
// lookup and the post-resolve environment publication are both skipped
// (precedence sources 1 and 2 still apply).
func Resolve(startDir string, overrides map[string]string) (*Config, error) {
	root, err := findProjectRoot(startDir)
	if err != nil {
		return nil, err
	}

	finalRoot, defaults, err := resolveRedirects(root)
	if err != nil {
		return nil, err
	}

	procEnv := processEnv()
	bootstrapDisabled, _ := strconv.ParseBool(procEnv["XTRAQ_DISABLE_ENV_BOOTSTRAP"])

	var localEnv, trackedEnv map[string]string
	if !bootstrapDisabled {
		localEnv, err = loadEnvFile(filepath.Join(finalRoot, ".env.local"))
		if err != nil {
			return nil, err
		}
		trackedEnv, err = loadEnvFile(filepath.Join(finalRoot, ".env"))
		if err != nil {
			return nil, err
		}
	}

	lookup := func(key string) string {
		if v, ok := overrides[key]; ok && v != "" {
			return v
		}
		if v, ok := procEnv[key]; ok && v != "" {
			return v
		}
		if v, ok := localEnv[key]; ok && v != "" {
			return v
		}
		if v, ok := trackedEnv[key]; ok && v != "" {
			return v
		}
		return ""
	}

	cfg := &Config{
		ProjectRoot:               finalRoot,
		GeneratorConnectionString: lookup("XTRAQ_GENERATOR_DB"),
		Namespace:                 firstNonEmpty(lookup("XTRAQ_NAMESPACE"), defaults.Namespace),
		OutputDir:                 firstNonEmpty(lookup("XTRAQ_OUTPUT_DIR"), defaults.OutputDir, defaultOutputDir),
		TargetFramework:           firstNonEmpty(lookup("XTRAQ_TARGET_FRAMEWORK"), defaults.TargetFramework),
		ConfigPath:                firstNonEmpty(lookup("XTRAQ_CONFIG_PATH"), filepath.Join(finalRoot, manifestFileName)),
	}

	if schemas := lookup("XTRAQ_BUILD_SCHEMAS"); schemas != "" {
		cfg.BuildSchemas = splitSchemaList(schemas)
	} else {
		cfg.BuildSchemas = dedupeSchemasCaseInsensitive(defaults.BuildSchemas)
	}

	if v := lookup("XTRAQ_JSON_INCLUDE_NULL_VALUES"); v != "" {
		cfg.JSONIncludeNullValues, _ = strconv.ParseBool(v)
	}
	if v := lookup("XTRAQ_VERBOSE"); v != "" {
		cfg.Verbose, _ = strconv.ParseBool(v)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if !bootstrapDisabled {
		if err := publish(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.GeneratorConnectionString == "" {
		return &MissingConnectionStringError{}
	}
	if cfg.Namespace != "" {
		if !namespaceRe.MatchString(cfg.Namespace) || strings.Contains(cfg.Namespace, "..") {
			return &InvalidNamespaceError{Value: cfg.Namespace}
		}
	}
	if invalidPathChars.MatchString(cfg.OutputDir) {
		return &InvalidOutputDirError{Value: cfg.OutputDir}
	}
	for _, s := range cfg.BuildSchemas {
		if !schemaRe.MatchString(s) {
			return &InvalidSchemaIdentifierError{Value: s}
		}
	}
	return nil
}

// publish writes the resolved project root, config path, and effective
// schema list back to the process environment so child collaborators
// observe the same view.
func publish(cfg *Config) error {
	if err := os.Setenv("XTRAQ_PROJECT_ROOT", cfg.ProjectRoot); err != nil {
		return err
	}
	if err := os.Setenv("XTRAQ_CONFIG_PATH", cfg.ConfigPath); err != nil {
		return err
	}
	return os.Setenv("XTRAQ_BUILD_SCHEMAS", strings.Join(cfg.BuildSchemas, ";"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// splitSchemaList splits a comma/semicolon-delimited list, trims
// whitespace, and deduplicates case-insensitively while preserving order
// of first occurrence.
func splitSchemaList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return dedupeSchemasCaseInsensitive(fields)
}

func dedupeSchemasCaseInsensitive(schemas []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range schemas {
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
