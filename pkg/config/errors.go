// SPDX-License-Identifier: Apache-2.0

package config

// ProjectNotInitialisedError reports that no .xtraqconfig was found while
// walking up from the input directory.
type ProjectNotInitialisedError struct {
	StartDir string
}

func (e *ProjectNotInitialisedError) Error() string {
	return "no .xtraqconfig found above " + e.StartDir
}

// InvalidNamespaceError reports an XTRAQ_NAMESPACE value that fails the
// namespace regex or contains "..".
type InvalidNamespaceError struct {
	Value string
}

func (e *InvalidNamespaceError) Error() string {
	return "invalid namespace: " + e.Value
}

// InvalidOutputDirError reports an XTRAQ_OUTPUT_DIR value containing
// invalid path characters.
type InvalidOutputDirError struct {
	Value string
}

func (e *InvalidOutputDirError) Error() string {
	return "invalid output directory: " + e.Value
}

// InvalidSchemaIdentifierError reports a schema name in XTRAQ_BUILD_SCHEMAS
// that fails the schema identifier regex.
type InvalidSchemaIdentifierError struct {
	Value string
}

func (e *InvalidSchemaIdentifierError) Error() string {
	return "invalid schema identifier: " + e.Value
}

// MissingConnectionStringError reports that XTRAQ_GENERATOR_DB resolved to
// empty after applying every precedence source.
type MissingConnectionStringError struct{}

func (e *MissingConnectionStringError) Error() string {
	return "XTRAQ_GENERATOR_DB is required but was not set"
}

// EnvFileMissingMarkerError reports that an .env/.env.local file exists but
// contains no XTRAQ_* key.
type EnvFileMissingMarkerError struct {
	Path string
}

func (e *EnvFileMissingMarkerError) Error() string {
	return "env file contains no XTRAQ_* entries: " + e.Path
}

// ManifestShapeError reports an .xtraqconfig document that fails schema
// validation (mixing redirect and defaults, or carrying unknown keys).
type ManifestShapeError struct {
	Path   string
	Detail string
}

func (e *ManifestShapeError) Error() string {
	return "invalid .xtraqconfig at " + e.Path + ": " + e.Detail
}
