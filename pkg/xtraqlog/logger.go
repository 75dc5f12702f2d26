// SPDX-License-Identifier: Apache-2.0

// Package xtraqlog is the structured logging facade shared by every Xtraq
// component, and the home of the warning aggregator that deduplicates
// non-fatal diagnostics across a run.
package xtraqlog

import "github.com/pterm/pterm"

// Logger is the structured event sink every orchestrator component logs
// through. A real logger is pterm-backed; tests and callers passing a nil
// logger get NewNoopLogger.
type Logger interface {
	LogAnalyzeStart(schemaFilter []string)
	LogAnalyzeComplete(modified, invalidated, removed int)
	LogObjectInvalidated(fullName, reason string)
	LogProcedureRefreshed(fullName string)
	LogEnrichmentGap(fullName, column, reason string)
	LogSnapshotWritten(path string)

	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewLogger returns a Logger backed by pterm's default structured logger.
func NewLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) LogAnalyzeStart(schemaFilter []string) {
	l.logger.Info("starting catalog analysis", l.logger.Args("schemas", schemaFilter))
}

func (l *ptermLogger) LogAnalyzeComplete(modified, invalidated, removed int) {
	l.logger.Info("catalog analysis complete", l.logger.Args(
		"modified", modified,
		"invalidated", invalidated,
		"removed", removed,
	))
}

func (l *ptermLogger) LogObjectInvalidated(fullName, reason string) {
	l.logger.Info("object invalidated", l.logger.Args("object", fullName, "reason", reason))
}

func (l *ptermLogger) LogProcedureRefreshed(fullName string) {
	l.logger.Info("procedure refreshed", l.logger.Args("procedure", fullName))
}

func (l *ptermLogger) LogEnrichmentGap(fullName, column, reason string) {
	l.logger.Warn("enrichment gap", l.logger.Args("procedure", fullName, "column", column, "reason", reason))
}

func (l *ptermLogger) LogSnapshotWritten(path string) {
	l.logger.Info("snapshot written", l.logger.Args("path", path))
}

func (l *ptermLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func (l *ptermLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, l.logger.Args(args...))
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards every event, for tests and
// as the default when invalidation.Initialize or enrich.New get a nil logger.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (noopLogger) LogAnalyzeStart([]string)               {}
func (noopLogger) LogAnalyzeComplete(int, int, int)       {}
func (noopLogger) LogObjectInvalidated(string, string)    {}
func (noopLogger) LogProcedureRefreshed(string)           {}
func (noopLogger) LogEnrichmentGap(string, string, string) {}
func (noopLogger) LogSnapshotWritten(string)              {}
func (noopLogger) Info(string, ...any)                    {}
func (noopLogger) Warn(string, ...any)                    {}
