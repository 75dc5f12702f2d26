// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines the per-query timing sink every generated
// client calls through: a scope opened at query start and closed with
// exactly one terminal mark.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

const previewLimit = 240

// Outcome classifies how a QueryScope was terminated.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCompleted
	OutcomeIntercepted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "Completed"
	case OutcomeIntercepted:
		return "Intercepted"
	default:
		return "Failed"
	}
}

// Metadata describes the query a scope is recording.
type Metadata struct {
	Procedure string
	Command   string
}

// CommandPreview truncates Command to 240 characters, appending " …" when
// truncated, per the recorder's preview contract.
func (m Metadata) CommandPreview() string {
	runes := []rune(m.Command)
	if len(runes) <= previewLimit {
		return m.Command
	}
	return string(runes[:previewLimit]) + " …"
}

// CommandHash returns the SHA-256 hex digest of the full command text.
func (m Metadata) CommandHash() string {
	sum := sha256.Sum256([]byte(m.Command))
	return hex.EncodeToString(sum[:])
}

// Event is a single terminated QueryScope, as delivered to a Recorder.
type Event struct {
	ID         string
	Metadata   Metadata
	StartedUTC time.Time
	Duration   time.Duration
	Outcome    Outcome
	RowCount   int
	ErrorKind  string
}

// Sink receives completed telemetry events. Implementations must not block
// the caller for long; Recorder invokes Sink synchronously from the
// goroutine that closes the scope.
type Sink interface {
	Record(Event)
}

// Recorder is the TelemetryRecorder port: it opens scopes and forwards
// terminated events to a Sink.
type Recorder struct {
	Sink Sink
}

// New returns a Recorder delivering events to sink.
func New(sink Sink) *Recorder {
	return &Recorder{Sink: sink}
}

// StartQuery opens a new scope for metadata. The caller MUST terminate the
// scope exactly once via MarkCompleted, MarkIntercepted, or MarkFailed;
// Close (typically deferred) reports any unmarked scope as failed.
func (r *Recorder) StartQuery(metadata Metadata) *QueryScope {
	return &QueryScope{
		recorder:  r,
		id:        uuid.NewString(),
		metadata:  metadata,
		startedAt: time.Now().UTC(),
	}
}

// QueryScope tracks one in-flight query from start to terminal mark.
type QueryScope struct {
	recorder  *Recorder
	id        string
	metadata  Metadata
	startedAt time.Time

	mu      sync.Mutex
	marked  bool
	closed  bool
	outcome Outcome
	rows    int
	errKind string
}

// MarkCompleted records a successful terminal outcome.
func (s *QueryScope) MarkCompleted(rowCount int) {
	s.mark(OutcomeCompleted, rowCount, "")
}

// MarkIntercepted records that the query was short-circuited (e.g. served
// from cache) without reaching the server.
func (s *QueryScope) MarkIntercepted(rowCount int) {
	s.mark(OutcomeIntercepted, rowCount, "")
}

// MarkFailed records a failed terminal outcome with an error classification.
func (s *QueryScope) MarkFailed(rowCount int, errorKind string) {
	s.mark(OutcomeFailed, rowCount, errorKind)
}

// Close terminates the scope. If no mark was ever recorded, the scope is
// reported as failed with errorKind "dropped". Calling Close more than once
// is a no-op after the first call.
func (s *QueryScope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if !s.marked {
		s.outcome, s.errKind = OutcomeFailed, "dropped"
	}
	outcome, rows, errKind := s.outcome, s.rows, s.errKind
	s.mu.Unlock()

	if s.recorder == nil || s.recorder.Sink == nil {
		return
	}
	s.recorder.Sink.Record(Event{
		ID:         s.id,
		Metadata:   s.metadata,
		StartedUTC: s.startedAt,
		Duration:   time.Since(s.startedAt),
		Outcome:    outcome,
		RowCount:   rows,
		ErrorKind:  errKind,
	})
}

func (s *QueryScope) mark(outcome Outcome, rowCount int, errKind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marked {
		return
	}
	s.marked = true
	s.outcome = outcome
	s.rows = rowCount
	s.errKind = errKind
}
