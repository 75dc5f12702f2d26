// SPDX-License-Identifier: Apache-2.0

package telemetry_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/telemetry"
)

type recordingSink struct {
	events []telemetry.Event
}

func (s *recordingSink) Record(e telemetry.Event) {
	s.events = append(s.events, e)
}

func TestMarkCompletedEmitsCompletedEvent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	rec := telemetry.New(sink)

	scope := rec.StartQuery(telemetry.Metadata{Procedure: "dbo.GetUser", Command: "EXEC dbo.GetUser"})
	scope.MarkCompleted(3)
	scope.Close()

	require.Len(t, sink.events, 1)
	assert.Equal(t, telemetry.OutcomeCompleted, sink.events[0].Outcome)
	assert.Equal(t, 3, sink.events[0].RowCount)
}

func TestScopeDroppedWithoutMarkIsReportedFailed(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	rec := telemetry.New(sink)

	scope := rec.StartQuery(telemetry.Metadata{Procedure: "dbo.GetUser"})
	scope.Close()

	require.Len(t, sink.events, 1)
	assert.Equal(t, telemetry.OutcomeFailed, sink.events[0].Outcome)
	assert.Equal(t, "dropped", sink.events[0].ErrorKind)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	rec := telemetry.New(sink)

	scope := rec.StartQuery(telemetry.Metadata{})
	scope.MarkIntercepted(0)
	scope.Close()
	scope.Close()

	assert.Len(t, sink.events, 1)
}

func TestCommandPreviewTruncatesAt240Characters(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 300)
	meta := telemetry.Metadata{Command: long}

	preview := meta.CommandPreview()
	assert.True(t, strings.HasSuffix(preview, " …"))
	assert.Len(t, preview, 240+len(" …"))
}

func TestCommandHashIsStableSHA256(t *testing.T) {
	t.Parallel()

	meta := telemetry.Metadata{Command: "SELECT 1"}
	assert.Len(t, meta.CommandHash(), 64)
	assert.Equal(t, meta.CommandHash(), telemetry.Metadata{Command: "SELECT 1"}.CommandHash())
}
