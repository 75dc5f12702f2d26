// SPDX-License-Identifier: Apache-2.0

package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetzliches/xtraq/pkg/catalog"
	"github.com/nuetzliches/xtraq/pkg/schema"
)

// flakyReader fails the first N calls with *UnavailableError, then delegates.
type flakyReader struct {
	catalog.Reader
	failuresLeft int
}

func (f *flakyReader) ReadMaxModificationTime(ctx context.Context) (time.Time, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return time.Time{}, &catalog.UnavailableError{Op: "ReadMaxModificationTime"}
	}
	return f.Reader.ReadMaxModificationTime(ctx)
}

func TestRetryingReaderRetriesOnUnavailable(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake.MaxModified = want

	flaky := &flakyReader{Reader: fake, failuresLeft: 2}
	retrying := &catalog.RetryingReader{Reader: flaky, MaxBackoff: time.Millisecond, Interval: time.Microsecond}

	got, err := retrying.ReadMaxModificationTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 0, flaky.failuresLeft)
}

func TestRetryingReaderPropagatesNonTransientError(t *testing.T) {
	t.Parallel()

	// Fake.Err would be wrapped in *UnavailableError (and so retried), so
	// the non-transient *NotFoundError comes from a missing procedure.
	fake := catalog.NewFake()
	retrying := catalog.NewRetryingReader(fake)

	_, err := retrying.ReadProcedureDefinition(context.Background(), schema.Ref{Kind: schema.KindStoredProcedure, Schema: "dbo", Name: "Missing"})
	require.Error(t, err)

	var notFound *catalog.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRetryingReaderStopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	fake := catalog.NewFake()
	fake.Err = &catalog.UnavailableError{Op: "ReadMaxModificationTime"}
	retrying := &catalog.RetryingReader{Reader: fake, MaxBackoff: time.Second, Interval: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retrying.ReadMaxModificationTime(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
