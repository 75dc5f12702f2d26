// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/cloudflare/backoff"

	"github.com/nuetzliches/xtraq/pkg/schema"
)

const (
	defaultMaxBackoff = 30 * time.Second
	defaultInterval   = 500 * time.Millisecond
)

// RetryingReader wraps a Reader, retrying operations that fail with
// *UnavailableError using an exponential backoff with jitter. It mirrors
// the teacher's db.RDB lock-timeout retry loop, substituting transient
// catalog-connectivity errors for Postgres lock_timeout errors.
type RetryingReader struct {
	Reader Reader

	// MaxBackoff and Interval configure the backoff; zero values fall back
	// to sane defaults.
	MaxBackoff time.Duration
	Interval   time.Duration
}

// NewRetryingReader wraps reader with the default backoff schedule.
func NewRetryingReader(reader Reader) *RetryingReader {
	return &RetryingReader{Reader: reader}
}

func (r *RetryingReader) backoff() *backoff.Backoff {
	maxB, interval := r.MaxBackoff, r.Interval
	if maxB == 0 {
		maxB = defaultMaxBackoff
	}
	if interval == 0 {
		interval = defaultInterval
	}
	return backoff.New(maxB, interval)
}

func retry[T any](ctx context.Context, r *RetryingReader, f func() (T, error)) (T, error) {
	b := r.backoff()
	for {
		result, err := f()
		if err == nil {
			return result, nil
		}

		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			return result, err
		}

		if sleepErr := sleepCtx(ctx, b.Duration()); sleepErr != nil {
			return result, sleepErr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (r *RetryingReader) ListObjectsModifiedSince(ctx context.Context, kind schema.Kind, since *time.Time, schemaFilter map[string]struct{}) (ChangeSet, error) {
	return retry(ctx, r, func() (ChangeSet, error) {
		return r.Reader.ListObjectsModifiedSince(ctx, kind, since, schemaFilter)
	})
}

func (r *RetryingReader) ReadDependencies(ctx context.Context, ref schema.Ref) ([]schema.Ref, error) {
	return retry(ctx, r, func() ([]schema.Ref, error) {
		return r.Reader.ReadDependencies(ctx, ref)
	})
}

func (r *RetryingReader) ReadMaxModificationTime(ctx context.Context) (time.Time, error) {
	return retry(ctx, r, func() (time.Time, error) {
		return r.Reader.ReadMaxModificationTime(ctx)
	})
}

func (r *RetryingReader) ReadProcedureDefinition(ctx context.Context, ref schema.Ref) (ProcedureDefinition, error) {
	return retry(ctx, r, func() (ProcedureDefinition, error) {
		return r.Reader.ReadProcedureDefinition(ctx, ref)
	})
}

func (r *RetryingReader) ReadTableColumns(ctx context.Context, schemaName, table string) ([]schema.Column, error) {
	return retry(ctx, r, func() ([]schema.Column, error) {
		return r.Reader.ReadTableColumns(ctx, schemaName, table)
	})
}

func (r *RetryingReader) ReadFunctionMetadata(ctx context.Context, ref schema.Ref) (*schema.Function, error) {
	return retry(ctx, r, func() (*schema.Function, error) {
		return r.Reader.ReadFunctionMetadata(ctx, ref)
	})
}

func (r *RetryingReader) ReadUserDefinedTypes(ctx context.Context) ([]UDTRow, error) {
	return retry(ctx, r, func() ([]UDTRow, error) {
		return r.Reader.ReadUserDefinedTypes(ctx)
	})
}

var _ Reader = (*RetryingReader)(nil)
var _ Reader = (*Fake)(nil)
