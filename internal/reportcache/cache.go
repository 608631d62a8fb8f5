// Package reportcache stores the unmodified payload of every fetched report so a
// period is only ever downloaded once.
package reportcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mintfigures/internal/period"
)

// ErrNotFound is returned by Read for a report that is not cached.
var ErrNotFound = errors.New("report not cached")

type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

func (f Format) valid() bool {
	return f == FormatJSON || f == FormatHTML
}

// Payload is a report exactly as upstream returned it.
type Payload struct {
	Format Format
	Body   []byte
}

// Cache is keyed on (series, period key). Payloads are immutable, except that
// the pipeline may overwrite the payload of a period that is still open.
type Cache interface {
	Exists(ctx context.Context, series string, p period.Period) (bool, error)
	Read(ctx context.Context, series string, p period.Period) (Payload, error)
	Write(ctx context.Context, series string, p period.Period, payload Payload) error
	// FetchedAt is when the cached report was last written, ErrNotFound if it
	// is not cached.
	FetchedAt(ctx context.Context, series string, p period.Period) (time.Time, error)
	Close() error
}

func validate(payload Payload) error {
	if !payload.Format.valid() {
		return fmt.Errorf("unknown payload format %q", payload.Format)
	}
	if len(payload.Body) == 0 {
		return fmt.Errorf("empty payload")
	}
	return nil
}
