package reportcache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"mintfigures/internal/components/assert"
	"mintfigures/internal/components/chrono"
	"mintfigures/internal/period"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("mintfigures/internal/reportcache")

// SQL keeps reports in a single raw_reports table, it works with both the
// sqlite and the libsql drivers.
type SQL struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// NewSQL creates the table if needed.
func NewSQL(ctx context.Context, db *sql.DB, time chrono.TimeAPI) (SQL, error) {
	assert.NotNil(db)
	assert.NotNil(time)

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return SQL{}, fmt.Errorf("create raw_reports: %w", err)
	}
	return SQL{db: db, time: time}, nil
}

func (c SQL) Exists(ctx context.Context, series string, p period.Period) (bool, error) {
	var n int
	err := c.db.QueryRowContext(
		ctx,
		"select count(*) from raw_reports where series = ? and period = ?",
		series, p.Key(),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c SQL) Read(ctx context.Context, series string, p period.Period) (Payload, error) {
	ctx, span := tracer.Start(ctx, "read")
	defer span.End()
	span.SetAttributes(
		attribute.String("series", series),
		attribute.String("period", p.Key()),
	)

	var format string
	var body []byte
	err := c.db.QueryRowContext(
		ctx,
		"select format, body from raw_reports where series = ? and period = ?",
		series, p.Key(),
	).Scan(&format, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Payload{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cached report")
		return Payload{}, err
	}
	return Payload{Format: Format(format), Body: body}, nil
}

func (c SQL) Write(ctx context.Context, series string, p period.Period, payload Payload) error {
	ctx, span := tracer.Start(ctx, "write")
	defer span.End()
	span.SetAttributes(
		attribute.String("series", series),
		attribute.String("period", p.Key()),
		attribute.Int("size", len(payload.Body)),
	)

	err := validate(payload)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(
		ctx,
		`insert into raw_reports (series, period, format, body, fetched_at)
values (?, ?, ?, ?, ?)
on conflict (series, period) do update set
    format = excluded.format,
    body = excluded.body,
    fetched_at = excluded.fetched_at`,
		series, p.Key(), string(payload.Format), payload.Body, c.time.Now().Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write cached report")
		return fmt.Errorf("write cached report: %w", err)
	}
	return nil
}

func (c SQL) FetchedAt(ctx context.Context, series string, p period.Period) (time.Time, error) {
	var fetchedAt int64
	err := c.db.QueryRowContext(
		ctx,
		"select fetched_at from raw_reports where series = ? and period = ?",
		series, p.Key(),
	).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(fetchedAt, 0), nil
}

func (c SQL) Close() error {
	return c.db.Close()
}
