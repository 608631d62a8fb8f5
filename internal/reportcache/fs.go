package reportcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mintfigures/internal/period"
	"mintfigures/lib/jsonutil"
)

// FS keeps one file per report under <root>/<series>/, laid out by period:
// 2020-06-19 -> 2020/6/19.json, 2017-W07 -> 2017/W07.html, 2017 -> 2017.json.
type FS struct {
	root string
}

func NewFS(root string) FS {
	return FS{root: root}
}

func periodPath(p period.Period) string {
	switch p.Kind {
	case period.KindDate:
		return filepath.Join(fmt.Sprint(p.Year), fmt.Sprint(p.Month), fmt.Sprint(p.Day))
	case period.KindWeek:
		return filepath.Join(fmt.Sprint(p.Year), fmt.Sprintf("W%02d", p.Week))
	default:
		return fmt.Sprint(p.Year)
	}
}

func (c FS) path(series string, p period.Period, format Format) (string, error) {
	if series == "" || strings.Contains(series, "..") || filepath.IsAbs(series) {
		return "", fmt.Errorf("invalid series %q", series)
	}
	return filepath.Join(c.root, filepath.FromSlash(series), periodPath(p)+"."+string(format)), nil
}

func (c FS) find(series string, p period.Period) (string, Format, error) {
	for _, format := range []Format{FormatJSON, FormatHTML} {
		path, err := c.path(series, p, format)
		if err != nil {
			return "", "", err
		}
		_, err = os.Stat(path)
		if err == nil {
			return path, format, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", err
		}
	}
	return "", "", ErrNotFound
}

func (c FS) Exists(_ context.Context, series string, p period.Period) (bool, error) {
	_, _, err := c.find(series, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c FS) Read(_ context.Context, series string, p period.Period) (Payload, error) {
	path, format, err := c.find(series, p)
	if err != nil {
		return Payload{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read cached report: %w", err)
	}
	return Payload{Format: format, Body: body}, nil
}

func (c FS) Write(_ context.Context, series string, p period.Period, payload Payload) error {
	err := validate(payload)
	if err != nil {
		return err
	}
	path, err := c.path(series, p, payload.Format)
	if err != nil {
		return err
	}
	err = jsonutil.WriteFileAtomic(path, payload.Body)
	if err != nil {
		return fmt.Errorf("write cached report: %w", err)
	}

	// a period only ever has one payload
	for _, other := range []Format{FormatJSON, FormatHTML} {
		if other == payload.Format {
			continue
		}
		stale, err := c.path(series, p, other)
		if err != nil {
			return err
		}
		err = os.Remove(stale)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FetchedAt is the modification time of the report's file.
func (c FS) FetchedAt(_ context.Context, series string, p period.Period) (time.Time, error) {
	path, _, err := c.find(series, p)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (FS) Close() error {
	return nil
}
