package reportcache

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"mintfigures/internal/components/chrono"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects and configures a cache backend.
type Config struct {
	// Driver is one of "fs" (default), "sqlite" or "libsql".
	Driver string `json:"driver"`
	// Dir is the root of the fs backend.
	Dir string `json:"dir"`
	// File is the database file of the sqlite backend, or of the libsql backend
	// when Url is empty.
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func Open(ctx context.Context, config Config, time chrono.TimeAPI) (Cache, error) {
	switch config.Driver {
	case "", "fs":
		if config.Dir == "" {
			return nil, fmt.Errorf("cache: a directory was not specified")
		}
		return NewFS(config.Dir), nil
	case "sqlite", "libsql":
		db, err := openDB(config)
		if err != nil {
			return nil, fmt.Errorf("cache: open db: %w", err)
		}
		cache, err := NewSQL(ctx, db, time)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: %w", err)
		}
		return cache, nil
	}
	return nil, fmt.Errorf("cache: unknown driver %q", config.Driver)
}

func openDB(config Config) (*sql.DB, error) {
	if config.Driver == "libsql" && config.Url != "" {
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		return sql.Open("libsql", config.Url+"?"+values.Encode())
	}

	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0755)
		if err != nil {
			return nil, err
		}
	}

	if config.Driver == "libsql" {
		return sql.Open("libsql", fmt.Sprintf("file:%s", config.File))
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
