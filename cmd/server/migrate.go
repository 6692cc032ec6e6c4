package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/BariCheck/internal/api"
	dbstore "github.com/soaringjerry/BariCheck/internal/db"
)

// openStore returns the SQLite store when sqlitePath is set, the in-memory
// store otherwise. The returned close func is never nil.
func openStore(sqlitePath, migrationsDir string) (api.Store, func() error, error) {
	noop := func() error { return nil }
	if sqlitePath == "" {
		log.Printf("storage: BARI_SQLITE_PATH not set, submissions are kept in memory")
		return api.NewMemoryStore(), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, noop, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, noop, fmt.Errorf("open sqlite: %w", err)
	}
	closeDB := func() error { return sqliteDB.Close() }

	if err := dbstore.RunMigrations(sqliteDB, migrationsDir); err != nil {
		return nil, noop, errors.Join(fmt.Errorf("run migrations: %w", err), closeDB())
	}
	st, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		return nil, noop, errors.Join(fmt.Errorf("init sqlite store: %w", err), closeDB())
	}
	if counts, err := st.CountByColor(); err != nil {
		log.Printf("storage: count existing submissions: %v", err)
	} else {
		log.Printf("storage: sqlite %s opened (existing submissions by color: %v)", sqlitePath, counts)
	}
	return st, closeDB, nil
}
