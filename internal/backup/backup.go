// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup takes consistent copies of the bot's SQLite database and
// prunes old copies.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// dateLayout names backup files, one per day: 2006-01-02.db.
const dateLayout = "2006-01-02"

// ErrSourceMissing is returned when the database to back up does not exist.
var ErrSourceMissing = errors.New("database file not found")

// ErrCorrupt is returned when an integrity check does not report "ok".
var ErrCorrupt = errors.New("integrity check failed")

// verifyCopy checks a freshly written copy. Replaced in tests.
var verifyCopy = checkIntegrity

// Options controls a backup run.
type Options struct {
	Source   string           // database file to copy
	Dir      string           // directory holding dated copies
	KeepDays int              // copies older than this many days are removed
	Now      func() time.Time // defaults to time.Now
}

// Result describes what a backup run did.
type Result struct {
	Path    string   // the copy written by this run
	Removed []string // old copies deleted, sorted
}

// Run copies opts.Source into opts.Dir/<today>.db with VACUUM INTO,
// verifies both the source and the copy, then removes expired copies.
// An existing copy for the same day is replaced.
func Run(ctx context.Context, opts Options) (*Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if _, err := os.Stat(opts.Source); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, opts.Source)
		}
		return nil, fmt.Errorf("checking %s: %w", opts.Source, err)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	today := now()
	path := filepath.Join(opts.Dir, today.Format(dateLayout)+".db")

	if err := vacuumInto(ctx, opts.Source, path); err != nil {
		return nil, err
	}

	if err := verifyCopy(ctx, path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backup %s: %w", path, err)
	}

	removed, err := Prune(opts.Dir, opts.KeepDays, today)
	return &Result{Path: path, Removed: removed}, err
}

// Prune deletes *.db files in dir whose YYYY-MM-DD date falls before
// now minus keepDays. The date is midnight, so the copy from exactly
// keepDays ago is removed once now is past midnight. Files with other names
// are left alone.
func Prune(dir string, keepDays int, now time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	cutoff := now.AddDate(0, 0, -keepDays)
	var removed []string
	for _, m := range matches {
		stem := strings.TrimSuffix(filepath.Base(m), ".db")
		day, err := time.ParseInLocation(dateLayout, stem, now.Location())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, fmt.Errorf("removing %s: %w", m, err)
		}
		removed = append(removed, m)
	}
	sort.Strings(removed)
	return removed, nil
}

func vacuumInto(ctx context.Context, src, dst string) error {
	db, err := open(src)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := integrity(ctx, db); err != nil {
		return fmt.Errorf("source %s: %w", src, err)
	}

	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing %s: %w", dst, err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return integrity(ctx, db)
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func integrity(ctx context.Context, db *sql.DB) error {
	var verdict string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&verdict); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if verdict != "ok" {
		return fmt.Errorf("%w: %s", ErrCorrupt, verdict)
	}
	return nil
}
