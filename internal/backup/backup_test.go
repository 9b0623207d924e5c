// SPDX-License-Identifier: AGPL-3.0-or-later
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDatabase(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE users(id INTEGER PRIMARY KEY, email TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users(email) VALUES ('a@example.com'), ('b@example.com')`)
	require.NoError(t, err)
}

func countUsers(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
}

func TestRun_CreatesDatedCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	seedDatabase(t, src)
	backups := filepath.Join(dir, "backups")

	res, err := Run(context.Background(), Options{Source: src, Dir: backups, KeepDays: 7, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(backups, "2026-10-19.db"), res.Path)
	assert.Empty(t, res.Removed)
	assert.Equal(t, 2, countUsers(t, res.Path))
}

func TestRun_ReplacesSameDayCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	seedDatabase(t, src)
	backups := filepath.Join(dir, "backups")
	opts := Options{Source: src, Dir: backups, KeepDays: 7, Now: fixedNow}

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, countUsers(t, res.Path))
}

func TestRun_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{Source: filepath.Join(dir, "nope.db"), Dir: dir, KeepDays: 7})
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestRun_CorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	require.NoError(t, os.WriteFile(src, []byte("this is not a sqlite database, just some bytes"), 0o644))
	backups := filepath.Join(dir, "backups")

	res, err := Run(context.Background(), Options{Source: src, Dir: backups, KeepDays: 7, Now: fixedNow})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "source "+src)
	assert.Contains(t, err.Error(), "integrity check")

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_CorruptCopyIsRemoved(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	seedDatabase(t, src)
	backups := filepath.Join(dir, "backups")

	var checked string
	orig := verifyCopy
	verifyCopy = func(_ context.Context, path string) error {
		checked = path
		return fmt.Errorf("%w: *** in database main ***", ErrCorrupt)
	}
	t.Cleanup(func() { verifyCopy = orig })

	res, err := Run(context.Background(), Options{Source: src, Dir: backups, KeepDays: 7, Now: fixedNow})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, res)

	assert.Equal(t, filepath.Join(backups, "2026-10-19.db"), checked)
	assert.NoFileExists(t, checked)
	assert.FileExists(t, src)
}

func TestRun_PrunesExpiredCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	seedDatabase(t, src)
	backups := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))

	for _, name := range []string{"2026-10-01.db", "2026-10-11.db", "2026-10-12.db", "2026-10-13.db", "notes.db", "2026-10-01.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(backups, name), nil, 0o644))
	}

	res, err := Run(context.Background(), Options{Source: src, Dir: backups, KeepDays: 7, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(backups, "2026-10-01.db"),
		filepath.Join(backups, "2026-10-11.db"),
		filepath.Join(backups, "2026-10-12.db"),
	}, res.Removed)
	assert.FileExists(t, filepath.Join(backups, "2026-10-13.db"))
	assert.FileExists(t, filepath.Join(backups, "notes.db"))
	assert.FileExists(t, filepath.Join(backups, "2026-10-01.txt"))
	assert.FileExists(t, res.Path)
}

func TestPrune_EmptyDir(t *testing.T) {
	removed, err := Prune(t.TempDir(), 7, fixedNow())
	require.NoError(t, err)
	assert.Empty(t, removed)
}
