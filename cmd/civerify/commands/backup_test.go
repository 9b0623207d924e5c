package commands

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/civerify/cmd/civerify/internal/clierr"

	_ "modernc.org/sqlite"
)

func TestBackupCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	src := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite", "file:"+src)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE reminders(id INTEGER PRIMARY KEY, text TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	backups := filepath.Join(dir, "backups")
	t.Setenv("DB_PATH", src)
	t.Setenv("BACKUP_DIR", backups)
	t.Setenv("BACKUP_DAYS", "3")

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"backup"})
	require.NoError(t, cmd.Execute())

	want := filepath.Join(backups, time.Now().Format("2006-01-02")+".db")
	assert.Contains(t, out.String(), "Backup created: "+want)
	assert.FileExists(t, want)
}

func TestBackupCommand_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("DB_PATH", filepath.Join(dir, "missing.db"))
	t.Setenv("BACKUP_DIR", filepath.Join(dir, "backups"))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"backup"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, clierr.ExitFailure, clierr.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "backup failed")
}
