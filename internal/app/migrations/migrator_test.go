package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_later.sql", "001_status_audit.sql", "notes.txt", "002_index.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700))

	files, err := PendingFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "001_status_audit.sql"),
		filepath.Join(dir, "002_index.sql"),
		filepath.Join(dir, "010_later.sql"),
	}, files)
}

func TestPendingFilesMissingDir(t *testing.T) {
	_, err := PendingFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestVersionOf(t *testing.T) {
	assert.Equal(t, "001", versionOf("/x/001_status_audit.sql"))
	assert.Equal(t, "007", versionOf("007_a_b_c.sql"))
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := PendingFiles(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001", versionOf(files[0]))
}
