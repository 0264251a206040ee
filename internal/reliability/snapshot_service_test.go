package reliability

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/database"
)

func newSnapshotFixture(t *testing.T, keep int) (*SnapshotService, string) {
	t.Helper()
	dataDir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "state.db"),
		Profile: database.ProfileStandard,
		Name:    "state",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec(`CREATE TABLE t (v INTEGER); INSERT INTO t VALUES (42)`)
	require.NoError(t, err)

	backupDir := filepath.Join(dataDir, "backups")
	svc := NewSnapshotService(map[string]*database.DB{"state": db}, backupDir, keep, zerolog.Nop())
	return svc, backupDir
}

func archiveNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestSnapshotProducesVerifiableArchive(t *testing.T) {
	svc, _ := newSnapshotFixture(t, 5)

	path, err := svc.Snapshot()
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = data
	}

	require.Contains(t, contents, "state.db")
	require.Contains(t, contents, "metadata.json")

	var meta snapshotMeta
	require.NoError(t, json.Unmarshal(contents["metadata.json"], &meta))
	assert.Contains(t, meta.Checksums, "state.db")
	assert.Len(t, meta.Checksums["state.db"], 64)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestSnapshotRetentionPrunesOldArchives(t *testing.T) {
	svc, backupDir := newSnapshotFixture(t, 2)

	// Distinct archive names need distinct second-resolution timestamps,
	// so create fakes that sort before any real snapshot.
	require.NoError(t, os.MkdirAll(backupDir, 0755))
	for _, name := range []string{
		"snapshot_2025-01-01_000000.tar.gz",
		"snapshot_2025-01-02_000000.tar.gz",
		"snapshot_2025-01-03_000000.tar.gz",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("old"), 0644))
	}

	_, err := svc.Snapshot()
	require.NoError(t, err)

	names := archiveNames(t, backupDir)
	assert.Len(t, names, 2)
	assert.NotContains(t, names, "snapshot_2025-01-01_000000.tar.gz")
	assert.NotContains(t, names, "snapshot_2025-01-02_000000.tar.gz")
}
