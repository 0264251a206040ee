// Package reliability provides operational safety nets: periodic database
// snapshots with integrity verification and retention pruning.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/database"
)

// SnapshotService produces point-in-time archives of all engine databases.
// Each snapshot is a tar.gz of VACUUM'd copies plus a metadata file with
// per-database checksums.
type SnapshotService struct {
	databases map[string]*database.DB
	dir       string
	keep      int
	log       zerolog.Logger
}

// snapshotMeta is written into each archive next to the database copies.
type snapshotMeta struct {
	CreatedAt time.Time         `json:"created_at"`
	Checksums map[string]string `json:"sha256"`
}

// NewSnapshotService creates a snapshot service keeping the most recent
// keep archives.
func NewSnapshotService(databases map[string]*database.DB, dir string, keep int, log zerolog.Logger) *SnapshotService {
	if keep < 1 {
		keep = 1
	}
	return &SnapshotService{
		databases: databases,
		dir:       dir,
		keep:      keep,
		log:       log.With().Str("service", "snapshots").Logger(),
	}
}

// Snapshot creates one verified archive and prunes old ones. Returns the
// archive path.
func (s *SnapshotService) Snapshot() (string, error) {
	start := time.Now()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	staging, err := os.MkdirTemp(s.dir, "staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	meta := snapshotMeta{
		CreatedAt: start.UTC(),
		Checksums: make(map[string]string, len(s.databases)),
	}

	for name, db := range s.databases {
		copyPath := filepath.Join(staging, name+".db")
		if err := s.copyDatabase(db, copyPath); err != nil {
			return "", fmt.Errorf("snapshot %s: %w", name, err)
		}
		if err := verifyCopy(copyPath); err != nil {
			return "", fmt.Errorf("verify %s: %w", name, err)
		}

		sum, err := checksumFile(copyPath)
		if err != nil {
			return "", fmt.Errorf("checksum %s: %w", name, err)
		}
		meta.Checksums[name+".db"] = sum
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "metadata.json"), metaBytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	archivePath := filepath.Join(s.dir, fmt.Sprintf("snapshot_%s.tar.gz", start.UTC().Format("2006-01-02_150405")))
	if err := packArchive(staging, archivePath); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	if err := s.prune(); err != nil {
		s.log.Error().Err(err).Msg("Failed to prune old snapshots")
	}

	s.log.Info().
		Str("archive", archivePath).
		Dur("duration", time.Since(start)).
		Msg("Snapshot completed")
	return archivePath, nil
}

// copyDatabase uses VACUUM INTO for an atomic copy without WAL files.
func (s *SnapshotService) copyDatabase(db *database.DB, dest string) error {
	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

// verifyCopy runs an integrity check on the vacuumed copy.
func verifyCopy(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open copy: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// packArchive writes every file in dir into a tar.gz at dest.
func packArchive(dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    entry.Name(),
			Mode:    0644,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", entry.Name(), err)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to write %s into archive: %w", entry.Name(), err)
		}
	}

	return nil
}

// prune deletes the oldest archives beyond the retention count.
func (s *SnapshotService) prune() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	var archives []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "snapshot_") && strings.HasSuffix(entry.Name(), ".tar.gz") {
			archives = append(archives, entry.Name())
		}
	}
	if len(archives) <= s.keep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(archives)
	for _, name := range archives[:len(archives)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return err
		}
		s.log.Debug().Str("archive", name).Msg("Old snapshot pruned")
	}
	return nil
}
