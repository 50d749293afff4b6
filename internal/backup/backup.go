// Package backup snapshots the cycleinsight database and config into a
// gzipped tar archive and restores such archives.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/HerbHall/cycleinsight/internal/store"
	"github.com/HerbHall/cycleinsight/internal/version"
)

// Archive entry names. Restore expects the database under DatabaseEntry.
const (
	DatabaseEntry = "cycleinsight.db"
	ConfigEntry   = "cycleinsight.yaml"
	ManifestEntry = "manifest.json"
)

// Manifest describes an archive. It is written first so Restore can report
// what it restored.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	HasConfig bool      `json:"has_config"`
}

// Create writes a backup of the database at dbPath, plus configPath when it
// is non-empty, to archivePath. The database is copied with VACUUM INTO so a
// running server can keep writing while the snapshot is taken.
func Create(ctx context.Context, dbPath, configPath, archivePath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database file not found: %s", dbPath)
		}
		return nil, fmt.Errorf("stat database: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "cycleinsight-backup-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, DatabaseEntry)
	if err := snapshotDB(ctx, dbPath, snapshot); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		HasConfig: configPath != "",
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	if err := writeArchive(out, m, snapshot, configPath); err != nil {
		out.Close()
		os.Remove(archivePath)
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return m, nil
}

func snapshotDB(ctx context.Context, dbPath, dest string) error {
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.DB().ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("snapshotting database: %w", err)
	}
	return nil
}

func writeArchive(w io.Writer, m *Manifest, snapshot, configPath string) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeEntry(tw, ManifestEntry, manifest, m.CreatedAt); err != nil {
		return err
	}
	if err := copyFile(tw, DatabaseEntry, snapshot, m.CreatedAt); err != nil {
		return err
	}
	if configPath != "" {
		if err := copyFile(tw, ConfigEntry, configPath, m.CreatedAt); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("finishing gzip: %w", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o600,
		Size:     int64(len(data)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func copyFile(tw *tar.Writer, name, path string, modTime time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o600,
		Size:     info.Size(),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
