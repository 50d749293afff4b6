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
	"strings"
)

// maxEntrySize bounds each extracted file against decompression bombs.
const maxEntrySize = 10 << 30

// ErrNoDatabase is returned when an archive carries no DatabaseEntry.
var ErrNoDatabase = errors.New("invalid backup: archive does not contain " + DatabaseEntry)

// Restore extracts archivePath into targetDir and returns its manifest, or
// nil for archives written without one. Existing files are kept unless
// force is set.
func Restore(ctx context.Context, archivePath, targetDir string, force bool) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompressing archive: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	var (
		manifest *Manifest
		foundDB  bool
		tr       = tar.NewReader(gr)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		// ErrInsecurePath comes with a valid header; validateTarEntry decides.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return nil, fmt.Errorf("reading archive entry: %w", err)
		}
		if err := validateTarEntry(hdr.Name, targetDir); err != nil {
			return nil, err
		}

		name := filepath.Clean(hdr.Name)
		if name == ManifestEntry {
			manifest = &Manifest{}
			if err := json.NewDecoder(io.LimitReader(tr, 1<<20)).Decode(manifest); err != nil {
				return nil, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}
		if name == DatabaseEntry {
			foundDB = true
		}

		dest := filepath.Join(targetDir, name) //nolint:gosec // G305: checked by validateTarEntry
		if !force {
			if _, err := os.Stat(dest); err == nil {
				return nil, fmt.Errorf("file already exists (use -force to overwrite): %s", dest)
			}
		}
		if err := extractFile(tr, dest, hdr); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
	}

	if !foundDB {
		return nil, ErrNoDatabase
	}
	return manifest, nil
}

// validateTarEntry rejects entry names that would land outside targetDir.
func validateTarEntry(name, targetDir string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("path traversal detected: absolute path %q", name)
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q", name)
	}

	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving target directory: %w", err)
	}
	absDest, err := filepath.Abs(filepath.Join(targetDir, cleaned))
	if err != nil {
		return fmt.Errorf("resolving destination path: %w", err)
	}
	if absDest != absTarget && !strings.HasPrefix(absDest, absTarget+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q resolves outside target", name)
	}
	return nil
}

// extractFile writes one entry. Only directories and regular files are
// restored; links and devices are skipped.
func extractFile(tr *tar.Reader, dest string, hdr *tar.Header) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, 0o755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, io.LimitReader(tr, maxEntrySize)); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	default:
		return nil
	}
}
