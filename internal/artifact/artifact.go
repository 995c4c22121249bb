// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact owns the on-disk artifact namespace: deterministic
// filenames derived from record identifiers, the cache gate that
// short-circuits retrieval, and validated temp-file/rename writes.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// metadataDir holds per-artifact YAML sidecar records under the output dir.
const metadataDir = "metadata"

// ErrUndersized marks a written file below the minimum byte threshold.
// Callers treat it as a miss, not a hard failure: small files are almost
// always HTML error pages saved with a .pdf name.
var ErrUndersized = errors.New("artifact below minimum size")

// Slug returns a filesystem-safe filename stem for the record's primary
// identifier. DOIs keep their structure with separators flattened; free-text
// titles are reduced to a bounded word slug.
func Slug(rec types.Record) string {
	id := rec.PrimaryID()
	if rec.DOI != "" || rec.PMID != "" {
		return strings.NewReplacer("/", "-", ":", "-", "\\", "-").Replace(id)
	}
	return titleSlug(id)
}

// titleSlug lowercases, strips non-alphanumerics, and joins the first eight
// words with dashes.
func titleSlug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return "untitled"
	}
	return strings.Join(words, "-")
}

// Gate decides whether a record's artifact already exists on durable
// storage. Existence of a file at or above MinBytes is the source of truth
// for "already retrieved."
type Gate struct {
	Dir      string
	MinBytes int64
}

// Path returns the artifact path for a record under the gate's directory.
func (g Gate) Path(rec types.Record) string {
	return filepath.Join(g.Dir, Slug(rec)+".pdf")
}

// Check reports whether a valid artifact already exists. An existing file
// below the threshold is deleted before returning a miss, so a corrupt
// placeholder cannot poison future runs.
func (g Gate) Check(rec types.Record) (path string, hit bool, err error) {
	path = g.Path(rec)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, false, nil
		}
		return path, false, fmt.Errorf("checking cache for %s: %w", path, err)
	}
	if info.Size() < g.minBytes() {
		if rmErr := os.Remove(path); rmErr != nil {
			return path, false, fmt.Errorf("removing invalid cached file %s: %w", path, rmErr)
		}
		return path, false, nil
	}
	return path, true, nil
}

func (g Gate) minBytes() int64 {
	if g.MinBytes > 0 {
		return g.MinBytes
	}
	return types.DefaultMinBytes
}

// Write streams src to the gate's path for rec via a temporary file,
// validating the size before the rename makes it visible. On ErrUndersized
// nothing is left on disk.
func (g Gate) Write(rec types.Record, src io.Reader) (string, error) {
	destPath := g.Path(rec)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, src)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	if n < g.minBytes() {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %d bytes", ErrUndersized, n)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return destPath, nil
}

// Adopt moves an already-downloaded file (e.g. a browser download) into the
// artifact namespace, applying the same size validation as Write.
func (g Gate) Adopt(rec types.Record, srcPath string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("inspecting download %s: %w", srcPath, err)
	}
	if info.Size() < g.minBytes() {
		os.Remove(srcPath)
		return "", fmt.Errorf("%w: %d bytes", ErrUndersized, info.Size())
	}

	destPath := g.Path(rec)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Rename(srcPath, destPath); err != nil {
		// Cross-device rename fails; fall back to a copy through Write.
		f, openErr := os.Open(srcPath)
		if openErr != nil {
			return "", fmt.Errorf("moving download into store: %w", err)
		}
		defer f.Close()
		defer os.Remove(srcPath)
		return g.Write(rec, f)
	}
	return destPath, nil
}
