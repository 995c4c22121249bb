// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// Sidecar records where and when an artifact was retrieved. It lives next
// to the artifact under metadata/[slug].yaml and is informational only:
// cache decisions use the artifact file itself.
type Sidecar struct {
	DOI         string                `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID        string                `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	Title       string                `json:"title,omitempty" yaml:"title,omitempty"`
	Source      types.RetrievalSource `json:"source" yaml:"source"`
	SourceURL   string                `json:"source_url" yaml:"source_url"`
	License     string                `json:"license,omitempty" yaml:"license,omitempty"`
	RetrievedAt time.Time             `json:"retrieved_at" yaml:"retrieved_at"`
}

// WriteSidecar writes the sidecar record for rec's artifact.
func (g Gate) WriteSidecar(rec types.Record, sc Sidecar) error {
	sc.DOI = rec.DOI
	sc.PMID = rec.PMID
	sc.Title = rec.Title
	if sc.RetrievedAt.IsZero() {
		sc.RetrievedAt = time.Now().UTC()
	}

	dir := filepath.Join(g.Dir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	data, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("marshaling sidecar: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, Slug(rec)+".yaml"), data, 0o644)
}

// ReadSidecar loads the sidecar record for rec, or nil when none exists.
func (g Gate) ReadSidecar(rec types.Record) (*Sidecar, error) {
	return ReadSidecarFile(filepath.Join(g.Dir, metadataDir, Slug(rec)+".yaml"))
}

// ReadSidecarFile loads a sidecar from path, or nil when none exists.
func ReadSidecarFile(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}
	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	return &sc, nil
}
