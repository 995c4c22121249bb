// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes batch outcome reports. The failure report keeps
// the reference columns intact so it can be fed straight back into another
// run as the input list for a retry pass.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/fulltext-engine/internal/retrieve"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// WriteSuccesses writes one row per retrieved artifact, cached hits
// included.
func WriteSuccesses(path string, outcomes []retrieve.Outcome) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"row", "doi", "pmid", "title", "status", "source", "path"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, o := range outcomes {
		if !o.Result.OK() {
			continue
		}
		rec := []string{
			fmt.Sprintf("%d", o.Record.Row),
			o.Record.DOI,
			o.Record.PMID,
			o.Record.Title,
			string(o.Result.Status),
			string(o.Result.Source),
			o.Result.Path,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing success row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteFailures writes one row per failed record. The leading columns
// mirror the input reference format; the failure reason and the last
// reached URL follow for manual triage.
func WriteFailures(path string, outcomes []retrieve.Outcome) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"row", "doi", "pmid", "title", "reason", "diagnostic_url"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, o := range outcomes {
		if o.Result.Status != types.StatusFailure {
			continue
		}
		rec := []string{
			fmt.Sprintf("%d", o.Record.Row),
			o.Record.DOI,
			o.Record.PMID,
			o.Record.Title,
			o.Result.Reason,
			o.Result.DiagnosticURL,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing failure row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating report %s: %w", path, err)
	}
	return f, nil
}
