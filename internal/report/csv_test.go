// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/fulltext-engine/internal/refs"
	"github.com/pdiddy/fulltext-engine/internal/retrieve"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

func sampleOutcomes() []retrieve.Outcome {
	return []retrieve.Outcome{
		{
			Record: types.Record{Row: 1, DOI: "10.1001/jama.2020.1", Title: "Fetched One"},
			Result: types.Success("/artifacts/10.1001-jama.2020.1.pdf", types.SourceOpenAccess, "https://repo.example.org/x.pdf"),
		},
		{
			Record: types.Record{Row: 2, PMID: "12345678", Title: "Cached One"},
			Result: types.Cached("/artifacts/pmid-12345678.pdf"),
		},
		{
			Record: types.Record{Row: 3, DOI: "10.1001/jama.2020.3", Title: "Failed One"},
			Result: types.Failure("no PDF link found", "https://publisher.example.com/article/3"),
		},
	}
}

func TestWriteSuccesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "success.csv")
	if err := WriteSuccesses(path, sampleOutcomes()); err != nil {
		t.Fatalf("WriteSuccesses: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "10.1001/jama.2020.1") || !strings.Contains(text, "open-access") {
		t.Errorf("success report:\n%s", text)
	}
	if !strings.Contains(text, "pmid-12345678") && !strings.Contains(text, "12345678") {
		t.Errorf("cached record missing from success report:\n%s", text)
	}
	if strings.Contains(text, "Failed One") {
		t.Errorf("failure leaked into success report:\n%s", text)
	}
}

func TestWriteFailuresRoundTripsAsInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.csv")
	if err := WriteFailures(path, sampleOutcomes()); err != nil {
		t.Fatalf("WriteFailures: %v", err)
	}

	// The failure report doubles as the input list for a retry pass.
	records, err := refs.ReadFile(path)
	if err != nil {
		t.Fatalf("re-reading failure report: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.DOI != "10.1001/jama.2020.3" || rec.Title != "Failed One" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Raw["reason"] != "no PDF link found" {
		t.Errorf("reason not preserved: %v", rec.Raw)
	}
	if rec.Raw["diagnostic_url"] != "https://publisher.example.com/article/3" {
		t.Errorf("diagnostic URL not preserved: %v", rec.Raw)
	}
}
