// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		rec  types.Record
		want string
	}{
		{"DOI separators flattened", types.Record{DOI: "10.1001/jama.2020.1"}, "10.1001-jama.2020.1"},
		{"PMID prefixed", types.Record{PMID: "12345678"}, "pmid-12345678"},
		{"title reduced to words", types.Record{Title: "A Study: of (Important) Things!"}, "a-study-of-important-things"},
		{"title capped at eight words", types.Record{Title: "one two three four five six seven eight nine ten"}, "one-two-three-four-five-six-seven-eight"},
		{"DOI wins over title", types.Record{DOI: "10.1/x.y", Title: "Ignored"}, "10.1-x.y"},
		{"empty title", types.Record{Title: "???"}, "untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.rec); got != tt.want {
				t.Errorf("Slug(%+v) = %q, want %q", tt.rec, got, tt.want)
			}
		})
	}
}

func TestGateCheck(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 100}
	rec := types.Record{DOI: "10.1001/jama.2020.1"}

	// Empty store: miss.
	_, hit, err := g.Check(rec)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if hit {
		t.Fatal("hit on empty store")
	}

	// Valid artifact: hit.
	path := g.Path(rec)
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 200), 0o644); err != nil {
		t.Fatal(err)
	}
	gotPath, hit, err := g.Check(rec)
	if err != nil || !hit {
		t.Fatalf("Check after write: hit=%v err=%v", hit, err)
	}
	if gotPath != path {
		t.Errorf("path = %q, want %q", gotPath, path)
	}
}

func TestGateCheckDeletesUndersized(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 100}
	rec := types.Record{DOI: "10.1001/jama.2020.1"}

	path := g.Path(rec)
	if err := os.WriteFile(path, []byte("error page"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, hit, err := g.Check(rec)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if hit {
		t.Fatal("undersized file reported as hit")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("undersized placeholder not deleted")
	}
}

func TestGateWrite(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 10}
	rec := types.Record{DOI: "10.1001/jama.2020.1"}

	path, err := g.Write(rec, strings.NewReader("this is well over ten bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "this is well over ten bytes" {
		t.Errorf("content = %q", data)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".fetch-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestGateWriteUndersized(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 100}
	rec := types.Record{DOI: "10.1001/jama.2020.1"}

	_, err := g.Write(rec, strings.NewReader("tiny"))
	if !errors.Is(err, ErrUndersized) {
		t.Fatalf("err = %v, want ErrUndersized", err)
	}
	if _, statErr := os.Stat(g.Path(rec)); !os.IsNotExist(statErr) {
		t.Error("undersized write left a file at the artifact path")
	}
}

func TestGateAdopt(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 10}
	rec := types.Record{PMID: "12345678"}

	src := filepath.Join(t.TempDir(), "download.pdf")
	if err := os.WriteFile(src, bytes.Repeat([]byte("p"), 50), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := g.Adopt(rec, src)
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if path != g.Path(rec) {
		t.Errorf("path = %q, want %q", path, g.Path(rec))
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file still present after adopt")
	}
}

func TestGateAdoptUndersized(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir, MinBytes: 100}
	rec := types.Record{PMID: "12345678"}

	src := filepath.Join(t.TempDir(), "download.pdf")
	if err := os.WriteFile(src, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Adopt(rec, src); !errors.Is(err, ErrUndersized) {
		t.Fatalf("err = %v, want ErrUndersized", err)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := Gate{Dir: dir}
	rec := types.Record{DOI: "10.1001/jama.2020.1", Title: "A Study"}

	err := g.WriteSidecar(rec, Sidecar{
		Source:    types.SourceOpenAccess,
		SourceURL: "https://repo.example.org/paper.pdf",
		License:   "cc-by",
	})
	if err != nil {
		t.Fatalf("WriteSidecar: %v", err)
	}

	sc, err := g.ReadSidecar(rec)
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}
	if sc == nil {
		t.Fatal("sidecar not found after write")
	}
	if sc.DOI != rec.DOI || sc.Title != rec.Title {
		t.Errorf("record fields not stamped: %+v", sc)
	}
	if sc.Source != types.SourceOpenAccess || sc.License != "cc-by" {
		t.Errorf("sidecar = %+v", sc)
	}
	if sc.RetrievedAt.IsZero() {
		t.Error("RetrievedAt not defaulted")
	}
}

func TestReadSidecarMissing(t *testing.T) {
	g := Gate{Dir: t.TempDir()}
	sc, err := g.ReadSidecar(types.Record{DOI: "10.1/none"})
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}
	if sc != nil {
		t.Errorf("sc = %+v, want nil for missing sidecar", sc)
	}
}
