// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*ProgressStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.db")
	store, err := OpenProgress(path)
	if err != nil {
		t.Fatalf("OpenProgress: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestProgressEmptyState(t *testing.T) {
	store, _ := openTestStore(t)

	idx, err := store.LastIndex("crawl-a")
	if err != nil {
		t.Fatalf("LastIndex: %v", err)
	}
	if idx != -1 {
		t.Errorf("idx = %d, want -1 for fresh crawl", idx)
	}

	seen, err := store.Seen("crawl-a", "10.1/x")
	if err != nil || seen {
		t.Errorf("Seen = %v, %v", seen, err)
	}
}

func TestProgressMarkAndRead(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.MarkProcessed("crawl-a", "10.1/x.0", 0, "success"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := store.MarkProcessed("crawl-a", "10.1/x.1", 1, "failure"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	idx, err := store.LastIndex("crawl-a")
	if err != nil {
		t.Fatalf("LastIndex: %v", err)
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}

	for _, id := range []string{"10.1/x.0", "10.1/x.1"} {
		seen, err := store.Seen("crawl-a", id)
		if err != nil || !seen {
			t.Errorf("Seen(%s) = %v, %v", id, seen, err)
		}
	}
	seen, _ := store.Seen("crawl-a", "10.1/x.2")
	if seen {
		t.Error("unprocessed item reported seen")
	}
}

func TestProgressIndexNeverRegresses(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.MarkProcessed("crawl-a", "10.1/x.5", 5, "success"); err != nil {
		t.Fatal(err)
	}
	// A late-arriving duplicate at a lower index must not move the cursor back.
	if err := store.MarkProcessed("crawl-a", "10.1/x.2", 2, "success"); err != nil {
		t.Fatal(err)
	}

	idx, err := store.LastIndex("crawl-a")
	if err != nil {
		t.Fatal(err)
	}
	if idx != 5 {
		t.Errorf("idx = %d, want 5", idx)
	}
}

func TestProgressSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	store, err := OpenProgress(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkProcessed("crawl-a", "10.1/x.3", 3, "success"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	again, err := OpenProgress(path)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	idx, err := again.LastIndex("crawl-a")
	if err != nil {
		t.Fatal(err)
	}
	if idx != 3 {
		t.Errorf("idx = %d after reopen, want 3", idx)
	}
	seen, _ := again.Seen("crawl-a", "10.1/x.3")
	if !seen {
		t.Error("item not seen after reopen")
	}
}

func TestProgressCrawlsAreIsolated(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.MarkProcessed("crawl-a", "10.1/x.0", 0, "success"); err != nil {
		t.Fatal(err)
	}

	idx, _ := store.LastIndex("crawl-b")
	if idx != -1 {
		t.Errorf("crawl-b idx = %d, want -1", idx)
	}
	seen, _ := store.Seen("crawl-b", "10.1/x.0")
	if seen {
		t.Error("crawl-b sees crawl-a's items")
	}
}

func TestProgressReset(t *testing.T) {
	store, _ := openTestStore(t)

	if err := store.MarkProcessed("crawl-a", "10.1/x.0", 0, "success"); err != nil {
		t.Fatal(err)
	}
	if err := store.Reset("crawl-a"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	idx, _ := store.LastIndex("crawl-a")
	if idx != -1 {
		t.Errorf("idx = %d after reset, want -1", idx)
	}
}
