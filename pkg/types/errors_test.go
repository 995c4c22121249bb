// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestDiagnosticErrorUnwraps(t *testing.T) {
	inner := fmt.Errorf("%w: no PDF link found", ErrArtifactNotLocatable)
	err := error(&DiagnosticError{Err: inner, URL: "https://publisher.example.com/a"})

	if !errors.Is(err, ErrArtifactNotLocatable) {
		t.Error("sentinel not reachable through DiagnosticError")
	}
	if got := DiagnosticURL(err); got != "https://publisher.example.com/a" {
		t.Errorf("DiagnosticURL = %q", got)
	}
}

func TestDiagnosticURLThroughWrapping(t *testing.T) {
	err := fmt.Errorf("institutional: %w",
		&DiagnosticError{Err: ErrAuthenticationFailed, URL: "https://idp.example.edu/login"})

	if got := DiagnosticURL(err); got != "https://idp.example.edu/login" {
		t.Errorf("DiagnosticURL = %q", got)
	}
}

func TestDiagnosticURLAbsent(t *testing.T) {
	if got := DiagnosticURL(errors.New("plain")); got != "" {
		t.Errorf("DiagnosticURL = %q, want empty", got)
	}
}

func TestRecordPrimaryID(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{DOI: "10.1/x", PMID: "1", Title: "T"}, "10.1/x"},
		{Record{PMID: "12345678", Title: "T"}, "pmid-12345678"},
		{Record{Title: "Only Title"}, "Only Title"},
	}
	for _, tt := range tests {
		if got := tt.rec.PrimaryID(); got != tt.want {
			t.Errorf("PrimaryID(%+v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestRecordActionable(t *testing.T) {
	if (Record{Row: 3}).Actionable() {
		t.Error("empty record reported actionable")
	}
	if !(Record{Title: "t"}).Actionable() {
		t.Error("titled record reported unactionable")
	}
}

func TestResultConstructors(t *testing.T) {
	if r := Cached("/a.pdf"); r.Status != StatusCached || !r.OK() {
		t.Errorf("Cached = %+v", r)
	}
	if r := Success("/a.pdf", SourceInstitutional, "https://x"); r.Status != StatusSuccess || !r.OK() {
		t.Errorf("Success = %+v", r)
	}
	if r := Failure("reason", "https://x"); r.Status != StatusFailure || r.OK() {
		t.Errorf("Failure = %+v", r)
	}
}
