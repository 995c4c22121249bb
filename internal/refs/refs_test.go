// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"bytes"
	"strings"
	"testing"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare DOI", "10.1016/j.lancet.2023.01.001", "10.1016/j.lancet.2023.01.001"},
		{"https resolver prefix", "https://doi.org/10.1001/jama.2020.12345", "10.1001/jama.2020.12345"},
		{"http dx prefix", "http://dx.doi.org/10.1001/jama.2020.12345", "10.1001/jama.2020.12345"},
		{"doi colon prefix", "doi:10.1038/s41586-021-03491-6", "10.1038/s41586-021-03491-6"},
		{"uppercase prefix", "DOI:10.1038/s41586-021-03491-6", "10.1038/s41586-021-03491-6"},
		{"surrounding whitespace", "  10.1002/abc.123  ", "10.1002/abc.123"},
		{"not a DOI", "PMC8675309", ""},
		{"registrant too short", "10.99/x", ""},
		{"empty", "", ""},
		{"internal whitespace", "10.1016/j lancet", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDOI(tt.input); got != tt.want {
				t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := `DOI,PMID,Title,Journal
https://doi.org/10.1001/jama.2020.1,12345678,First Article,JAMA
,23456789,Second Article,Lancet
10.1016/j.cell.2021.2,,,
`
	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	if records[0].Row != 1 || records[0].DOI != "10.1001/jama.2020.1" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[0].PMID != "12345678" || records[0].Title != "First Article" {
		t.Errorf("record 0 identifiers = %+v", records[0])
	}
	if records[0].Raw["journal"] != "JAMA" {
		t.Errorf("extra column not preserved: %v", records[0].Raw)
	}

	if records[1].DOI != "" || records[1].PMID != "23456789" {
		t.Errorf("record 1 = %+v", records[1])
	}
	if records[2].Row != 3 || records[2].DOI != "10.1016/j.cell.2021.2" {
		t.Errorf("record 2 = %+v", records[2])
	}
}

func TestReadCSVNoDOIColumn(t *testing.T) {
	input := "Name,Year\nSomething,2021\n"
	if _, err := ReadCSV(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for header without DOI column")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	input := "doi,pmid,title\n10.1001/x.1,111,Alpha\n10.1001/x.2,,Beta\n"
	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	again, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-reading written CSV: %v", err)
	}
	if len(again) != len(records) {
		t.Fatalf("got %d records after round trip, want %d", len(again), len(records))
	}
	for i := range records {
		if again[i].DOI != records[i].DOI || again[i].PMID != records[i].PMID || again[i].Title != records[i].Title {
			t.Errorf("record %d changed: %+v vs %+v", i, again[i], records[i])
		}
	}
}

func TestReadRIS(t *testing.T) {
	input := `TY  - JOUR
TI  - A Study of Things
DO  - https://doi.org/10.1001/jama.2020.99
AN  - 31234567
AU  - Smith, J.
ER  -
TY  - JOUR
T1  - Title Only Entry
ER  -
`
	records, err := ReadRIS(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRIS: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Row != 1 || first.DOI != "10.1001/jama.2020.99" {
		t.Errorf("DOI not normalized from resolver URL: %+v", first)
	}
	if first.PMID != "31234567" {
		t.Errorf("accession number not mapped to PMID: %+v", first)
	}
	if first.Title != "A Study of Things" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Raw["au"] != "Smith, J." {
		t.Errorf("unknown tag not preserved: %v", first.Raw)
	}

	if records[1].Title != "Title Only Entry" || records[1].DOI != "" {
		t.Errorf("record 1 = %+v", records[1])
	}
}

func TestReadRISUnterminatedRecord(t *testing.T) {
	input := "TY  - JOUR\nTI  - Dangling Entry\nDO  - 10.1001/x.5\n"
	records, err := ReadRIS(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRIS: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (trailing record without ER marker)", len(records))
	}
	if records[0].DOI != "10.1001/x.5" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestReadRISStrayTerminators(t *testing.T) {
	// A terminator before any tagged field and a doubled terminator after a
	// record close nothing; neither may produce an empty record.
	input := "ER  - \nTY  - JOUR\nTI  - Real Entry\nDO  - 10.1001/x.7\nER  - \nER  - \n"
	records, err := ReadRIS(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRIS: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Row != 1 || records[0].DOI != "10.1001/x.7" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestReadRISNonPMIDAccession(t *testing.T) {
	input := "TY  - JOUR\nTI  - Entry\nAN  - WOS:000123\nER  - \n"
	records, err := ReadRIS(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRIS: %v", err)
	}
	if records[0].PMID != "" {
		t.Errorf("non-numeric accession mapped to PMID: %+v", records[0])
	}
	if records[0].Raw["an"] != "WOS:000123" {
		t.Errorf("accession not preserved in raw fields: %v", records[0].Raw)
	}
}
