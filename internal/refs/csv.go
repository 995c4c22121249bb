// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// column name candidates, matched case-insensitively against the header row.
var (
	doiColumns   = []string{"doi"}
	pmidColumns  = []string{"pmid", "pubmed_id", "pubmed id"}
	titleColumns = []string{"title", "article title", "article_title"}
)

// ReadCSV reads tabular reference records. The header row must contain a
// DOI-bearing column; PMID and title columns are optional. Unrecognized
// columns are preserved in Record.Raw. Row numbers are 1-based and count
// data rows only.
func ReadCSV(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	doiIdx := findColumn(header, doiColumns)
	pmidIdx := findColumn(header, pmidColumns)
	titleIdx := findColumn(header, titleColumns)
	if doiIdx < 0 {
		return nil, fmt.Errorf("no DOI column found in header %v", header)
	}

	var records []types.Record
	row := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", row+1, err)
		}
		row++

		rec := types.Record{Row: row}
		if doiIdx < len(fields) {
			rec.DOI = NormalizeDOI(fields[doiIdx])
		}
		if pmidIdx >= 0 && pmidIdx < len(fields) {
			rec.PMID = strings.TrimSpace(fields[pmidIdx])
		}
		if titleIdx >= 0 && titleIdx < len(fields) {
			rec.Title = strings.TrimSpace(fields[titleIdx])
		}
		for i, v := range fields {
			if i == doiIdx || i == pmidIdx || i == titleIdx || strings.TrimSpace(v) == "" {
				continue
			}
			if rec.Raw == nil {
				rec.Raw = make(map[string]string)
			}
			rec.Raw[strings.ToLower(header[i])] = strings.TrimSpace(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSV writes records in the tabular form accepted by ReadCSV, so RIS
// input converted once can feed later passes directly.
func WriteCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "doi", "pmid", "title"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{fmt.Sprintf("%d", rec.Row), rec.DOI, rec.PMID, rec.Title}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", rec.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile reads records from path, dispatching on the file extension:
// .ris is parsed as RIS, anything else as CSV.
func ReadFile(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".ris") {
		return ReadRIS(f)
	}
	return ReadCSV(f)
}

// findColumn returns the index of the first header matching any candidate
// name (case-insensitive), or -1.
func findColumn(header, candidates []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, c := range candidates {
			if h == c {
				return i
			}
		}
	}
	return -1
}
