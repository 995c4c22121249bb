// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// RIS tags the reader understands. Everything else lands in Record.Raw.
const (
	tagType      = "TY"
	tagDOI       = "DO"
	tagTitle     = "TI"
	tagTitleAlt  = "T1"
	tagAccession = "AN"
	tagEnd       = "ER"
)

// ReadRIS parses RIS tag–value records ("XX  - value" lines terminated by
// an "ER  - " marker) into the engine's normalized record form. DOI values
// are stripped of resolver URL prefixes. A trailing record without an end
// marker is kept if it carries any field.
func ReadRIS(r io.Reader) ([]types.Record, error) {
	var records []types.Record
	cur := types.Record{}
	open := false

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		tag, value, ok := splitRISLine(sc.Text())
		if !ok {
			continue
		}

		switch tag {
		case tagType:
			open = true
		case tagEnd:
			// A stray terminator (doubled, or before any tagged field) closes
			// nothing; only an open record is appended.
			if open {
				cur.Row = len(records) + 1
				records = append(records, cur)
			}
			cur = types.Record{}
			open = false
		case tagDOI:
			open = true
			if doi := NormalizeDOI(value); doi != "" {
				cur.DOI = doi
			} else {
				addRaw(&cur, "do", value)
			}
		case tagTitle, tagTitleAlt:
			open = true
			if cur.Title == "" {
				cur.Title = value
			}
		case tagAccession:
			open = true
			// PubMed exports carry the PMID in the accession number tag.
			if pmid := strings.TrimSpace(value); isDigits(pmid) {
				cur.PMID = pmid
			} else {
				addRaw(&cur, "an", value)
			}
		default:
			open = true
			addRaw(&cur, strings.ToLower(tag), value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading RIS input at line %d: %w", line, err)
	}

	if open && (cur.DOI != "" || cur.PMID != "" || cur.Title != "" || len(cur.Raw) > 0) {
		cur.Row = len(records) + 1
		records = append(records, cur)
	}
	return records, nil
}

// splitRISLine parses "XX  - value" into tag and value. Lines that do not
// match the tag shape (continuation lines, blanks) report ok=false.
func splitRISLine(line string) (tag, value string, ok bool) {
	if len(line) < 2 {
		return "", "", false
	}
	tag = line[:2]
	if !isTag(tag) {
		return "", "", false
	}
	rest := line[2:]
	trimmed := strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(trimmed, "-") {
		return "", "", false
	}
	value = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
	return tag, value, true
}

func isTag(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func addRaw(rec *types.Record, key, value string) {
	if value == "" {
		return
	}
	if rec.Raw == nil {
		rec.Raw = make(map[string]string)
	}
	// First occurrence wins; RIS repeats tags like AU freely.
	if _, exists := rec.Raw[key]; !exists {
		rec.Raw[key] = value
	}
}
