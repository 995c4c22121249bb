// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Record is a normalized bibliographic reference: the unit of work for
// full-text retrieval. At least one of DOI, PMID, or Title must be set
// for the record to be actionable.
type Record struct {
	// Row is the 1-based position of the record in its input file,
	// carried through to reports so a retry pass can locate the source line.
	Row int `json:"row" yaml:"row"`

	// DOI is the normalized DOI (no resolver URL prefix, no "doi:" scheme).
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// PMID is the PubMed identifier, when present in the input.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// Title is the reference title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Raw holds any additional identifier fields found in the input,
	// keyed by the source column or tag name.
	Raw map[string]string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Actionable reports whether the record carries at least one identifier
// usable for retrieval. Records failing this check are marked unretrievable
// at intake and never reach a strategy.
func (r Record) Actionable() bool {
	return r.DOI != "" || r.PMID != "" || r.Title != ""
}

// PrimaryID returns the strongest identifier available: DOI, then PMID,
// then title. It is the basis for the artifact filename.
func (r Record) PrimaryID() string {
	switch {
	case r.DOI != "":
		return r.DOI
	case r.PMID != "":
		return "pmid-" + r.PMID
	default:
		return r.Title
	}
}
