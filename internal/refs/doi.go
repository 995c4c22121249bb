// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refs reads bibliographic reference records from tabular (CSV) and
// RIS inputs and normalizes them into the engine's unit of work.
package refs

import (
	"regexp"
	"strings"
)

// doiPattern matches a bare DOI: "10.1016/j.lancet.2023.01.001".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// resolverPrefixes are stripped from DOI values before validation. Inputs
// routinely carry the resolver URL rather than the bare DOI.
var resolverPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
	"DOI:",
}

// NormalizeDOI strips resolver URL prefixes and surrounding whitespace and
// returns the bare DOI, or "" when the value does not look like a DOI.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range resolverPrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	s = strings.TrimSpace(s)
	if !doiPattern.MatchString(s) {
		return ""
	}
	return s
}
