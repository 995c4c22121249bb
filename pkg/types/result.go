// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RetrievalStatus is the terminal state of one retrieval request.
type RetrievalStatus string

const (
	// StatusCached means a valid artifact already existed on disk and no
	// network strategy ran.
	StatusCached RetrievalStatus = "cached"

	// StatusSuccess means a strategy downloaded and verified a new artifact.
	StatusSuccess RetrievalStatus = "success"

	// StatusFailure means every strategy was exhausted or skipped.
	StatusFailure RetrievalStatus = "failure"
)

// RetrievalSource identifies which strategy produced a new artifact.
type RetrievalSource string

const (
	SourceOpenAccess    RetrievalSource = "open-access"
	SourceInstitutional RetrievalSource = "institutional"
)

// RetrievalResult is the single terminal outcome of one retrieval request.
// Exactly one of the constructors below produces it; the engine never emits
// a partial result.
type RetrievalResult struct {
	Status RetrievalStatus `json:"status" yaml:"status"`

	// Path is the local artifact path for cached and success results.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Source is set for success results only.
	Source RetrievalSource `json:"source,omitempty" yaml:"source,omitempty"`

	// SourceURL is the URL the artifact was fetched from, for success results.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Reason is a human-readable failure description.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// DiagnosticURL is the last publisher page reached before a failure,
	// recorded for manual follow-up.
	DiagnosticURL string `json:"diagnostic_url,omitempty" yaml:"diagnostic_url,omitempty"`
}

// Cached builds a result for an artifact that already existed on disk.
func Cached(path string) RetrievalResult {
	return RetrievalResult{Status: StatusCached, Path: path}
}

// Success builds a result for a newly downloaded, verified artifact.
func Success(path string, source RetrievalSource, sourceURL string) RetrievalResult {
	return RetrievalResult{
		Status:    StatusSuccess,
		Path:      path,
		Source:    source,
		SourceURL: sourceURL,
	}
}

// Failure builds a terminal failure result. diagnosticURL may be empty.
func Failure(reason, diagnosticURL string) RetrievalResult {
	return RetrievalResult{
		Status:        StatusFailure,
		Reason:        reason,
		DiagnosticURL: diagnosticURL,
	}
}

// OK reports whether the result yielded a usable artifact.
func (r RetrievalResult) OK() bool {
	return r.Status == StatusCached || r.Status == StatusSuccess
}
