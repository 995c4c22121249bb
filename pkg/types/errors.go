// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Retrieval error taxonomy. Strategy-local errors are wrapped around one of
// these sentinels so the coordinator can classify them with errors.Is and
// decide between fallthrough, skip, terminal failure, and crawl recovery.
var (
	// ErrConfigurationMissing marks a strategy whose required credential or
	// endpoint is absent. The strategy is skipped deterministically, never
	// attempted and failed.
	ErrConfigurationMissing = errors.New("required configuration missing")

	// ErrNotFound marks a remote source that has no record for the request.
	// Non-fatal; the chain continues.
	ErrNotFound = errors.New("not found at source")

	// ErrAuthenticationFailed marks an unlocatable login form or a page
	// still on the login view after submit.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrArtifactNotLocatable marks a publisher page that was reached but
	// yielded no extraction strategy.
	ErrArtifactNotLocatable = errors.New("no downloadable artifact located")

	// ErrTransientNetwork marks timeouts and connection resets. The request
	// fails for this run and is expected to be retried via a later batch
	// pass over the failure report.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrCrashDetected marks a browser session or protocol fault. It
	// triggers crawl recovery rather than failing the run.
	ErrCrashDetected = errors.New("browser session crashed")
)

// DiagnosticError attaches the last reached page URL to a retrieval error
// so failure reports can point a manual follow-up at the right place.
type DiagnosticError struct {
	Err error
	URL string
}

func (e *DiagnosticError) Error() string {
	if e.URL == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + " (last page: " + e.URL + ")"
}

func (e *DiagnosticError) Unwrap() error { return e.Err }

// DiagnosticURL extracts the last reached URL from err, or "" when none
// was recorded.
func DiagnosticURL(err error) string {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.URL
	}
	return ""
}
