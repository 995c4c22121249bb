// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve coordinates the retrieval strategy chain: the local
// artifact cache, open-access resolution, and the authenticated
// institutional driver, tried in that order until one produces an artifact.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
	"github.com/pdiddy/fulltext-engine/internal/openaccess"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// InstitutionalDriver retrieves an artifact through an authenticated
// browser session. Implemented by browse.Driver.
type InstitutionalDriver interface {
	Retrieve(ctx context.Context, rec types.Record) (path, sourceURL string, err error)
}

// Chain runs the retrieval strategies for one record.
type Chain struct {
	Client *http.Client
	Gate   artifact.Gate
	Cfg    types.RetrievalConfig
	Driver InstitutionalDriver
	Log    zerolog.Logger
}

// Retrieve resolves one record to an artifact. The chain is short-circuit:
// a cached artifact ends the run with zero network traffic, an open-access
// hit skips the browser entirely. Strategy errors demote to fallthrough;
// only exhaustion of the chain produces a failure result. Retrieve itself
// never returns an error for per-record outcomes, only results.
func (c *Chain) Retrieve(ctx context.Context, rec types.Record) types.RetrievalResult {
	if !rec.Actionable() {
		return types.Failure("record carries no DOI, PMID, or title", "")
	}

	log := c.Log.With().Str("id", rec.PrimaryID()).Logger()

	// Cache gate first.
	path, hit, err := c.Gate.Check(rec)
	if err != nil {
		log.Warn().Err(err).Msg("cache check failed")
	}
	if hit {
		log.Debug().Str("path", path).Msg("cache hit")
		return types.Cached(path)
	}

	var reasons []string

	// Open access needs a DOI.
	if rec.DOI != "" {
		path, srcURL, err := c.tryOpenAccess(ctx, rec)
		switch {
		case err == nil && path != "":
			return types.Success(path, types.SourceOpenAccess, srcURL)
		case errors.Is(err, types.ErrConfigurationMissing):
			log.Debug().Msg("open access skipped: not configured")
			reasons = append(reasons, "open access not configured")
		case err != nil:
			log.Debug().Err(err).Msg("open access failed, falling through")
			reasons = append(reasons, fmt.Sprintf("open access: %v", err))
		default:
			reasons = append(reasons, "no open-access location")
		}
	} else {
		reasons = append(reasons, "no DOI for open-access lookup")
	}

	// Institutional driver needs credentials (or manual-login mode) and a
	// resolvable identifier.
	if !c.Cfg.Proxy.Configured() && !c.Cfg.Browser.ManualLogin {
		log.Debug().Msg("institutional retrieval skipped: no proxy configuration")
		reasons = append(reasons, "institutional access not configured")
		return types.Failure(joinReasons(reasons), "")
	}
	if c.Driver == nil {
		reasons = append(reasons, "institutional driver unavailable")
		return types.Failure(joinReasons(reasons), "")
	}

	path, srcURL, err := c.Driver.Retrieve(ctx, rec)
	if err != nil {
		log.Debug().Err(err).Msg("institutional retrieval failed")
		reasons = append(reasons, fmt.Sprintf("institutional: %v", err))
		return types.Failure(joinReasons(reasons), types.DiagnosticURL(err))
	}
	return types.Success(path, types.SourceInstitutional, srcURL)
}

// tryOpenAccess resolves and downloads via Unpaywall. An empty path with a
// nil error means the resolver had no location for the DOI.
func (c *Chain) tryOpenAccess(ctx context.Context, rec types.Record) (string, string, error) {
	loc, err := openaccess.Resolve(ctx, c.Client, rec.DOI, c.Cfg.OpenAccess)
	if err != nil {
		return "", "", err
	}
	if loc == nil {
		return "", "", nil
	}
	path, err := openaccess.Fetch(ctx, c.Client, rec, loc, c.Gate, c.Cfg.OpenAccess)
	if err != nil {
		// A non-empty path means the artifact itself was stored and only
		// the sidecar write failed. The record is informational; keep the
		// artifact instead of re-downloading through the browser.
		if path != "" {
			c.Log.Warn().Err(err).Str("path", path).Msg("sidecar write failed, artifact kept")
			return path, loc.PDFURL, nil
		}
		return "", "", err
	}
	return path, loc.PDFURL, nil
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
