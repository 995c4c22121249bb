// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openaccess resolves DOIs to open-access PDF URLs via the
// Unpaywall API and downloads the resolved artifact.
package openaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
	"github.com/pdiddy/fulltext-engine/internal/httputil"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// unpaywallAPIBase is the Unpaywall works endpoint. Declared as a var so
// tests can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2/"

// Location is a resolved open-access PDF location.
type Location struct {
	PDFURL  string
	License string
}

// unpaywallResponse captures the fields we need from an Unpaywall record.
type unpaywallResponse struct {
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
	License   string `json:"license"`
}

// Resolve queries Unpaywall for a DOI's best open-access location.
// A missing contact email returns types.ErrConfigurationMissing so the
// chain can skip the strategy deterministically. An unknown DOI or a
// record without a PDF location returns (nil, nil): a miss, not an error.
func Resolve(ctx context.Context, client *http.Client, doi string, cfg types.OpenAccessConfig) (*Location, error) {
	if cfg.Email == "" {
		return nil, fmt.Errorf("open-access lookup: %w: contact email not set", types.ErrConfigurationMissing)
	}

	apiURL := unpaywallAPIBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(cfg.Email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Unpaywall request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: Unpaywall request: %v", types.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Unpaywall API returned HTTP %d", resp.StatusCode)
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	if ur.BestOALocation == nil || ur.BestOALocation.URLForPDF == "" {
		return nil, nil
	}
	return &Location{
		PDFURL:  ur.BestOALocation.URLForPDF,
		License: ur.BestOALocation.License,
	}, nil
}

// Fetch downloads loc's PDF into the artifact gate for rec and returns the
// stored path. An undersized download surfaces artifact.ErrUndersized so
// the chain can treat it as a miss and fall through.
func Fetch(ctx context.Context, client *http.Client, rec types.Record, loc *Location, gate artifact.Gate, cfg types.OpenAccessConfig) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("%w: open-access download: %v", types.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: HTTP 404 from %s", types.ErrNotFound, loc.PDFURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, loc.PDFURL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !pdfContentType(ct) {
		return "", fmt.Errorf("%w: content-type %q from %s", types.ErrNotFound, ct, loc.PDFURL)
	}

	path, err := gate.Write(rec, resp.Body)
	if err != nil {
		return "", err
	}

	if err := gate.WriteSidecar(rec, artifact.Sidecar{
		Source:    types.SourceOpenAccess,
		SourceURL: loc.PDFURL,
		License:   loc.License,
	}); err != nil {
		return path, fmt.Errorf("writing sidecar: %w", err)
	}
	return path, nil
}

// pdfContentType accepts application/pdf and the octet-stream fallback many
// repositories serve PDFs with.
func pdfContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "application/pdf") || strings.Contains(ct, "application/octet-stream")
}
