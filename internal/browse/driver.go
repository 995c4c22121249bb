// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browse

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// Driver retrieves artifacts through an authenticated institutional proxy
// session. Each retrieval owns one browser context, torn down on the
// terminal transition regardless of outcome.
type Driver struct {
	Gate  artifact.Gate
	Proxy types.ProxyConfig
	Cfg   types.BrowserConfig
	Log   zerolog.Logger

	// NewPage creates a fresh browser page. Defaults to a chromedp session;
	// tests substitute a fake.
	NewPage func(ctx context.Context) (Page, error)

	// LoginDone signals that an operator completed a manual login. Required
	// when Cfg.ManualLogin is set; the wait is cancellable via the request
	// context.
	LoginDone <-chan struct{}
}

// NewDriver builds a driver with the chromedp page factory.
func NewDriver(gate artifact.Gate, proxy types.ProxyConfig, cfg types.BrowserConfig, log zerolog.Logger) *Driver {
	d := &Driver{Gate: gate, Proxy: proxy, Cfg: cfg, Log: log}
	d.NewPage = func(ctx context.Context) (Page, error) {
		return NewSession(ctx, cfg, log)
	}
	return d
}

// Retrieve navigates the proxy-wrapped resolver URL for rec, authenticates
// if challenged, locates a PDF-yielding control, and extracts the artifact.
// On failure the returned error carries the last reached page URL for
// manual follow-up.
func (d *Driver) Retrieve(ctx context.Context, rec types.Record) (path, sourceURL string, err error) {
	target, err := resolverURL(rec)
	if err != nil {
		return "", "", err
	}

	page, err := d.NewPage(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%w: starting browser: %v", types.ErrCrashDetected, err)
	}
	defer page.Close()

	wrapped := d.Proxy.BaseURL + target
	d.Log.Debug().Str("url", wrapped).Msg("navigating via institutional proxy")

	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout())
	err = page.Navigate(stepCtx, wrapped)
	cancel()
	if err != nil {
		return "", "", fmt.Errorf("%w: navigating %s: %v", types.ErrTransientNetwork, wrapped, err)
	}

	loc, doc, err := d.snapshot(ctx, page)
	if err != nil {
		return "", "", err
	}

	if IsLoginPage(loc, doc) {
		d.Log.Debug().Str("url", loc).Msg("authentication challenge detected")
		if loc, doc, err = d.authenticate(ctx, page, loc, doc); err != nil {
			return "", "", &types.DiagnosticError{Err: err, URL: loc}
		}
	}

	control, ok := FindPDFControl(doc)
	if !ok {
		reason := "no PDF link found"
		if FindExternalReference(doc) {
			reason = "only external reference link found"
		}
		return "", "", &types.DiagnosticError{
			Err: fmt.Errorf("%w: %s", types.ErrArtifactNotLocatable, reason),
			URL: loc,
		}
	}
	d.Log.Debug().Str("selector", control.Selector).Str("href", control.Href).Msg("PDF control located")

	path, sourceURL, err = d.extract(ctx, page, rec, control, loc)
	if err != nil {
		return "", "", &types.DiagnosticError{Err: err, URL: loc}
	}

	if scErr := d.Gate.WriteSidecar(rec, artifact.Sidecar{
		Source:    types.SourceInstitutional,
		SourceURL: sourceURL,
	}); scErr != nil {
		d.Log.Warn().Err(scErr).Msg("sidecar write failed")
	}
	return path, sourceURL, nil
}

// authenticate fills and submits the login form, or waits for an operator
// signal in manual-login mode. It returns the post-login location and DOM.
func (d *Driver) authenticate(ctx context.Context, page Page, loc string, doc *goquery.Document) (string, *goquery.Document, error) {
	if d.Cfg.ManualLogin {
		if d.LoginDone == nil {
			return loc, doc, fmt.Errorf("%w: manual login requested but no operator signal wired", types.ErrConfigurationMissing)
		}
		d.Log.Info().Msg("waiting for operator to complete login")
		select {
		case <-d.LoginDone:
		case <-ctx.Done():
			return loc, doc, ctx.Err()
		}
		return d.snapshotOrErr(ctx, page, loc, doc)
	}

	if err := submitCredentials(ctx, page, loc, doc, d.Proxy, d.stepTimeout()); err != nil {
		return loc, doc, err
	}

	newLoc, newDoc, err := d.snapshot(ctx, page)
	if err != nil {
		return loc, doc, err
	}
	if IsLoginPage(newLoc, newDoc) {
		return newLoc, newDoc, fmt.Errorf("%w: still on login page after submit", types.ErrAuthenticationFailed)
	}
	return newLoc, newDoc, nil
}

// submitCredentials fills and submits a located login form.
func submitCredentials(ctx context.Context, page Page, loc string, doc *goquery.Document, proxy types.ProxyConfig, stepTimeout time.Duration) error {
	if proxy.Username == "" || proxy.Password == "" {
		return fmt.Errorf("%w: institutional credentials absent", types.ErrAuthenticationFailed)
	}

	form, ok := FindLoginForm(doc)
	if !ok {
		return fmt.Errorf("%w: login form not locatable", types.ErrAuthenticationFailed)
	}

	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	if err := page.Fill(stepCtx, form.UserSelector, proxy.Username); err != nil {
		return fmt.Errorf("%w: filling username: %v", types.ErrAuthenticationFailed, err)
	}
	if err := page.Fill(stepCtx, form.PassSelector, proxy.Password); err != nil {
		return fmt.Errorf("%w: filling password: %v", types.ErrAuthenticationFailed, err)
	}

	var err error
	if form.SubmitSelector != "" {
		err = page.Click(stepCtx, form.SubmitSelector)
	} else {
		err = page.SubmitKeyboard(stepCtx, form.PassSelector)
	}
	if err != nil {
		return fmt.Errorf("%w: submitting login form: %v", types.ErrAuthenticationFailed, err)
	}

	if _, err := page.WaitNavigation(stepCtx, loc, stepTimeout); err != nil {
		return fmt.Errorf("%w: no navigation after submit: %v", types.ErrAuthenticationFailed, err)
	}
	return nil
}

// AuthenticatePage resolves a login challenge on an arbitrary page using
// stored credentials. Used by the crawl list browser when a reload lands
// on the proxy's login view.
func AuthenticatePage(ctx context.Context, page Page, proxy types.ProxyConfig, cfg types.BrowserConfig, log zerolog.Logger) error {
	stepTimeout := cfg.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = types.DefaultStepTimeout
	}

	loc, err := page.Location(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading location: %v", types.ErrCrashDetected, err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading DOM: %v", types.ErrCrashDetected, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parsing DOM: %w", err)
	}
	if !IsLoginPage(loc, doc) {
		return nil
	}

	log.Debug().Str("url", loc).Msg("re-authenticating list session")
	return submitCredentials(ctx, page, loc, doc, proxy, stepTimeout)
}

// extract attempts the artifact extraction strategies in order: a
// browser-initiated download, a same-page navigation to a PDF resource, a
// new tab pointing at one, and finally a direct fetch of a PDF-shaped href.
// The first verified artifact wins.
func (d *Driver) extract(ctx context.Context, page Page, rec types.Record, control PDFControl, baseURL string) (string, string, error) {
	// Download and tab events get a quarter of the step budget each so the
	// chain can still fall through within one step timeout.
	eventWait := d.stepTimeout() / 4
	if eventWait < 2*time.Second {
		eventWait = 2 * time.Second
	}

	clickCtx, cancel := context.WithTimeout(ctx, d.stepTimeout())
	clickErr := page.Click(clickCtx, control.Selector)
	cancel()
	if clickErr != nil {
		d.Log.Debug().Err(clickErr).Str("selector", control.Selector).Msg("click failed")
	}

	if clickErr == nil {
		if dl, err := page.AwaitDownload(ctx, eventWait); err == nil {
			if path, err := d.Gate.Adopt(rec, dl); err == nil {
				return path, baseURL, nil
			} else {
				d.Log.Debug().Err(err).Msg("browser download discarded")
			}
		}

		if loc, err := page.Location(ctx); err == nil && loc != baseURL && IsPDFURL(loc) {
			if path, err := d.fetchInto(ctx, page, rec, loc); err == nil {
				return path, loc, nil
			}
		}

		if tabURL, err := page.AwaitNewTab(ctx, eventWait); err == nil && tabURL != "" {
			if path, err := d.fetchInto(ctx, page, rec, tabURL); err == nil {
				return path, tabURL, nil
			}
		}
	}

	if control.Href != "" {
		abs := absoluteURL(baseURL, control.Href)
		if IsPDFURL(abs) {
			if path, err := d.fetchInto(ctx, page, rec, abs); err == nil {
				return path, abs, nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: every extraction strategy exhausted", types.ErrArtifactNotLocatable)
}

// fetchInto streams url through the page's session into the artifact gate,
// verifying content type (when available) and minimum size.
func (d *Driver) fetchInto(ctx context.Context, page Page, rec types.Record, rawURL string) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout())
	defer cancel()

	body, contentType, err := page.FetchBytes(stepCtx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "pdf") &&
		!strings.Contains(strings.ToLower(contentType), "octet-stream") {
		return "", fmt.Errorf("content-type %q from %s is not a PDF", contentType, rawURL)
	}
	return d.Gate.Write(rec, bytes.NewReader(body))
}

// snapshot reads the page's current URL and parses its DOM.
func (d *Driver) snapshot(ctx context.Context, page Page) (string, *goquery.Document, error) {
	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout())
	defer cancel()

	loc, err := page.Location(stepCtx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading location: %v", types.ErrCrashDetected, err)
	}
	html, err := page.HTML(stepCtx)
	if err != nil {
		return loc, nil, fmt.Errorf("%w: reading DOM: %v", types.ErrCrashDetected, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return loc, nil, fmt.Errorf("parsing DOM: %w", err)
	}
	return loc, doc, nil
}

// snapshotOrErr refreshes the snapshot, keeping the previous one on error.
func (d *Driver) snapshotOrErr(ctx context.Context, page Page, loc string, doc *goquery.Document) (string, *goquery.Document, error) {
	newLoc, newDoc, err := d.snapshot(ctx, page)
	if err != nil {
		return loc, doc, err
	}
	return newLoc, newDoc, nil
}

func (d *Driver) stepTimeout() time.Duration {
	if d.Cfg.StepTimeout > 0 {
		return d.Cfg.StepTimeout
	}
	return types.DefaultStepTimeout
}

// resolverURL returns the identifier-resolution URL wrapped by the proxy.
func resolverURL(rec types.Record) (string, error) {
	switch {
	case rec.DOI != "":
		return "https://doi.org/" + rec.DOI, nil
	case rec.PMID != "":
		return "https://pubmed.ncbi.nlm.nih.gov/" + rec.PMID + "/", nil
	default:
		return "", fmt.Errorf("%w: no resolvable identifier for institutional retrieval", types.ErrNotFound)
	}
}

// absoluteURL resolves href against base. A href that does not parse is
// returned as-is.
func absoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
