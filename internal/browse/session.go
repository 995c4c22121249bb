// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// navPollInterval paces URL polling in WaitNavigation.
const navPollInterval = 250 * time.Millisecond

// Session is the chromedp-backed Page. One session owns one allocator and
// one browser tab; Close releases both.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	downloadDir string
	downloads   chan string
	tabs        chan string

	log zerolog.Logger
}

var _ Page = (*Session)(nil)

// NewSession launches a browser tab configured for unattended artifact
// retrieval: downloads land in cfg.DownloadDir under their CDP GUID, and
// download/new-tab events are buffered for the driver's bounded waits.
func NewSession(ctx context.Context, cfg types.BrowserConfig, log zerolog.Logger) (*Session, error) {
	dir := cfg.DownloadDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "fulltext-downloads-")
		if err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	s := &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		downloadDir: dir,
		downloads:   make(chan string, 4),
		tabs:        make(chan string, 4),
		log:         log,
	}
	s.listen()

	if err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("configuring downloads: %w", err)
	}
	return s, nil
}

// listen wires CDP events into the session's channels. Download completion
// arrives as a progress event with state "completed"; new tabs arrive as
// page-type target creations.
func (s *Session) listen() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		if p, ok := ev.(*browser.EventDownloadProgress); ok {
			if p.State == browser.DownloadProgressStateCompleted {
				select {
				case s.downloads <- filepath.Join(s.downloadDir, p.GUID):
				default:
				}
			}
		}
	})
	chromedp.ListenBrowser(s.ctx, func(ev interface{}) {
		switch t := ev.(type) {
		case *target.EventTargetCreated:
			if t.TargetInfo.Type == "page" && t.TargetInfo.URL != "" && t.TargetInfo.URL != "about:blank" {
				select {
				case s.tabs <- t.TargetInfo.URL:
				default:
				}
			}
		case *target.EventTargetInfoChanged:
			// Tabs often open as about:blank and receive their URL later.
			if t.TargetInfo.Type == "page" && t.TargetInfo.URL != "" && t.TargetInfo.URL != "about:blank" && !t.TargetInfo.Attached {
				select {
				case s.tabs <- t.TargetInfo.URL:
				default:
				}
			}
		}
	})
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *Session) SubmitKeyboard(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

// WaitNavigation polls the page URL until it differs from fromURL.
func (s *Session) WaitNavigation(ctx context.Context, fromURL string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		loc, err := s.Location(ctx)
		if err != nil {
			return "", err
		}
		if loc != fromURL {
			return loc, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("page did not navigate away from %s within %s", fromURL, timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(navPollInterval):
		}
	}
}

func (s *Session) AwaitDownload(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case path := <-s.downloads:
		return path, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no download completed within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.ctx.Done():
		return "", fmt.Errorf("%w: browser context gone: %v", types.ErrCrashDetected, s.ctx.Err())
	}
}

func (s *Session) AwaitNewTab(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case url := <-s.tabs:
		return url, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no new tab within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.ctx.Done():
		return "", fmt.Errorf("%w: browser context gone: %v", types.ErrCrashDetected, s.ctx.Err())
	}
}

// FetchBytes retrieves rawURL with the browser's cookies, so resources
// behind the authenticated proxy session stay reachable without another
// page navigation.
func (s *Session) FetchBytes(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	var cookies []*network.Cookie
	if err := s.run(ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{rawURL}).Do(cdpCtx)
		return err
	})); err != nil {
		return nil, "", fmt.Errorf("exporting session cookies: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, "", err
	}
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc = append(hc, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain})
	}
	jar.SetCookies(u, hc)

	client := &http.Client{Jar: jar}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", types.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading body: %v", types.ErrTransientNetwork, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (s *Session) Close() error {
	s.cancel()
	return nil
}

// run executes actions in the tab context, honoring the caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
