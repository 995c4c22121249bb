// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browse

import (
	"context"
	"time"
)

// Page is one browser tab under driver control. The chromedp-backed
// implementation lives in session.go; tests substitute fakes. Every
// blocking method honors its context, and the bounded waits return an
// error on timeout rather than hanging.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)

	// HTML returns a snapshot of the current DOM.
	HTML(ctx context.Context) (string, error)

	// Fill clears selector's field and types value into it.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first visible element matching selector.
	Click(ctx context.Context, selector string) error

	// SubmitKeyboard focuses selector and sends an Enter key press.
	SubmitKeyboard(ctx context.Context, selector string) error

	// WaitNavigation waits until the page URL differs from fromURL and
	// returns the new URL, or an error after timeout.
	WaitNavigation(ctx context.Context, fromURL string, timeout time.Duration) (string, error)

	// AwaitDownload waits for a browser-initiated download to complete and
	// returns the downloaded file's path.
	AwaitDownload(ctx context.Context, timeout time.Duration) (string, error)

	// AwaitNewTab waits for a new tab to open and returns its URL.
	AwaitNewTab(ctx context.Context, timeout time.Duration) (string, error)

	// FetchBytes retrieves url within the page's authenticated session and
	// returns the body and response content type.
	FetchBytes(ctx context.Context, url string) (body []byte, contentType string, err error)

	// Close tears down the tab and its browser context.
	Close() error
}
