// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/fulltext-engine/internal/refs"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// ListItem is one entry scraped from a dynamic result list.
type ListItem struct {
	// ID is the item's stable identity: a normalized DOI when the entry
	// carries one, otherwise its title.
	ID     string
	Record types.Record
}

// ListSelectors describe how to read a result list's DOM.
type ListSelectors struct {
	// Item matches one result entry.
	Item string

	// IDAttr names the attribute on an entry carrying its DOI or stable
	// identifier. Empty falls back to the title text.
	IDAttr string

	// Title matches the title element inside an entry.
	Title string

	// LoadMore matches the control that appends the next batch of entries.
	LoadMore string
}

// ListBrowser reads a dynamic, incrementally loaded result list through a
// browser page. It satisfies the crawl controller's list-view contract.
type ListBrowser struct {
	Page      Page
	RootURL   string
	Selectors ListSelectors
	Log       zerolog.Logger

	// Authenticate handles a login challenge encountered during Reload.
	// Nil means challenges are errors.
	Authenticate func(ctx context.Context, page Page) error
}

// Items scrapes the currently rendered entries in page order.
func (b *ListBrowser) Items(ctx context.Context) ([]ListItem, error) {
	html, err := b.Page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading list DOM: %v", types.ErrCrashDetected, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing list DOM: %w", err)
	}

	var items []ListItem
	doc.Find(b.Selectors.Item).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(b.Selectors.Title).First().Text())

		var rec types.Record
		rec.Title = title
		if b.Selectors.IDAttr != "" {
			if raw, ok := s.Attr(b.Selectors.IDAttr); ok {
				rec.DOI = refs.NormalizeDOI(raw)
			}
		}

		id := rec.DOI
		if id == "" {
			id = title
		}
		if id == "" {
			return
		}
		items = append(items, ListItem{ID: id, Record: rec})
	})
	return items, nil
}

// LoadMore clicks the load-more control once. It reports false when the
// control is gone, meaning the list is exhausted.
func (b *ListBrowser) LoadMore(ctx context.Context) (bool, error) {
	html, err := b.Page.HTML(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: reading list DOM: %v", types.ErrCrashDetected, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parsing list DOM: %w", err)
	}
	if doc.Find(b.Selectors.LoadMore).FilterFunction(visible).Length() == 0 {
		return false, nil
	}

	if err := b.Page.Click(ctx, b.Selectors.LoadMore); err != nil {
		return false, fmt.Errorf("%w: clicking load-more: %v", types.ErrCrashDetected, err)
	}
	return true, nil
}

// Reload navigates back to the list root, re-authenticates if challenged,
// and loads entries until at least minItems are rendered or the list runs
// out. Used to rebuild browser state after a crash.
func (b *ListBrowser) Reload(ctx context.Context, minItems int) error {
	if err := b.Page.Navigate(ctx, b.RootURL); err != nil {
		return fmt.Errorf("%w: reloading %s: %v", types.ErrCrashDetected, b.RootURL, err)
	}

	loc, err := b.Page.Location(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading location: %v", types.ErrCrashDetected, err)
	}
	if IsLoginURL(loc) {
		if b.Authenticate == nil {
			return fmt.Errorf("%w: list reload hit a login challenge", types.ErrAuthenticationFailed)
		}
		if err := b.Authenticate(ctx, b.Page); err != nil {
			return err
		}
	}

	for {
		items, err := b.Items(ctx)
		if err != nil {
			return err
		}
		if len(items) >= minItems {
			b.Log.Debug().Int("items", len(items)).Int("target", minItems).Msg("list rebuilt")
			return nil
		}
		more, err := b.LoadMore(ctx)
		if err != nil {
			return err
		}
		if !more {
			b.Log.Debug().Int("items", len(items)).Int("target", minItems).Msg("list exhausted before target")
			return nil
		}
	}
}
