// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl walks a dynamic, incrementally loaded result list and
// retrieves an artifact for every entry, surviving browser crashes by
// persisting progress and rebuilding list state on resume.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/fulltext-engine/internal/browse"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// crashSignatures classify an error as a browser-session loss. Anything
// else is a per-item failure and does not trigger a list rebuild.
var crashSignatures = []string{
	"target closed",
	"session closed",
	"protocol error",
	"context deadline exceeded",
	"net::ERR",
}

// ListView is the dynamic result list the controller walks. Implemented by
// browse.ListBrowser; tests substitute fakes.
type ListView interface {
	Items(ctx context.Context) ([]browse.ListItem, error)
	LoadMore(ctx context.Context) (bool, error)
	Reload(ctx context.Context, minItems int) error
}

// Processor retrieves the artifact for one list entry. Implemented by
// retrieve.Chain.
type Processor interface {
	Retrieve(ctx context.Context, rec types.Record) types.RetrievalResult
}

// Stats summarize a crawl run.
type Stats struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Recovered int
}

// Controller drives one crawl to completion.
type Controller struct {
	List      ListView
	Processor Processor
	Store     *ProgressStore
	Cfg       types.CrawlConfig
	Log       zerolog.Logger

	// CrawlID names this crawl in the progress store. Runs with the same ID
	// resume each other.
	CrawlID string
}

// Run walks the list until it is exhausted. On entry it rebuilds list
// state past any persisted progress; during the walk it re-reads the
// rendered items each step, skips entries already processed (by stable ID),
// and classifies errors as either a recoverable session crash (rebuild and
// continue) or a per-item failure (record and continue). Consecutive
// rebuilds without a finalized item are capped by MaxRecoveries: an entry
// that still crashes at the cap is recorded as a failure and skipped, and a
// list that still crashes at the cap ends the run. Outcomes stream to w;
// per-record results are returned for reporting.
func (c *Controller) Run(ctx context.Context, w io.Writer) ([]Outcome, Stats, error) {
	lastIndex, err := c.Store.LastIndex(c.CrawlID)
	if err != nil {
		return nil, Stats{}, err
	}
	if lastIndex >= 0 {
		fmt.Fprintf(w, "resuming crawl %s after index %d\n", c.CrawlID, lastIndex)
	}

	if err := c.rebuild(ctx, lastIndex); err != nil {
		return nil, Stats{}, err
	}

	var (
		outcomes   []Outcome
		stats      Stats
		loadMores  int
		recoveries int
	)

	for {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "interrupted: %d items processed\n", stats.Processed)
			return outcomes, stats, ctx.Err()
		}

		item, index, found, err := c.nextUnseen(ctx, lastIndex)
		if err != nil {
			if !c.isCrash(err) {
				return outcomes, stats, err
			}
			if recoveries >= c.maxRecoveries() {
				return outcomes, stats, fmt.Errorf("giving up after %d consecutive rebuilds: %w", recoveries, err)
			}
			recoveries++
			stats.Recovered++
			if err := c.recover(ctx, w, lastIndex); err != nil {
				return outcomes, stats, err
			}
			continue
		}

		if !found {
			more, err := c.loadMore(ctx, &loadMores)
			if err != nil {
				if !c.isCrash(err) {
					return outcomes, stats, err
				}
				if recoveries >= c.maxRecoveries() {
					return outcomes, stats, fmt.Errorf("giving up after %d consecutive rebuilds: %w", recoveries, err)
				}
				recoveries++
				stats.Recovered++
				if err := c.recover(ctx, w, lastIndex); err != nil {
					return outcomes, stats, err
				}
				continue
			}
			if !more {
				break
			}
			continue
		}

		res := c.Processor.Retrieve(ctx, item.Record)
		status := string(res.Status)
		if sig := c.crashReason(res); sig != "" {
			if recoveries < c.maxRecoveries() {
				// A session loss mid-item: do not mark processed, rebuild
				// and retry the same entry.
				recoveries++
				stats.Recovered++
				fmt.Fprintf(w, "session lost at %s, rebuilding\n", item.ID)
				if err := c.recover(ctx, w, lastIndex); err != nil {
					return outcomes, stats, err
				}
				continue
			}
			// The entry crashes on every visit. Finalize it as a failure
			// so the crawl advances instead of rebuilding forever.
			fmt.Fprintf(w, "giving up on %s after %d rebuilds\n", item.ID, recoveries)
		}

		if err := c.Store.MarkProcessed(c.CrawlID, item.ID, index, status); err != nil {
			return outcomes, stats, err
		}
		recoveries = 0
		lastIndex = index
		stats.Processed++
		outcomes = append(outcomes, Outcome{Item: item, Result: res})

		switch res.Status {
		case types.StatusCached:
			stats.Skipped++
			fmt.Fprintf(w, "cached:  %s\n", item.ID)
		case types.StatusSuccess:
			stats.Succeeded++
			fmt.Fprintf(w, "fetched: %s (%s)\n", item.ID, res.Source)
		default:
			stats.Failed++
			fmt.Fprintf(w, "failed:  %s (%s)\n", item.ID, res.Reason)
		}
	}

	fmt.Fprintf(w, "\nCrawl summary: %d fetched, %d cached, %d failed, %d recoveries (total: %d)\n",
		stats.Succeeded, stats.Skipped, stats.Failed, stats.Recovered, stats.Processed)
	return outcomes, stats, nil
}

// Outcome pairs a list entry with its retrieval result.
type Outcome struct {
	Item   browse.ListItem
	Result types.RetrievalResult
}

// nextUnseen re-reads the rendered list and returns the first entry not yet
// recorded in the progress store, together with its index.
func (c *Controller) nextUnseen(ctx context.Context, lastIndex int) (browse.ListItem, int, bool, error) {
	items, err := c.List.Items(ctx)
	if err != nil {
		return browse.ListItem{}, 0, false, err
	}
	for i, item := range items {
		seen, err := c.Store.Seen(c.CrawlID, item.ID)
		if err != nil {
			return browse.ListItem{}, 0, false, err
		}
		if seen {
			continue
		}
		// Index advances monotonically even when the list reorders slightly
		// between loads; identity is the stable ID, the index only anchors
		// resume depth.
		idx := i
		if idx <= lastIndex {
			idx = lastIndex + 1
		}
		return item, idx, true, nil
	}
	return browse.ListItem{}, 0, false, nil
}

// loadMore clicks the load-more control, enforcing the configured ceiling.
func (c *Controller) loadMore(ctx context.Context, count *int) (bool, error) {
	max := c.Cfg.MaxLoadMore
	if max <= 0 {
		max = types.DefaultMaxLoadMore
	}
	if *count >= max {
		c.Log.Warn().Int("max", max).Msg("load-more ceiling reached, stopping crawl")
		return false, nil
	}
	more, err := c.List.LoadMore(ctx)
	if err != nil {
		return false, err
	}
	if more {
		*count++
	}
	return more, nil
}

// maxRecoveries is the ceiling on consecutive crash rebuilds.
func (c *Controller) maxRecoveries() int {
	if c.Cfg.MaxRecoveries > 0 {
		return c.Cfg.MaxRecoveries
	}
	return types.DefaultMaxRecoveries
}

// rebuild reloads the list deep enough to reach past the resume point.
func (c *Controller) rebuild(ctx context.Context, lastIndex int) error {
	lookahead := c.Cfg.Lookahead
	if lookahead <= 0 {
		lookahead = types.DefaultLookahead
	}
	return c.List.Reload(ctx, lastIndex+1+lookahead)
}

// recover rebuilds browser state after a session crash.
func (c *Controller) recover(ctx context.Context, w io.Writer, lastIndex int) error {
	fmt.Fprintf(w, "rebuilding list state to index %d\n", lastIndex)
	if err := c.rebuild(ctx, lastIndex); err != nil {
		return fmt.Errorf("rebuilding after crash: %w", err)
	}
	return nil
}

// isCrash classifies an error as a recoverable browser-session loss.
func (c *Controller) isCrash(err error) bool {
	if errors.Is(err, types.ErrCrashDetected) {
		return true
	}
	msg := err.Error()
	for _, sig := range crashSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// crashReason inspects a failure result for crash signatures; non-crash
// failures return "".
func (c *Controller) crashReason(res types.RetrievalResult) string {
	if res.Status != types.StatusFailure {
		return ""
	}
	for _, sig := range crashSignatures {
		if strings.Contains(res.Reason, sig) {
			return sig
		}
	}
	return ""
}
