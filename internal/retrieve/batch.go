// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// Outcome pairs a record with its retrieval result.
type Outcome struct {
	Record types.Record
	Result types.RetrievalResult
}

// BatchResult holds the outcome of a batch retrieval run.
type BatchResult struct {
	New      int
	Cached   int
	Failed   int
	Outcomes []Outcome
}

// Total returns the total number of records processed.
func (r BatchResult) Total() int {
	return r.New + r.Cached + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// SuccessRate returns the fraction of processed records that yielded an
// artifact, cached hits included.
func (r BatchResult) SuccessRate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.New+r.Cached) / float64(r.Total())
}

// RunBatch processes records sequentially, printing per-record status and a
// running success rate. It continues after individual failures and applies
// the pacing delay between consecutive network retrievals; cached hits do
// not pace. A canceled context stops the run after the in-flight record.
func (c *Chain) RunBatch(ctx context.Context, records []types.Record, w io.Writer) BatchResult {
	var result BatchResult
	paced := false
	for _, rec := range records {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "interrupted: %d of %d records processed\n", result.Total(), len(records))
			break
		}
		if paced && c.Cfg.PacingDelay > 0 {
			select {
			case <-time.After(c.Cfg.PacingDelay):
			case <-ctx.Done():
			}
		}

		res := c.Retrieve(ctx, rec)
		result.Outcomes = append(result.Outcomes, Outcome{Record: rec, Result: res})

		switch res.Status {
		case types.StatusCached:
			result.Cached++
			paced = false
			fmt.Fprintf(w, "cached:  %s\n", rec.PrimaryID())
		case types.StatusSuccess:
			result.New++
			paced = true
			fmt.Fprintf(w, "fetched: %s (%s)\n", rec.PrimaryID(), res.Source)
		default:
			result.Failed++
			paced = true
			fmt.Fprintf(w, "failed:  %s (%s)\n", rec.PrimaryID(), res.Reason)
		}
		fmt.Fprintf(w, "  success rate: %.0f%% (%d/%d)\n",
			result.SuccessRate()*100, result.New+result.Cached, result.Total())
	}

	fmt.Fprintf(w, "\nBatch summary: %d fetched, %d cached, %d failed (total: %d)\n",
		result.New, result.Cached, result.Failed, result.Total())
	return result
}
