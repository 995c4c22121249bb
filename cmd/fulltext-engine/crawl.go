// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
	"github.com/pdiddy/fulltext-engine/internal/browse"
	"github.com/pdiddy/fulltext-engine/internal/crawl"
	"github.com/pdiddy/fulltext-engine/internal/retrieve"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [list URL]",
	Short: "Walk a dynamic result list and retrieve every entry",
	Long: `Crawl opens a result list in the browser, incrementally loads its
entries, and retrieves a full-text artifact for each one. Progress persists
in SQLite, so a crawl interrupted by a browser crash or process kill
resumes past its last processed entry when rerun with the same --crawl-id.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	retrievalFlags(crawlCmd)
	crawlCmd.Flags().String("crawl-id", "", "stable name for this crawl; runs with the same ID resume each other (default: the list URL)")
	crawlCmd.Flags().String("progress-db", "crawl-progress.db", "path to the crawl progress database")
	crawlCmd.Flags().String("item-selector", "", "CSS selector matching one result entry (required)")
	crawlCmd.Flags().String("id-attr", "", "entry attribute carrying a DOI or stable identifier")
	crawlCmd.Flags().String("title-selector", "", "CSS selector for the title inside an entry (required)")
	crawlCmd.Flags().String("load-more-selector", "", "CSS selector for the load-more control (required)")
	crawlCmd.Flags().Int("lookahead", 0, "extra entries to load past the resume point (default 5)")
	crawlCmd.Flags().Int("max-load-more", 0, "ceiling on load-more clicks per run (default 200)")
	crawlCmd.Flags().Int("max-recoveries", 0, "consecutive crash rebuilds before an entry is failed and skipped (default 3)")
	crawlCmd.Flags().Bool("reset", false, "forget persisted progress before starting")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	rootURL := args[0]
	itemSel, _ := cmd.Flags().GetString("item-selector")
	titleSel, _ := cmd.Flags().GetString("title-selector")
	loadMoreSel, _ := cmd.Flags().GetString("load-more-selector")
	if itemSel == "" || titleSel == "" || loadMoreSel == "" {
		return fmt.Errorf("--item-selector, --title-selector, and --load-more-selector are required")
	}
	idAttr, _ := cmd.Flags().GetString("id-attr")
	crawlID, _ := cmd.Flags().GetString("crawl-id")
	if crawlID == "" {
		crawlID = rootURL
	}
	progressDB, _ := cmd.Flags().GetString("progress-db")
	lookahead, _ := cmd.Flags().GetInt("lookahead")
	maxLoadMore, _ := cmd.Flags().GetInt("max-load-more")
	maxRecoveries, _ := cmd.Flags().GetInt("max-recoveries")

	cfg := retrievalConfig(cmd)
	crawlCfg := types.CrawlConfig{
		Lookahead:     lookahead,
		MaxLoadMore:   maxLoadMore,
		MaxRecoveries: maxRecoveries,
		ProgressDB:    progressDB,
	}
	gate := artifact.Gate{Dir: cfg.Storage.OutputDir, MinBytes: cfg.Storage.MinBytes}

	store, err := crawl.OpenProgress(progressDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := store.Reset(crawlID); err != nil {
			return err
		}
	}

	driver := browse.NewDriver(gate, cfg.Proxy, cfg.Browser, logger)
	if cfg.Browser.ManualLogin {
		driver.LoginDone = operatorSignal(cmd)
	}
	chain := &retrieve.Chain{
		Client: &http.Client{Timeout: cfg.Timeout},
		Gate:   gate,
		Cfg:    cfg,
		Driver: driver,
		Log:    logger,
	}

	listPage, err := browse.NewSession(cmd.Context(), cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("starting list browser: %w", err)
	}
	defer listPage.Close()

	list := &browse.ListBrowser{
		Page:    listPage,
		RootURL: cfg.Proxy.BaseURL + rootURL,
		Selectors: browse.ListSelectors{
			Item:     itemSel,
			IDAttr:   idAttr,
			Title:    titleSel,
			LoadMore: loadMoreSel,
		},
		Log: logger,
	}
	if cfg.Proxy.Configured() {
		list.Authenticate = func(ctx context.Context, page browse.Page) error {
			return browse.AuthenticatePage(ctx, page, cfg.Proxy, cfg.Browser, logger)
		}
	}

	controller := &crawl.Controller{
		List:      list,
		Processor: chain,
		Store:     store,
		Cfg:       crawlCfg,
		Log:       logger,
		CrawlID:   crawlID,
	}

	_, stats, err := controller.Run(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d entr(ies) failed retrieval", stats.Failed)
	}
	return nil
}
