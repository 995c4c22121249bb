// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
	"github.com/pdiddy/fulltext-engine/internal/browse"
	"github.com/pdiddy/fulltext-engine/internal/refs"
	"github.com/pdiddy/fulltext-engine/internal/report"
	"github.com/pdiddy/fulltext-engine/internal/retrieve"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [reference file]",
	Short: "Retrieve full-text PDFs for a CSV or RIS reference list",
	Long: `Fetch reads a reference list (CSV with doi/pmid/title columns, or RIS),
runs each record through the retrieval strategy chain, and writes success
and failure reports. Records with an existing artifact are skipped, so an
interrupted batch can simply be rerun.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	retrievalFlags(fetchCmd)
	fetchCmd.Flags().String("success-report", "", "CSV report of retrieved artifacts")
	fetchCmd.Flags().String("failure-report", "", "CSV report of failed records, reusable as a retry input")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	records, err := refs.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading references: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no references found in %s", args[0])
	}

	cfg := retrievalConfig(cmd)
	gate := artifact.Gate{Dir: cfg.Storage.OutputDir, MinBytes: cfg.Storage.MinBytes}

	chain := &retrieve.Chain{
		Client: &http.Client{Timeout: cfg.Timeout},
		Gate:   gate,
		Cfg:    cfg,
		Log:    logger,
	}
	if cfg.Proxy.Configured() || cfg.Browser.ManualLogin {
		driver := browse.NewDriver(gate, cfg.Proxy, cfg.Browser, logger)
		if cfg.Browser.ManualLogin {
			driver.LoginDone = operatorSignal(cmd)
		}
		chain.Driver = driver
	}

	result := chain.RunBatch(cmd.Context(), records, os.Stdout)

	if path, _ := cmd.Flags().GetString("success-report"); path != "" {
		if err := report.WriteSuccesses(path, result.Outcomes); err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("failure-report"); path != "" {
		if err := report.WriteFailures(path, result.Outcomes); err != nil {
			return err
		}
	}

	if result.HasFailures() {
		return fmt.Errorf("%d record(s) failed retrieval", result.Failed)
	}
	return nil
}

// operatorSignal yields a channel that fires each time the operator presses
// Enter, for manual-login mode.
func operatorSignal(cmd *cobra.Command) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprintln(os.Stderr, "Complete the login in the browser window, then press Enter.")
			if !scanner.Scan() {
				return
			}
			ch <- struct{}{}
		}
	}()
	return ch
}
