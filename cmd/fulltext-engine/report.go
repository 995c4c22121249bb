// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fulltext-engine/internal/artifact"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the artifact store",
	Long: `Report scans the artifact store and prints each artifact with its
retrieval source and URL from the metadata sidecars.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("out-dir", "artifacts", "base directory for retrieved artifacts")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")

	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stdout, "no artifacts in %s\n", outDir)
			return nil
		}
		return fmt.Errorf("reading artifact directory: %w", err)
	}

	bySource := map[string]int{}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		count++
		slug := strings.TrimSuffix(entry.Name(), ".pdf")

		source, srcURL := "unknown", ""
		scPath := filepath.Join(outDir, "metadata", slug+".yaml")
		if sc, err := artifact.ReadSidecarFile(scPath); err == nil && sc != nil {
			source = string(sc.Source)
			srcURL = sc.SourceURL
		}
		bySource[source]++
		fmt.Fprintf(os.Stdout, "%-50s %-14s %s\n", slug, source, srcURL)
	}

	fmt.Fprintf(os.Stdout, "\n%d artifact(s)", count)
	for src, n := range bySource {
		fmt.Fprintf(os.Stdout, ", %d %s", n, src)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
