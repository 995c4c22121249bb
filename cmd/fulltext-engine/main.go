// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fulltext-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fulltext-engine/internal/secrets"
	"github.com/pdiddy/fulltext-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is configured in PersistentPreRunE and shared by all subcommands.
var logger zerolog.Logger

// secretDefault returns fallback when set, otherwise the secret value for
// key, otherwise "".
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the fulltext-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "fulltext-engine",
	Short: "Resumable full-text retrieval for bibliographic references",
	Long: `fulltext-engine resolves bibliographic references (DOIs, PMIDs, titles) to
full-text PDF artifacts. Each reference runs through a strategy chain: the
local artifact cache, open-access resolution via Unpaywall, and finally an
authenticated browser session through an institutional proxy.

Batch retrieval reads a CSV or RIS reference list; crawl walks a dynamic
result list in the browser and survives session crashes by persisting
progress.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fulltext-engine.yaml or ~/.config/fulltext-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	// .env is optional; environment wins over it.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fulltext-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fulltext-engine"))
		}
	}

	viper.SetEnvPrefix("FULLTEXT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// retrievalConfig assembles the retrieval configuration from flags,
// secrets, and viper, in that precedence order.
func retrievalConfig(cmd *cobra.Command) types.RetrievalConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	outDir, _ := cmd.Flags().GetString("out-dir")
	minBytes, _ := cmd.Flags().GetInt64("min-bytes")
	email, _ := cmd.Flags().GetString("email")
	proxyURL, _ := cmd.Flags().GetString("proxy-url")
	headless, _ := cmd.Flags().GetBool("headless")
	manualLogin, _ := cmd.Flags().GetBool("manual-login")
	stepTimeout, _ := cmd.Flags().GetDuration("step-timeout")

	if proxyURL == "" {
		proxyURL = viper.GetString("proxy_url")
	}

	http := types.HTTPConfig{
		Timeout:   timeout,
		UserAgent: "fulltext-engine/" + version,
	}
	return types.RetrievalConfig{
		HTTPConfig:  http,
		PacingDelay: delay,
		Storage: types.StorageConfig{
			OutputDir: outDir,
			MinBytes:  minBytes,
		},
		OpenAccess: types.OpenAccessConfig{
			HTTPConfig: http,
			Email:      secretDefault("unpaywall-email", email),
		},
		Proxy: types.ProxyConfig{
			BaseURL:  proxyURL,
			Username: secretDefault("proxy-username", ""),
			Password: secretDefault("proxy-password", ""),
		},
		Browser: types.BrowserConfig{
			Headless:    headless,
			StepTimeout: stepTimeout,
			ManualLogin: manualLogin,
		},
	}
}

// retrievalFlags registers the flags shared by fetch and crawl.
func retrievalFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	cmd.Flags().Duration("delay", 1*time.Second, "delay between consecutive network retrievals")
	cmd.Flags().String("out-dir", "artifacts", "base directory for retrieved artifacts")
	cmd.Flags().Int64("min-bytes", 0, "minimum artifact size in bytes (default 10KiB)")
	cmd.Flags().String("email", "", "Unpaywall contact email (default: unpaywall-email secret)")
	cmd.Flags().String("proxy-url", "", "institutional proxy prefix, e.g. https://login.proxy.example.edu/login?url=")
	cmd.Flags().Bool("headless", true, "run the browser headless")
	cmd.Flags().Bool("manual-login", false, "pause for an operator to complete the institutional login")
	cmd.Flags().Duration("step-timeout", 0, "per-step browser timeout (default 45s)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
