// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fulltext-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// StorageConfig holds settings for the artifact store and cache gate.
type StorageConfig struct {
	// OutputDir is the directory artifacts are written to. A metadata/
	// subdirectory holds per-artifact sidecar records.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MinBytes is the minimum artifact size. Files below it are treated as
	// error placeholders, never as valid documents (default 10 KiB).
	MinBytes int64 `json:"min_bytes" yaml:"min_bytes"`
}

// OpenAccessConfig holds settings for the Unpaywall open-access resolver.
type OpenAccessConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is the contact address registered with the lookup service.
	// When empty the open-access strategy is skipped.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// ProxyConfig holds the institutional proxy settings. An empty Username or
// Password deterministically disables the institutional strategy.
type ProxyConfig struct {
	// BaseURL is the proxy prefix target URLs are wrapped with
	// (e.g. "https://login.ezproxy.example.edu/login?url=").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Username and Password are the institutional credentials.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// Configured reports whether the institutional strategy can run at all.
func (p ProxyConfig) Configured() bool {
	return p.BaseURL != "" && p.Username != "" && p.Password != ""
}

// BrowserConfig holds settings for the authenticated browser driver.
type BrowserConfig struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool `json:"headless" yaml:"headless"`

	// StepTimeout bounds each driver step: navigation, login wait,
	// download wait (default 45s).
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout"`

	// DownloadDir receives browser-initiated downloads before they are
	// moved into the artifact store. Empty means a temporary directory.
	DownloadDir string `json:"download_dir,omitempty" yaml:"download_dir,omitempty"`

	// ManualLogin, with Headless off, pauses for an operator-completed
	// login instead of filling credentials automatically. The wait is
	// cancellable and signalled, never a blocking read.
	ManualLogin bool `json:"manual_login" yaml:"manual_login"`
}

// CrawlConfig holds settings for list-source crawling and resume.
type CrawlConfig struct {
	// Lookahead is the item buffer reloaded past the last processed index
	// after a crash recovery (default 5).
	Lookahead int `json:"lookahead" yaml:"lookahead"`

	// MaxLoadMore caps load-more iterations while locating a resume target,
	// guarding against a target that never appears (default 200).
	MaxLoadMore int `json:"max_load_more" yaml:"max_load_more"`

	// MaxRecoveries caps consecutive crash rebuilds without a finalized
	// item in between. An entry that still carries a crash signature once
	// the cap is reached is recorded as a failure and skipped, so a page
	// that times out on every visit cannot pin the crawl (default 3).
	MaxRecoveries int `json:"max_recoveries" yaml:"max_recoveries"`

	// ProgressDB is the SQLite file crawl progress persists to, so a full
	// process restart resumes where it stopped.
	ProgressDB string `json:"progress_db" yaml:"progress_db"`
}

// RetrievalConfig groups everything one retrieval request needs.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// PacingDelay is the delay between consecutive batch requests.
	PacingDelay time.Duration `json:"pacing_delay" yaml:"pacing_delay"`

	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	OpenAccess OpenAccessConfig `json:"open_access" yaml:"open_access"`
	Proxy      ProxyConfig      `json:"proxy" yaml:"proxy"`
	Browser    BrowserConfig    `json:"browser" yaml:"browser"`
}

// EngineConfig groups all component configurations.
type EngineConfig struct {
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Crawl     CrawlConfig     `json:"crawl" yaml:"crawl"`
}

// Defaults applied where the configuration leaves a value unset.
const (
	DefaultMinBytes    int64 = 10 * 1024
	DefaultStepTimeout       = 45 * time.Second
	DefaultLookahead         = 5
	DefaultMaxLoadMore       = 200
	DefaultMaxRecoveries     = 3
)
