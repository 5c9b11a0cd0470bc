// Package config loads and validates the jopsify configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Joplin  JoplinConfig  `yaml:"joplin"`
	Site    SiteConfig    `yaml:"site"`
	Publish PublishConfig `yaml:"publish"`
	Labels  LabelsConfig  `yaml:"labels"`
	Watch   WatchConfig   `yaml:"watch"`
}

// JoplinConfig locates the source Joplin profile directory.
type JoplinConfig struct {
	// Dir is the Joplin profile directory containing database.sqlite
	// and the resources/ payload directory.
	Dir string `yaml:"dir"`
}

// DatabasePath returns the path to the Joplin sqlite database.
func (j JoplinConfig) DatabasePath() string {
	return filepath.Join(j.Dir, "database.sqlite")
}

// ResourceDir returns the directory holding resource payload files.
func (j JoplinConfig) ResourceDir() string {
	return filepath.Join(j.Dir, "resources")
}

// SiteConfig describes the generated site.
type SiteConfig struct {
	Title   string `yaml:"title"`
	Output  string `yaml:"output"`
	IconDir string `yaml:"icon_dir,omitempty"` // optional branding assets copied verbatim
}

// DepthPolicy selects behavior when notebook nesting exceeds the supported depth.
type DepthPolicy string

const (
	DepthSkip    DepthPolicy = "skip"    // drop the offending subtree with a warning
	DepthFlatten DepthPolicy = "flatten" // re-parent deep notebooks into the deepest allowed ancestor
	DepthFail    DepthPolicy = "fail"    // abort the run
)

// CyclePolicy selects behavior when notebook parent links form a cycle.
type CyclePolicy string

const (
	CycleFail CyclePolicy = "fail" // abort the run
	CycleSkip CyclePolicy = "skip" // drop the cyclic notebooks with a warning
)

// OrderKey selects the primary child ordering key inside a notebook.
type OrderKey string

const (
	OrderByTitle   OrderKey = "title"
	OrderByCreated OrderKey = "created"
	OrderByUpdated OrderKey = "updated"
)

// PublishConfig controls which notes are exported and how they are arranged.
type PublishConfig struct {
	PublicTag       string      `yaml:"public_tag"`
	HiddenTag       string      `yaml:"hidden_tag"`
	MaxDepth        int         `yaml:"max_depth"`
	OnDepthExceeded DepthPolicy `yaml:"on_depth_exceeded"`
	OnCycle         CyclePolicy `yaml:"on_cycle"`
	OrderBy         OrderKey    `yaml:"order_by"`
	RecentNotes     int         `yaml:"recent_notes"`
}

// LabelsConfig holds localized label strings used in generated pages.
type LabelsConfig struct {
	Created string `yaml:"created"`
	Updated string `yaml:"updated"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	QuietWindow   time.Duration `yaml:"quiet_window"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	Interval      time.Duration `yaml:"interval"`       // periodic safety-net export; 0 disables
	MetricsListen string        `yaml:"metrics_listen"` // e.g. "127.0.0.1:9921"; empty disables
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - user-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Joplin.Dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Joplin.Dir = filepath.Join(home, ".config", "joplin-desktop")
		}
	}
	if c.Site.Title == "" {
		c.Site.Title = "Notes"
	}
	if c.Site.Output == "" {
		c.Site.Output = "./site"
	}
	if c.Publish.PublicTag == "" {
		c.Publish.PublicTag = "public"
	}
	if c.Publish.HiddenTag == "" {
		c.Publish.HiddenTag = "private"
	}
	if c.Publish.MaxDepth == 0 {
		c.Publish.MaxDepth = 2
	}
	if c.Publish.OnDepthExceeded == "" {
		c.Publish.OnDepthExceeded = DepthSkip
	}
	if c.Publish.OnCycle == "" {
		c.Publish.OnCycle = CycleFail
	}
	if c.Publish.OrderBy == "" {
		c.Publish.OrderBy = OrderByTitle
	}
	if c.Publish.RecentNotes == 0 {
		c.Publish.RecentNotes = 10
	}
	if c.Labels.Created == "" {
		c.Labels.Created = "Created"
	}
	if c.Labels.Updated == "" {
		c.Labels.Updated = "Last updated"
	}
	if c.Watch.QuietWindow == 0 {
		c.Watch.QuietWindow = 2 * time.Second
	}
	if c.Watch.MaxDelay == 0 {
		c.Watch.MaxDelay = 30 * time.Second
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Joplin.Dir == "" {
		return fmt.Errorf("joplin.dir is required")
	}
	if c.Publish.PublicTag == c.Publish.HiddenTag {
		return fmt.Errorf("publish.public_tag and publish.hidden_tag must differ")
	}
	if c.Publish.MaxDepth < 1 {
		return fmt.Errorf("publish.max_depth must be >= 1, got %d", c.Publish.MaxDepth)
	}
	switch c.Publish.OnDepthExceeded {
	case DepthSkip, DepthFlatten, DepthFail:
	default:
		return fmt.Errorf("publish.on_depth_exceeded must be one of skip, flatten, fail: %q", c.Publish.OnDepthExceeded)
	}
	switch c.Publish.OnCycle {
	case CycleFail, CycleSkip:
	default:
		return fmt.Errorf("publish.on_cycle must be one of fail, skip: %q", c.Publish.OnCycle)
	}
	switch c.Publish.OrderBy {
	case OrderByTitle, OrderByCreated, OrderByUpdated:
	default:
		return fmt.Errorf("publish.order_by must be one of title, created, updated: %q", c.Publish.OrderBy)
	}
	if c.Publish.RecentNotes < 0 {
		return fmt.Errorf("publish.recent_notes must be >= 0, got %d", c.Publish.RecentNotes)
	}
	if c.Watch.QuietWindow < 0 || c.Watch.MaxDelay < 0 || c.Watch.Interval < 0 {
		return fmt.Errorf("watch durations must not be negative")
	}
	return nil
}
