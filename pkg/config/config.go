// Package config loads depscope configuration from file with sane defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/depscope/depscope/pkg/graph"
)

// Config holds all configuration options for depscope.
type Config struct {
	Scan    ScanConfig    `koanf:"scan"`
	Exclude ExcludeConfig `koanf:"exclude"`
	Output  OutputConfig  `koanf:"output"`
}

// ScanConfig controls the reachability analysis.
type ScanConfig struct {
	// Policy selects which call edges the solver traverses:
	// conservative (default) or strict.
	Policy string `koanf:"policy"`
	// AdapterTimeout bounds each language adapter, in seconds. Zero means
	// no per-adapter deadline.
	AdapterTimeout int `koanf:"adapter_timeout"`
	// Languages to skip entirely; their ecosystems' verdicts come out
	// Unknown.
	ExcludeLanguages []string `koanf:"exclude_languages"`
	// Advisories is the directory of OSV-style JSON advisory documents.
	Advisories string `koanf:"advisories"`
	// Inventory is the dependency inventory file (JSON or YAML).
	Inventory string `koanf:"inventory"`
}

// ExcludeConfig defines file exclusion patterns for source discovery.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns"`
	Dirs      []string `koanf:"dirs"`
	Gitignore bool     `koanf:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Policy:         string(graph.PolicyConservative),
			AdapterTimeout: 300,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.pb.go",
				"*_generated.go",
			},
			Dirs: []string{
				".git",
				".depscope",
				"dist",
				"build",
				"__pycache__",
				"target/debug",
				"target/release",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault tries standard config locations and falls back to defaults.
func LoadOrDefault() *Config {
	names := []string{
		"depscope.toml", "depscope.yaml", "depscope.yml", "depscope.json",
		".depscope.toml", ".depscope.yaml", ".depscope.yml", ".depscope.json",
	}
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			if cfg, err := Load(name); err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if _, err := graph.ParsePolicy(c.Scan.Policy); err != nil {
		return err
	}
	if c.Scan.AdapterTimeout < 0 {
		return fmt.Errorf("scan.adapter_timeout must not be negative")
	}
	switch c.Output.Format {
	case "", "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// Policy returns the parsed solver policy.
func (c *Config) Policy() graph.Policy {
	p, err := graph.ParsePolicy(c.Scan.Policy)
	if err != nil {
		return graph.PolicyConservative
	}
	return p
}

// AdapterDeadline returns the per-adapter timeout as a duration; zero means
// unbounded.
func (c *Config) AdapterDeadline() time.Duration {
	return time.Duration(c.Scan.AdapterTimeout) * time.Second
}

// LanguageExcluded reports whether a language is configured out of the scan.
func (c *Config) LanguageExcluded(lang string) bool {
	for _, l := range c.Scan.ExcludeLanguages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// ShouldExclude checks whether a discovered path is excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		sep := string(filepath.Separator)
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
