package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func contextWithArgs(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "", "")
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestGetPath(t *testing.T) {
	if got := getPath(contextWithArgs(t)); got != "." {
		t.Errorf("getPath() with no args = %q, want .", got)
	}
	if got := getPath(contextWithArgs(t, "/foo/bar")); got != "/foo/bar" {
		t.Errorf("getPath() = %q, want /foo/bar", got)
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depscope.toml")
	if err := os.WriteFile(path, []byte("[scan]\npolicy = \"strict\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := contextWithArgs(t)
	if err := c.Set("config", path); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Scan.Policy != "strict" {
		t.Errorf("policy = %q, want strict", cfg.Scan.Policy)
	}
}

func TestLoadConfigMissingExplicitPathFails(t *testing.T) {
	c := contextWithArgs(t)
	if err := c.Set("config", filepath.Join(t.TempDir(), "nope.toml")); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(c); err == nil {
		t.Error("loadConfig() with missing explicit config should fail")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(contextWithArgs(t))
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg == nil {
		t.Fatal("loadConfig() returned nil config")
	}
}
