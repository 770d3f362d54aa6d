// Package inventory models the dependency inventory a scan runs against:
// which packages (name, version, ecosystem) the project depends on, and which
// graph nodes originate from which package.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package is one dependency from the manifest layer.
type Package struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Ecosystem string `json:"ecosystem" yaml:"ecosystem"`
}

// Inventory is the full dependency set of a scan.
type Inventory struct {
	Packages []Package `json:"packages" yaml:"packages"`
}

// Load reads an inventory document. JSON and YAML are both accepted; the
// format is picked by extension, defaulting to YAML.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var inv Inventory
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &inv)
	default:
		err = yaml.Unmarshal(data, &inv)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", path, err)
	}

	for i, p := range inv.Packages {
		if p.Name == "" {
			return nil, fmt.Errorf("inventory package %d has no name", i)
		}
	}
	return &inv, nil
}

// ecosystemLanguages maps advisory/manifest ecosystems onto the languages
// whose adapters analyze their code.
var ecosystemLanguages = map[string][]string{
	"go":        {"go"},
	"npm":       {"javascript", "typescript"},
	"pypi":      {"python"},
	"crates.io": {"rust"},
	"maven":     {"java"},
	"rubygems":  {"ruby"},
}

// Languages returns the analyzer languages for an ecosystem name
// (case-insensitive). Unknown ecosystems return nil: their packages can only
// ever receive Unknown verdicts.
func Languages(ecosystem string) []string {
	return ecosystemLanguages[strings.ToLower(ecosystem)]
}

// Find returns the inventory entry for a package name, if present.
func (inv *Inventory) Find(name string) (Package, bool) {
	for _, p := range inv.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}
