package advisory

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parsing embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("advisory.schema.json", doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("advisory.schema.json")
	})
	return schema, schemaErr
}

// osvDoc mirrors the OSV subset the schema admits.
type osvDoc struct {
	ID       string   `json:"id"`
	Summary  string   `json:"summary"`
	Aliases  []string `json:"aliases"`
	Affected []struct {
		Package struct {
			Name      string `json:"name"`
			Ecosystem string `json:"ecosystem"`
		} `json:"package"`
		Ranges []struct {
			Type   string `json:"type"`
			Events []struct {
				Introduced string `json:"introduced"`
				Fixed      string `json:"fixed"`
			} `json:"events"`
		} `json:"ranges"`
		Versions          []string `json:"versions"`
		EcosystemSpecific struct {
			Symbols []string `json:"symbols"`
		} `json:"ecosystem_specific"`
	} `json:"affected"`
}

// Issue records an advisory file that could not be ingested. Bad files never
// abort a load; they are skipped and surfaced.
type Issue struct {
	Path string
	Err  error
}

// LoadDir reads every .json advisory under dir (recursively), validates each
// against the embedded schema, and flattens them into records. The error
// return covers only directory access; per-file problems come back as issues.
func LoadDir(dir string) ([]Record, []Issue, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading advisory directory: %w", err)
	}
	sort.Strings(paths)

	var records []Record
	var issues []Issue
	for _, path := range paths {
		recs, err := loadFile(path)
		if err != nil {
			issues = append(issues, Issue{Path: path, Err: err})
			continue
		}
		records = append(records, recs...)
	}
	return records, issues, nil
}

func loadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates and flattens one advisory document.
func Parse(data []byte) ([]Record, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var doc osvDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(doc.Affected))
	for _, aff := range doc.Affected {
		rec := Record{
			ID:        doc.ID,
			Summary:   doc.Summary,
			Aliases:   doc.Aliases,
			Package:   aff.Package.Name,
			Ecosystem: aff.Package.Ecosystem,
			Versions:  aff.Versions,
			Symbols:   aff.EcosystemSpecific.Symbols,
		}
		for _, rng := range aff.Ranges {
			var cur Range
			for _, ev := range rng.Events {
				switch {
				case ev.Introduced != "":
					if cur.Introduced != "" || cur.Fixed != "" {
						rec.Ranges = append(rec.Ranges, cur)
						cur = Range{}
					}
					cur.Introduced = ev.Introduced
				case ev.Fixed != "":
					cur.Fixed = ev.Fixed
				}
			}
			if cur.Introduced != "" || cur.Fixed != "" {
				rec.Ranges = append(rec.Ranges, cur)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
