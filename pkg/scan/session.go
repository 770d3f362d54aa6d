// Package scan orchestrates a full reachability scan: source discovery,
// per-language call-graph extraction, graph merge, solving, and advisory
// mapping.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/depscope/depscope/internal/fileproc"
	"github.com/depscope/depscope/internal/progress"
	"github.com/depscope/depscope/internal/scanner"
	"github.com/depscope/depscope/pkg/advisory"
	"github.com/depscope/depscope/pkg/analyzer/callgraph"
	"github.com/depscope/depscope/pkg/config"
	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/inventory"
	"github.com/depscope/depscope/pkg/parser"
	"github.com/depscope/depscope/pkg/vulnmap"
)

// ErrNoSource means discovery found nothing to analyze. Individual file or
// adapter failures are not fatal; an empty scan is.
var ErrNoSource = errors.New("no analyzable source files found")

// Options configures a scan session.
type Options struct {
	// Root is the directory to scan.
	Root string
	// Config supplies policy, exclusions, and input locations; nil means
	// defaults.
	Config *config.Config
	// Progress enables per-language progress bars on stderr.
	Progress bool
}

// Result bundles the scan artifacts. Graph and Solved stay available after
// the scan so callers can export the graph or re-query reachability.
type Result struct {
	Report *vulnmap.Report
	Graph  *graph.Graph
	Solved *graph.Result
	// AdvisoryIssues lists advisory files that failed to load or validate.
	// They are skipped, not fatal.
	AdvisoryIssues []advisory.Issue
	// Files is the number of source files discovered.
	Files int
}

// Run executes a complete scan of opts.Root.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	inv := &inventory.Inventory{}
	if cfg.Scan.Inventory != "" {
		loaded, err := inventory.Load(cfg.Scan.Inventory)
		if err != nil {
			return nil, fmt.Errorf("loading inventory: %w", err)
		}
		inv = loaded
	}
	resolver := inventory.NewResolver(inv)

	sc := scanner.NewScanner(cfg)
	files, err := sc.ScanDir(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.Root, err)
	}
	if len(files) == 0 {
		return nil, ErrNoSource
	}

	groups := sc.GroupByLanguage(files)
	failures := make(map[string]string)
	for _, lang := range cfg.Scan.ExcludeLanguages {
		failures[strings.ToLower(lang)] = "excluded by configuration"
	}

	fragments := runAdapters(ctx, cfg, opts, groups, resolver, failures)

	b := graph.NewBuilder()
	// Merge order is sorted by language so the checksum never depends on
	// goroutine scheduling.
	langs := make([]string, 0, len(fragments))
	for lang := range fragments {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	parsed := 0
	for _, lang := range langs {
		b.AddFragment(fragments[lang])
		parsed += fragments[lang].FilesParsed
	}
	if parsed == 0 {
		return nil, ErrNoSource
	}

	g := b.Finalize()
	solved := graph.Solve(g, cfg.Policy())

	var records []advisory.Record
	var issues []advisory.Issue
	if cfg.Scan.Advisories != "" {
		records, issues, err = advisory.LoadDir(cfg.Scan.Advisories)
		if err != nil {
			return nil, fmt.Errorf("loading advisories: %w", err)
		}
	}

	mapper := vulnmap.New(g, solved, inv, failures)
	verdicts := mapper.Map(records)

	return &Result{
		Report:         vulnmap.NewReport(g, solved, verdicts, failures),
		Graph:          g,
		Solved:         solved,
		AdvisoryIssues: issues,
		Files:          len(files),
	}, nil
}

// runAdapters fans out one extraction task per language. Fragments and the
// failure map are only written under mu; the graph builder itself is fed
// later from a single goroutine.
func runAdapters(
	ctx context.Context,
	cfg *config.Config,
	opts Options,
	groups map[parser.Language][]string,
	resolver *inventory.Resolver,
	failures map[string]string,
) map[string]*graph.Fragment {
	type task struct {
		lang  parser.Language
		files []string
	}
	tasks := make([]task, 0, len(groups))
	for lang, group := range groups {
		tasks = append(tasks, task{lang: lang, files: group})
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].lang < tasks[j].lang })

	var mu sync.Mutex
	fragments := make(map[string]*graph.Fragment, len(tasks))

	fileproc.ForEach(tasks, len(tasks), func(t task) {
		adapter, ok := callgraph.ForLanguage(t.lang, resolver.Origin)
		if !ok {
			mu.Lock()
			failures[string(t.lang)] = "no adapter for language"
			mu.Unlock()
			return
		}

		actx := ctx
		if deadline := cfg.AdapterDeadline(); deadline > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}

		tracker := progress.NewTracker(fmt.Sprintf("Analyzing %s...", t.lang), len(t.files), opts.Progress)
		frag, err := adapter.Analyze(actx, opts.Root, t.files, tracker.Tick)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			tracker.FinishError(err)
			reason := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				reason = fmt.Sprintf("adapter timed out after %s", cfg.AdapterDeadline())
			}
			failures[string(t.lang)] = reason
			return
		}
		tracker.FinishSuccess()
		fragments[string(t.lang)] = frag
	})

	return fragments
}
