package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/vulnmap"
)

func sampleReport() *vulnmap.Report {
	return &vulnmap.Report{
		Policy:        "conservative",
		GraphChecksum: "abc123",
		Summary: vulnmap.Summary{
			Total: 3, Reachable: 1, Unreachable: 1, Unknown: 1, Reduction: 0.5,
		},
		Verdicts: []vulnmap.Verdict{
			{AdvisoryID: "GHSA-1", Package: "lodash", Status: vulnmap.StatusReachable,
				Path: []string{"app.main", "lodash/merge.merge"}},
			{AdvisoryID: "GHSA-2", Package: "rack", Status: vulnmap.StatusUnreachable},
			{AdvisoryID: "GHSA-3", Package: "left-pad", Status: vulnmap.StatusUnknown,
				Reason: "package not analyzed"},
		},
		Languages: map[string]graph.LanguageStats{
			"javascript": {Nodes: 10, Edges: 12, FilesParsed: 4, ConservativeRatio: 0.25},
		},
		Failures: map[string]string{"ruby": "adapter timeout"},
	}
}

func TestBuildScanReportText(t *testing.T) {
	doc := BuildScanReport(sampleReport())

	var buf bytes.Buffer
	if err := doc.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Reachability Report",
		"Policy: conservative",
		"Noise reduction: 50.0%",
		"GHSA-1",
		"app.main -> lodash/merge.merge",
		"package not analyzed",
		"javascript",
		"ruby: adapter timeout",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildScanReportMarkdown(t *testing.T) {
	doc := BuildScanReport(sampleReport())

	var buf bytes.Buffer
	if err := doc.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "# Reachability Report") {
		t.Errorf("missing document title:\n%s", out)
	}
	if !strings.Contains(out, "| Advisory | Package | Status | Detail |") {
		t.Errorf("missing verdict table header:\n%s", out)
	}
}

func TestBuildScanReportJSONData(t *testing.T) {
	rep := sampleReport()
	doc := BuildScanReport(rep)
	if doc.RenderData() != any(rep) {
		t.Error("JSON serialization must expose the report itself")
	}
}

func TestStatusColorFallback(t *testing.T) {
	if got := StatusColor("bogus", "x"); got != "x" {
		t.Errorf("StatusColor fallback = %q", got)
	}
}

func TestBuildScanReportEmptySections(t *testing.T) {
	doc := BuildScanReport(&vulnmap.Report{Policy: "strict"})
	// Only the summary section should be present.
	if len(doc.Sections) != 1 {
		t.Errorf("sections = %d, want 1", len(doc.Sections))
	}
}
