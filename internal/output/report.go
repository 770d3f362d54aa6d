package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/depscope/depscope/pkg/vulnmap"
)

// StatusColor colors a verdict status for terminal output.
func StatusColor(status, text string) string {
	switch strings.ToLower(status) {
	case "reachable":
		return color.RedString(text)
	case "unreachable":
		return color.GreenString(text)
	case "unknown":
		return color.YellowString(text)
	default:
		return text
	}
}

// BuildScanReport turns the reachability report into a Renderable document.
// The JSON form serializes the report itself, not the rendered tables.
func BuildScanReport(rep *vulnmap.Report) *Document {
	doc := &Document{
		Title: "Reachability Report",
		Data:  rep,
	}

	doc.Sections = append(doc.Sections, &Section{
		Title: "Summary",
		Content: fmt.Sprintf(
			"Policy: %s\nGraph: %s\nAdvisories: %d  reachable: %d  unreachable: %d  unknown: %d\nNoise reduction: %.1f%%",
			rep.Policy,
			rep.GraphChecksum,
			rep.Summary.Total,
			rep.Summary.Reachable,
			rep.Summary.Unreachable,
			rep.Summary.Unknown,
			rep.Summary.Reduction*100,
		),
	})

	if len(rep.Verdicts) > 0 {
		rows := make([][]string, 0, len(rep.Verdicts))
		for _, v := range rep.Verdicts {
			detail := ""
			switch v.Status {
			case vulnmap.StatusReachable:
				detail = vulnmap.FormatPath(v.Path)
			case vulnmap.StatusUnknown:
				detail = v.Reason
			}
			rows = append(rows, []string{v.AdvisoryID, v.Package, string(v.Status), detail})
		}
		doc.Sections = append(doc.Sections, NewTable(
			"Verdicts",
			[]string{"Advisory", "Package", "Status", "Detail"},
			rows,
			nil,
			rep.Verdicts,
		))
	}

	if len(rep.Languages) > 0 {
		langs := make([]string, 0, len(rep.Languages))
		for lang := range rep.Languages {
			langs = append(langs, lang)
		}
		sort.Strings(langs)

		rows := make([][]string, 0, len(langs))
		for _, lang := range langs {
			st := rep.Languages[lang]
			rows = append(rows, []string{
				lang,
				fmt.Sprintf("%d", st.FilesParsed),
				fmt.Sprintf("%d", st.Nodes),
				fmt.Sprintf("%d", st.Edges),
				fmt.Sprintf("%.2f", st.ConservativeRatio),
				fmt.Sprintf("%d", st.ParseFailures),
			})
		}
		doc.Sections = append(doc.Sections, NewTable(
			"Languages",
			[]string{"Language", "Files", "Nodes", "Edges", "Conservative", "Failures"},
			rows,
			nil,
			rep.Languages,
		))
	}

	if len(rep.Failures) > 0 {
		langs := make([]string, 0, len(rep.Failures))
		for lang := range rep.Failures {
			langs = append(langs, lang)
		}
		sort.Strings(langs)

		var b strings.Builder
		for _, lang := range langs {
			fmt.Fprintf(&b, "%s: %s\n", lang, rep.Failures[lang])
		}
		doc.Sections = append(doc.Sections, &Section{
			Title:   "Incomplete Analysis",
			Content: strings.TrimRight(b.String(), "\n"),
			Data:    rep.Failures,
		})
	}

	return doc
}
