package vulnmap

import (
	"strings"

	"github.com/depscope/depscope/pkg/graph"
)

// Summary aggregates verdict counts and the headline reduction statistic.
// Unknown is excluded from the reduction denominator and reported separately
// so partial analysis can never inflate the advertised noise reduction.
type Summary struct {
	Total       int     `json:"total"`
	Reachable   int     `json:"reachable"`
	Unreachable int     `json:"unreachable"`
	Unknown     int     `json:"unknown"`
	Reduction   float64 `json:"reduction"`
}

// Summarize computes the reduction statistic over a verdict set:
// 1 - Reachable/(Reachable+Unreachable).
func Summarize(verdicts []Verdict) Summary {
	s := Summary{Total: len(verdicts)}
	for _, v := range verdicts {
		switch v.Status {
		case StatusReachable:
			s.Reachable++
		case StatusUnreachable:
			s.Unreachable++
		default:
			s.Unknown++
		}
	}
	if denom := s.Reachable + s.Unreachable; denom > 0 {
		s.Reduction = float64(s.Unreachable) / float64(denom)
	}
	return s
}

// Report is the per-scan reachability report consumed by the output layer
// and by downstream policy tooling.
type Report struct {
	Policy        string                         `json:"policy"`
	GraphChecksum string                         `json:"graph_checksum"`
	Summary       Summary                        `json:"summary"`
	Verdicts      []Verdict                      `json:"verdicts"`
	Languages     map[string]graph.LanguageStats `json:"languages,omitempty"`
	// Failures lists languages whose adapters did not complete, with the
	// reason; their ecosystems' verdicts are Unknown, never Unreachable.
	Failures map[string]string `json:"failures,omitempty"`
}

// NewReport assembles the final report from the scan artifacts.
func NewReport(g *graph.Graph, res *graph.Result, verdicts []Verdict, failures map[string]string) *Report {
	return &Report{
		Policy:        string(res.Policy),
		GraphChecksum: g.Checksum(),
		Summary:       Summarize(verdicts),
		Verdicts:      verdicts,
		Languages:     g.Languages(),
		Failures:      failures,
	}
}

// FormatPath renders a witness path as an ordered call chain.
func FormatPath(path []string) string {
	return strings.Join(path, " -> ")
}
