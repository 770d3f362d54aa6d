// Package vulnmap correlates advisory records with the merged call graph and
// the solver's reachable set, assigning each applicable vulnerability a
// verdict: Reachable (with a witness path), Unreachable, or Unknown.
package vulnmap

import (
	"fmt"
	"sort"

	"github.com/depscope/depscope/pkg/advisory"
	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/inventory"
	"github.com/depscope/depscope/pkg/symbol"
)

// Status is the outcome of reachability analysis for one advisory.
type Status string

const (
	StatusReachable   Status = "reachable"
	StatusUnreachable Status = "unreachable"
	StatusUnknown     Status = "unknown"
)

// Verdict is the immutable per-(advisory, scan) result.
type Verdict struct {
	AdvisoryID string   `json:"advisory_id"`
	Package    string   `json:"package"`
	Summary    string   `json:"summary,omitempty"`
	Status     Status   `json:"status"`
	Path       []string `json:"path,omitempty"`   // witness call chain for Reachable
	Reason     string   `json:"reason,omitempty"` // set for Unknown
	Policy     string   `json:"policy"`
}

// Mapper holds the read-only scan artifacts verdicts are derived from.
type Mapper struct {
	g   *graph.Graph
	res *graph.Result
	inv *inventory.Inventory
	// langFailures maps language name -> human-readable failure reason for
	// adapters that failed, timed out, or were excluded.
	langFailures map[string]string
}

// New builds a mapper over an immutable graph and solver result.
func New(g *graph.Graph, res *graph.Result, inv *inventory.Inventory, langFailures map[string]string) *Mapper {
	return &Mapper{g: g, res: res, inv: inv, langFailures: langFailures}
}

// Map assigns a verdict to every advisory applicable to the inventory.
// Advisories whose package is absent from the inventory, or whose version
// ranges exclude the installed version, are filtered out entirely: they were
// never flagged for this scan.
func (m *Mapper) Map(records []advisory.Record) []Verdict {
	verdicts := make([]Verdict, 0, len(records))
	for i := range records {
		rec := &records[i]
		pkg, ok := m.inv.Find(rec.Package)
		if !ok || !rec.Affects(pkg.Version) {
			continue
		}
		verdicts = append(verdicts, m.verdict(rec))
	}
	sort.Slice(verdicts, func(i, j int) bool {
		if verdicts[i].AdvisoryID != verdicts[j].AdvisoryID {
			return verdicts[i].AdvisoryID < verdicts[j].AdvisoryID
		}
		return verdicts[i].Package < verdicts[j].Package
	})
	return verdicts
}

func (m *Mapper) verdict(rec *advisory.Record) Verdict {
	v := Verdict{
		AdvisoryID: rec.ID,
		Package:    rec.Package,
		Summary:    rec.Summary,
		Policy:     string(m.res.Policy),
	}

	langs := inventory.Languages(rec.Ecosystem)
	if len(langs) == 0 {
		v.Status = StatusUnknown
		v.Reason = fmt.Sprintf("no analyzer for ecosystem %q", rec.Ecosystem)
		return v
	}

	nodes := m.g.NodesByPackage(rec.Package)
	if len(nodes) == 0 {
		v.Status = StatusUnknown
		v.Reason = "package not analyzed"
		if reason := m.failureFor(langs); reason != "" {
			v.Reason = reason
		}
		return v
	}

	if len(rec.Symbols) > 0 {
		m.symbolVerdict(rec, langs, &v)
	} else {
		m.packageVerdict(nodes, &v)
	}

	// An adapter failure can hide reachability but never fabricate it:
	// Reachable stands, Unreachable degrades to Unknown.
	if v.Status == StatusUnreachable {
		if reason := m.failureFor(langs); reason != "" {
			v.Status = StatusUnknown
			v.Reason = reason
			v.Path = nil
		}
	}
	return v
}

// symbolVerdict applies function-level matching: exact key first, coarse key
// as fallback. Reachable the moment any matched node is in the reachable set.
func (m *Mapper) symbolVerdict(rec *advisory.Record, langs []string, v *Verdict) {
	matchedAny := false
	for _, raw := range rec.Symbols {
		for _, lang := range langs {
			sym, ok := symbol.ParseAdvisorySymbol(lang, raw)
			if !ok {
				continue
			}
			for _, id := range m.g.LookupAll(sym) {
				matchedAny = true
				if m.res.Reachable(id) {
					v.Status = StatusReachable
					v.Path = witnessStrings(m.res, id)
					return
				}
			}
		}
	}
	if !matchedAny {
		// The vulnerable function may live in a file that failed to parse;
		// saying Unreachable here would suppress a real risk.
		v.Status = StatusUnknown
		v.Reason = "vulnerable symbol not found in graph"
		return
	}
	v.Status = StatusUnreachable
}

// packageVerdict applies the package-level disjunction: Reachable iff any
// node originating from the package is reachable.
func (m *Mapper) packageVerdict(nodes []uint32, v *Verdict) {
	for _, id := range nodes {
		if m.res.Reachable(id) {
			v.Status = StatusReachable
			v.Path = witnessStrings(m.res, id)
			return
		}
	}
	v.Status = StatusUnreachable
}

func (m *Mapper) failureFor(langs []string) string {
	for _, lang := range langs {
		if reason, ok := m.langFailures[lang]; ok {
			return fmt.Sprintf("%s analysis incomplete: %s", lang, reason)
		}
	}
	return ""
}

func witnessStrings(res *graph.Result, id uint32) []string {
	syms := res.Witness(id)
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.String()
	}
	return out
}
