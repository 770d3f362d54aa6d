package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/depscope/depscope/internal/output"
	"github.com/depscope/depscope/pkg/scan"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"dag"},
		Usage:     "Export the merged call graph (Mermaid or JSON)",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Include degree and PageRank metrics",
			},
		},
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// The graph export never needs advisory mapping.
	cfg.Scan.Advisories = ""

	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", getPath(c), err)
	}

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")),
		c.String("output"),
		cfg.Output.Color && !c.Bool("no-color"),
	)
	if err != nil {
		return err
	}
	defer formatter.Close()

	showProgress := formatter.Format() == output.FormatText && c.String("output") == ""
	res, err := scan.Run(c.Context, scan.Options{
		Root:     root,
		Config:   cfg,
		Progress: showProgress,
	})
	if err != nil {
		return err
	}

	export := res.Graph.Export(c.Bool("metrics"))

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(export)
	}

	export.WriteMermaid(formatter.Writer())

	if export.Metrics != nil {
		m := export.Metrics
		w := formatter.Writer()
		fmt.Fprintln(w)
		formatter.Info("Graph Metrics:")
		fmt.Fprintf(w, "  Nodes: %d\n", m.TotalNodes)
		fmt.Fprintf(w, "  Edges: %d\n", m.TotalEdges)
		fmt.Fprintf(w, "  Conservative edges: %d\n", m.ConservativeEdges)
		fmt.Fprintf(w, "  Avg degree: %.2f\n", m.AvgDegree)
		fmt.Fprintf(w, "  Density: %.4f\n", m.Density)
		if len(m.TopNodes) > 0 {
			fmt.Fprintln(w)
			formatter.Info("Top nodes by PageRank:")
			for _, nm := range m.TopNodes {
				fmt.Fprintf(w, "  %.4f  %s (in %d, out %d)\n", nm.PageRank, nm.Symbol, nm.InDegree, nm.OutDegree)
			}
		}
	}
	return nil
}
