package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/depscope/depscope/internal/output"
	"github.com/depscope/depscope/pkg/scan"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a project for reachable vulnerabilities",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Solver policy: conservative or strict",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Per-language adapter timeout in seconds (0 = unbounded)",
				Value: -1,
			},
			&cli.StringSliceFlag{
				Name:  "exclude-lang",
				Usage: "Languages to skip (their ecosystems come out unknown)",
			},
			&cli.StringFlag{
				Name:    "inventory",
				Aliases: []string{"i"},
				Usage:   "Dependency inventory file (JSON or YAML)",
			},
			&cli.StringFlag{
				Name:    "advisories",
				Aliases: []string{"a"},
				Usage:   "Directory of OSV-style advisory documents",
			},
			&cli.BoolFlag{
				Name:  "fail-reachable",
				Usage: "Exit non-zero when any advisory is reachable",
			},
		},
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if v := c.String("policy"); v != "" {
		cfg.Scan.Policy = v
	}
	if v := c.Int("timeout"); v >= 0 {
		cfg.Scan.AdapterTimeout = v
	}
	if v := c.StringSlice("exclude-lang"); len(v) > 0 {
		cfg.Scan.ExcludeLanguages = v
	}
	if v := c.String("inventory"); v != "" {
		cfg.Scan.Inventory = v
	}
	if v := c.String("advisories"); v != "" {
		cfg.Scan.Advisories = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format := cfg.Output.Format
	if v := c.String("format"); v != "" {
		format = v
	}
	colored := cfg.Output.Color && !c.Bool("no-color")

	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", getPath(c), err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(format), c.String("output"), colored)
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

	for _, issue := range res.AdvisoryIssues {
		formatter.Warning("skipped advisory %s: %v", issue.Path, issue.Err)
	}

	if err := formatter.Output(output.BuildScanReport(res.Report)); err != nil {
		return err
	}

	if c.Bool("fail-reachable") && res.Report.Summary.Reachable > 0 {
		return cli.Exit(color.RedString("%d reachable advisories", res.Report.Summary.Reachable), 2)
	}
	return nil
}
