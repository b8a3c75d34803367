package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/odvcencio/rkdiff/pkg/config"
	"github.com/odvcencio/rkdiff/pkg/diff"
	"github.com/odvcencio/rkdiff/pkg/logfile"
	"github.com/odvcencio/rkdiff/pkg/rulekey"
	"github.com/spf13/cobra"
)

const rootLong = `Analyze RuleKey differences between two builds.

Enable RuleKey logging in the build tool, perform a 'before' and an 'after'
build that differ by the minimal amount needed to reproduce the issue (for
example, the same target from the same revision on two machines), and point
rkdiff at the two log files. With a target name it explains that one
target's key; without, it explains every target named in both logs.

Logs compressed with zstd (.zst) or gzip (.gz) are read transparently.`

func newRootCmd() *cobra.Command {
	var verbose bool
	var checkPaths bool
	var inline bool
	var colorMode string
	var configPath string

	cmd := &cobra.Command{
		Use:   "rkdiff <left-log> <right-log> [target]",
		Short: "Explain RuleKey differences between two build logs",
		Long:  rootLong,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			// Flags win over the config file when set explicitly.
			if cmd.Flags().Changed("check-paths") {
				cfg.CheckPaths = checkPaths
			}
			if cmd.Flags().Changed("inline") {
				cfg.Inline = inline
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = colorMode
			}
			switch cfg.Color {
			case "always":
				color.NoColor = false
			case "never":
				color.NoColor = true
			}

			target := ""
			if len(args) == 3 {
				target = args[2]
			}
			return runDiff(cmd, args[0], args[1], target, verbose, cfg)
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "report which referenced keys caused each change")
	cmd.Flags().BoolVar(&checkPaths, "check-paths", false, "report existence and hash of paths seen in changed values")
	cmd.Flags().BoolVar(&inline, "inline", false, "render character-level diffs for one-for-one replaced values")
	cmd.Flags().StringVar(&colorMode, "color", "auto", "colorize the report: auto, always, or never")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (default "+config.DefaultPath+")")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path, true)
	}
	return config.Load(config.DefaultPath, false)
}

func runDiff(cmd *cobra.Command, leftPath, rightPath, target string, verbose bool, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	left, err := loadLog(out, leftPath)
	if err != nil {
		return err
	}
	right, err := loadLog(out, rightPath)
	if err != nil {
		return err
	}

	leftArgs := left.InvocationInfo(cfg.ArgsKey)
	rightArgs := right.InvocationInfo(cfg.ArgsKey)
	if leftArgs != rightArgs {
		fmt.Fprintf(out,
			"Commands used to generate the logs are not identical: [%s] vs [%s]. This might cause spurious differences to be listed.\n",
			leftArgs, rightArgs)
	}

	opts := diff.Options{
		Verbose:     verbose,
		CheckPaths:  cfg.CheckPaths,
		Inline:      cfg.Inline,
		DepSuffixes: cfg.DepSuffixes,
	}

	fmt.Fprintln(out, "Comparing rules...")
	var report []string
	if target != "" {
		report, err = diff.ByName(target, left, right, opts)
		if err != nil {
			return err
		}
	} else {
		report = diff.All(left, right, opts, out)
	}

	for _, line := range diff.Colorize(report) {
		fmt.Fprintln(out, line)
	}
	return nil
}

// loadLog opens, parses, and indexes one log file with progress output.
func loadLog(out io.Writer, path string) (*rulekey.Index, error) {
	fmt.Fprintf(out, "Loading %s\n", path)
	r, err := logfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx, err := rulekey.Load(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	fmt.Fprintf(out, "Loaded %d rules\n", idx.Size())
	return idx, nil
}
