package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/internal/cli"
	"github.com/quidome/photo-date-tools/pkg/metadata"
	"github.com/quidome/photo-date-tools/pkg/report"
	"github.com/quidome/photo-date-tools/pkg/scan"
)

const version = "0.1.0"

type options struct {
	configPath string
	verbose    bool
	list       string
	output     string
	maxDepth   int
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "photo-date-extractor [directory]",
		Short:   "Report the capture dates of photos as CSV",
		Long:    "Photo Date Extractor reads every date a photo carries (EXIF tags, file name, file times), picks the most trustworthy one and writes a CSV report for review.",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (opts.list != "") {
				return errors.New("give either a directory or --list, not both")
			}
			cmd.SilenceUsage = true
			return runExtract(cmd, opts, args)
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().StringVar(&opts.list, "list", "", "file listing one photo path per line")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", report.DefaultOutput, "CSV report to write")
	rootCmd.Flags().IntVar(&opts.maxDepth, "max-depth", -1, "maximum recursion depth (0 = no recursion)")

	return rootCmd
}

func runExtract(cmd *cobra.Command, opts *options, args []string) error {
	cfg, log, err := cli.Setup(cmd, opts.configPath, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cmd.Flags().Changed("output") {
		cfg.Output = opts.output
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.Scan.MaxDepth = opts.maxDepth
	}

	reader := metadata.NewReader(metadata.Options{Logger: log})
	builder := report.NewBuilder(reader, cfg.Selector, log)

	var rows []report.Row
	if opts.list != "" {
		paths, err := readList(opts.list)
		if err != nil {
			return err
		}
		log.Info("extracting", zap.String("list", opts.list), zap.Int("photos", len(paths)))
		rows = builder.Build(paths)
	} else {
		log.Info("extracting", zap.String("directory", args[0]))
		rows, err = builder.BuildDir(args[0], cfg.Scan)
		if err != nil {
			return err
		}
	}

	if err := report.WriteFile(cfg.Output, rows); err != nil {
		return err
	}

	stats := report.Summarize(rows)
	log.Info("report written",
		zap.String("output", cfg.Output),
		zap.Int("rows", stats.Rows),
		zap.Int("errors", stats.Errors),
		zap.Int("unknown", stats.Unknown))

	cmd.Printf("Wrote %d rows to %s\n", stats.Rows, cfg.Output)
	cmd.Printf("Unreadable: %d, without date: %d\n", stats.Errors, stats.Unknown)
	return nil
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()

	paths, err := scan.ReadList(f)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return paths, nil
}
