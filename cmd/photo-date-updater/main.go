package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/internal/cli"
	"github.com/quidome/photo-date-tools/pkg/metadata"
	"github.com/quidome/photo-date-tools/pkg/pathconv"
	"github.com/quidome/photo-date-tools/pkg/plan"
	"github.com/quidome/photo-date-tools/pkg/update"
	"github.com/quidome/photo-date-tools/pkg/writer"
)

const version = "0.1.0"

var errAllFailed = errors.New("every row failed")

type options struct {
	configPath string
	verbose    bool
	dryRun     bool
	pathStyle  string
	exiftool   string
	noExiftool bool
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
		Use:     "photo-date-updater CSV",
		Short:   "Write reviewed capture dates back into photos",
		Long:    "Photo Date Updater reads a reviewed report produced by photo-date-extractor and sets the EXIF capture time of every photo whose Set Date is filled in.",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runUpdate(cmd, opts, args[0])
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.Flags().StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "perform a dry run without making changes")
	rootCmd.Flags().StringVar(&opts.pathStyle, "path-style", string(pathconv.StyleNone), "rewrite report paths: none, wsl or windows")
	rootCmd.Flags().StringVar(&opts.exiftool, "exiftool", "", "path to the exiftool binary")
	rootCmd.Flags().BoolVar(&opts.noExiftool, "no-exiftool", false, "never fall back to exiftool")

	return rootCmd
}

func runUpdate(cmd *cobra.Command, opts *options, csvPath string) error {
	cfg, log, err := cli.Setup(cmd, opts.configPath, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cmd.Flags().Changed("path-style") {
		style, err := pathconv.ParseStyle(opts.pathStyle)
		if err != nil {
			return err
		}
		cfg.Update.PathStyle = style
	}
	if cmd.Flags().Changed("exiftool") {
		cfg.Writer.ExifToolPath = opts.exiftool
	}
	if opts.noExiftool {
		cfg.Writer.ExifTool = false
	}

	wopts := writer.Options{
		Reader:          metadata.NewReader(metadata.Options{Logger: log}),
		PreserveModTime: cfg.Writer.PreserveMtime,
		DryRun:          opts.dryRun,
		Logger:          log,
	}
	if cfg.Writer.ExifTool {
		et := writer.NewExifTool(cfg.Writer.ExifToolPath)
		defer func() {
			if err := et.Close(); err != nil {
				log.Warn("closing exiftool", zap.Error(err))
			}
		}()
		wopts.Fallback = et
	}

	runner := update.NewRunner(writer.New(wopts), plan.Options{PathStyle: cfg.Update.PathStyle}, log)

	log.Info("updating", zap.String("report", csvPath), zap.Bool("dry_run", opts.dryRun))
	summary, err := runner.RunFile(csvPath)
	if err != nil {
		return err
	}

	for _, o := range summary.Outcomes {
		if o.Status != update.StatusFailed {
			continue
		}
		if o.Err != nil {
			cmd.Printf("line %d: %s: %s: %v\n", o.Line, o.Path, o.Reason, o.Err)
		} else {
			cmd.Printf("line %d: %s: %s\n", o.Line, o.Path, o.Reason)
		}
	}
	if opts.dryRun {
		cmd.Println("Dry run mode: no files were changed")
	}
	cmd.Printf("Success: %d, skipped: %d, failed: %d\n", summary.Success, summary.Skipped, summary.Failed)

	if summary.AllFailed() {
		return errAllFailed
	}
	return nil
}
