// Package cli holds the setup shared by the photo-date commands.
package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/pkg/config"
	"github.com/quidome/photo-date-tools/pkg/logging"
)

// Setup loads the configuration and builds the run's logger. Log output goes
// to the command's stderr; verbose forces debug level.
func Setup(cmd *cobra.Command, configPath string, verbose bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	log = log.With(
		zap.String("cmd", cmd.Name()),
		zap.String("run_id", uuid.NewString()),
	)
	return cfg, log, nil
}
