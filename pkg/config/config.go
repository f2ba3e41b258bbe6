// Package config loads settings shared by both tools.
//
// Sources, lowest precedence first: built-in defaults, an optional config
// file, PHOTODATES_* environment variables. Command line flags are applied
// on top by the caller.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quidome/photo-date-tools/pkg/pathconv"
	"github.com/quidome/photo-date-tools/pkg/report"
	"github.com/quidome/photo-date-tools/pkg/scan"
	"github.com/quidome/photo-date-tools/pkg/selector"
)

// EnvPrefix prefixes every environment override, e.g. PHOTODATES_LOG_LEVEL.
const EnvPrefix = "PHOTODATES"

type Config struct {
	Output   string
	Scan     scan.Options
	Selector selector.Options
	Writer   WriterConfig
	Update   UpdateConfig
	Log      LogConfig
}

type WriterConfig struct {
	ExifTool      bool
	ExifToolPath  string
	PreserveMtime bool
}

type UpdateConfig struct {
	PathStyle pathconv.Style
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the configuration. An empty path skips the config file.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := selector.DefaultOptions()
	priority := make([]string, 0, len(def.Priority))
	for _, f := range def.Priority {
		priority = append(priority, string(f))
	}

	v.SetDefault("output", report.DefaultOutput)
	v.SetDefault("scan.max_depth", -1)
	v.SetDefault("scan.extensions", scan.DefaultExtensions())
	v.SetDefault("selector.priority", priority)
	v.SetDefault("selector.min_year", def.Plausibility.MinYear)
	v.SetDefault("selector.future_tolerance", def.Plausibility.FutureTolerance)
	v.SetDefault("selector.reject_epoch", def.Plausibility.RejectEpoch)
	v.SetDefault("selector.refine_precision", def.RefinePrecision)
	v.SetDefault("writer.exiftool", true)
	v.SetDefault("writer.exiftool_path", "")
	v.SetDefault("writer.preserve_mtime", true)
	v.SetDefault("update.path_style", string(pathconv.StyleNone))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	fields, err := selector.ParsePriority(v.GetStringSlice("selector.priority"))
	if err != nil {
		return nil, fmt.Errorf("selector.priority: %w", err)
	}
	style, err := pathconv.ParseStyle(v.GetString("update.path_style"))
	if err != nil {
		return nil, fmt.Errorf("update.path_style: %w", err)
	}
	tolerance := v.GetDuration("selector.future_tolerance")
	if tolerance < 0 {
		return nil, fmt.Errorf("selector.future_tolerance: must not be negative, got %v", tolerance)
	}

	cfg := &Config{
		Output: v.GetString("output"),
		Scan: scan.Options{
			MaxDepth:   v.GetInt("scan.max_depth"),
			Extensions: v.GetStringSlice("scan.extensions"),
		},
		Selector: selector.Options{
			Priority: fields,
			Plausibility: selector.Plausibility{
				MinYear:         v.GetInt("selector.min_year"),
				FutureTolerance: tolerance,
				RejectEpoch:     v.GetBool("selector.reject_epoch"),
			},
			Now:             time.Now,
			RefinePrecision: v.GetBool("selector.refine_precision"),
		},
		Writer: WriterConfig{
			ExifTool:      v.GetBool("writer.exiftool"),
			ExifToolPath:  v.GetString("writer.exiftool_path"),
			PreserveMtime: v.GetBool("writer.preserve_mtime"),
		},
		Update: UpdateConfig{PathStyle: style},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, nil
}
