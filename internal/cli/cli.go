// Package cli implements the ltsgraph command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/buildinfo"
	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/config"
	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display and output names.
const appName = "ltsgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty means the default location.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "ltsgraph lays out labelled transition systems",
		Long: `ltsgraph positions the states and transitions of a labelled transition
system with a force-directed spring layout accelerated by a Barnes-Hut tree.

Layouts can be computed in batch, rendered with Graphviz, watched live in the
terminal, or served over HTTP for interactive clients.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/ltsgraph/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the settings file named by --config, or the default one.
func (c *CLI) loadConfig() (config.Settings, error) {
	s, err := config.Load(c.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	c.Logger.Debug("loaded config", "path", c.configPath, "cache", s.Cache.Backend)
	return s, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, s config.Settings, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, s, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

func newCache(ctx context.Context, s config.Settings, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return s.Cache.Open(ctx)
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions builds pipeline options from the loaded settings.
func pipelineOptions(s config.Settings) pipeline.Options {
	settings := s.Layout.Settings
	return pipeline.Options{
		Settings: &settings,
		Clip:     s.Clip.Box(),
		Seed:     s.Layout.Seed,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
