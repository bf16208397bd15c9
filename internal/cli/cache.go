package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/config"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts and renders",
		Long: `Remove all cached layouts and renders.

Only the file backend can be cleared from the command line. Redis and MongoDB
entries expire on their own after the configured TTL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cc, err := cfg.Cache.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer cc.Close()

			fc, ok := cc.(*cache.FileCache)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "cannot clear the %s cache backend", cfg.Cache.Backend)
			}
			if err := fc.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared layout cache")
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheDir returns the directory of the file backend. Other backends have
// no directory.
func cacheDir(cfg config.Settings) (string, error) {
	opts, err := cfg.Cache.Options()
	if err != nil {
		return "", err
	}
	if opts.Backend != cache.BackendFile {
		return "", errors.New(errors.ErrCodeUnsupported, "the %s cache backend has no directory", opts.Backend)
	}
	return opts.Dir, nil
}
