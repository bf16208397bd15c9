package cli

import (
	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/config"
)

// configCommand prints the effective configuration.
func (c *CLI) configCommand() *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Print the effective configuration as TOML.

The output is the config file merged over the built-in defaults and can be
redirected into a new config file as a starting point.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if !defaults {
				var err error
				if cfg, err = c.loadConfig(); err != nil {
					return err
				}
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "ignore the config file and print the built-in defaults")
	return cmd
}
