package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/server"
	"github.com/mCRL2org/ltsgraph/pkg/session"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		stateDir string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve interactive layout sessions over HTTP",
		Long: `Serve interactive layout sessions over HTTP.

Each uploaded model becomes a document with its own layout worker. Clients
can move, anchor and lock points, tune the layout settings, explore the
state space, and fetch snapshots or SVG renders while the layout runs.

With --state-dir, documents are written there when stopped or on shutdown
and restored on the next start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			opts := []session.Option{
				session.WithEngineOptions(append(cfg.EngineOptions(), layout.WithLogger(c.Logger))...),
				session.WithPeriod(cfg.Worker.Period()),
				session.WithLogger(c.Logger),
			}
			if stateDir != "" {
				fs, err := session.NewFileStore(stateDir)
				if err != nil {
					return err
				}
				opts = append(opts, session.WithFileStore(fs))
			}
			docs := session.NewManager(opts...)

			if stateDir != "" {
				n, err := docs.Restore()
				if err != nil {
					docs.Close()
					return fmt.Errorf("restore sessions: %w", err)
				}
				if n > 0 {
					printInfo("Restored %d document(s) from %s", n, stateDir)
				}
			}

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				docs.Close()
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			srv := server.New(docs, server.WithLogger(c.Logger), server.WithRunner(runner))
			printSuccess("Listening on %s", StyleLink.Render(addr))
			printKeyValue("cache", cfg.Cache.Backend)
			if stateDir != "" {
				printKeyValue("state", stateDir)
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config server.addr)")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "directory to persist documents in")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}
