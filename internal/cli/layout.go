package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
)

// layoutFlags are the flags shared by layout and render.
type layoutFlags struct {
	maxIterations int
	seed          uint64
	noCache       bool
	refresh       bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", pipeline.DefaultMaxIterations, "stop after this many iterations if the layout has not settled")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for initial placement (default: config layout.seed)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute the layout and overwrite the cached entry")
}

// apply copies the flags onto opts. An unset --seed keeps the config value.
func (f *layoutFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	opts.MaxIterations = f.maxIterations
	opts.Refresh = f.refresh
	if cmd.Flags().Changed("seed") {
		opts.Seed = f.seed
	}
}

// layoutCommand creates the layout command for computing layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		stats  bool
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [model.aut|model.json]",
		Short: "Compute a spring layout for a transition system",
		Long: `Compute a spring layout for a transition system.

The layout command reads an Aldebaran (.aut) or JSON model, runs the spring
embedder until it settles, and writes a layout.json file with the positions
of all states, transition handles and labels. The file can be rendered with
'render' or restored into a session of 'serve'.

Results are cached, keyed by the model and the layout settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipelineOptions(cfg)
			opts.Path = args[0]
			opts.Formats = []string{pipeline.FormatJSON}
			flags.apply(cmd, &opts)

			runner, err := c.newRunner(cmd.Context(), cfg, flags.noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			return c.runLayout(cmd.Context(), runner, opts, output, stats)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print a statistics table")
	flags.register(cmd)

	return cmd
}

// runLayout computes the layout and writes it as JSON.
func (c *CLI) runLayout(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, output string, stats bool) error {
	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	prog := newProgress(c.Logger)
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", opts.Path) + ".layout.json"
	}
	if err := os.WriteFile(outputPath, res.Artifacts[pipeline.FormatJSON], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}
	prog.done(fmt.Sprintf("Laid out %d states", res.Stats.States))

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(res.Stats.States, res.Stats.Transitions, res.CacheInfo.LayoutHit)
	if !res.Layout.Stable {
		printWarning("Layout did not settle within %d iterations", opts.MaxIterations)
	}
	if stats {
		fmt.Println(statsTable(*res))
	}
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}
