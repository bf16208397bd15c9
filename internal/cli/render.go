package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	ltsio "github.com/mCRL2org/ltsgraph/pkg/io"
	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
)

// layoutSuffix marks files written by the layout command.
const layoutSuffix = ".layout.json"

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		formats string
		scale   float64
		labels  bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "render [model.aut|model.json|model.layout.json]",
		Short: "Render a transition system to DOT, SVG, PNG or JSON",
		Long: `Render a transition system to DOT, SVG, PNG or JSON.

A model file is laid out first. A file ending in .layout.json (written by the
'layout' command) is rendered as is, keeping the positions it stores.

Graphviz draws the states at their computed positions and routes each
transition through its handle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipelineOptions(cfg)
			opts.Formats = parseFormats(formats)
			opts.Scale = scale
			opts.Labels = labels
			flags.apply(cmd, &opts)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), cfg, flags.noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			return c.runRender(cmd.Context(), runner, args[0], opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "output format(s): svg (default), dot, png, json (comma-separated)")
	cmd.Flags().Float64Var(&scale, "scale", pipeline.DefaultScale, "points per layout unit")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw state and transition labels")
	flags.register(cmd)

	return cmd
}

// runRender renders input in every requested format and writes the files.
func (c *CLI) runRender(ctx context.Context, runner *pipeline.Runner, input string, opts pipeline.Options, output string) error {
	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()

	var (
		artifacts   map[string][]byte
		states      int
		transitions int
		cached      bool
	)
	if isLayoutFile(input) {
		l, err := ltsio.ImportLayout(input)
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
		states, transitions = len(l.Nodes), len(l.Edges)
		artifacts, cached, err = runner.RenderWithCacheInfo(ctx, l, opts)
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
	} else {
		spinner.SetMessage("Computing layout...")
		opts.Path = input
		res, err := runner.Execute(ctx, opts)
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
		artifacts = res.Artifacts
		states, transitions = res.Stats.States, res.Stats.Transitions
		cached = res.CacheInfo.LayoutHit
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", strings.Join(opts.Formats, ", "))
	for _, p := range paths {
		printFile(p)
	}
	printStats(states, transitions, cached)
	return nil
}

// writeArtifacts writes one file per format and returns the paths in
// format order. A single format goes to output verbatim when it is set.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	if len(formats) == 1 && output != "" {
		if err := os.WriteFile(output, artifacts[formats[0]], 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", output, err)
		}
		return []string{output}, nil
	}

	base := basePath(output, input)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		p := base + "." + f
		if f == pipeline.FormatJSON {
			p = base + layoutSuffix
		}
		if err := os.WriteFile(p, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// isLayoutFile reports whether path names a layout snapshot.
func isLayoutFile(path string) bool {
	return strings.HasSuffix(path, layoutSuffix)
}

// basePath derives the base output path from the output and input paths.
// An empty output strips the input's extension, including a .layout.json
// suffix. A known format extension on output is stripped as well.
func basePath(output, input string) string {
	if output == "" {
		if isLayoutFile(input) {
			return strings.TrimSuffix(input, layoutSuffix)
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if slices.Contains(knownExtensions, ext) {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

// knownExtensions are stripped from -o when deriving a base path.
var knownExtensions = []string{
	pipeline.FormatDOT, pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatJSON,
	string(ltsio.FormatAUT),
}
