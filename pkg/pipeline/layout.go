package pipeline

import (
	"context"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/io"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
)

// Load returns the model named by opts.
func Load(opts Options) (graph.Model, error) {
	if opts.Model != nil {
		if err := opts.Model.Validate(); err != nil {
			return graph.Model{}, err
		}
		return *opts.Model, nil
	}
	return io.ImportModel(opts.Path)
}

// GenerateLayout lays out m without caching. It returns the final snapshot
// and the number of iterations that did work.
func GenerateLayout(ctx context.Context, m graph.Model, opts Options) (graph.Layout, int, error) {
	opts.SetLayoutDefaults()

	store := graph.NewStore()
	e := layout.New(store,
		layout.WithSettings(*opts.Settings),
		layout.WithClip(opts.Clip),
		layout.WithSeed(opts.Seed),
		layout.WithLogger(opts.Logger),
	)
	if err := e.Load(m); err != nil {
		return graph.Layout{}, 0, err
	}

	st, err := e.RunUntilStable(ctx, opts.MaxIterations)
	if err != nil {
		return graph.Layout{}, st.Iteration, err
	}

	var l graph.Layout
	store.Read(func(g *graph.Graph) { l = g.Snapshot() })
	return l, st.Iteration, nil
}
