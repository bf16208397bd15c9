package pipeline

import (
	"context"
	"fmt"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	opts.SetRenderDefaults()

	var dot string
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if err := ValidateFormat(format); err != nil {
			return nil, err
		}

		var data []byte
		var err error
		if format == FormatJSON {
			data, err = graph.MarshalLayout(l)
		} else {
			if dot == "" {
				dot = nodelink.ToDOT(l, opts.NodelinkOptions())
			}
			data, err = nodelink.Render(ctx, dot, format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
