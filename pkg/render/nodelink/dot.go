package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// Output formats understood by [Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Options configures diagram generation.
type Options struct {
	// Scale converts layout units to points. Zero means 1.
	Scale float64

	// Labels draws state names and transition labels.
	Labels bool
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// ToDOT converts a layout to Graphviz DOT with pinned node positions.
func ToDOT(l graph.Layout, opts Options) string {
	s := opts.scale()
	pos := func(p graph.LayoutPoint) string {
		return fmt.Sprintf("%s,%s!", num(p.X*s), num(p.Y*s))
	}

	var buf bytes.Buffer
	buf.WriteString("digraph LTS {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, width=0.25, fixedsize=true, style=filled, fillcolor=white, label=\"\", fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("\n")

	for i, n := range l.Nodes {
		attrs := fmt.Sprintf("pos=%q", pos(n))
		if i == l.Initial {
			attrs += ", fillcolor=\"#9fdc9f\""
		}
		if n.Locked {
			attrs += ", penwidth=2"
		}
		if opts.Labels && i < len(l.States) {
			attrs += fmt.Sprintf(", xlabel=%q", l.States[i])
		}
		fmt.Fprintf(&buf, "  s%d [%s];\n", i, attrs)
	}

	buf.WriteString("\n")
	for i, e := range l.Edges {
		if e.From == e.To {
			fmt.Fprintf(&buf, "  s%d -> s%d;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  h%d [shape=point, width=0.01, style=invis, pos=%q];\n", i, pos(l.Handles[i]))
			fmt.Fprintf(&buf, "  s%d -> h%d [arrowhead=none];\n", e.From, i)
			fmt.Fprintf(&buf, "  h%d -> s%d;\n", i, e.To)
		}
		if opts.Labels {
			fmt.Fprintf(&buf, "  t%d [shape=plaintext, style=\"\", fixedsize=false, label=%q, pos=%q];\n",
				i, e.Label, pos(l.TransitionLabels[i]))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return Render(ctx, dot, FormatSVG)
}

// Render renders DOT source to format. FormatDOT returns dot unchanged.
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if gvFormat == graphviz.SVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's fixed-size svg tag with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
