// Package render groups the output back ends for laid-out transition
// systems.
//
// Both back ends read positions and never move anything:
//
//   - render/nodelink writes Graphviz DOT with every state pinned at its
//     layout position and renders it to SVG or PNG through go-graphviz.
//   - render/ascii draws the XY projection of the working set onto a
//     character grid, used by the live terminal view.
package render
