// Package layout implements the spring layout engine: one [Engine.Apply]
// call is one iteration of a force-directed simulation over the points of a
// [graph.Store].
//
// # Iteration
//
// Apply runs under the graph write lock and
//
//  1. returns at once when the graph is marked stable;
//  2. resolves the working set (all, selected or explored nodes and edges)
//     once, up front;
//  3. accumulates repulsion among nodes, among handles and among transition
//     labels, either pairwise or through a Barnes-Hut [octree.Tree];
//  4. accumulates attraction: edge springs between endpoints, handles toward
//     their edge midpoint, transition labels toward their handle, state
//     labels toward their node, and an outward push on self-loop handles;
//  5. moves every non-anchored point through the active application law at
//     the current temperature and clamps it into the clip region;
//  6. feeds the energy (sum of squared net forces of moved points) to the
//     annealer and checks for stability;
//  7. optionally nudges everything back toward the origin when nothing is
//     anchored.
//
// # Tuning
//
// Every parameter has a getter and a setter that may be called from any
// goroutine while a worker is running; changes apply from the next
// iteration. Setters must not be called from inside a [graph.Store.Update]
// closure.
//
// # Randomness
//
// Each engine owns a seeded random source used for initial placement and
// repulsion jitter, so engines for different documents never share state
// and runs with the same seed are reproducible.
package layout
