// Package io reads and writes labelled transition systems and their layouts.
//
// # Model Formats
//
// Two model formats are understood, chosen by file extension in
// [ImportModel] and [ExportModel]:
//
// Aldebaran (.aut), one header line followed by one line per transition:
//
//	des (0, 3, 3)
//	(0, "a", 1)
//	(1, "b", 2)
//	(2, "tau", 2)
//
// JSON (.json), the [graph.Model] encoding:
//
//	{
//	  "initial": 0,
//	  "states": ["s0", "s1", "s2"],
//	  "transitions": [{"from": 0, "to": 1, "label": "a"}]
//	}
//
// Aldebaran files carry no state names; states are named by their index.
//
// # Layouts
//
// [ExportLayout] and [ImportLayout] store a [graph.Layout] snapshot as
// indented JSON. A layout contains its model, so [ImportLayout] is enough to
// restore a previous session with a warm start.
//
// All readers validate the model before returning it and never close the
// reader they are given.
package io
