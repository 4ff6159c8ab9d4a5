// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

/*
Package sites decomposes a bidirected sequence graph into Sites: contiguous
subgraphs bounded by two NodeTraversals such that every maximal traversal
entering through one and exiting through the other stays within the site's
contents. Two interchangeable strategies are provided: a superbubble
decomposition over a dagified view of the graph (FindSuperbubbles), and a
bridge-based finder that groups nodes into 2-edge-connected components and
reports components with exactly two bridge attachments (FindCactusBubbles).
FindCactusBubbles does not contract 3-edge-connected components or build a
bubble tree: it finds no nested bubbles, and no bubble in a component that
has no bridge attachments. Either can feed the rest of the pipeline.
*/
package sites

import "github.com/exascience/vg-genotyper/graph"

// Site is a contiguous subgraph bounded by two traversals. Contents holds
// every node id inside the site, including the two endpoint nodes.
type Site struct {
	Start    graph.NodeTraversal
	End      graph.NodeTraversal
	Contents map[int64]bool
}

// NewSite builds a Site from its endpoints and interior node id set
// (excluding the endpoints, which are added automatically).
func NewSite(start, end graph.NodeTraversal, interior map[int64]bool) *Site {
	contents := make(map[int64]bool, len(interior)+2)
	for id := range interior {
		contents[id] = true
	}
	contents[start.Node] = true
	contents[end.Node] = true
	return &Site{Start: start, End: end, Contents: contents}
}

// Swapped returns a new Site with Start and End exchanged, used by the
// inside-out correction (see insideout.go).
func (s *Site) Swapped() *Site {
	return &Site{Start: s.End, End: s.Start, Contents: s.Contents}
}
