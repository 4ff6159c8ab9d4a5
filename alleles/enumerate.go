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
Package alleles enumerates the distinct traversals of a Site that are
realized by the graph's embedded paths, and are supported by enough
distinct paths to be trusted as real alleles rather than noise.
*/
package alleles

import (
	"sort"

	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/sites"
)

// Allele is one candidate traversal of a site, carrying both the traversal
// itself (needed by package affinity to canonicalize reads against it) and
// its spelled sequence (needed for the prefix/suffix/exact consistency
// rules and, eventually, VCF rendering).
type Allele struct {
	Traversal []graph.NodeTraversal
	Sequence  []byte
	Count     int // number of distinct embedded paths that realized this traversal
}

// Enumerate walks every embedded path that touches both site.Start.Node and
// site.End.Node, collects the distinct traversals realized between them,
// and keeps those with at least minRecurrence occurrences.
//
// If referencePathName names a path present in the graph, its own
// traversal of the site is computed unconditionally and unioned into the
// result regardless of minRecurrence: per the resolved Open Question in
// SPEC_FULL.md §4.3, the reference allele must never be silently elided by
// too strict a recurrence threshold when the site's endpoints lie on the
// reference.
func Enumerate(g *graph.Graph, site *sites.Site, maxPathSearchSteps, minRecurrence int, referencePathName string) []*Allele {
	counts := make(map[string]*Allele)

	for _, p := range g.Paths {
		if !touchesNode(p, site.Start.Node) || !touchesNode(p, site.End.Node) {
			continue
		}
		for i, m := range p.Mappings {
			if m.Traversal.Node != site.Start.Node {
				continue
			}
			if ts, ok := walkSite(g, p, i, site, maxPathSearchSteps); ok {
				record(counts, g, ts)
			}
		}
	}

	var refSeq string
	var refAllele *Allele
	if referencePathName != "" {
		if refPath, ok := g.Path(referencePathName); ok {
			for i, m := range refPath.Mappings {
				if m.Traversal.Node != site.Start.Node {
					continue
				}
				if ts, ok := walkSite(g, refPath, i, site, maxPathSearchSteps); ok {
					refSeq = string(g.SpellTraversals(ts))
					if a, found := counts[refSeq]; found {
						refAllele = a
					} else {
						refAllele = &Allele{Traversal: ts, Sequence: []byte(refSeq), Count: 1}
					}
					break
				}
			}
		}
	}

	var rest []*Allele
	for seq, a := range counts {
		if seq == refSeq {
			continue
		}
		if a.Count >= minRecurrence {
			rest = append(rest, a)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return string(rest[i].Sequence) < string(rest[j].Sequence) })

	// Ordered with the reference allele first, matching the VCF convention
	// that allele index 0 is REF; alt alleles follow in a deterministic
	// (lexicographic) order rather than Go's randomized map iteration order.
	var out []*Allele
	if refAllele != nil {
		out = append(out, refAllele)
	}
	return append(out, rest...)
}

func touchesNode(p *graph.Path, node int64) bool {
	for _, m := range p.Mappings {
		if m.Traversal.Node == node {
			return true
		}
	}
	return false
}

// walkSite walks path p starting at mapping index i (which must already be
// known to sit on site.Start.Node) toward site.End.Node, in whichever
// direction the site's and the mapping's orientations imply, for at most
// maxSteps mappings.
func walkSite(g *graph.Graph, p *graph.Path, i int, site *sites.Site, maxSteps int) ([]graph.NodeTraversal, bool) {
	start := p.Mappings[i].Traversal
	traverseLeft := site.Start.Backward != start.Backward
	expectedEndBackward := site.End.Backward

	var out []graph.NodeTraversal
	idx := i
	for steps := 0; steps <= maxSteps; steps++ {
		if idx < 0 || idx >= len(p.Mappings) {
			return nil, false
		}
		t := p.Mappings[idx].Traversal
		if traverseLeft {
			t = t.Reverse()
		}
		out = append(out, t)
		if t.Node == site.End.Node && t.Backward == expectedEndBackward {
			return out, true
		}
		if traverseLeft {
			idx--
		} else {
			idx++
		}
	}
	return nil, false
}

func record(counts map[string]*Allele, g *graph.Graph, ts []graph.NodeTraversal) {
	seq := string(g.SpellTraversals(ts))
	if a, ok := counts[seq]; ok {
		a.Count++
		return
	}
	counts[seq] = &Allele{Traversal: ts, Sequence: []byte(seq), Count: 1}
}

// HasTraversals reports whether Enumerate would find at least one
// traversal for site, ignoring minRecurrence — used by sites.ResolveInsideOut
// to decide whether a site needs its endpoints swapped.
func HasTraversals(g *graph.Graph, site *sites.Site, maxPathSearchSteps int) bool {
	for _, p := range g.Paths {
		if !touchesNode(p, site.Start.Node) || !touchesNode(p, site.End.Node) {
			continue
		}
		for i, m := range p.Mappings {
			if m.Traversal.Node != site.Start.Node {
				continue
			}
			if _, ok := walkSite(g, p, i, site, maxPathSearchSteps); ok {
				return true
			}
		}
	}
	return false
}
