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
Package affinity scores each read against each candidate allele of a site.
The default (ScoreFast) compares a read's own sequence across the site
against each allele's full spelled sequence using an exact/prefix/suffix
consistency rule. An alternate, slower mode (package-level ScoreRealign in
realign.go) realigns reads against small per-allele subgraphs instead, and
is selected only when the run is configured for it.
*/
package affinity

import (
	"bytes"
	"log"

	"github.com/exascience/vg-genotyper/alleles"
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/sites"
)

// Affinity records one (read, allele) comparison.
type Affinity struct {
	AlleleIndex int
	Consistent  bool
	IsReverse   bool
	Weight      float64
}

// ScoreFast extracts aln's sub-traversal restricted to site.Contents,
// canonicalizes its orientation, and compares its spelled sequence against
// every allele's full sequence. It returns (affinities, true) if the read
// was informative, or (nil, false) if the read touches only the site's
// start or only its end with no internal node (uninformative anchor-only
// touch) or touches neither endpoint at all (can't be anchored to either
// side of any allele).
func ScoreFast(g *graph.Graph, site *sites.Site, alleleList []*alleles.Allele, aln *graph.Alignment) ([]Affinity, bool) {
	sub := subTraversal(aln, site)
	if len(sub) == 0 {
		return nil, false
	}

	touchesStart := sub[0].Node == site.Start.Node || sub[len(sub)-1].Node == site.Start.Node
	touchesEnd := sub[0].Node == site.End.Node || sub[len(sub)-1].Node == site.End.Node
	if len(sub) == 1 && (touchesStart || touchesEnd) {
		// Anchored at exactly one endpoint node and nothing else: carries
		// no information about which allele the read belongs to.
		return nil, false
	}

	sub, isReverse := canonicalize(sub, site)

	anchoredStart := sub[0] == site.Start
	anchoredEnd := sub[len(sub)-1] == site.End
	if !anchoredStart && !anchoredEnd {
		log.Printf("affinity: read %s neither starts nor ends at site %v -> %v; not informative",
			aln.Name, site.Start, site.End)
		return nil, false
	}

	readSeq := g.SpellTraversals(sub)
	out := make([]Affinity, len(alleleList))
	for i, a := range alleleList {
		var consistent bool
		switch {
		case anchoredStart && anchoredEnd:
			consistent = bytes.Equal(readSeq, a.Sequence)
		case anchoredStart:
			consistent = bytes.HasPrefix(a.Sequence, readSeq)
		case anchoredEnd:
			consistent = bytes.HasSuffix(a.Sequence, readSeq)
		}
		weight := 0.0
		if consistent {
			weight = 1.0
		}
		out[i] = Affinity{AlleleIndex: i, Consistent: consistent, IsReverse: isReverse, Weight: weight}
	}
	return out, true
}

// subTraversal returns aln's traversals restricted to nodes in
// site.Contents, in the order they occur along the alignment's own path.
func subTraversal(aln *graph.Alignment, site *sites.Site) []graph.NodeTraversal {
	if aln.Path == nil {
		return nil
	}
	var out []graph.NodeTraversal
	for _, m := range aln.Path.Mappings {
		if site.Contents[m.Traversal.Node] {
			out = append(out, m.Traversal)
		}
	}
	return out
}

// canonicalize orients sub so that, if it runs the site "backward" (its
// first traversal matches the site's end read in reverse, or its last
// matches the site's start read in reverse), it is flipped end-for-end and
// every element's strand is flipped to match, with isReverse reported so
// callers can track per-allele strand support.
func canonicalize(sub []graph.NodeTraversal, site *sites.Site) (out []graph.NodeTraversal, isReverse bool) {
	runsBackward := sub[0] == site.End.Reverse() || sub[len(sub)-1] == site.Start.Reverse()
	if !runsBackward {
		return sub, false
	}
	out = make([]graph.NodeTraversal, len(sub))
	for i, t := range sub {
		out[len(sub)-1-i] = t.Reverse()
	}
	return out, true
}
