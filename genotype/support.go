// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package genotype

import "github.com/exascience/vg-genotyper/affinity"

// OverallSupport is a site's total read depth, counting each read at most
// once regardless of how many alleles it is consistent with. This is
// distinct from a per-allele Support.depth sum taken over every allele,
// which counts a read once per allele it matches and so overstates total
// depth for any read consistent with more than one allele (most commonly
// a read anchored at only one endpoint, consistent with every allele
// sharing that endpoint's prefix or suffix).
type OverallSupport struct {
	Forward, Reverse int
}

// Depth returns the total read count, both strands combined.
func (s OverallSupport) Depth() int {
	return s.Forward + s.Reverse
}

// ComputeOverallSupport makes one pass over perRead (one slice of
// Affinity per read, indexed like the site's allele list) and counts each
// read once: on the forward strand if it matched only forward, the
// reverse strand if it matched only reverse, and the forward strand by
// convention if it matched both (affinity.ScoreFast computes IsReverse
// once per read and copies it to every Affinity entry, but
// affinity.ScoreRealign picks the strand separately for each allele, so
// in realignment mode a read can match one allele forward and another
// reverse).
func ComputeOverallSupport(perRead [][]affinity.Affinity) OverallSupport {
	var s OverallSupport
	for _, affs := range perRead {
		var sawForward, sawReverse bool
		for _, aff := range affs {
			if !aff.Consistent {
				continue
			}
			if aff.IsReverse {
				sawReverse = true
			} else {
				sawForward = true
			}
		}
		switch {
		case sawReverse && !sawForward:
			s.Reverse++
		case sawForward:
			s.Forward++
		}
	}
	return s
}
