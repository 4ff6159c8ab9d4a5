// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package affinity

import (
	"sync"

	"github.com/exascience/vg-genotyper/alleles"
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/sites"
)

// int32Matrix is a flat, reusable alignment score matrix, grounded on the
// pooled matrix type elPrep's own Smith-Waterman implementation uses to
// avoid reallocating DP matrices per alignment.
type int32Matrix struct {
	data       []int32
	rows, cols int
}

func (m *int32Matrix) ensureSize(rows, cols int) {
	if rows*cols > cap(m.data) {
		m.data = make([]int32, rows*cols)
	} else {
		m.data = m.data[:rows*cols]
	}
	m.rows, m.cols = rows, cols
}

func (m *int32Matrix) at(i, j int) int32       { return m.data[i*m.cols+j] }
func (m *int32Matrix) setAt(i, j int, v int32) { m.data[i*m.cols+j] = v }

var matrixPool = sync.Pool{New: func() interface{} { return &int32Matrix{} }}

// ScoreRealign is the alternate, slower affinity mode: rather than
// comparing sequences with a prefix/suffix/exact rule, it realigns the
// read against each allele's own spelled sequence with a small full
// dynamic-programming aligner (free end gaps, linear gap penalty), tries
// both the read and its reverse complement, and keeps whichever orientation
// scored higher. Informativeness is restricted to reads that touch at
// least two site nodes, or any single internal (non-start/non-end) node;
// anchor-only reads are skipped exactly as in ScoreFast.
func ScoreRealign(g *graph.Graph, site *sites.Site, alleleList []*alleles.Allele, aln *graph.Alignment) ([]Affinity, bool) {
	sub := subTraversal(aln, site)
	if !isInformativeForRealign(sub, site) {
		return nil, false
	}

	fwd := aln.Sequence
	rev := graph.ReverseComplement(aln.Sequence)

	out := make([]Affinity, len(alleleList))
	for i, a := range alleleList {
		fwdScore := alignIdentity(fwd, a.Sequence)
		revScore := alignIdentity(rev, a.Sequence)
		isReverse := revScore > fwdScore
		best := fwdScore
		if isReverse {
			best = revScore
		}
		out[i] = Affinity{
			AlleleIndex: i,
			Consistent:  best >= 0.9,
			IsReverse:   isReverse,
			Weight:      best,
		}
	}
	return out, true
}

func isInformativeForRealign(sub []graph.NodeTraversal, site *sites.Site) bool {
	if len(sub) >= 2 {
		return true
	}
	if len(sub) == 1 && sub[0].Node != site.Start.Node && sub[0].Node != site.End.Node {
		return true
	}
	return false
}

// alignIdentity computes a global alignment (free end gaps, match=1,
// mismatch=-1, gap=-1) between a and b and returns a's identity fraction:
// the best alignment score normalized by len(a), where a is always the
// query sequence (see the call sites in ScoreRealign).
func alignIdentity(a, b []byte) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := matrixPool.Get().(*int32Matrix)
	defer matrixPool.Put(m)
	rows, cols := len(a)+1, len(b)+1
	m.ensureSize(rows, cols)

	for i := 0; i < rows; i++ {
		m.setAt(i, 0, 0) // free end gaps: no penalty for leading/trailing overhang
	}
	for j := 0; j < cols; j++ {
		m.setAt(0, j, 0)
	}
	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			match := int32(-1)
			if a[i-1] == b[j-1] {
				match = 1
			}
			best := m.at(i-1, j-1) + match
			if v := m.at(i-1, j) - 1; v > best {
				best = v
			}
			if v := m.at(i, j-1) - 1; v > best {
				best = v
			}
			m.setAt(i, j, best)
		}
	}

	best := m.at(rows-1, cols-1)
	for i := 0; i < rows; i++ {
		if v := m.at(i, cols-1); v > best {
			best = v
		}
	}
	for j := 0; j < cols; j++ {
		if v := m.at(rows-1, j); v > best {
			best = v
		}
	}
	// Normalized by len(a): a is always the query (the read or its reverse
	// complement) in every caller, so this is the read's own identity
	// fraction against the allele, independent of how much flanking
	// context the allele sequence carries beyond the read's span.
	identity := float64(best) / float64(len(a))
	if identity < 0 {
		identity = 0
	}
	if identity > 1 {
		identity = 1
	}
	return identity
}
