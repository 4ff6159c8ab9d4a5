// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

/*
Package refidx builds a linear reference projection from one designated
embedded path of the variation graph, and emits sequence-variant records
for genotyped sites against that projection.
*/
package refidx

import (
	"log"

	"github.com/exascience/vg-genotyper/graph"
)

var validRefBase [256]bool

func init() {
	for _, b := range []byte("ACGTNacgtn") {
		validRefBase[b] = true
	}
}

// refVisit is a node's first reference visit: its base offset in the
// linear reference sequence, the orientation it was visited in, and the
// length it actually contributed to idx.Sequence at that visit (equal to
// the node's full sequence length, except for the path's first node,
// whose leading invalid bases trimInvalidLeadingBases may have trimmed).
type refVisit struct {
	Offset   int32
	Backward bool
	Length   int32
}

// ReferenceIndex projects node ids onto a single linear reference built
// from one embedded path, and is itself a sites.ReferenceProjector.
type ReferenceIndex struct {
	PathName string
	Sequence []byte

	g       *graph.Graph
	byID    map[int64]refVisit
	byStart map[int32]graph.NodeTraversal
}

// SelectReferencePathName resolves the reference_path_name option: a
// non-empty name is used as given; otherwise, a graph with exactly one
// embedded path auto-selects it; otherwise the conventional default
// "ref" is used.
func SelectReferencePathName(g *graph.Graph, name string) string {
	if name != "" {
		return name
	}
	if len(g.Paths) == 1 {
		for n := range g.Paths {
			return n
		}
	}
	return "ref"
}

// Build constructs a ReferenceIndex from the named embedded path. Ranks
// are asserted to be strictly increasing (AddPathMapping plus the
// ingestion reader's rank sort already guarantee this for well-formed
// input; this is a last invariant check, not a sort). Invalid leading
// bases on the path's first node are trimmed with a warning, per
// SPEC_FULL.md §4.6.
func Build(g *graph.Graph, pathName string) *ReferenceIndex {
	p, ok := g.Path(pathName)
	if !ok {
		log.Panicf("refidx: reference path %q not found in graph (GraphInvariantViolation)", pathName)
	}

	idx := &ReferenceIndex{
		PathName: pathName,
		g:        g,
		byID:     make(map[int64]refVisit),
		byStart:  make(map[int32]graph.NodeTraversal),
	}

	lastRank := int32(-1)
	for i, m := range p.Mappings {
		if i > 0 && m.Rank <= lastRank {
			log.Panicf("refidx: reference path %q rank not monotonically increasing at mapping %d (GraphInvariantViolation)", pathName, i)
		}
		lastRank = m.Rank

		seq := g.TraversalSequence(m.Traversal)
		if i == 0 {
			seq = trimInvalidLeadingBases(pathName, seq)
		}

		offset := int32(len(idx.Sequence))
		if _, seen := idx.byID[m.Traversal.Node]; !seen {
			idx.byID[m.Traversal.Node] = refVisit{Offset: offset, Backward: m.Traversal.Backward, Length: int32(len(seq))}
		}
		idx.byStart[offset] = m.Traversal
		idx.Sequence = append(idx.Sequence, seq...)
	}
	return idx
}

func trimInvalidLeadingBases(pathName string, seq []byte) []byte {
	i := 0
	for i < len(seq) && !validRefBase[seq[i]] {
		i++
	}
	if i > 0 {
		log.Printf("refidx: reference path %q: trimmed %d invalid leading base(s) from its first node", pathName, i)
	}
	return seq[i:]
}

// Offset implements sites.ReferenceProjector: the reference base offset
// of a node's first reference visit.
func (idx *ReferenceIndex) Offset(nodeID int64) (int32, bool) {
	v, ok := idx.byID[nodeID]
	if !ok {
		return 0, false
	}
	return v.Offset, true
}

// Orientation reports whether a node's first reference visit traversed
// it backward.
func (idx *ReferenceIndex) Orientation(nodeID int64) (backward, onReference bool) {
	v, ok := idx.byID[nodeID]
	return v.Backward, ok
}

// TraversalAt returns the node traversal that starts exactly at the
// given reference offset, if any.
func (idx *ReferenceIndex) TraversalAt(offset int32) (graph.NodeTraversal, bool) {
	t, ok := idx.byStart[offset]
	return t, ok
}

// Len returns the length of the linear reference sequence.
func (idx *ReferenceIndex) Len() int32 {
	return int32(len(idx.Sequence))
}

// Base returns the reference base at offset, normalizing anything other
// than A/C/G/T to N.
func (idx *ReferenceIndex) Base(offset int32) byte {
	b := idx.Sequence[offset]
	switch b {
	case 'A', 'C', 'G', 'T':
		return b
	default:
		return 'N'
	}
}

// NodeLen returns the length a node's first reference visit actually
// contributed to the linear reference sequence, used to advance past the
// site's start node when computing a site's reference interval. This is
// ordinarily the node's full sequence length, but for the reference
// path's first node it is the length after trimInvalidLeadingBases, which
// can be shorter than the node's raw sequence; using the raw length there
// would overshoot the computed reference interval by the trimmed amount.
// nodeID must be on the reference (callers only invoke this on a site
// endpoint already confirmed on-reference).
func (idx *ReferenceIndex) NodeLen(nodeID int64) int32 {
	v, ok := idx.byID[nodeID]
	if !ok {
		log.Panicf("refidx: NodeLen called on node %d not on reference %q (GraphInvariantViolation)", nodeID, idx.PathName)
	}
	return v.Length
}

// Substring returns the (normalized) reference bases over [start, end).
func (idx *ReferenceIndex) Substring(start, end int32) []byte {
	if end < start {
		log.Panicf("refidx: invalid reference interval [%d, %d)", start, end)
	}
	out := make([]byte, end-start)
	for i := start; i < end; i++ {
		out[i-start] = idx.Base(i)
	}
	return out
}
