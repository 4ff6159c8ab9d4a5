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
Package graph implements the bidirected sequence graph primitives that every
other package in this module is built on: nodes carrying DNA sequence, edges
connecting node sides (not directed node-to-node), node traversals that carry
an orientation, and embedded paths (the reference and, in principle, any
other named walk) threaded through the graph.

Nothing in this package performs I/O; see package ingest for the graph and
alignment reader.
*/
package graph

import (
	"log"

	"github.com/exascience/vg-genotyper/utils"
)

// Side identifies one end of a Node. Every edge in a bidirected graph
// connects two Sides, which is what lets the same node be entered from
// either strand without the edge itself carrying a direction.
type Side struct {
	Node int64
	Left bool
}

// Opposite returns the other side of the same node.
func (s Side) Opposite() Side {
	return Side{Node: s.Node, Left: !s.Left}
}

// Node is a stable, immutable unit of sequence in the graph.
type Node struct {
	ID  int64
	Seq []byte // upper-case A/C/G/T/N only, see NormalizeSeq
}

// Len returns the length of the node's sequence.
func (n *Node) Len() int { return len(n.Seq) }

// Edge connects two node sides. Because the graph is bidirected, From and To
// are symmetric: there is no notion of the edge's own direction, only which
// sides it joins.
type Edge struct {
	From Side
	To   Side
}

// Canonical returns the edge with From and To ordered so that equal edges
// compare equal regardless of which side was recorded first, used for
// deduplication during graph construction and during Strategy A's
// doubly-reversed-edge flip.
func (e Edge) Canonical() Edge {
	if e.To.Node < e.From.Node || (e.To.Node == e.From.Node && !e.To.Left && e.From.Left) {
		return Edge{From: e.To, To: e.From}
	}
	return e
}

// NodeTraversal is a node visited in a particular strand. Backward means the
// node's reverse complement is being read.
type NodeTraversal struct {
	Node     int64
	Backward bool
}

// Reverse flips the traversal to the other strand.
func (t NodeTraversal) Reverse() NodeTraversal {
	return NodeTraversal{Node: t.Node, Backward: !t.Backward}
}

// EntrySide returns the side of the node through which a walk entering this
// traversal arrives.
func (t NodeTraversal) EntrySide() Side {
	return Side{Node: t.Node, Left: !t.Backward}
}

// ExitSide returns the side of the node through which a walk leaving this
// traversal departs.
func (t NodeTraversal) ExitSide() Side {
	return Side{Node: t.Node, Left: t.Backward}
}

// Mapping is one step of an embedded Path: a traversal together with its
// rank (position) along the path. Edits (indels/substitutions of the read
// against the node) are not modeled; this module consumes alignments that
// are already expressed as exact node traversals, consistent with the
// fast-path affinity scorer in package affinity.
type Mapping struct {
	Traversal NodeTraversal
	Rank      int32
}

// Path is an ordered, ranked walk through the graph, embedded under a
// unique name. Both the reference and every read alignment are represented
// as a Path.
type Path struct {
	Name     utils.Symbol
	Mappings []Mapping // ordered by increasing Rank
}

// Alignment is a named Path together with the read's own sequence, base
// qualities (possibly empty, meaning "absent") and mapping quality.
type Alignment struct {
	Name     string
	Path     *Path
	Sequence []byte
	Quality  []byte // Phred+0 scale, one byte per base of Sequence; nil if absent
	MapQ     uint8
}

// Graph is the full bidirected sequence graph plus its embedded paths. It is
// read-only once construction by package ingest is complete; every package downstream of
// package graph assumes this and never mutates a *Graph concurrently with
// reading it.
type Graph struct {
	Nodes map[int64]*Node
	Paths map[string]*Path

	adjacency map[Side][]Side
}

// New creates an empty Graph ready for incremental construction by package
// ingest.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[int64]*Node),
		Paths:     make(map[string]*Path),
		adjacency: make(map[Side][]Side),
	}
}

// AddNode inserts a node. Panics if the id is already present, matching the
// GraphInvariantViolation error kind: a malformed or duplicated input graph
// is a fatal condition, not a recoverable one.
func (g *Graph) AddNode(id int64, seq []byte) {
	if _, ok := g.Nodes[id]; ok {
		log.Panicf("graph: duplicate node id %d", id)
	}
	g.Nodes[id] = &Node{ID: id, Seq: NormalizeSeq(seq)}
}

// AddEdge records an edge and its reciprocal adjacency entry.
func (g *Graph) AddEdge(e Edge) {
	e = e.Canonical()
	g.adjacency[e.From] = appendIfAbsent(g.adjacency[e.From], e.To)
	g.adjacency[e.To] = appendIfAbsent(g.adjacency[e.To], e.From)
}

func appendIfAbsent(sides []Side, s Side) []Side {
	for _, existing := range sides {
		if existing == s {
			return sides
		}
	}
	return append(sides, s)
}

// Path returns the embedded path of the given name, or nil and false if no
// such path exists.
func (g *Graph) Path(name string) (*Path, bool) {
	p, ok := g.Paths[name]
	return p, ok
}

// AddPathMapping appends a mapping to the named path, creating the path if
// it does not yet exist. Mappings must be added in increasing rank order;
// this is asserted by package refidx when building the reference index, not
// here, since non-reference embedded paths (read alignments) do not need
// the same monotonic-rank guarantee to be useful to package alleles.
func (g *Graph) AddPathMapping(name string, m Mapping) {
	p, ok := g.Paths[name]
	if !ok {
		interned := utils.Intern(name)
		p = &Path{Name: interned}
		g.Paths[name] = p
	}
	p.Mappings = append(p.Mappings, m)
}

// EdgesOn returns every side adjacent to s.
func (g *Graph) EdgesOn(s Side) []Side {
	return g.adjacency[s]
}

// HasEdge reports whether an edge connects sides a and b.
func (g *Graph) HasEdge(a, b Side) bool {
	for _, s := range g.adjacency[a] {
		if s == b {
			return true
		}
	}
	return false
}

// NodeOrDie returns the node with the given id, panicking with
// GraphInvariantViolation semantics if it is absent.
func (g *Graph) NodeOrDie(id int64) *Node {
	n, ok := g.Nodes[id]
	if !ok {
		log.Panicf("graph: missing node %d (GraphInvariantViolation)", id)
	}
	return n
}

// TraversalSequence returns the oriented sequence of a single node
// traversal: the node's own sequence, reverse-complemented if Backward.
func (g *Graph) TraversalSequence(t NodeTraversal) []byte {
	n := g.NodeOrDie(t.Node)
	if !t.Backward {
		return n.Seq
	}
	return ReverseComplement(n.Seq)
}

// SpellTraversals concatenates the oriented sequence of each traversal in
// order, exactly as the source's "allele spelling" does when it walks a
// path and accumulates sequence.
func (g *Graph) SpellTraversals(ts []NodeTraversal) []byte {
	var out []byte
	for _, t := range ts {
		out = append(out, g.TraversalSequence(t)...)
	}
	return out
}

// complement maps a base to its complement; non-ACGT bases map to N.
var complement = func() [256]byte {
	var tbl [256]byte
	for i := range tbl {
		tbl[i] = 'N'
	}
	tbl['A'], tbl['a'] = 'T', 'T'
	tbl['C'], tbl['c'] = 'G', 'G'
	tbl['G'], tbl['g'] = 'C', 'C'
	tbl['T'], tbl['t'] = 'A', 'A'
	tbl['N'], tbl['n'] = 'N', 'N'
	return tbl
}()

// ReverseComplement returns the reverse complement of seq. Bases outside
// A/C/G/T/N are normalized to N, matching the NormalizeSeq convention used
// everywhere else in this module.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complement[b]
	}
	return out
}

// NormalizeSeq upper-cases a sequence and replaces any base outside
// A/C/G/T/N with N, the same normalization elPrep's fasta package applies
// to IUPAC-ambiguous FASTA bases, applied here to graph node sequences.
func NormalizeSeq(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		switch b {
		case 'a':
			b = 'A'
		case 'c':
			b = 'C'
		case 'g':
			b = 'G'
		case 't':
			b = 'T'
		case 'n':
			b = 'N'
		}
		switch b {
		case 'A', 'C', 'G', 'T', 'N':
			out[i] = b
		default:
			out[i] = 'N'
		}
	}
	return out
}
