// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package sites

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/exascience/vg-genotyper/graph"
)

// origin records which original node/orientation a dagified node id stands
// for, so that a superbubble found in the dagified view can be translated
// back into NodeTraversals of the real graph.
type origin struct {
	Node     int64
	Reversed bool
}

// dag is the acyclic, single-orientation-per-node working graph that the
// superbubble algorithm runs over. Node identity in a dag is unrelated to
// graph.Node identity; dag.translation recovers the mapping.
type dag struct {
	succ        map[int64][]int64
	pred        map[int64][]int64
	translation map[int64]origin
	nextID      int64
}

func newDag(firstFreeID int64) *dag {
	return &dag{
		succ:        make(map[int64][]int64),
		pred:        make(map[int64][]int64),
		translation: make(map[int64]origin),
		nextID:      firstFreeID,
	}
}

func (d *dag) newNode(o origin) int64 {
	id := d.nextID
	d.nextID++
	d.translation[id] = o
	return id
}

func (d *dag) addEdge(from, to int64) {
	for _, s := range d.succ[from] {
		if s == to {
			return
		}
	}
	d.succ[from] = append(d.succ[from], to)
	d.pred[to] = append(d.pred[to], from)
}

func canonicalIsExit(s graph.Side, reversed bool) bool {
	// ExitSide(reversed).Left == reversed, so s is the exit side exactly
	// when s.Left == reversed.
	return s.Left == reversed
}

// unfoldAndFlip combines the two steps the design describes separately
// (replicate reverse-only-reachable nodes, then flip doubly-reversed edges)
// into a single breadth-first pass: each node is assigned a canonical
// orientation the first time it is reached, directed edges are emitted
// immediately in that canonical frame, and a node reached again under a
// conflicting required orientation is unfolded into a fresh duplicate
// rather than forcing a reassignment that would invalidate edges already
// emitted. unfoldMaxLength bounds how many duplicates a single original
// node may accumulate before the walk along that branch is abandoned: the
// edge is dropped without a log message (mirrors the design's bounded
// unfold-step count).
func unfoldAndFlip(g *graph.Graph, unfoldMaxLength int) *dag {
	maxOrigID := int64(0)
	for id := range g.Nodes {
		if id > maxOrigID {
			maxOrigID = id
		}
	}
	d := newDag(maxOrigID + 1)

	type queued struct {
		newID    int64
		orig     int64
		reversed bool
	}

	assigned := make(map[int64]int64) // original node id -> first-assigned new id (for that node's chosen orientation)
	dupCount := make(map[int64]int)
	visited := bitset.New(0) // dag ids already expanded; dag ids are dense and non-negative, so a growable bitset fits better than a map here

	var queue []queued
	for id := range g.Nodes {
		if _, ok := assigned[id]; ok {
			continue
		}
		newID := d.newNode(origin{Node: id, Reversed: false})
		assigned[id] = newID
		queue = append(queue, queued{newID: newID, orig: id, reversed: false})

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if visited.Test(uint(cur.newID)) {
				continue
			}
			visited.Set(uint(cur.newID))

			for _, side := range []bool{true, false} { // both sides of the node
				s := graph.Side{Node: cur.orig, Left: side}
				exit := canonicalIsExit(s, cur.reversed)
				for _, nbSide := range g.EdgesOn(s) {
					wantNbReversedIfExit := !nbSide.Left  // if cur exits into nb, nb must enter: nbSide.Left == !o_nb
					wantNbReversedIfEntry := nbSide.Left  // if cur enters from nb, nb must exit: nbSide.Left == o_nb
					var wantReversed bool
					if exit {
						wantReversed = wantNbReversedIfExit
					} else {
						wantReversed = wantNbReversedIfEntry
					}

					nbNewID, already := assigned[nbSide.Node]
					nbOrigin := d.translation[nbNewID]
					if already && nbOrigin.Reversed == wantReversed {
						if exit {
							d.addEdge(cur.newID, nbNewID)
						} else {
							d.addEdge(nbNewID, cur.newID)
						}
						if !visited.Test(uint(nbNewID)) {
							queue = append(queue, queued{newID: nbNewID, orig: nbSide.Node, reversed: wantReversed})
						}
						continue
					}

					if dupCount[nbSide.Node] >= unfoldMaxLength {
						// Give up extending this branch further; drop the edge
						// rather than unfold without bound.
						continue
					}
					dupCount[nbSide.Node]++
					dupID := d.newNode(origin{Node: nbSide.Node, Reversed: wantReversed})
					if !already {
						assigned[nbSide.Node] = dupID
					}
					if exit {
						d.addEdge(cur.newID, dupID)
					} else {
						d.addEdge(dupID, cur.newID)
					}
					queue = append(queue, queued{newID: dupID, orig: nbSide.Node, reversed: wantReversed})
				}
			}
		}
	}
	return d
}

// dagify breaks any remaining cycles in d (arising from genuine cycles in
// the original graph, not resolved by reorientation alone) by duplicating
// a node on each detected back edge, up to maxSteps duplicates per
// original node. The result is guaranteed acyclic.
func dagify(d *dag, maxSteps int) *dag {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int64]int)
	dupCount := make(map[int64]int)

	var roots []int64
	hasIncoming := bitset.New(0)
	for _, tos := range d.succ {
		for _, to := range tos {
			hasIncoming.Set(uint(to))
		}
	}
	for id := range d.translation {
		if !hasIncoming.Test(uint(id)) {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		for id := range d.translation {
			roots = append(roots, id)
			break
		}
	}

	var visit func(u int64)
	visit = func(u int64) {
		color[u] = gray
		succs := append([]int64(nil), d.succ[u]...)
		for _, v := range succs {
			switch color[v] {
			case white:
				visit(v)
			case gray:
				// back edge u -> v: break it by redirecting to a fresh
				// duplicate of v, unless the duplication budget for the
				// original node behind v is exhausted, in which case the
				// edge is simply dropped.
				orig := d.translation[v]
				if dupCount[orig.Node] >= maxSteps {
					removeEdge(d, u, v)
					continue
				}
				dupCount[orig.Node]++
				dup := d.newNode(orig)
				removeEdge(d, u, v)
				d.addEdge(u, dup)
				color[dup] = black
			case black:
				// forward/cross edge, fine.
			}
		}
		color[u] = black
	}
	for _, r := range roots {
		if color[r] == white {
			visit(r)
		}
	}
	// Any node untouched by the walk from roots (disconnected component
	// entered only via a cycle) still needs visiting.
	for id := range d.translation {
		if color[id] == white {
			visit(id)
		}
	}
	return d
}

func removeEdge(d *dag, from, to int64) {
	succs := d.succ[from]
	for i, s := range succs {
		if s == to {
			d.succ[from] = append(succs[:i], succs[i+1:]...)
			break
		}
	}
	preds := d.pred[to]
	for i, p := range preds {
		if p == from {
			d.pred[to] = append(preds[:i], preds[i+1:]...)
			break
		}
	}
}
