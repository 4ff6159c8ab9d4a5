// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package sites

import "github.com/exascience/vg-genotyper/graph"

// FindSuperbubbles implements Strategy A: unfold the graph so every node
// has a single canonical orientation, flip edges into that canonical
// frame, dagify any remaining cycles by bounded node duplication, run a
// linear-time-in-spirit superbubble search over the resulting DAG, then
// translate every found bubble back into a Site of the original graph.
//
// unfoldMaxLength bounds node duplication during unfolding; dagifySteps
// bounds duplication during cycle breaking. Both default to small values
// (the reference configuration uses 200 and 1 respectively) since most
// variation-graph bubbles are shallow.
func FindSuperbubbles(g *graph.Graph, unfoldMaxLength, dagifySteps int) []*Site {
	d := unfoldAndFlip(g, unfoldMaxLength)
	d = dagify(d, dagifySteps)

	var out []*Site
	seen := make(map[[2]int64]bool)
	for entry := range d.translation {
		bubbleExit, interior, ok := findBubbleFrom(d, entry)
		if !ok {
			continue
		}
		site := translateBubble(d, entry, bubbleExit, interior)
		if site == nil {
			continue
		}
		key := [2]int64{site.Start.Node, site.End.Node}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, site)
	}
	return out
}

// findBubbleFrom looks for a superbubble whose entry is u: starting from
// u's immediate successors, repeatedly absorb any frontier node all of
// whose predecessors already lie in the growing interior, until the
// frontier converges onto a single node v every one of whose predecessors
// lies in the interior (plus u itself) — that is the bubble's unique exit.
// If the frontier never converges (a genuine branch that never reconnects,
// or would require walking further than the graph allows), no bubble is
// reported for this entry.
func findBubbleFrom(d *dag, u int64) (exit int64, interior map[int64]bool, ok bool) {
	succs := d.succ[u]
	if len(succs) == 0 {
		return 0, nil, false
	}
	interior = make(map[int64]bool)
	inRegion := func(id int64) bool { return id == u || interior[id] }

	frontier := make(map[int64]bool)
	for _, s := range succs {
		frontier[s] = true
	}

	maxIterations := len(d.translation) + 1
	for iter := 0; iter < maxIterations; iter++ {
		if len(frontier) == 1 {
			var v int64
			for id := range frontier {
				v = id
			}
			if v != u {
				allPredsInRegion := true
				for _, p := range d.pred[v] {
					if !inRegion(p) {
						allPredsInRegion = false
						break
					}
				}
				if allPredsInRegion {
					return v, interior, true
				}
			}
		}

		progressed := false
		next := make(map[int64]bool)
		for f := range frontier {
			if f == u {
				return 0, nil, false // cycled back to entry: no bubble
			}
			allPredsInRegion := true
			for _, p := range d.pred[f] {
				if !inRegion(p) {
					allPredsInRegion = false
					break
				}
			}
			if allPredsInRegion && len(frontier) > 1 {
				interior[f] = true
				progressed = true
				if len(d.succ[f]) == 0 {
					return 0, nil, false // dead end, no reconvergence
				}
				for _, s := range d.succ[f] {
					next[s] = true
				}
			} else {
				next[f] = true
			}
		}
		if !progressed {
			return 0, nil, false
		}
		frontier = next
	}
	return 0, nil, false
}

// translateBubble converts a dagified (entry, exit, interior) triple back
// into a Site expressed in terms of the original graph's node ids and
// orientations.
func translateBubble(d *dag, entry, exit int64, interior map[int64]bool) *Site {
	entryOrigin, ok := d.translation[entry]
	if !ok {
		return nil
	}
	exitOrigin, ok := d.translation[exit]
	if !ok {
		return nil
	}
	start := graph.NodeTraversal{Node: entryOrigin.Node, Backward: entryOrigin.Reversed}
	end := graph.NodeTraversal{Node: exitOrigin.Node, Backward: exitOrigin.Reversed}
	if start.Node == end.Node {
		return nil
	}
	contentIDs := make(map[int64]bool, len(interior))
	for id := range interior {
		if o, ok := d.translation[id]; ok {
			contentIDs[o.Node] = true
		}
	}
	return NewSite(start, end, contentIDs)
}
