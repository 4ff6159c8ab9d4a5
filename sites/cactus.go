// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package sites

import "github.com/exascience/vg-genotyper/graph"

// FindCactusBubbles implements a reduced form of Strategy B: it finds and
// removes bridges, then reads off every 2-edge-connected component with
// exactly two distinct attachment points into the surrounding bridge tree
// as a bubble. Bridge removal (2-edge-connectivity) is strictly weaker than
// the 3-edge-connected-component contraction a real cactus graph is built
// from, and this implementation has no fix-up pass to recover the bubble
// *tree*: it only finds the bridge tree's own non-trivial components, each
// with two attachment edges, the shape of a simple chain of SNP/indel
// bubbles along a backbone. A bubble nested inside another without an
// intervening bridge edge (genuinely nested cactus structure) is not split
// out as its own Site by this function; callers that need nested variation
// decomposed should use Strategy A instead. See DESIGN.md for the scope
// this is limited to and Run's startup warning when --use-cactus is set.
func FindCactusBubbles(g *graph.Graph) []*Site {
	adjacency := nodeLevelAdjacency(g)
	bridges := findBridges(adjacency)

	uf := newUnionFind()
	for id := range adjacency {
		uf.find(id) // ensure every node is registered, even isolated ones
	}
	for from, tos := range adjacency {
		for _, to := range tos {
			if bridges[edgeKey(from, to)] {
				continue
			}
			uf.union(from, to)
		}
	}
	groups := uf.groups()

	// attachments[component representative] -> set of (own node, bridge partner) pairs
	type attachment struct {
		own, partner int64
	}
	attachments := make(map[int64][]attachment)
	for from, tos := range adjacency {
		for _, to := range tos {
			if !bridges[edgeKey(from, to)] {
				continue
			}
			rep := uf.find(from)
			attachments[rep] = append(attachments[rep], attachment{own: from, partner: to})
		}
	}

	var out []*Site
	for rep, members := range groups {
		if len(members) < 2 {
			continue
		}
		atts := attachments[rep]
		if len(atts) < 2 {
			continue
		}
		a, b := atts[0], atts[1]
		if a.own == b.own {
			continue
		}
		start := graph.NodeTraversal{Node: a.own, Backward: false}
		end := graph.NodeTraversal{Node: b.own, Backward: false}
		interior := make(map[int64]bool, len(members))
		for _, m := range members {
			interior[m] = true
		}
		out = append(out, NewSite(start, end, interior))
	}
	return out
}

func nodeLevelAdjacency(g *graph.Graph) map[int64][]int64 {
	seen := make(map[int64]map[int64]bool)
	for id := range g.Nodes {
		seen[id] = make(map[int64]bool)
	}
	for id := range g.Nodes {
		for _, side := range []bool{true, false} {
			for _, nb := range g.EdgesOn(graph.Side{Node: id, Left: side}) {
				if nb.Node == id {
					continue
				}
				seen[id][nb.Node] = true
				if seen[nb.Node] == nil {
					seen[nb.Node] = make(map[int64]bool)
				}
				seen[nb.Node][id] = true
			}
		}
	}
	out := make(map[int64][]int64, len(seen))
	for id, nbs := range seen {
		for nb := range nbs {
			out[id] = append(out[id], nb)
		}
	}
	return out
}

func edgeKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// findBridges runs Tarjan's bridge-finding DFS over an undirected,
// node-level adjacency map.
func findBridges(adjacency map[int64][]int64) map[[2]int64]bool {
	disc := make(map[int64]int)
	low := make(map[int64]int)
	visited := make(map[int64]bool)
	bridges := make(map[[2]int64]bool)
	timer := 0

	var dfs func(u, parent int64)
	dfs = func(u, parent int64) {
		visited[u] = true
		disc[u] = timer
		low[u] = timer
		timer++
		parentSkipped := false
		for _, v := range adjacency[u] {
			if v == parent && !parentSkipped {
				parentSkipped = true
				continue
			}
			if !visited[v] {
				dfs(v, u)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] > disc[u] {
					bridges[edgeKey(u, v)] = true
				}
			} else if disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
	}

	for id := range adjacency {
		if !visited[id] {
			dfs(id, -1)
		}
	}
	return bridges
}
