package alleles

import (
	"testing"

	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/sites"
)

// buildSNPGraph builds the canonical 1 -> {2=G or 3=T} -> 4 bubble with 10
// embedded read paths (7 taking the G allele, 3 taking the T allele) plus a
// reference path through the G allele, matching the boundary scenario in
// SPEC_FULL.md §8.
func buildSNPGraph(t *testing.T) (*graph.Graph, *sites.Site) {
	t.Helper()
	g := graph.New()
	g.AddNode(1, []byte("GATTACA"))
	g.AddNode(2, []byte("G"))
	g.AddNode(3, []byte("T"))
	g.AddNode(4, []byte("CAT"))
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 2, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 3, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 2, Left: false}, To: graph.Side{Node: 4, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 3, Left: false}, To: graph.Side{Node: 4, Left: true}})

	addPath := func(name string, allele int64) {
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0})
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: allele}, Rank: 1})
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2})
	}
	for i := 0; i < 7; i++ {
		addPath(readName("g", i), 2)
	}
	for i := 0; i < 3; i++ {
		addPath(readName("t", i), 3)
	}
	addPath("ref", 2)

	site := sites.NewSite(
		graph.NodeTraversal{Node: 1},
		graph.NodeTraversal{Node: 4},
		map[int64]bool{2: true, 3: true},
	)
	return g, site
}

func readName(prefix string, i int) string {
	return prefix + string(rune('0'+i))
}

func TestEnumerateFindsBothAlleles(t *testing.T) {
	g, site := buildSNPGraph(t)
	got := Enumerate(g, site, 10, 2, "ref")
	if len(got) != 2 {
		t.Fatalf("expected 2 alleles, got %d: %+v", len(got), got)
	}
	var gAllele, tAllele *Allele
	for _, a := range got {
		switch string(a.Sequence) {
		case "GATTACAGCAT":
			gAllele = a
		case "GATTACATCAT":
			tAllele = a
		}
	}
	if gAllele == nil || tAllele == nil {
		t.Fatalf("expected both spelled alleles present, got %+v", got)
	}
	if gAllele.Count != 8 { // 7 read paths + 1 reference path
		t.Errorf("expected G allele count 8, got %d", gAllele.Count)
	}
	if tAllele.Count != 3 {
		t.Errorf("expected T allele count 3, got %d", tAllele.Count)
	}
}

func TestEnumerateReferenceGuaranteeUnderMinRecurrence(t *testing.T) {
	// Build a site where the reference allele (G) has no supporting reads
	// of its own (natural count 1), and the alt allele (T) has 2
	// supporting reads. With minRecurrence=2, a naive recurrence filter
	// would drop the reference allele entirely; this implementation must
	// retain it anyway.
	g := graph.New()
	g.AddNode(1, []byte("GATTACA"))
	g.AddNode(2, []byte("G"))
	g.AddNode(3, []byte("T"))
	g.AddNode(4, []byte("CAT"))
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 2, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 3, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 2, Left: false}, To: graph.Side{Node: 4, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 3, Left: false}, To: graph.Side{Node: 4, Left: true}})
	addPath := func(name string, allele int64) {
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0})
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: allele}, Rank: 1})
		g.AddPathMapping(name, graph.Mapping{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2})
	}
	addPath("ref", 2)
	addPath("readT0", 3)
	addPath("readT1", 3)

	site := sites.NewSite(
		graph.NodeTraversal{Node: 1},
		graph.NodeTraversal{Node: 4},
		map[int64]bool{2: true, 3: true},
	)

	got := Enumerate(g, site, 10, 2, "ref")
	if len(got) != 2 {
		t.Fatalf("expected reference allele to be retained alongside the alt allele, got %d: %+v", len(got), got)
	}
	seqs := map[string]bool{}
	for _, a := range got {
		seqs[string(a.Sequence)] = true
	}
	if !seqs["GATTACAGCAT"] {
		t.Error("expected reference allele GATTACAGCAT to survive despite count 1 < minRecurrence 2")
	}
	if !seqs["GATTACATCAT"] {
		t.Error("expected alt allele GATTACATCAT to be present with count 2")
	}
}

// TestEnumerateFindsReverseStrandTraversal exercises a path whose mapping
// at the site's start node is itself Backward (so walkSite must traverse
// left), paired with a site whose end is also Backward. This combination
// previously tripped a double-XOR bug in walkSite's end-orientation check
// that silently dropped every traversal entering the site on the "other"
// strand relative to the site's own orientation.
func TestEnumerateFindsReverseStrandTraversal(t *testing.T) {
	g := graph.New()
	g.AddNode(1, []byte("GATTACA"))
	g.AddNode(2, []byte("G"))
	g.AddNode(4, []byte("CAT"))

	g.AddPathMapping("read0", graph.Mapping{Traversal: graph.NodeTraversal{Node: 4, Backward: false}, Rank: 0})
	g.AddPathMapping("read0", graph.Mapping{Traversal: graph.NodeTraversal{Node: 2, Backward: false}, Rank: 1})
	g.AddPathMapping("read0", graph.Mapping{Traversal: graph.NodeTraversal{Node: 1, Backward: true}, Rank: 2})

	site := sites.NewSite(
		graph.NodeTraversal{Node: 1, Backward: false},
		graph.NodeTraversal{Node: 4, Backward: true},
		map[int64]bool{2: true},
	)

	got := Enumerate(g, site, 10, 1, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 allele from the reverse-strand traversal, got %d: %+v", len(got), got)
	}
}

func TestHasTraversals(t *testing.T) {
	g, site := buildSNPGraph(t)
	if !HasTraversals(g, site, 10) {
		t.Error("expected traversals to be found")
	}
	empty := sites.NewSite(graph.NodeTraversal{Node: 4}, graph.NodeTraversal{Node: 1}, nil)
	if HasTraversals(g, empty, 10) {
		t.Error("expected no traversals for a site with swapped, unreachable endpoints")
	}
}
