package genotyper

import (
	"testing"

	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/refidx"
	"github.com/exascience/vg-genotyper/sites"
)

func buildSNPGraph() *graph.Graph {
	g := graph.New()
	g.AddNode(1, []byte("GATTACA"))
	g.AddNode(2, []byte("G"))
	g.AddNode(3, []byte("T"))
	g.AddNode(4, []byte("CAT"))
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 2, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 1, Left: false}, To: graph.Side{Node: 3, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 2, Left: false}, To: graph.Side{Node: 4, Left: true}})
	g.AddEdge(graph.Edge{From: graph.Side{Node: 3, Left: false}, To: graph.Side{Node: 4, Left: true}})
	g.AddPathMapping("ref", graph.Mapping{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0})
	g.AddPathMapping("ref", graph.Mapping{Traversal: graph.NodeTraversal{Node: 2}, Rank: 1})
	g.AddPathMapping("ref", graph.Mapping{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2})
	g.AddPathMapping("alt", graph.Mapping{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0})
	g.AddPathMapping("alt", graph.Mapping{Traversal: graph.NodeTraversal{Node: 3}, Rank: 1})
	g.AddPathMapping("alt", graph.Mapping{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2})
	return g
}

func alnThrough(node int64, quality []byte) *graph.Alignment {
	return &graph.Alignment{
		Name: "r",
		Path: &graph.Path{Mappings: []graph.Mapping{
			{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0},
			{Traversal: graph.NodeTraversal{Node: node}, Rank: 1},
			{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2},
		}},
		Quality: quality,
		MapQ:    60,
	}
}

func snpSite() *sites.Site {
	return sites.NewSite(
		graph.NodeTraversal{Node: 1},
		graph.NodeTraversal{Node: 4},
		map[int64]bool{2: true, 3: true},
	)
}

func TestIndexAlignmentsByNodeAndCandidateReads(t *testing.T) {
	site := snpSite()
	alns := []*graph.Alignment{
		alnThrough(2, nil),
		alnThrough(3, nil),
		{Name: "unrelated", Path: &graph.Path{Mappings: []graph.Mapping{{Traversal: graph.NodeTraversal{Node: 99}}}}},
	}
	index := indexAlignmentsByNode([]*sites.Site{site}, alns)
	got := candidateReads(site, index)
	if len(got) != 2 {
		t.Fatalf("candidateReads returned %d reads, want 2", len(got))
	}
	for _, aln := range got {
		if aln.Name == "unrelated" {
			t.Error("candidateReads should not include reads that never touch the site")
		}
	}
}

func TestPhredToProb(t *testing.T) {
	if got := phredToProb(0); got != 1 {
		t.Errorf("phredToProb(0) = %v, want 1", got)
	}
	if got := phredToProb(10); got < 0.09 || got > 0.11 {
		t.Errorf("phredToProb(10) = %v, want ~0.1", got)
	}
}

func TestProcessSiteProducesLocusWithTwoAlleles(t *testing.T) {
	g := buildSNPGraph()
	site := snpSite()
	alns := []*graph.Alignment{
		alnThrough(2, []byte{40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40}),
		alnThrough(2, []byte{40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40}),
		alnThrough(3, []byte{40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40}),
	}
	readsByNode := indexAlignmentsByNode([]*sites.Site{site}, alns)
	cfg := RunConfig{
		MaxPathSearchSteps: 100,
		MinRecurrence:      1,
		HetPrior:           0.001,
		DefaultBaseQuality: 30,
		UseMapQ:            true,
	}

	var totalAffinities int64
	result := processSite(g, site, readsByNode, cfg, "ref", &totalAffinities)
	if result.skip != "" {
		t.Fatalf("unexpected skip: %s", result.skip)
	}
	if result.locus == nil {
		t.Fatal("expected a non-nil locus")
	}
	if len(result.locus.Alleles) != 2 {
		t.Fatalf("got %d alleles, want 2 (ref G and alt T)", len(result.locus.Alleles))
	}
	if len(result.locus.Genotypes) == 0 {
		t.Fatal("expected at least one genotype")
	}
	if len(result.locus.Affinities) != len(alns) {
		t.Fatalf("got %d affinity rows, want %d", len(result.locus.Affinities), len(alns))
	}
	if totalAffinities == 0 {
		t.Error("expected totalAffinities to be incremented by scored reads")
	}
}

func TestProcessSiteRecoversPanicAsSkip(t *testing.T) {
	g := buildSNPGraph()
	site := snpSite()
	// An alignment that walks through a node absent from the graph triggers
	// graph.NodeOrDie's panic inside affinity.MeanBaseQuality; processSite
	// must demote this to a skipped result rather than propagate it.
	bad := &graph.Alignment{
		Name: "bad",
		Path: &graph.Path{Mappings: []graph.Mapping{
			{Traversal: graph.NodeTraversal{Node: 1}, Rank: 0},
			{Traversal: graph.NodeTraversal{Node: 404}, Rank: 1},
			{Traversal: graph.NodeTraversal{Node: 4}, Rank: 2},
		}},
		Quality: []byte{40},
	}
	readsByNode := indexAlignmentsByNode([]*sites.Site{site}, []*graph.Alignment{bad})
	cfg := RunConfig{MaxPathSearchSteps: 100, MinRecurrence: 1, HetPrior: 0.001, DefaultBaseQuality: 30}

	var totalAffinities int64
	result := processSite(g, site, readsByNode, cfg, "ref", &totalAffinities)
	if result.skip != "PanicRecovered" {
		t.Fatalf("skip = %q, want PanicRecovered", result.skip)
	}
	if result.locus != nil {
		t.Error("expected no locus when the site panics")
	}
}

func TestSortResultsByReferencePositionPlacesUnresolvedLast(t *testing.T) {
	g := buildSNPGraph()
	idx := refidx.Build(g, "ref")

	onRef := &refidx.Locus{Site: snpSite()}
	offRef := &refidx.Locus{Site: sites.NewSite(graph.NodeTraversal{Node: 404}, graph.NodeTraversal{Node: 4}, nil)}

	results := []locusResult{
		{locus: offRef},
		{locus: onRef},
		{skip: "EmptyLocus"},
	}
	sortResultsByReferencePosition(results, idx)

	if results[0].locus != onRef {
		t.Errorf("results[0] = %+v, want the on-reference locus first", results[0])
	}
	if results[len(results)-1].locus == onRef {
		t.Error("the on-reference locus should not be sorted last")
	}
}
