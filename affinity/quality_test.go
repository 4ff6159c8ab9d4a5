package affinity

import (
	"testing"

	"github.com/exascience/vg-genotyper/graph"
)

func TestMeanBaseQualityAveragesOverSiteWindowIncludingEndpoints(t *testing.T) {
	g, site, _ := buildSite()
	// Node 1 ("GATTACA", 7 bases), node 2 ("G", 1 base), node 4 ("CAT", 3 bases)
	// are all part of the site's window (interior node 2 plus both endpoint
	// nodes); a leading node 5 outside the site is not.
	g.AddNode(5, []byte("NN"))
	aln := &graph.Alignment{
		Name: "r",
		Path: &graph.Path{Mappings: []graph.Mapping{
			{Traversal: graph.NodeTraversal{Node: 5}},
			{Traversal: graph.NodeTraversal{Node: 1}},
			{Traversal: graph.NodeTraversal{Node: 2}},
			{Traversal: graph.NodeTraversal{Node: 4}},
		}},
	}
	quality := make([]byte, 0, 13)
	quality = append(quality, 5, 5) // node 5, excluded (outside the site)
	for i := 0; i < 7; i++ {
		quality = append(quality, 10) // node 1, endpoint, included
	}
	quality = append(quality, 40) // node 2, interior, included
	for i := 0; i < 3; i++ {
		quality = append(quality, 20) // node 4, endpoint, included
	}
	aln.Quality = quality

	got, ok := MeanBaseQuality(g, site, aln)
	if !ok {
		t.Fatal("expected a mean quality for a read covering the site")
	}
	want := (7*10.0 + 40 + 3*20) / 11.0
	if got != want {
		t.Errorf("MeanBaseQuality = %v, want %v", got, want)
	}
}

func TestMeanBaseQualityNoQualityString(t *testing.T) {
	g, site, _ := buildSite()
	aln := alnThrough(2)
	if _, ok := MeanBaseQuality(g, site, aln); ok {
		t.Error("expected ok=false when the alignment carries no quality string")
	}
}

func TestMeanBaseQualityNoSiteCoverage(t *testing.T) {
	g, site, _ := buildSite()
	g.AddNode(5, []byte("NN"))
	aln := &graph.Alignment{
		Name:    "r",
		Path:    &graph.Path{Mappings: []graph.Mapping{{Traversal: graph.NodeTraversal{Node: 5}}}},
		Quality: []byte{10, 10},
	}
	if _, ok := MeanBaseQuality(g, site, aln); ok {
		t.Error("expected ok=false when the read never touches the site at all")
	}
}
