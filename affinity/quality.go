// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package affinity

import (
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/sites"
)

// MeanBaseQuality returns the mean Phred quality of aln's bases that fall
// on site's nodes, including the two endpoint nodes, mirroring the
// original genotyper's get_qualities_in_site: it trims the read's quality
// string down to the window spanning the site before averaging it, rather
// than using the read's whole-string mean. Returns (0, false) if aln has
// no quality string or no bases land inside the window.
func MeanBaseQuality(g *graph.Graph, site *sites.Site, aln *graph.Alignment) (float64, bool) {
	if aln.Path == nil || len(aln.Quality) == 0 {
		return 0, false
	}
	var sum float64
	var n int
	offset := 0
	for _, m := range aln.Path.Mappings {
		node := g.NodeOrDie(m.Traversal.Node)
		length := node.Len()
		if site.Contents[m.Traversal.Node] || m.Traversal.Node == site.Start.Node || m.Traversal.Node == site.End.Node {
			for i := 0; i < length && offset+i < len(aln.Quality); i++ {
				sum += float64(aln.Quality[offset+i])
				n++
			}
		}
		offset += length
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
