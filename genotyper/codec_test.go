package genotyper

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/exascience/vg-genotyper/affinity"
	"github.com/exascience/vg-genotyper/alleles"
	"github.com/exascience/vg-genotyper/genotype"
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/refidx"
	"github.com/exascience/vg-genotyper/sites"
)

func sampleResults() []locusResult {
	site := sites.NewSite(graph.NodeTraversal{Node: 1}, graph.NodeTraversal{Node: 4}, map[int64]bool{2: true, 3: true})
	locus := &refidx.Locus{
		Site: site,
		Alleles: []*alleles.Allele{
			{Traversal: []graph.NodeTraversal{{Node: 1}, {Node: 2}, {Node: 4}}, Sequence: []byte("GATTACAGCAT"), Count: 7},
			{Traversal: []graph.NodeTraversal{{Node: 1}, {Node: 3}, {Node: 4}}, Sequence: []byte("GATTACATCAT"), Count: 3},
		},
		Affinities: [][]affinity.Affinity{
			{{AlleleIndex: 0, Consistent: true, IsReverse: false, Weight: 1}, {AlleleIndex: 1}},
			{{AlleleIndex: 0}, {AlleleIndex: 1, Consistent: true, IsReverse: true, Weight: 1}},
		},
		Genotypes: []*genotype.Genotype{
			{AlleleA: 0, AlleleB: 0, LogLikelihood: -1, LogPrior: -0.1, LogPosterior: -1.1},
			{AlleleA: 1, AlleleB: 0, LogLikelihood: -3, LogPrior: -5, LogPosterior: -8},
		},
	}
	return []locusResult{
		{locus: locus},
		{skip: "EmptyLocus"}, // must be filtered out by lociOf
	}
}

func TestLociOfFiltersSkippedResults(t *testing.T) {
	loci := lociOf(sampleResults())
	if len(loci) != 1 {
		t.Fatalf("lociOf returned %d loci, want 1", len(loci))
	}
}

func TestEmitJSONWritesOneObjectPerLocus(t *testing.T) {
	var buf bytes.Buffer
	if err := emitJSON(&buf, sampleResults()); err != nil {
		t.Fatalf("emitJSON: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (skipped results must not be emitted)", len(lines))
	}

	var decoded jsonLocus
	if err := json.Unmarshal(lines[0], &decoded); err != nil {
		t.Fatalf("decoding emitted JSON: %v", err)
	}
	if len(decoded.Alleles) != 2 {
		t.Fatalf("got %d alleles, want 2", len(decoded.Alleles))
	}
	if decoded.Alleles[0].Sequence != "GATTACAGCAT" {
		t.Errorf("Alleles[0].Sequence = %q, want GATTACAGCAT", decoded.Alleles[0].Sequence)
	}
	if len(decoded.Genotypes) != 2 {
		t.Fatalf("got %d genotypes, want 2", len(decoded.Genotypes))
	}
}

func TestEmitBinaryRoundTripsLengthPrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	if err := emitBinary(&buf, sampleResults()); err != nil {
		t.Fatalf("emitBinary: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 4 {
		t.Fatal("binary output too short to contain a length prefix")
	}
	length := binary.LittleEndian.Uint32(data[:4])
	body := data[4:]
	if uint32(len(body)) != length {
		t.Fatalf("length prefix = %d, but body is %d bytes", length, len(body))
	}
	if len(data) != 4+int(length) {
		t.Fatalf("expected exactly one record (skipped results excluded), got %d trailing bytes", len(data)-4-int(length))
	}

	// Spot-check the leading fields: site start node id (int64) and
	// its Backward flag (bool), matching appendLocusBinary's layout.
	startNode := int64(binary.LittleEndian.Uint64(body[0:8]))
	if startNode != 1 {
		t.Errorf("decoded start node = %d, want 1", startNode)
	}
	backward := body[8]
	if backward != 0 {
		t.Errorf("decoded Backward flag = %d, want 0", backward)
	}
}
