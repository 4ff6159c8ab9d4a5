package ingest

import (
	"strings"
	"testing"
)

const smallGraph = `# a 3-node SNP bubble: 1 -> {2 or 3} -> 4
N	1	GATTACA
N	2	G
N	3	T
N	4	CAT
E	1	R	2	L
E	1	R	3	L
E	2	R	4	L
E	3	R	4	L
P	ref	1	0	0
P	ref	2	0	1
P	ref	4	0	2
`

func TestReadGraphBasic(t *testing.T) {
	g := ReadGraph(strings.NewReader(smallGraph))
	if len(g.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(g.Nodes))
	}
	right1 := struct{ Node int64 }{1}
	_ = right1
	p, ok := g.Path("ref")
	if !ok {
		t.Fatal("expected ref path")
	}
	if len(p.Mappings) != 3 {
		t.Fatalf("expected 3 mappings, got %d", len(p.Mappings))
	}
	for i, m := range p.Mappings {
		if m.Rank != int32(i) {
			t.Errorf("mapping %d has rank %d, want %d", i, m.Rank, i)
		}
	}
}

func TestReadGraphOutOfOrderRanks(t *testing.T) {
	data := "N\t1\tA\nN\t2\tC\nP\tref\t2\t0\t1\nP\tref\t1\t0\t0\n"
	g := ReadGraph(strings.NewReader(data))
	p, _ := g.Path("ref")
	if p.Mappings[0].Traversal.Node != 1 || p.Mappings[1].Traversal.Node != 2 {
		t.Fatalf("mappings not sorted by rank: %+v", p.Mappings)
	}
}

func TestReadAlignments(t *testing.T) {
	data := "A\tread1\t60\tGATTACAG\t*\t1:0,2:0\n" +
		"A\t*\t30\tACGT\tFFFF\t3:1\n"
	alns := ReadAlignments(strings.NewReader(data))
	if len(alns) != 2 {
		t.Fatalf("expected 2 alignments, got %d", len(alns))
	}
	if alns[0].Name != "read1" {
		t.Errorf("expected name read1, got %q", alns[0].Name)
	}
	if alns[0].MapQ != 60 {
		t.Errorf("expected mapq 60, got %d", alns[0].MapQ)
	}
	if alns[0].Quality != nil {
		t.Errorf("expected nil quality for '*', got %v", alns[0].Quality)
	}
	if alns[1].Name == "" || alns[1].Name == "*" {
		t.Errorf("expected generated name for unnamed alignment, got %q", alns[1].Name)
	}
	if len(alns[1].Path.Mappings) != 1 || alns[1].Path.Mappings[0].Traversal.Node != 3 {
		t.Fatalf("unexpected path for alignment 2: %+v", alns[1].Path.Mappings)
	}
}

func TestReadAlignmentsQualityMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on quality/sequence length mismatch")
		}
	}()
	ReadAlignments(strings.NewReader("A\tr\t10\tACGT\tFF\t1:0\n"))
}
