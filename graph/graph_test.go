package graph

import (
	"bytes"
	"testing"
)

func TestReverseComplement(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ACGT", "ACGT"},
		{"AACCGGTT", "AACCGGTT"},
		{"GATTACA", "TGTAATC"},
		{"ACGTN", "NACGT"},
	}
	for _, c := range cases {
		got := ReverseComplement([]byte(c.in))
		if !bytes.Equal(got, []byte(c.want)) {
			t.Errorf("ReverseComplement(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSeq(t *testing.T) {
	got := NormalizeSeq([]byte("acgtnRYKM"))
	want := []byte("ACGTNNNNN")
	if !bytes.Equal(got, want) {
		t.Errorf("NormalizeSeq = %q, want %q", got, want)
	}
}

func TestGraphEdgesAndAdjacency(t *testing.T) {
	g := New()
	g.AddNode(1, []byte("AC"))
	g.AddNode(2, []byte("GT"))
	right1 := Side{Node: 1, Left: false}
	left2 := Side{Node: 2, Left: true}
	g.AddEdge(Edge{From: right1, To: left2})

	if !g.HasEdge(right1, left2) {
		t.Fatal("expected edge right1->left2")
	}
	if !g.HasEdge(left2, right1) {
		t.Fatal("expected reciprocal edge left2->right1")
	}
	if got := g.EdgesOn(right1); len(got) != 1 || got[0] != left2 {
		t.Fatalf("EdgesOn(right1) = %v", got)
	}
}

func TestTraversalSequenceAndSpelling(t *testing.T) {
	g := New()
	g.AddNode(1, []byte("ACG"))
	g.AddNode(2, []byte("TT"))

	fwd := NodeTraversal{Node: 1, Backward: false}
	rev := NodeTraversal{Node: 2, Backward: true}

	if got := string(g.TraversalSequence(fwd)); got != "ACG" {
		t.Errorf("forward traversal seq = %q", got)
	}
	if got := string(g.TraversalSequence(rev)); got != "AA" {
		t.Errorf("reverse traversal seq = %q", got)
	}

	spelled := g.SpellTraversals([]NodeTraversal{fwd, rev})
	if got := string(spelled); got != "ACGAA" {
		t.Errorf("spelled = %q, want ACGAA", got)
	}
}

func TestAddNodeDuplicatePanics(t *testing.T) {
	g := New()
	g.AddNode(1, []byte("A"))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate node id")
		}
	}()
	g.AddNode(1, []byte("C"))
}

func TestAddPathMappingCreatesPath(t *testing.T) {
	g := New()
	g.AddPathMapping("ref", Mapping{Traversal: NodeTraversal{Node: 1}, Rank: 0})
	g.AddPathMapping("ref", Mapping{Traversal: NodeTraversal{Node: 2}, Rank: 1})

	p, ok := g.Path("ref")
	if !ok {
		t.Fatal("expected path ref to exist")
	}
	if len(p.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(p.Mappings))
	}
}
