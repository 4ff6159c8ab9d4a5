package sites

import (
	"testing"

	"github.com/exascience/vg-genotyper/graph"
)

func TestResolveInsideOutDirectHit(t *testing.T) {
	s := NewSite(graph.NodeTraversal{Node: 1}, graph.NodeTraversal{Node: 4}, nil)
	got, ok := ResolveInsideOut(s, func(*Site) bool { return true })
	if !ok || got != s {
		t.Fatalf("expected direct hit to return the original site unchanged")
	}
}

func TestResolveInsideOutSwapSucceeds(t *testing.T) {
	s := NewSite(graph.NodeTraversal{Node: 1}, graph.NodeTraversal{Node: 4}, nil)
	calls := 0
	got, ok := ResolveInsideOut(s, func(candidate *Site) bool {
		calls++
		return candidate.Start.Node == 4
	})
	if !ok {
		t.Fatal("expected swap to succeed")
	}
	if got.Start.Node != 4 || got.End.Node != 1 {
		t.Fatalf("expected swapped site, got %+v", got)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls (direct then swapped), got %d", calls)
	}
}

func TestResolveInsideOutBothFail(t *testing.T) {
	s := NewSite(graph.NodeTraversal{Node: 1}, graph.NodeTraversal{Node: 4}, nil)
	_, ok := ResolveInsideOut(s, func(*Site) bool { return false })
	if ok {
		t.Fatal("expected skip when neither orientation has traversals")
	}
}
