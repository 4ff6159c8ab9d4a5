package ingest

import (
	"os"
	"testing"
)

func TestReadGraphMapped(t *testing.T) {
	f, err := os.CreateTemp("", "vg-genotyper-graph-*.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(smallGraph); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	g, closeFn := ReadGraphMapped(f.Name())
	defer closeFn()

	if len(g.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(g.Nodes))
	}
	p, ok := g.Path("ref")
	if !ok || len(p.Mappings) != 3 {
		t.Fatalf("expected a 3-mapping ref path, got %+v ok=%v", p, ok)
	}
}

func TestReadGraphMappedEmptyFile(t *testing.T) {
	f, err := os.CreateTemp("", "vg-genotyper-empty-*.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	f.Close()

	g, closeFn := ReadGraphMapped(f.Name())
	defer closeFn()
	if len(g.Nodes) != 0 {
		t.Errorf("expected an empty graph, got %d nodes", len(g.Nodes))
	}
}
