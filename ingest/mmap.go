// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package ingest

import (
	"bytes"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/exascience/vg-genotyper/graph"
)

// ReadGraphMapped loads a serialized graph file by memory-mapping it
// instead of streaming it through a buffered reader, grounded on
// fasta.OpenElfasta's mmap idiom. ReadGraph copies every field it keeps,
// so the returned graph does not alias the mapping; the closer only
// needs to be called once parsing is done, to release the pages.
func ReadGraphMapped(filename string) (*graph.Graph, func()) {
	file, err := os.Open(filename)
	if err != nil {
		log.Panic(err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		log.Panic(err)
	}
	if stat.Size() == 0 {
		_ = file.Close()
		return graph.New(), func() {}
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		log.Panic(err)
	}

	g := ReadGraph(bytes.NewReader(data))

	return g, func() {
		if err := unix.Munmap(data); err != nil {
			log.Panic(err)
		}
		if err := file.Close(); err != nil {
			log.Panic(err)
		}
	}
}
