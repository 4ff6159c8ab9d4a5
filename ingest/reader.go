// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

/*
Package ingest reads the serialized graph and alignment input: a
line-oriented, tab-separated format in the same spirit as elPrep's SAM
reader, with one record kind per leading tag:

	N	id	seq
	E	from_id	from_side	to_id	to_side		(side: "L" or "R")
	P	path_name	node_id	reversed	rank
	A	name	mapq	sequence	quality		node_id:reversed,node_id:reversed,...

Quality is "*" when absent, otherwise one Phred+33 character per base as
in SAM; it is stored in graph.Alignment on the Phred+0 scale. Lines
starting with "#" are comments and are
skipped. This is the only format-aware code in the module; package graph
itself never touches I/O.
*/
package ingest

import (
	"bufio"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/internal"
)

func sideFromString(tag, s string) bool {
	switch s {
	case "L":
		return true
	case "R":
		return false
	default:
		log.Panicf("ingest: invalid side %q in %s record", s, tag)
		return false
	}
}

// ReadGraph parses the graph's own node/edge/path-mapping records from r.
// It does not read alignment ("A") records; those are read separately by
// ReadAlignments so that very large alignment streams can be processed in a
// single pass without holding the whole slice in memory if the caller
// chooses to stream instead of calling ReadAlignments directly.
func ReadGraph(r io.Reader) *graph.Graph {
	g := graph.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		switch fields[0] {
		case "N":
			if len(fields) != 3 {
				log.Panicf("ingest: malformed N record at line %d", lineNo)
			}
			id := internal.ParseInt(fields[1], 10, 64)
			g.AddNode(id, []byte(fields[2]))
		case "E":
			if len(fields) != 5 {
				log.Panicf("ingest: malformed E record at line %d", lineNo)
			}
			from := internal.ParseInt(fields[1], 10, 64)
			fromLeft := sideFromString("E", fields[2])
			to := internal.ParseInt(fields[3], 10, 64)
			toLeft := sideFromString("E", fields[4])
			g.AddEdge(graph.Edge{
				From: graph.Side{Node: from, Left: fromLeft},
				To:   graph.Side{Node: to, Left: toLeft},
			})
		case "P":
			if len(fields) != 5 {
				log.Panicf("ingest: malformed P record at line %d", lineNo)
			}
			node := internal.ParseInt(fields[2], 10, 64)
			backward := parseBool("P", fields[3])
			rank := internal.ParseInt(fields[4], 10, 32)
			g.AddPathMapping(fields[1], graph.Mapping{
				Traversal: graph.NodeTraversal{Node: node, Backward: backward},
				Rank:      int32(rank),
			})
		case "A":
			// alignments are handled by ReadAlignments
		default:
			log.Panicf("ingest: unrecognized record kind %q at line %d", fields[0], lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	sortMappingsByRank(g)
	return g
}

// sortMappingsByRank orders each embedded path's mappings by rank. P records
// for a given path need not arrive in rank order on the wire; this mirrors
// the source's own path construction, which accepts mappings in arbitrary
// order and relies on rank alone to define the walk.
func sortMappingsByRank(g *graph.Graph) {
	for _, p := range g.Paths {
		sort.Slice(p.Mappings, func(i, j int) bool {
			return p.Mappings[i].Rank < p.Mappings[j].Rank
		})
	}
}

func parseBool(tag, s string) bool {
	switch s {
	case "0", "false", "F", "f":
		return false
	case "1", "true", "T", "t":
		return true
	default:
		log.Panicf("ingest: invalid boolean %q in %s record", s, tag)
		return false
	}
}

// ReadAlignments parses every "A" record from r into a slice of
// *graph.Alignment. Unnamed alignments (an empty name field, written as
// "*") are assigned a generated unique name, replacing the source's
// sequential "_unnamed_alignment_<i>" convention with a collision-free UUID
// so that alignments from independently generated batches can be merged
// without renaming.
func ReadAlignments(r io.Reader) []*graph.Alignment {
	var out []*graph.Alignment
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if fields[0] != "A" {
			continue
		}
		if len(fields) != 6 {
			log.Panicf("ingest: malformed A record at line %d", lineNo)
		}
		name := fields[1]
		if name == "" || name == "*" {
			name = "aln-" + uuid.New().String()
		}
		mapq64 := internal.ParseUint(fields[2], 10, 8)
		seq := []byte(fields[3])
		var qual []byte
		if fields[4] != "*" {
			qual = []byte(fields[4])
			if len(qual) != len(seq) {
				log.Panicf("ingest: quality length mismatch at line %d", lineNo)
			}
			for i, q := range qual {
				if q < 33 {
					log.Panicf("ingest: invalid quality character at line %d", lineNo)
				}
				qual[i] = q - 33
			}
		}
		path := &graph.Path{}
		if fields[5] != "" {
			steps := strings.Split(fields[5], ",")
			path.Mappings = make([]graph.Mapping, len(steps))
			for i, step := range steps {
				node, backward := parseTraversalToken(step, lineNo)
				path.Mappings[i] = graph.Mapping{
					Traversal: graph.NodeTraversal{Node: node, Backward: backward},
					Rank:      int32(i),
				}
			}
		}
		out = append(out, &graph.Alignment{
			Name:     name,
			Path:     path,
			Sequence: seq,
			Quality:  qual,
			MapQ:     uint8(mapq64),
		})
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}
	return out
}

func parseTraversalToken(tok string, lineNo int) (node int64, backward bool) {
	idx := strings.IndexByte(tok, ':')
	if idx < 0 {
		log.Panicf("ingest: malformed traversal token %q at line %d", tok, lineNo)
	}
	id, err := strconv.ParseInt(tok[:idx], 10, 64)
	if err != nil {
		log.Panic(err)
	}
	return id, parseBool("A", tok[idx+1:])
}
