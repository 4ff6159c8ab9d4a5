// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package genotyper

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/vg-genotyper/affinity"
	"github.com/exascience/vg-genotyper/genotype"
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/internal"
	"github.com/exascience/vg-genotyper/refidx"
)

// jsonLocus is the wire shape for the JSON-per-line output sink: a plain,
// fully exported mirror of refidx.Locus, since json.Marshal cannot reach
// into the domain types' behavior, only their exported fields.
type jsonLocus struct {
	Start      graph.NodeTraversal   `json:"start"`
	End        graph.NodeTraversal   `json:"end"`
	Alleles    []jsonAllele          `json:"alleles"`
	Affinities [][]affinity.Affinity `json:"affinities"`
	Genotypes  []*genotype.Genotype  `json:"genotypes"`
}

type jsonAllele struct {
	Sequence string `json:"sequence"`
	Count    int    `json:"count"`
}

func lociOf(results []locusResult) []*refidx.Locus {
	out := make([]*refidx.Locus, 0, len(results))
	for _, r := range results {
		if r.locus != nil {
			out = append(out, r.locus)
		}
	}
	return out
}

func toJSONLocus(l *refidx.Locus) jsonLocus {
	out := jsonLocus{
		Start:      l.Site.Start,
		End:        l.Site.End,
		Alleles:    make([]jsonAllele, len(l.Alleles)),
		Affinities: l.Affinities,
		Genotypes:  l.Genotypes,
	}
	for i, a := range l.Alleles {
		out.Alleles[i] = jsonAllele{Sequence: string(a.Sequence), Count: a.Count}
	}
	return out
}

// emitJSON writes one JSON object per line, encoding loci in parallel with
// github.com/exascience/pargo/pipeline (a single LimitedPar stage batching
// over the locus slice) and then writing the results out in locus order,
// mirroring the compute-in-parallel/write-back-in-order shape of
// filters.HaplotypeCaller.CallVariants' assembly-region pipeline.
func emitJSON(w io.Writer, results []locusResult) error {
	loci := lociOf(results)
	encoded := make([][]byte, len(loci))
	var encodeErr error

	var p pipeline.Pipeline
	next := 0
	p.Source(pipeline.NewFunc(-1, func(size int) (interface{}, int, error) {
		if next >= len(loci) {
			return nil, 0, nil
		}
		start := next
		stop := start + size
		if stop > len(loci) {
			stop = len(loci)
		}
		next = stop
		return [2]int{start, stop}, stop - start, nil
	}))
	p.SetVariableBatchSize(64, 64)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			bounds := data.([2]int)
			for k := bounds[0]; k < bounds[1]; k++ {
				b, err := json.Marshal(toJSONLocus(loci[k]))
				if err != nil {
					encodeErr = err
					continue
				}
				encoded[k] = b
			}
			return nil
		})),
	)
	internal.RunPipeline(&p)
	if encodeErr != nil {
		return encodeErr
	}

	for _, b := range encoded {
		if b == nil {
			continue
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// emitBinary writes one length-prefixed record per locus, grounded on
// sam/bam-files.go's formatBamAlignment: a 4-byte little-endian block-size
// prefix followed by the record body, backfilled once the body's length is
// known.
func emitBinary(w io.Writer, results []locusResult) error {
	loci := lociOf(results)
	body := internal.ReserveByteBuffer()
	defer internal.ReleaseByteBuffer(body)
	for _, l := range loci {
		body = appendLocusBinary(body[:0], l)

		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))
		if _, err := w.Write(prefix[:]); err != nil {
			return err
		}
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func appendLocusBinary(out []byte, l *refidx.Locus) []byte {
	out = appendInt64(out, l.Site.Start.Node)
	out = appendBool(out, l.Site.Start.Backward)
	out = appendInt64(out, l.Site.End.Node)
	out = appendBool(out, l.Site.End.Backward)

	out = appendUint32(out, uint32(len(l.Alleles)))
	for _, a := range l.Alleles {
		out = appendUint32(out, uint32(len(a.Sequence)))
		out = append(out, a.Sequence...)
		out = appendUint32(out, uint32(a.Count))
	}

	out = appendUint32(out, uint32(len(l.Affinities)))
	for _, read := range l.Affinities {
		out = appendUint32(out, uint32(len(read)))
		for _, a := range read {
			out = appendUint32(out, uint32(a.AlleleIndex))
			out = appendBool(out, a.Consistent)
			out = appendBool(out, a.IsReverse)
			out = appendFloat64(out, a.Weight)
		}
	}

	out = appendUint32(out, uint32(len(l.Genotypes)))
	for _, gt := range l.Genotypes {
		out = appendUint32(out, uint32(gt.AlleleA))
		out = appendUint32(out, uint32(gt.AlleleB))
		out = appendFloat64(out, gt.LogLikelihood)
		out = appendFloat64(out, gt.LogPrior)
		out = appendFloat64(out, gt.LogPosterior)
	}
	return out
}

func appendUint32(out []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}

func appendInt64(out []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(out, b[:]...)
}

func appendFloat64(out []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(out, b[:]...)
}

func appendBool(out []byte, v bool) []byte {
	if v {
		return append(out, 1)
	}
	return append(out, 0)
}
