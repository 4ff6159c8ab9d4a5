// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

/*
Package genotyper is the top-level driver: it loads a graph and its read
alignments, finds sites, and for each site enumerates alleles, scores
read affinities, computes diploid genotypes, and emits the result in one
of three output formats. It ties together packages ingest, sites,
alleles, affinity, genotype and refidx the way cmd/genotype.go's flags
describe, and parallelizes the per-site work with
github.com/exascience/pargo/parallel, the same worker-pool library the
teacher uses throughout its own filters.
*/
package genotyper

import (
	"bufio"
	"io"
	"log"
	"math"
	"os"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/vg-genotyper/affinity"
	"github.com/exascience/vg-genotyper/alleles"
	"github.com/exascience/vg-genotyper/genotype"
	"github.com/exascience/vg-genotyper/graph"
	"github.com/exascience/vg-genotyper/ingest"
	"github.com/exascience/vg-genotyper/internal"
	"github.com/exascience/vg-genotyper/refidx"
	"github.com/exascience/vg-genotyper/sites"
)

// OutputFormat selects one of the three mutually exclusive output sinks
// named in SPEC_FULL.md §6.
type OutputFormat int

const (
	VariantOutput OutputFormat = iota
	JSONOutput
	BinaryOutput
)

// RunConfig is every tunable named in SPEC_FULL.md §6, populated by
// cmd/genotype.go's flag.FlagSet.
type RunConfig struct {
	GraphPath      string
	AlignmentsPath string

	UnfoldMaxLength    int
	DagifySteps        int
	MaxPathSearchSteps int
	MinRecurrence      int
	HetPrior           float64
	DefaultBaseQuality int
	UseMapQ            bool
	UseCactus          bool
	ReferencePathName  string
	SampleName         string
	ContigName         string
	VariantOffset      int32

	RegionsBED   string
	SlowAffinity bool
	SortedOutput bool
	WorkerCount  int
	Verbose      bool

	Format OutputFormat
	Output io.Writer
}

// locusResult is one site's outcome: either a completed Locus, or a reason
// it produced nothing, per the error kinds in SPEC_FULL.md §7.
type locusResult struct {
	site  *sites.Site
	locus *refidx.Locus
	skip  string // non-empty names the §7 error kind that caused the skip
}

// Run executes one end-to-end genotyping pass as configured by cfg.
func Run(cfg RunConfig) error {
	if cfg.WorkerCount > 0 {
		runtime.GOMAXPROCS(cfg.WorkerCount)
	}

	g, closeGraph := ingest.ReadGraphMapped(cfg.GraphPath)
	defer closeGraph()

	alignments := readAlignments(cfg.AlignmentsPath)

	refPathName := refidx.SelectReferencePathName(g, cfg.ReferencePathName)
	idx := refidx.Build(g, refPathName)

	contigName := cfg.ContigName
	if contigName == "" {
		contigName = refPathName
	}

	var siteList []*sites.Site
	if cfg.UseCactus {
		log.Println("genotyper: --use-cactus only decomposes bridge-separated (non-nested) bubbles; a bubble nested inside another without an intervening bridge edge will not be split out as its own Site. Use the default superbubble strategy for graphs with genuinely nested variation.")
		siteList = sites.FindCactusBubbles(g)
	} else {
		siteList = sites.FindSuperbubbles(g, cfg.UnfoldMaxLength, cfg.DagifySteps)
	}

	if cfg.RegionsBED != "" {
		rf, err := sites.LoadRegionFilter(cfg.RegionsBED, contigName)
		if err != nil {
			log.Fatalf("genotyper: loading --regions-bed %q: %v", cfg.RegionsBED, err)
		}
		kept := siteList[:0]
		for _, s := range siteList {
			if rf.Keep(s, idx) {
				kept = append(kept, s)
			}
		}
		siteList = kept
	}

	resolved := make([]*sites.Site, 0, len(siteList))
	for _, s := range siteList {
		r, ok := sites.ResolveInsideOut(s, func(s *sites.Site) bool {
			return alleles.HasTraversals(g, s, cfg.MaxPathSearchSteps)
		})
		if !ok {
			if cfg.Verbose {
				log.Printf("genotyper: site %v -> %v is inside-out on both orientations, skipping (InsideOutSite)", s.Start, s.End)
			}
			continue
		}
		resolved = append(resolved, r)
	}
	siteList = resolved

	readsByNode := indexAlignmentsByNode(siteList, alignments)

	var totalAffinities int64
	results := make([]locusResult, len(siteList))
	parallel.Range(0, len(siteList), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i] = processSite(g, siteList[i], readsByNode, cfg, refPathName, &totalAffinities)
		}
	})

	if cfg.Verbose {
		log.Printf("genotyper: %d total affinities scored across %d sites", atomic.LoadInt64(&totalAffinities), len(siteList))
	}

	if cfg.SortedOutput {
		sortResultsByReferencePosition(results, idx)
	}

	return emit(cfg, idx, contigName, results)
}

func readAlignments(path string) []*graph.Alignment {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("genotyper: opening alignments file %q: %v", path, err)
	}
	defer f.Close()
	return ingest.ReadAlignments(bufio.NewReader(f))
}

// indexAlignmentsByNode maps each node id that appears in at least one
// site's contents to every alignment whose path visits that node, so that
// processSite only has to examine the reads that can possibly be
// informative for its site instead of scanning the whole alignment set.
func indexAlignmentsByNode(siteList []*sites.Site, alignments []*graph.Alignment) map[int64][]*graph.Alignment {
	relevant := make(map[int64]bool)
	for _, s := range siteList {
		for id := range s.Contents {
			relevant[id] = true
		}
	}
	index := make(map[int64][]*graph.Alignment)
	for _, aln := range alignments {
		if aln.Path == nil {
			continue
		}
		seen := make(map[int64]bool)
		for _, m := range aln.Path.Mappings {
			id := m.Traversal.Node
			if !relevant[id] || seen[id] {
				continue
			}
			seen[id] = true
			index[id] = append(index[id], aln)
		}
	}
	return index
}

func candidateReads(site *sites.Site, readsByNode map[int64][]*graph.Alignment) []*graph.Alignment {
	seen := make(map[*graph.Alignment]bool)
	var out []*graph.Alignment
	for id := range site.Contents {
		for _, aln := range readsByNode[id] {
			if !seen[aln] {
				seen[aln] = true
				out = append(out, aln)
			}
		}
	}
	return out
}

// processSite runs C3 through C5 for one site: allele enumeration, read
// affinity scoring, and diploid genotyping. A panic inside this function
// (e.g. a GraphInvariantViolation from the graph package) is recovered
// here and demoted to a logged skip, per SPEC_FULL.md §7: one site's
// fatal condition never aborts the whole run. totalAffinities is the
// shared counter named in SPEC_FULL.md §5, atomically incremented once
// per Affinity produced; processSite runs concurrently across the worker
// pool in Run, so every add to it goes through sync/atomic.
func processSite(g *graph.Graph, site *sites.Site, readsByNode map[int64][]*graph.Alignment, cfg RunConfig, refPathName string, totalAffinities *int64) (result locusResult) {
	result.site = site
	defer func() {
		if r := recover(); r != nil {
			log.Printf("genotyper: site %v -> %v failed: %v (skipping)", site.Start, site.End, r)
			result.skip = "PanicRecovered"
			result.locus = nil
		}
	}()

	alleleList := alleles.Enumerate(g, site, cfg.MaxPathSearchSteps, cfg.MinRecurrence, refPathName)
	if len(alleleList) == 0 {
		result.skip = "EmptyLocus"
		return result
	}

	reads := candidateReads(site, readsByNode)
	perRead := make([][]affinity.Affinity, 0, len(reads))
	observations := make([]genotype.ReadObservation, 0, len(reads))

	for _, aln := range reads {
		var affs []affinity.Affinity
		var ok bool
		if cfg.SlowAffinity {
			affs, ok = affinity.ScoreRealign(g, site, alleleList, aln)
		} else {
			affs, ok = affinity.ScoreFast(g, site, alleleList, aln)
		}
		if !ok {
			continue
		}
		atomic.AddInt64(totalAffinities, int64(len(affs)))

		consistent := false
		var sawForward, sawReverse bool
		for _, a := range affs {
			if a.Consistent {
				consistent = true
				if a.IsReverse {
					sawReverse = true
				} else {
					sawForward = true
				}
			}
		}
		if !consistent && cfg.Verbose {
			log.Printf("genotyper: read %s consistent with no allele at site %v -> %v (IncoherentRead)", aln.Name, site.Start, site.End)
		}
		if sawForward && sawReverse && cfg.Verbose {
			log.Printf("genotyper: read %s consistent on both strands at site %v -> %v, counted as forward (AmbiguousStrand)", aln.Name, site.Start, site.End)
		}

		baseQProb, hasQuality := affinity.MeanBaseQuality(g, site, aln)
		if !hasQuality {
			baseQProb = phredToProb(float64(cfg.DefaultBaseQuality))
		} else {
			baseQProb = phredToProb(baseQProb)
		}

		obs := genotype.ReadObservation{
			Affinities: affs,
			UseMapQ:    cfg.UseMapQ,
			MapQProb:   phredToProb(float64(aln.MapQ)),
			BaseQProb:  baseQProb,
		}
		perRead = append(perRead, affs)
		observations = append(observations, obs)
	}

	genotypes := genotype.Enumerate(len(alleleList), observations, cfg.HetPrior)
	if len(genotypes) == 0 {
		result.skip = "EmptyLocus"
		return result
	}

	if cfg.Verbose {
		seqs := make([]string, len(alleleList))
		for i, a := range alleleList {
			seqs[i] = string(a.Sequence)
		}
		log.Printf("genotyper: site %v -> %v: %d alleles %v, %d reads", site.Start, site.End, len(alleleList), seqs, len(observations))
	}

	result.locus = &refidx.Locus{
		Site:       site,
		Alleles:    alleleList,
		Affinities: perRead,
		Genotypes:  genotypes,
	}
	return result
}

// phredToProb converts a Phred-scaled quality into the probability it
// represents being wrong; same formula as genotype.phredToProb and
// elPrep's own filters/bqsr.go qualityToErrorProbability.
func phredToProb(phred float64) float64 {
	return math.Pow(10, -phred/10)
}

// LocusSorter adapts a []locusResult slice to pargo/sort.StableSorter,
// grounded directly on sam.AlignmentSorter's (sam/sam-types.go)
// implementation of the same interface.
type LocusSorter struct {
	results []locusResult
	key     func(locusResult) (pos int32, ok bool)
}

func (s LocusSorter) Len() int { return len(s.results) }

func (s LocusSorter) Less(i, j int) bool {
	pi, oki := s.key(s.results[i])
	pj, okj := s.key(s.results[j])
	if !oki {
		return false
	}
	if !okj {
		return true
	}
	return pi < pj
}

func (s LocusSorter) SequentialSort(i, j int) {
	sub := s.results[i:j]
	sort.SliceStable(sub, func(a, b int) bool {
		pa, oka := s.key(sub[a])
		pb, okb := s.key(sub[b])
		if !oka {
			return false
		}
		if !okb {
			return true
		}
		return pa < pb
	})
}

func (s LocusSorter) NewTemp() psort.StableSorter {
	return LocusSorter{make([]locusResult, len(s.results)), s.key}
}

func (s LocusSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s.results, p.(LocusSorter).results
	return func(i, j, length int) {
		copy(dst[i:i+length], src[j:j+length])
	}
}

func sortResultsByReferencePosition(results []locusResult, idx *refidx.ReferenceIndex) {
	key := func(r locusResult) (int32, bool) {
		if r.locus == nil {
			return 0, false
		}
		return idx.Offset(r.locus.Site.Start.Node)
	}
	psort.StableSort(LocusSorter{results, key})
}

func emit(cfg RunConfig, idx *refidx.ReferenceIndex, contigName string, results []locusResult) error {
	switch cfg.Format {
	case VariantOutput:
		return emitVariants(cfg, idx, contigName, results)
	case JSONOutput:
		return emitJSON(cfg.Output, results)
	case BinaryOutput:
		return emitBinary(cfg.Output, results)
	default:
		log.Panicf("genotyper: unknown output format %v", cfg.Format)
		return nil
	}
}

func emitVariants(cfg RunConfig, idx *refidx.ReferenceIndex, contigName string, results []locusResult) error {
	header := refidx.Header(cfg.SampleName, contigName, idx.Len())
	w := bufio.NewWriter(cfg.Output)
	if err := header.Format(w); err != nil {
		return err
	}

	buf := internal.ReserveByteBuffer()
	defer internal.ReleaseByteBuffer(buf)
	for _, r := range results {
		if r.locus == nil {
			continue
		}
		v, ok := idx.EmitVariant(r.locus, contigName, cfg.VariantOffset)
		if !ok {
			if cfg.Verbose {
				log.Printf("genotyper: site %v -> %v not on reference %q (SiteNotOnReference)", r.site.Start, r.site.End, idx.PathName)
			}
			continue
		}
		var err error
		buf, err = v.Format(buf[:0])
		if err != nil {
			return err
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}
