// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package refidx

import (
	"fmt"
	"log"
	"math"

	"github.com/exascience/vg-genotyper/affinity"
	"github.com/exascience/vg-genotyper/alleles"
	"github.com/exascience/vg-genotyper/genotype"
	"github.com/exascience/vg-genotyper/sites"
	"github.com/exascience/vg-genotyper/utils"
	"github.com/exascience/vg-genotyper/vcf"
)

var (
	symDP   = utils.Intern("DP")
	symGT   = utils.Intern("GT")
	symAD   = utils.Intern("AD")
	symSB   = utils.Intern("SB")
	symXAAD = utils.Intern("XAAD")
	symPL   = utils.Intern("PL")
	symXREF = utils.Intern("XREF")
	symXSEE = utils.Intern("XSEE")
)

// Locus is one genotyped site, ready for variant-record emission: the
// site itself, its allele list (allele 0 is the reference allele when
// Enumerate resolved one, see alleles.Enumerate), every read's affinities
// against that allele list, and the sorted genotype list from C5.
type Locus struct {
	Site       *sites.Site
	Alleles    []*alleles.Allele
	Affinities [][]affinity.Affinity // one slice per read, indexed like Alleles
	Genotypes  []*genotype.Genotype  // sorted descending by LogPosterior
}

// Header builds the variant-record header this module emits: ALT=NON_REF,
// INFO XREF/XSEE/DP, FORMAT DP/GT/AD/SB/XAAD/PL, and the given contig.
func Header(sampleName, contigName string, contigLength int32) *vcf.Header {
	h := vcf.NewHeader()
	h.Columns = append(append([]string{}, vcf.DefaultHeaderColumns...), "FORMAT", sampleName)
	h.Infos = []*vcf.FormatInformation{
		{ID: symXREF, Description: "Reference allele spelled from the variation graph", Number: 1, Type: vcf.String},
		{ID: symXSEE, Description: "Number of distinct alleles retained at this site", Number: 1, Type: vcf.Integer},
		{ID: symDP, Description: "Total read depth", Number: 1, Type: vcf.Integer},
	}
	h.Formats = []*vcf.FormatInformation{
		{ID: symDP, Description: "Read depth", Number: 1, Type: vcf.Integer},
		{ID: symGT, Description: "Genotype", Number: 1, Type: vcf.String},
		{ID: symAD, Description: "Allelic depths", Number: vcf.NumberR, Type: vcf.Integer},
		{ID: symSB, Description: "Strand counts: ref-forward,ref-reverse,alt-forward,alt-reverse", Number: 4, Type: vcf.Integer},
		{ID: symXAAD, Description: "Sum of alt allele depths", Number: 1, Type: vcf.Integer},
		{ID: symPL, Description: "Phred-scaled genotype likelihoods", Number: vcf.NumberG, Type: vcf.Integer},
	}
	h.Meta["contig"] = []interface{}{fmt.Sprintf("<ID=%s,length=%d>", contigName, contigLength)}
	h.Meta["ALT"] = []interface{}{"<ID=NON_REF,Description=\"Represents any possible alternative allele\">"}
	return h
}

// support holds per-allele forward/reverse consistent-read counts,
// computed from a Locus's Affinities, grounding SPEC_FULL.md §4.5's
// "Per-allele Support" and §4.6's SB/AD fields.
type support struct {
	forward, reverse []int
}

func computeSupport(numAlleles int, perRead [][]affinity.Affinity) *support {
	s := &support{forward: make([]int, numAlleles), reverse: make([]int, numAlleles)}
	for _, affs := range perRead {
		for a, aff := range affs {
			if !aff.Consistent {
				continue
			}
			if aff.IsReverse {
				s.reverse[a]++
			} else {
				s.forward[a]++
			}
		}
	}
	return s
}

func (s *support) depth(allele int) int {
	return s.forward[allele] + s.reverse[allele]
}

// EmitVariant turns a genotyped Locus into a variant-record line, per
// SPEC_FULL.md §4.6. It returns false (emitting nothing) when either
// endpoint of the site is not on the reference, or the locus carries no
// alleles.
func (idx *ReferenceIndex) EmitVariant(locus *Locus, contigName string, variantOffset int32) (*vcf.Variant, bool) {
	if len(locus.Alleles) == 0 {
		return nil, false
	}
	startOffset, ok := idx.Offset(locus.Site.Start.Node)
	if !ok {
		return nil, false
	}
	endOffset, ok := idx.Offset(locus.Site.End.Node)
	if !ok {
		return nil, false
	}
	intervalStart := startOffset + idx.NodeLen(locus.Site.Start.Node)
	intervalEnd := endOffset
	if intervalStart > intervalEnd {
		log.Panicf("refidx: invalid reference interval for site %d-%d: [%d, %d)", locus.Site.Start.Node, locus.Site.End.Node, intervalStart, intervalEnd)
	}

	ref := normalizeBases(idx.Substring(intervalStart, intervalEnd))
	alts := make([][]byte, 0, len(locus.Alleles)-1)
	for _, a := range locus.Alleles[1:] {
		alts = append(alts, normalizeBases(idx.interiorSequence(a)))
	}

	pos := intervalStart
	if len(ref) == 0 || anyEmpty(alts) {
		// Left-anchor convention: prepend the base immediately preceding
		// the interval to every allele and step the position back by one.
		if pos == 0 {
			log.Panic("refidx: cannot left-anchor an empty allele at the start of the reference")
		}
		lead := idx.Base(pos - 1)
		ref = append([]byte{lead}, ref...)
		for i := range alts {
			alts[i] = append([]byte{lead}, alts[i]...)
		}
		pos--
	}

	altStrings := make([]string, len(alts))
	for i, a := range alts {
		altStrings[i] = string(a)
	}

	numAlleles := len(locus.Alleles)
	supp := computeSupport(numAlleles, locus.Affinities)

	// DP is the site's overall read depth: each read counts once, never
	// once per allele it happens to be consistent with. Per-allele AD
	// below legitimately double-counts (a read anchored at only one
	// endpoint is consistent with, and contributes to, every allele
	// sharing that endpoint's prefix or suffix), but DP must not.
	dp := genotype.ComputeOverallSupport(locus.Affinities).Depth()
	ad := make([]interface{}, numAlleles)
	for i := 0; i < numAlleles; i++ {
		ad[i] = supp.depth(i)
	}
	altDepth := 0
	for i := 1; i < numAlleles; i++ {
		altDepth += supp.depth(i)
	}
	altForward, altReverse := 0, 0
	for i := 1; i < numAlleles; i++ {
		altForward += supp.forward[i]
		altReverse += supp.reverse[i]
	}
	sb := []interface{}{supp.forward[0], supp.reverse[0], altForward, altReverse}

	best := locus.Genotypes[0]
	pl := phredScaledLikelihoods(locus.Genotypes, numAlleles)

	data := utils.SmallMap{}
	data.Set(symDP, dp)
	data.Set(symGT, fmt.Sprintf("%d/%d", best.AlleleB, best.AlleleA))
	data.Set(symAD, ad)
	data.Set(symSB, sb)
	data.Set(symXAAD, altDepth)
	data.Set(symPL, pl)

	info := utils.SmallMap{}
	info.Set(symDP, dp)
	info.Set(symXREF, string(ref))
	info.Set(symXSEE, len(locus.Alleles))

	v := &vcf.Variant{
		Chrom:          contigName,
		Pos:            pos + 1 + variantOffset, // variant-record text format positions are 1-based
		Ref:            string(ref),
		Alt:            altStrings,
		Info:           info,
		GenotypeFormat: []utils.Symbol{symDP, symGT, symAD, symSB, symXAAD, symPL},
		GenotypeData:   []vcf.Genotype{{Data: data}},
	}
	return v, true
}

// phredScaledLikelihoods computes PL for every genotype in canonical
// index = i(i+1)/2+j order, normalized against the best (by posterior)
// genotype's own LogLikelihood, per SPEC_FULL.md §4.6. Negative values
// (the best-by-posterior genotype need not be the best by raw
// likelihood) are clamped to 0, matching the usual PL convention.
func phredScaledLikelihoods(genotypes []*genotype.Genotype, numAlleles int) []interface{} {
	if len(genotypes) == 0 {
		return nil
	}
	base := genotypes[0].LogLikelihood
	n := numAlleles * (numAlleles + 1) / 2
	pl := make([]interface{}, n)
	for _, g := range genotypes {
		idx := g.AlleleA*(g.AlleleA+1)/2 + g.AlleleB
		raw := -10.0 / math.Ln10 * (g.LogLikelihood - base)
		if raw < 0 {
			raw = 0
		}
		pl[idx] = int(math.Round(raw))
	}
	return pl
}

func normalizeBases(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		switch b {
		case 'A', 'C', 'G', 'T':
			out[i] = b
		default:
			out[i] = 'N'
		}
	}
	return out
}

// interiorSequence spells an allele's traversal with the two endpoint
// node traversals (shared by every allele of the site) stripped off, so
// that it lines up against the site's reference interval the same way
// the reference substring does.
func (idx *ReferenceIndex) interiorSequence(a *alleles.Allele) []byte {
	if len(a.Traversal) < 2 {
		return nil
	}
	return idx.g.SpellTraversals(a.Traversal[1 : len(a.Traversal)-1])
}

func anyEmpty(alts [][]byte) bool {
	for _, a := range alts {
		if len(a) == 0 {
			return true
		}
	}
	return false
}
